package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/warpdl/svcctl/internal/journal"
	"github.com/warpdl/svcctl/pkg/scm"
)

// lastEntry returns the newest journal entry for service.
func lastEntry(t *testing.T, service string) journal.Entry {
	t.Helper()
	entries, err := current.journal.List(context.Background(), journal.Filter{Service: service, Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("no journal entry for %s", service)
	}
	return entries[0]
}

func TestStart_PassesArguments(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Stopped)

	ctx := newContext(t, waitFlags, "probe", "-v", "--port=9")
	var err error
	out, _ := captureOutput(func() { err = start(ctx) })
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if strings.Join(s.startArgs, " ") != "-v --port=9" {
		t.Errorf("start args = %q", s.startArgs)
	}
	if m.opened["probe"] != scm.ServiceStart {
		t.Errorf("access = %#x, want start only", m.opened["probe"])
	}
	if !s.closed || !m.closed {
		t.Error("handles must be closed")
	}
	assertContains(t, out, "start requested")

	e := lastEntry(t, "probe")
	if e.Operation != "start" || !e.OK() || e.Detail != "-v --port=9" {
		t.Errorf("journal entry = %+v", e)
	}
}

func TestStart_Wait(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Stopped)
	s.queued = []scm.ServiceStatus{pending(scm.StartPending, 1, time.Second)}
	// The service reports Running once started.
	s.status = scm.ServiceStatus{State: scm.Running}

	ctx := newContext(t, waitFlags, "--wait", "probe")
	var err error
	out, _ := captureOutput(func() { err = start(ctx) })
	if err != nil {
		t.Fatalf("start --wait: %v", err)
	}
	if m.opened["probe"] != scm.ServiceStart|scm.ServiceQueryStatus {
		t.Errorf("access = %#x", m.opened["probe"])
	}
	assertContains(t, out, "Service 'probe' started")
}

func TestStart_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		missing bool
		want    string
	}{
		{name: "not installed", missing: true, want: "is not installed"},
		{name: "already running", err: errnoAlreadyRunning, want: "is already running"},
		{name: "disabled", err: errnoServiceDisabled, want: "is disabled"},
		{name: "other", err: errors.New("boom"), want: "failed to start service 'probe': boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupFakes(t)
			if !tt.missing {
				s := m.add("probe", scm.Stopped)
				s.errs = map[string]error{"start": tt.err}
			}
			err := start(newContext(t, waitFlags, "probe"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
			if e := lastEntry(t, "probe"); e.OK() {
				t.Errorf("failed start journaled as success: %+v", e)
			}
		})
	}
}

func TestStop_Wait(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)
	s.queued = []scm.ServiceStatus{
		pending(scm.StopPending, 1, time.Second),
		pending(scm.StopPending, 2, time.Second),
		{State: scm.Stopped},
	}

	var err error
	out, _ := captureOutput(func() { err = stop(newContext(t, waitFlags, "-w", "probe")) })
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !s.called("stop") {
		t.Error("Stop was not called")
	}
	assertContains(t, out, "Service 'probe' stopped")
}

func TestPauseResume(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)

	captureOutput(func() {
		if err := pause(newContext(t, waitFlags, "probe")); err != nil {
			t.Errorf("pause: %v", err)
		}
		if err := resume(newContext(t, waitFlags, "probe")); err != nil {
			t.Errorf("resume: %v", err)
		}
	})
	if !s.called("pause") || !s.called("resume") {
		t.Errorf("calls = %v", s.calls)
	}
	if m.opened["probe"] != scm.ServicePauseContinue {
		t.Errorf("access = %#x", m.opened["probe"])
	}
	if e := lastEntry(t, "probe"); e.Operation != "resume" {
		t.Errorf("last operation = %q", e.Operation)
	}
}

func TestPause_CannotAcceptControl(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)
	s.errs = map[string]error{"pause": errnoCannotAcceptCtrl}

	err := pause(newContext(t, waitFlags, "probe"))
	if err == nil || !strings.Contains(err.Error(), "cannot accept this control") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestControl_RequiresAdmin(t *testing.T) {
	setupFakes(t)
	isAdminFunc = func() bool { return false }

	if err := stop(newContext(t, waitFlags, "probe")); !errors.Is(err, ErrRequiresAdmin) {
		t.Fatalf("expected ErrRequiresAdmin, got %v", err)
	}
}

func TestControl_RemoteSkipsAdminCheck(t *testing.T) {
	m := setupFakes(t)
	m.add("probe", scm.Running)
	isAdminFunc = func() bool { return false }
	current.machine = "build01"

	var err error
	captureOutput(func() { err = stop(newContext(t, waitFlags, "probe")) })
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.machine != "build01" {
		t.Errorf("connected to %q", m.machine)
	}
}

func TestControl_MissingName(t *testing.T) {
	setupFakes(t)
	if err := start(newContext(t, waitFlags)); err == nil || err.Error() != "missing service name" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotify(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)

	var err error
	out, _ := captureOutput(func() { err = notify(newContext(t, nil, "probe", "200")) })
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(s.notified) != 1 || s.notified[0] != 200 {
		t.Errorf("notified = %v", s.notified)
	}
	if m.opened["probe"] != scm.ServiceUserDefinedControl {
		t.Errorf("access = %#x", m.opened["probe"])
	}
	assertContains(t, out, "accepted control 200")
	if e := lastEntry(t, "probe"); e.Operation != "notify" || e.Detail != "200" {
		t.Errorf("journal entry = %+v", e)
	}
}

func TestNotify_InvalidCode(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"probe"}, "missing control code"},
		{[]string{"probe", "abc"}, "invalid control code"},
		{[]string{"probe", "127"}, "between 128 and 255"},
		{[]string{"probe", "256"}, "between 128 and 255"},
	}
	for _, tt := range tests {
		m := setupFakes(t)
		s := m.add("probe", scm.Running)
		err := notify(newContext(t, nil, tt.args...))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("notify %v: expected %q, got %v", tt.args, tt.want, err)
		}
		if len(s.notified) != 0 {
			t.Errorf("notify %v: control was sent", tt.args)
		}
	}
}

func TestNotify_HexCode(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)

	captureOutput(func() {
		if err := notify(newContext(t, nil, "probe", "0x80")); err != nil {
			t.Errorf("notify: %v", err)
		}
	})
	if len(s.notified) != 1 || s.notified[0] != 128 {
		t.Errorf("notified = %v", s.notified)
	}
}

func TestStatus(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)
	s.status = scm.ServiceStatus{
		ServiceType:      scm.Win32OwnProcess,
		State:            scm.Running,
		ControlsAccepted: scm.AcceptStop | scm.AcceptPauseContinue | scm.AcceptSessionChange,
		ProcessID:        scm.Some(uint32(4242)),
	}

	var err error
	out, _ := captureOutput(func() { err = status(newContext(t, nil, "probe")) })
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertContainsAll(t, out, []string{
		"Service:    probe",
		"State:      Running",
		"Type:       Win32OwnProcess",
		"PID:        4242",
		"Accepts:    stop, pause-continue, session-change",
	})
	assertNotContains(t, out, "Exit code")
	assertNotContains(t, out, "Checkpoint")
}

func TestStatus_StoppedAndPending(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Stopped)
	s.status = scm.ServiceStatus{State: scm.Stopped, ExitCode: scm.ServiceSpecific(2)}

	out, _ := captureOutput(func() { _ = status(newContext(t, nil, "probe")) })
	assertContains(t, out, "Exit code:")
	assertContains(t, out, "Accepts:    none")
	assertNotContains(t, out, "PID:")

	s.status = pending(scm.StopPending, 3, 4*time.Second)
	out, _ = captureOutput(func() { _ = status(newContext(t, nil, "probe")) })
	assertContains(t, out, "Checkpoint: 3")
	assertContains(t, out, "Wait hint:  4s")
}

func TestAcceptNames(t *testing.T) {
	if got := acceptNames(0); got != "none" {
		t.Errorf("acceptNames(0) = %q", got)
	}
	got := acceptNames(scm.AcceptPreshutdown | scm.AcceptTimeChange)
	if got != "preshutdown, time-change" {
		t.Errorf("acceptNames = %q", got)
	}
}
