package svc

import (
	"errors"
	"testing"
	"time"

	"github.com/warpdl/svcctl/pkg/scm"
)

type recordingReporter struct {
	reports []scm.ServiceStatus
	err     error
}

func (r *recordingReporter) Report(s scm.ServiceStatus) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, s)
	return nil
}

// TestReporterCheckpointSequence verifies the start/stop reporting pattern.
func TestReporterCheckpointSequence(t *testing.T) {
	rec := &recordingReporter{}
	r := NewReporter(rec, scm.Win32OwnProcess, scm.AcceptStop|scm.AcceptPauseContinue)

	steps := []func() error{
		func() error { return r.Pending(scm.StartPending, time.Second) },
		func() error { return r.Pending(scm.StartPending, time.Second) },
		func() error { return r.Pending(scm.StartPending, 500*time.Millisecond) },
		r.Running,
		func() error { return r.Pending(scm.StopPending, 2*time.Second) },
		func() error { return r.Stopped(scm.ServiceSpecific(4)) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	wantCheckpoints := []uint32{1, 2, 3, 0, 1, 0}
	for i, s := range rec.reports {
		if s.Checkpoint != wantCheckpoints[i] {
			t.Errorf("report %d (%v): checkpoint %d, want %d", i, s.State, s.Checkpoint, wantCheckpoints[i])
		}
	}
	if got := rec.reports[0].ControlsAccepted; got != 0 {
		t.Errorf("start pending accepts %#x, want none", got)
	}
	if got := rec.reports[3].ControlsAccepted; got != scm.AcceptStop|scm.AcceptPauseContinue {
		t.Errorf("running accepts %#x", got)
	}
	last := r.Current()
	if last.State != scm.Stopped || last.ExitCode != scm.ServiceSpecific(4) || last.WaitHint != 0 {
		t.Errorf("final status %+v", last)
	}
}

func TestReporterPauseCycle(t *testing.T) {
	rec := &recordingReporter{}
	r := NewReporter(rec, scm.Win32OwnProcess, scm.AcceptStop|scm.AcceptPauseContinue)
	if err := r.Running(); err != nil {
		t.Fatal(err)
	}
	if err := r.Pending(scm.PausePending, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := r.Paused(); err != nil {
		t.Fatal(err)
	}
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.reports); n != 4 || rec.reports[3].State != scm.Paused {
		t.Errorf("reports = %+v", rec.reports)
	}
	if rec.reports[1].ControlsAccepted == 0 {
		t.Error("pause pending should keep accepting controls")
	}
}

func TestReporterKeepsStateOnFailure(t *testing.T) {
	rec := &recordingReporter{}
	r := NewReporter(rec, scm.Win32OwnProcess, scm.AcceptStop)
	if err := r.Running(); err != nil {
		t.Fatal(err)
	}
	rec.err = errors.New("boom")
	if err := r.Pending(scm.StopPending, time.Second); err == nil {
		t.Fatal("expected error")
	}
	if r.Current().State != scm.Running {
		t.Errorf("state changed after failed report: %v", r.Current().State)
	}
}
