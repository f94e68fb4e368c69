package cmd

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/svcctl/internal/definition"
	"github.com/warpdl/svcctl/pkg/scm"
)

func configuredProbe(m *fakeManager) *fakeService {
	s := m.add("probe", scm.Running)
	s.config = scm.ServiceConfig{
		ServiceType:    scm.Win32OwnProcess,
		StartType:      scm.AutoStart,
		ErrorControl:   scm.ErrorNormal,
		ExecutablePath: `"C:\Program Files\probe\probesvc.exe" --addr 10.0.0.1:9`,
		Dependencies:   []scm.Dependency{scm.ServiceDependency("Tcpip"), scm.GroupDependency("NetworkProvider")},
		AccountName:    scm.Some(`NT AUTHORITY\LocalService`),
		DisplayName:    "Probe Service",
	}
	s.desc = "Pings a host"
	s.delayed = true
	s.preshutdown = 3 * time.Minute
	s.sid = scm.SidUnrestricted
	s.fa = scm.FailureActions{
		ResetPeriod: scm.ResetAfter(24 * time.Hour),
		Actions:     scm.Some([]scm.Action{{Type: scm.ActionRestart, Delay: 5 * time.Second}, {Type: scm.ActionNone}}),
	}
	s.nonCrash = true
	return s
}

func TestShowConfig(t *testing.T) {
	m := setupFakes(t)
	configuredProbe(m)

	var err error
	out, _ := captureOutput(func() { err = showConfig(newContext(t, configFlags, "probe")) })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	assertContainsAll(t, out, []string{
		"Display name:  Probe Service",
		"Start:         Auto (delayed)",
		`Command line:  "C:\Program Files\probe\probesvc.exe" --addr 10.0.0.1:9`,
		"Dependencies:  Tcpip, +NetworkProvider",
		`Account:       NT AUTHORITY\LocalService`,
		"Description:   Pings a host",
		"Preshutdown:   3m0s",
		"SID type:      unrestricted",
		"On failure:    restart/5s, none",
	})
	if m.opened["probe"] != scm.ServiceQueryConfig {
		t.Errorf("access = %#x", m.opened["probe"])
	}
}

func TestShowConfig_UnreadableSettingsAreSkipped(t *testing.T) {
	m := setupFakes(t)
	s := configuredProbe(m)
	s.errs = map[string]error{"delayed": errors.New("not supported"), "description": errors.New("not supported")}

	var err error
	out, _ := captureOutput(func() { err = showConfig(newContext(t, configFlags, "probe")) })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	assertNotContains(t, out, "Description:")
	assertNotContains(t, out, "(delayed)")
}

func TestShowConfig_Export(t *testing.T) {
	m := setupFakes(t)
	configuredProbe(m)

	captureOutput(func() {
		if err := showConfig(newContext(t, configFlags, "--export", "probe.json", "probe")); err != nil {
			t.Errorf("config --export: %v", err)
		}
	})
	def, err := definition.Load(fsys, "probe.json")
	if err != nil {
		t.Fatalf("exported definition does not load: %v", err)
	}
	if def.Executable != `C:\Program Files\probe\probesvc.exe` {
		t.Errorf("executable = %q", def.Executable)
	}
	if !reflect.DeepEqual(def.Arguments, []string{"--addr", "10.0.0.1:9"}) {
		t.Errorf("arguments = %q", def.Arguments)
	}
	if def.Start != "auto" || def.Type != "own" || def.ErrorControl != "normal" {
		t.Errorf("enums = %s/%s/%s", def.Start, def.Type, def.ErrorControl)
	}
	if !reflect.DeepEqual(def.Dependencies, []string{"Tcpip"}) || !reflect.DeepEqual(def.GroupDependencies, []string{"NetworkProvider"}) {
		t.Errorf("dependencies = %v / %v", def.Dependencies, def.GroupDependencies)
	}
	if def.Account == nil || def.Account.Name != `NT AUTHORITY\LocalService` {
		t.Errorf("account = %+v", def.Account)
	}
	if def.FailureActions == nil || len(def.FailureActions.Actions) != 2 || def.FailureActions.ResetPeriod != "24h0m0s" {
		t.Errorf("failure actions = %+v", def.FailureActions)
	}
	if def.FailureActions.OnNonCrashFailures == nil || !*def.FailureActions.OnNonCrashFailures {
		t.Error("non-crash flag not exported")
	}
}

func TestShowConfig_Apply(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Stopped)
	def := []byte(`{"name": "ignored", "executable": "C:\\probe.exe", "start": "auto", "description": "new"}`)
	if err := afero.WriteFile(fsys, "probe.json", def, 0o644); err != nil {
		t.Fatal(err)
	}

	var err error
	out, _ := captureOutput(func() { err = showConfig(newContext(t, configFlags, "--apply", "probe.json", "probe")) })
	if err != nil {
		t.Fatalf("config --apply: %v", err)
	}
	if s.info.Name != "probe" || s.info.StartType != scm.AutoStart {
		t.Errorf("ChangeConfig got %+v", s.info)
	}
	if s.desc != "new" {
		t.Errorf("description = %q", s.desc)
	}
	assertContains(t, out, "reconfigured")
	if e := lastEntry(t, "probe"); e.Operation != "config" || !e.OK() {
		t.Errorf("journal entry = %+v", e)
	}
}

func TestFailureActionsGet(t *testing.T) {
	m := setupFakes(t)
	s := configuredProbe(m)
	s.fa.Command = scm.Some(`C:\notify.cmd`)

	var err error
	out, _ := captureOutput(func() { err = failureActionsGet(newContext(t, nil, "probe")) })
	if err != nil {
		t.Fatalf("failure-actions get: %v", err)
	}
	assertContainsAll(t, out, []string{
		"Reset after:    24h0m0s",
		"Actions:        restart/5s, none",
		`Command:        C:\notify.cmd`,
		"Non-crash:      true",
	})
	assertNotContains(t, out, "Reboot message")
}

func TestFailureActionsSet(t *testing.T) {
	m := setupFakes(t)
	s := configuredProbe(m)

	ctx := newContext(t, failureActionsFlags,
		"--action", "restart/1m",
		"--action", "reboot",
		"--reboot-message", "rebooting",
		"--non-crash", "false",
		"probe",
	)
	captureOutput(func() {
		if err := failureActionsSet(ctx); err != nil {
			t.Errorf("failure-actions set: %v", err)
		}
	})

	actions, ok := s.fa.Actions.Get()
	want := []scm.Action{{Type: scm.ActionRestart, Delay: time.Minute}, {Type: scm.ActionReboot}}
	if !ok || !reflect.DeepEqual(actions, want) {
		t.Errorf("actions = %+v", s.fa.Actions)
	}
	if msg, _ := s.fa.RebootMessage.Get(); msg != "rebooting" {
		t.Errorf("reboot message = %q", msg)
	}
	if s.fa.Command.IsSet() {
		t.Error("command must be left unchanged")
	}
	if s.fa.ResetPeriod.After() != 24*time.Hour {
		t.Errorf("reset period changed to %s", s.fa.ResetPeriod)
	}
	if s.nonCrash {
		t.Error("non-crash flag not cleared")
	}
	e := lastEntry(t, "probe")
	if e.Operation != "failure-actions" || e.Detail != "restart/1m0s, reboot non-crash=false" {
		t.Errorf("journal entry = %+v", e)
	}
}

func TestFailureActionsSet_ResetKeepsActions(t *testing.T) {
	m := setupFakes(t)
	s := configuredProbe(m)

	captureOutput(func() {
		if err := failureActionsSet(newContext(t, failureActionsFlags, "--reset", "never", "probe")); err != nil {
			t.Errorf("failure-actions set: %v", err)
		}
	})
	if !s.fa.ResetPeriod.Never() {
		t.Errorf("reset period = %s", s.fa.ResetPeriod)
	}
	if actions, ok := s.fa.Actions.Get(); !ok || len(actions) != 2 {
		t.Errorf("actions must be resent with the reset period: %+v", s.fa.Actions)
	}
}

func TestFailureActionsSet_Clear(t *testing.T) {
	m := setupFakes(t)
	s := configuredProbe(m)

	captureOutput(func() {
		if err := failureActionsSet(newContext(t, failureActionsFlags, "--clear", "probe")); err != nil {
			t.Errorf("failure-actions set: %v", err)
		}
	})
	actions, ok := s.fa.Actions.Get()
	if !ok || len(actions) != 0 {
		t.Errorf("expected a present empty action list, got %+v", s.fa.Actions)
	}
}

func TestFailureActionsSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing", []string{"probe"}, "nothing to change"},
		{"clear and action", []string{"--clear", "--action", "none", "probe"}, "cannot be combined"},
		{"bad action", []string{"--action", "explode", "probe"}, "unknown failure action"},
		{"bad delay", []string{"--action", "restart/soon", "probe"}, "invalid delay"},
		{"bad reset", []string{"--reset", "-1h", "probe"}, "invalid reset period"},
		{"reset too long", []string{"--reset", "2000000h", "probe"}, "invalid reset period"},
		{"delay too long", []string{"--action", "restart/1200h", "probe"}, "invalid delay"},
		{"bad non-crash", []string{"--non-crash", "maybe", "probe"}, "invalid --non-crash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupFakes(t)
			s := configuredProbe(m)
			err := failureActionsSet(newContext(t, failureActionsFlags, tt.args...))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
			if s.called("update-failure-actions") {
				t.Error("failure actions updated despite invalid input")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	m := setupFakes(t)
	s := m.add("probe", scm.Running)

	var err error
	out, _ := captureOutput(func() { err = describe(newContext(t, nil, "probe", "Pings", "a", "host")) })
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if s.desc != "Pings a host" {
		t.Errorf("description = %q", s.desc)
	}
	assertContains(t, out, "updated")

	out, _ = captureOutput(func() { err = describe(newContext(t, nil, "probe")) })
	if err != nil || s.desc != "" {
		t.Fatalf("clearing description: err=%v desc=%q", err, s.desc)
	}
	assertContains(t, out, "cleared")
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`C:\probe.exe`, []string{`C:\probe.exe`}},
		{`"C:\Program Files\p.exe" -v`, []string{`C:\Program Files\p.exe`, "-v"}},
		{`p.exe "a b"  c`, []string{"p.exe", "a b", "c"}},
		{`p.exe "say \"hi\""`, []string{"p.exe", `say "hi"`}},
		{`p.exe "C:\dir\\"`, []string{"p.exe", `C:\dir\`}},
		{`p.exe ""`, []string{"p.exe", ""}},
		{`p.exe a\\b`, []string{"p.exe", `a\\b`}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitCommandLine(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCommandLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServiceTypeName_RoundTrip(t *testing.T) {
	for _, name := range []string{"own", "share", "kernel", "filesystem", "user-own", "user-share", "own+interactive", "share+interactive"} {
		typ, err := scm.ParseServiceType(name)
		if err != nil {
			t.Fatalf("ParseServiceType(%q): %v", name, err)
		}
		if got := serviceTypeName(typ); got != name {
			t.Errorf("serviceTypeName(%s) = %q, want %q", typ, got, name)
		}
	}
}
