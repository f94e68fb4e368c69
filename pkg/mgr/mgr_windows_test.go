//go:build windows

package mgr

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/windows"

	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/svc"
)

// testServiceMarker as the last argument makes the test binary run as a
// minimal service instead of running tests.
const testServiceMarker = "svcctl-test-service"

func TestMain(m *testing.M) {
	if n := len(os.Args); n > 2 && os.Args[n-1] == testServiceMarker {
		runTestService(os.Args[n-2])
		return
	}
	os.Exit(m.Run())
}

func runTestService(name string) {
	_ = svc.StartDispatcher(name, func([]string) {
		stop := make(chan struct{})
		handle, err := svc.Register(name, func(c scm.Control) svc.HandlerResult {
			switch c.Cmd {
			case scm.CmdStop, scm.CmdShutdown:
				close(stop)
				return svc.NoError
			case scm.CmdInterrogate:
				return svc.NoError
			}
			return svc.NotImplemented
		})
		if err != nil {
			return
		}
		reporter := svc.NewReporter(handle, scm.Win32OwnProcess, scm.AcceptStop|scm.AcceptShutdown)
		_ = reporter.Running()
		<-stop
		_ = reporter.Stopped(scm.NoError)
	})
}

// skipIfNotCI skips the test if not running in a CI environment.
// SCM tests require elevated privileges and are only run in CI.
func skipIfNotCI(t *testing.T) {
	t.Helper()
	if os.Getenv("CI") == "" && os.Getenv("GITHUB_ACTIONS") == "" {
		t.Skip("skipping SCM test: not in CI environment")
	}
}

func connect(t *testing.T) *Manager {
	t.Helper()
	skipIfNotCI(t)
	m, err := ConnectLocal("", scm.ManagerConnect|scm.ManagerCreateService)
	if err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			t.Skip("skipping: no SCM access rights")
		}
		t.Fatalf("ConnectLocal: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func testServiceInfo(t *testing.T) scm.ServiceInfo {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	name := "svcctl-probe-" + uuid.NewString()[:8]
	return scm.ServiceInfo{
		Name:            name,
		DisplayName:     "svcctl test " + name,
		ServiceType:     scm.Win32OwnProcess,
		StartType:       scm.OnDemand,
		ErrorControl:    scm.ErrorNormal,
		ExecutablePath:  exe,
		LaunchArguments: []string{name, testServiceMarker},
	}
}

// createTestService creates a service and deletes it when the test ends.
func createTestService(t *testing.T, m *Manager, info scm.ServiceInfo) *Service {
	t.Helper()
	s, err := m.Create(info, scm.ServiceAllAccess)
	if err != nil {
		t.Fatalf("Create(%s): %v", info.Name, err)
	}
	t.Cleanup(func() {
		_, _ = s.Stop()
		_ = s.Delete()
		s.Close()
	})
	return s
}

func waitForState(t *testing.T, s *Service, want scm.State) scm.ServiceStatus {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for {
		st, err := s.QueryStatus()
		if err != nil {
			t.Fatalf("QueryStatus: %v", err)
		}
		if st.State == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("service stuck in %v waiting for %v", st.State, want)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// TestOpenMissingService verifies the OS error is surfaced unchanged.
func TestOpenMissingService(t *testing.T) {
	m := connect(t)
	_, err := m.Open("svcctl-missing-"+uuid.NewString(), scm.ServiceQueryStatus)
	if !errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		t.Fatalf("got %v, want ERROR_SERVICE_DOES_NOT_EXIST", err)
	}
	var oe *scm.OSError
	if !errors.As(err, &oe) {
		t.Errorf("expected *scm.OSError, got %T", err)
	}
}

// TestServiceLifecycle creates, starts, stops and deletes a service and
// waits until the SCM has removed it.
func TestServiceLifecycle(t *testing.T) {
	m := connect(t)
	info := testServiceInfo(t)
	s, err := m.Create(info, scm.ServiceQueryStatus|scm.ServiceStart|scm.ServiceStop|scm.ServiceDelete)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Start(); err != nil {
		s.Delete()
		s.Close()
		t.Fatalf("Start: %v", err)
	}
	st, err := s.QueryStatus()
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	if st.State != scm.Running && !st.State.IsPending() {
		t.Errorf("state after start = %v", st.State)
	}
	st = waitForState(t, s, scm.Running)
	if pid, ok := st.ProcessID.Get(); !ok || pid == 0 {
		t.Errorf("running service has no process id")
	}

	st, err = s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st.State != scm.Stopped && st.State != scm.StopPending {
		t.Errorf("state after stop = %v", st.State)
	}
	waitForState(t, s, scm.Stopped)

	if err := s.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	s.Close()
	s.Close()

	deadline := time.Now().Add(15 * time.Second)
	for {
		probe, err := m.Open(info.Name, scm.ServiceQueryStatus)
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			break
		}
		if err == nil {
			probe.Close()
		}
		if time.Now().After(deadline) {
			t.Fatalf("service still exists after delete: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// TestFailureActionsRoundTrip sets a recovery policy and reads it back.
func TestFailureActionsRoundTrip(t *testing.T) {
	m := connect(t)
	s := createTestService(t, m, testServiceInfo(t))

	fa := scm.FailureActions{
		ResetPeriod: scm.ResetAfter(2 * 24 * time.Hour),
		Command:     scm.Some("ping 127.0.0.1"),
		Actions: scm.Some([]scm.Action{
			{Type: scm.ActionRestart, Delay: 5 * time.Second},
			{Type: scm.ActionRunCommand, Delay: 10 * time.Second},
			{Type: scm.ActionNone},
		}),
	}
	if err := s.UpdateFailureActions(fa); err != nil {
		t.Fatalf("UpdateFailureActions: %v", err)
	}
	got, err := s.FailureActions()
	if err != nil {
		t.Fatalf("FailureActions: %v", err)
	}
	if got.ResetPeriod != fa.ResetPeriod {
		t.Errorf("ResetPeriod = %v", got.ResetPeriod)
	}
	if cmd, _ := got.Command.Get(); cmd != "ping 127.0.0.1" {
		t.Errorf("Command = %q", cmd)
	}
	want, _ := fa.Actions.Get()
	if actions, _ := got.Actions.Get(); !reflect.DeepEqual(actions, want) {
		t.Errorf("Actions = %+v", actions)
	}

	// clearing the list leaves the other fields alone
	if err := s.UpdateFailureActions(scm.FailureActions{ResetPeriod: scm.ResetNever(), Actions: scm.Some([]scm.Action{})}); err != nil {
		t.Fatalf("clear actions: %v", err)
	}
	got, err = s.FailureActions()
	if err != nil {
		t.Fatal(err)
	}
	if actions, _ := got.Actions.Get(); len(actions) != 0 {
		t.Errorf("actions not cleared: %+v", actions)
	}
	if cmd, _ := got.Command.Get(); cmd != "ping 127.0.0.1" {
		t.Errorf("command changed to %q", cmd)
	}
}

// TestEmptyDependencies verifies an empty list reads back as empty.
func TestEmptyDependencies(t *testing.T) {
	m := connect(t)
	info := testServiceInfo(t)
	s := createTestService(t, m, info)

	cfg, err := s.QueryConfig()
	if err != nil {
		t.Fatalf("QueryConfig: %v", err)
	}
	if cfg.Dependencies == nil || len(cfg.Dependencies) != 0 {
		t.Errorf("Dependencies = %#v, want empty", cfg.Dependencies)
	}
	if cfg.StartType != scm.OnDemand || cfg.DisplayName != info.DisplayName {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.LoadOrderGroup.IsSet() {
		t.Errorf("unexpected load order group")
	}

	info.Dependencies = []scm.Dependency{scm.ServiceDependency("Tcpip")}
	info.StartType = scm.Disabled
	if err := s.ChangeConfig(info); err != nil {
		t.Fatalf("ChangeConfig: %v", err)
	}
	cfg, err = s.QueryConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Dependencies) != 1 || cfg.Dependencies[0] != scm.ServiceDependency("Tcpip") || cfg.StartType != scm.Disabled {
		t.Errorf("config after change = %+v", cfg)
	}
}

func TestConfig2Settings(t *testing.T) {
	m := connect(t)
	s := createTestService(t, m, testServiceInfo(t))

	if err := s.SetDescription("probe description"); err != nil {
		t.Fatal(err)
	}
	if d, err := s.Description(); err != nil || d != "probe description" {
		t.Errorf("Description() = %q, %v", d, err)
	}
	if err := s.SetDelayedAutoStart(true); err != nil {
		t.Fatal(err)
	}
	if on, err := s.DelayedAutoStart(); err != nil || !on {
		t.Errorf("DelayedAutoStart() = %v, %v", on, err)
	}
	if err := s.SetPreshutdownTimeout(90 * time.Second); err != nil {
		t.Fatal(err)
	}
	if d, err := s.PreshutdownTimeout(); err != nil || d != 90*time.Second {
		t.Errorf("PreshutdownTimeout() = %v, %v", d, err)
	}
	if err := s.SetSidType(scm.SidUnrestricted); err != nil {
		t.Fatal(err)
	}
	if sid, err := s.SidType(); err != nil || sid != scm.SidUnrestricted {
		t.Errorf("SidType() = %v, %v", sid, err)
	}
	if err := s.SetFailureActionsOnNonCrashFailures(true); err != nil {
		t.Fatal(err)
	}
	if on, err := s.FailureActionsOnNonCrashFailures(); err != nil || !on {
		t.Errorf("FailureActionsOnNonCrashFailures() = %v, %v", on, err)
	}
}

func TestNotifyRejectsReservedCodes(t *testing.T) {
	m := connect(t)
	s := createTestService(t, m, testServiceInfo(t))
	var de *scm.DecodeError
	if _, err := s.Notify(5); !errors.As(err, &de) {
		t.Errorf("Notify(5) = %v, want DecodeError", err)
	}
}
