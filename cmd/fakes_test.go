package cmd

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/svcctl/internal/journal"
	"github.com/warpdl/svcctl/pkg/logger"
	"github.com/warpdl/svcctl/pkg/scm"
)

// fakeService records the calls made on it and serves canned results.
type fakeService struct {
	status scm.ServiceStatus
	// queued statuses are returned by QueryStatus before status.
	queued []scm.ServiceStatus

	config      scm.ServiceConfig
	info        scm.ServiceInfo
	fa          scm.FailureActions
	nonCrash    bool
	desc        string
	delayed     bool
	preshutdown time.Duration
	sid         scm.SidType

	startArgs []string
	notified  []uint32
	calls     []string
	errs      map[string]error
	deleted   bool
	closed    bool
}

func (f *fakeService) call(op string) error {
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeService) called(op string) bool {
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (f *fakeService) Start(args ...string) error {
	f.startArgs = args
	return f.call("start")
}

func (f *fakeService) Stop() (scm.ServiceStatus, error) { return f.status, f.call("stop") }

func (f *fakeService) Pause() (scm.ServiceStatus, error) { return f.status, f.call("pause") }

func (f *fakeService) Resume() (scm.ServiceStatus, error) { return f.status, f.call("resume") }

func (f *fakeService) Notify(code uint32) (scm.ServiceStatus, error) {
	f.notified = append(f.notified, code)
	return f.status, f.call("notify")
}

func (f *fakeService) QueryStatus() (scm.ServiceStatus, error) {
	if len(f.queued) > 0 {
		f.status, f.queued = f.queued[0], f.queued[1:]
	}
	return f.status, f.call("query-status")
}

func (f *fakeService) QueryConfig() (scm.ServiceConfig, error) {
	return f.config, f.call("query-config")
}

func (f *fakeService) ChangeConfig(info scm.ServiceInfo) error {
	f.info = info
	return f.call("change-config")
}

func (f *fakeService) FailureActions() (scm.FailureActions, error) {
	return f.fa, f.call("failure-actions")
}

func (f *fakeService) UpdateFailureActions(fa scm.FailureActions) error {
	if err := f.call("update-failure-actions"); err != nil {
		return err
	}
	f.fa = fa
	return nil
}

func (f *fakeService) FailureActionsOnNonCrashFailures() (bool, error) {
	return f.nonCrash, f.call("non-crash")
}

func (f *fakeService) SetFailureActionsOnNonCrashFailures(enabled bool) error {
	f.nonCrash = enabled
	return f.call("set-non-crash")
}

func (f *fakeService) Description() (string, error) { return f.desc, f.call("description") }

func (f *fakeService) SetDescription(desc string) error {
	f.desc = desc
	return f.call("set-description")
}

func (f *fakeService) DelayedAutoStart() (bool, error) { return f.delayed, f.call("delayed") }

func (f *fakeService) SetDelayedAutoStart(delayed bool) error {
	f.delayed = delayed
	return f.call("set-delayed")
}

func (f *fakeService) PreshutdownTimeout() (time.Duration, error) {
	return f.preshutdown, f.call("preshutdown")
}

func (f *fakeService) SetPreshutdownTimeout(d time.Duration) error {
	f.preshutdown = d
	return f.call("set-preshutdown")
}

func (f *fakeService) SidType() (scm.SidType, error) { return f.sid, f.call("sid") }

func (f *fakeService) SetSidType(t scm.SidType) error {
	f.sid = t
	return f.call("set-sid")
}

func (f *fakeService) Delete() error {
	if err := f.call("delete"); err != nil {
		return err
	}
	f.deleted = true
	return nil
}

func (f *fakeService) Close() error {
	f.closed = true
	return nil
}

type fakeManager struct {
	services  map[string]*fakeService
	created   []scm.ServiceInfo
	opened    map[string]scm.ServiceAccess
	sources   map[string]bool
	createErr error
	machine   string
	closed    bool
}

func (m *fakeManager) Create(info scm.ServiceInfo) (service, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.services[info.Name]; ok {
		return nil, errnoServiceExists
	}
	m.created = append(m.created, info)
	s := &fakeService{info: info, status: scm.ServiceStatus{State: scm.Stopped}}
	m.services[info.Name] = s
	return s, nil
}

func (m *fakeManager) Open(name string, access scm.ServiceAccess) (service, error) {
	s, ok := m.services[name]
	if !ok {
		return nil, errnoServiceDoesNotExist
	}
	m.opened[name] = access
	return s, nil
}

func (m *fakeManager) Close() error {
	m.closed = true
	return nil
}

// add registers a fake service called name.
func (m *fakeManager) add(name string, st scm.State) *fakeService {
	s := &fakeService{status: scm.ServiceStatus{State: st}}
	m.services[name] = s
	return s
}

// setupFakes points the command layer at an in-memory manager, a temporary
// journal and an in-memory file system for the duration of the test.
func setupFakes(t *testing.T) *fakeManager {
	t.Helper()
	m := &fakeManager{
		services: map[string]*fakeService{},
		opened:   map[string]scm.ServiceAccess{},
		sources:  map[string]bool{},
	}

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}

	oldConnect, oldAdmin, oldLookup := connectManager, isAdminFunc, lookupAccount
	oldInstall, oldRemove := installEventSource, removeEventSource
	oldCurrent, oldFs := current, fsys
	oldProgress, oldPoll := waitProgress, waitPoll

	connectManager = func(machine, _ string, _ scm.ManagerAccess) (manager, error) {
		m.machine = machine
		return m, nil
	}
	isAdminFunc = func() bool { return true }
	lookupAccount = func(name string) (string, error) { return "S-1-5-21-1000", nil }
	installEventSource = func(name string) error {
		m.sources[name] = true
		return nil
	}
	removeEventSource = func(name string) error {
		delete(m.sources, name)
		return nil
	}
	current = &session{log: logger.NewNopLogger(), journal: j}
	fsys = afero.NewMemMapFs()
	waitProgress = io.Discard
	waitPoll = time.Millisecond

	t.Cleanup(func() {
		connectManager, isAdminFunc, lookupAccount = oldConnect, oldAdmin, oldLookup
		installEventSource, removeEventSource = oldInstall, oldRemove
		current, fsys = oldCurrent, oldFs
		waitProgress, waitPoll = oldProgress, oldPoll
		j.Close()
	})
	return m
}
