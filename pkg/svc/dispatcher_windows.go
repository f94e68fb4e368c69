//go:build windows

package svc

import (
	"errors"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"

	"github.com/warpdl/svcctl/pkg/scm"
)

// ErrDispatcherRunning is returned when StartDispatcher is called while a
// dispatcher is already running in this process.
var ErrDispatcherRunning = errors.New("service dispatcher already running")

var (
	serviceMainOnce     sync.Once
	serviceMainCallback uintptr

	dispatchMu   sync.Mutex
	dispatchMain func(args []string)
)

func serviceMain(argc uint32, argv **uint16) uintptr {
	args := make([]string, 0, argc)
	if argv != nil {
		for _, p := range unsafe.Slice(argv, argc) {
			args = append(args, windows.UTF16PtrToString(p))
		}
	}
	dispatchMu.Lock()
	run := dispatchMain
	dispatchMu.Unlock()
	run(args)
	return 0
}

// StartDispatcher connects the process to the SCM and runs run when the
// named service is started. run receives the start arguments, the first
// being the service name, and must register a handler with Register. The
// call blocks until the service has stopped.
func StartDispatcher(name string, run func(args []string)) error {
	n, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return &scm.ValidationError{Field: "service name", Index: -1, Err: err}
	}

	dispatchMu.Lock()
	if dispatchMain != nil {
		dispatchMu.Unlock()
		return ErrDispatcherRunning
	}
	dispatchMain = run
	dispatchMu.Unlock()
	defer func() {
		dispatchMu.Lock()
		dispatchMain = nil
		dispatchMu.Unlock()
	}()

	serviceMainOnce.Do(func() {
		serviceMainCallback = windows.NewCallback(serviceMain)
	})
	table := []windows.SERVICE_TABLE_ENTRY{
		{ServiceName: n, ServiceProc: serviceMainCallback},
		{ServiceName: nil, ServiceProc: 0},
	}
	if err := windows.StartServiceCtrlDispatcher(&table[0]); err != nil {
		return &scm.OSError{Op: "StartServiceCtrlDispatcher", Err: err}
	}
	return nil
}

// IsWindowsService reports whether the process was started by the SCM.
func IsWindowsService() (bool, error) {
	return svc.IsWindowsService()
}
