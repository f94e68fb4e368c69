//go:build windows

package svc

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/warpdl/svcctl/pkg/scm"
)

// StatusHandle reports status for one registered service. It is a plain
// value and may be used from any goroutine.
type StatusHandle struct {
	h windows.Handle
}

// Report validates s and sends it with SetServiceStatus.
func (s StatusHandle) Report(st scm.ServiceStatus) error {
	if err := st.Validate(); err != nil {
		return err
	}
	raw := st.Encode()
	ws := windows.SERVICE_STATUS{
		ServiceType:             raw.ServiceType,
		CurrentState:            raw.CurrentState,
		ControlsAccepted:        raw.ControlsAccepted,
		Win32ExitCode:           raw.Win32ExitCode,
		ServiceSpecificExitCode: raw.ServiceSpecificExitCode,
		CheckPoint:              raw.CheckPoint,
		WaitHint:                raw.WaitHint,
	}
	if err := windows.SetServiceStatus(s.h, &ws); err != nil {
		return &scm.OSError{Op: "SetServiceStatus", Err: err}
	}
	return nil
}

var (
	ctlHandlerOnce     sync.Once
	ctlHandlerCallback uintptr
)

// ctlHandler is the HandlerEx callback shared by all services. context is
// the arena token passed at registration.
func ctlHandler(ctl, evtype, evdata, context uintptr) uintptr {
	data := eventData(uint32(ctl), uint32(evtype), evdata)
	return uintptr(handlers.dispatch(context, uint32(ctl), uint32(evtype), data))
}

// eventData copies the record behind lpEventData for the controls whose
// payload is decoded.
func eventData(ctl, evtype uint32, p uintptr) []byte {
	if p == 0 {
		return nil
	}
	switch scm.Command(ctl) {
	case scm.CmdSessionChange:
		return copyBytes(p, 8)
	case scm.CmdPowerEvent:
		if scm.PowerEventType(evtype) != scm.PowerSettingChange {
			return nil
		}
		header := copyBytes(p, 20)
		n := *(*uint32)(unsafe.Pointer(&header[16]))
		return copyBytes(p, 20+int(n))
	}
	return nil
}

func copyBytes(p uintptr, n int) []byte {
	src := unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
	out := make([]byte, n)
	copy(out, src)
	return out
}

// Register installs h as the control handler for the named service and
// returns the handle used to report its status. It must be called from
// the service's main function.
func Register(name string, h Handler) (StatusHandle, error) {
	n, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return StatusHandle{}, &scm.ValidationError{Field: "service name", Index: -1, Err: err}
	}
	ctlHandlerOnce.Do(func() {
		ctlHandlerCallback = windows.NewCallback(ctlHandler)
	})

	token := handlers.add(h)
	sh, err := windows.RegisterServiceCtrlHandlerEx(n, ctlHandlerCallback, token)
	if err != nil {
		handlers.release(token)
		return StatusHandle{}, &scm.OSError{Op: "RegisterServiceCtrlHandlerEx", Err: err}
	}
	return StatusHandle{h: sh}, nil
}
