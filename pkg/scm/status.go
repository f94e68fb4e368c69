package scm

import (
	"fmt"
	"time"
)

// errorServiceSpecificError (ERROR_SERVICE_SPECIFIC_ERROR) in the Win32 exit
// code field means the service-specific field holds the real code.
const errorServiceSpecificError = 1066

// ExitCode is either a Win32 error code or a service-specific code, never
// both.
type ExitCode struct {
	code     uint32
	specific bool
}

// NoError is the exit code of a service that has not failed.
var NoError = Win32(0)

// Win32 returns a Win32 exit code.
func Win32(code uint32) ExitCode {
	return ExitCode{code: code}
}

// ServiceSpecific returns a service-specific exit code.
func ServiceSpecific(code uint32) ExitCode {
	return ExitCode{code: code, specific: true}
}

// Code returns the numeric value regardless of kind.
func (e ExitCode) Code() uint32 { return e.code }

// IsServiceSpecific reports whether e is a service-specific code.
func (e ExitCode) IsServiceSpecific() bool { return e.specific }

func (e ExitCode) String() string {
	if e.specific {
		return fmt.Sprintf("service-specific %d", e.code)
	}
	return fmt.Sprintf("win32 %d", e.code)
}

func (e ExitCode) encode() (win32, specific uint32) {
	if e.specific {
		return errorServiceSpecificError, e.code
	}
	return e.code, 0
}

func decodeExitCode(win32, specific uint32) ExitCode {
	if win32 == errorServiceSpecificError {
		return ServiceSpecific(specific)
	}
	return Win32(win32)
}

// ServiceStatus is a status report sent by a service or read back by an
// administrator.
type ServiceStatus struct {
	ServiceType      ServiceType
	State            State
	ControlsAccepted ControlAccept
	ExitCode         ExitCode
	// Checkpoint must advance on every report while State is pending.
	Checkpoint uint32
	// WaitHint is the time until the next report while State is pending.
	WaitHint time.Duration
	// ProcessID is present only for statuses read with QueryServiceStatusEx.
	ProcessID Optional[uint32]
}

// RawStatus mirrors SERVICE_STATUS.
type RawStatus struct {
	ServiceType             uint32
	CurrentState            uint32
	ControlsAccepted        uint32
	Win32ExitCode           uint32
	ServiceSpecificExitCode uint32
	CheckPoint              uint32
	WaitHint                uint32
}

// RawStatusProcess mirrors SERVICE_STATUS_PROCESS.
type RawStatusProcess struct {
	RawStatus
	ProcessID    uint32
	ServiceFlags uint32
}

// Validate checks the reporting rules the SCM expects services to follow.
func (s ServiceStatus) Validate() error {
	if _, err := StateFromRaw(uint32(s.State)); err != nil {
		return err
	}
	if !s.State.IsPending() && (s.Checkpoint != 0 || s.WaitHint != 0) {
		return fmt.Errorf("%w: state %s", ErrProgressOutsidePending, s.State)
	}
	if s.State != Stopped && s.ExitCode != NoError {
		return fmt.Errorf("%w: state %s", ErrExitCodeOutsideStopped, s.State)
	}
	if s.ControlsAccepted&AcceptShutdown != 0 && s.ControlsAccepted&AcceptPreshutdown != 0 {
		return ErrShutdownAndPreshutdown
	}
	return nil
}

// Encode converts s to SERVICE_STATUS. It panics if WaitHint does not fit
// in a DWORD of milliseconds.
func (s ServiceStatus) Encode() RawStatus {
	win32, specific := s.ExitCode.encode()
	return RawStatus{
		ServiceType:             uint32(s.ServiceType),
		CurrentState:            uint32(s.State),
		ControlsAccepted:        uint32(s.ControlsAccepted),
		Win32ExitCode:           win32,
		ServiceSpecificExitCode: specific,
		CheckPoint:              s.Checkpoint,
		WaitHint:                millis("wait hint", s.WaitHint),
	}
}

// DecodeStatus converts a SERVICE_STATUS record.
func DecodeStatus(raw RawStatus) (ServiceStatus, error) {
	state, err := StateFromRaw(raw.CurrentState)
	if err != nil {
		return ServiceStatus{}, err
	}
	return ServiceStatus{
		ServiceType:      ServiceTypeFromRaw(raw.ServiceType),
		State:            state,
		ControlsAccepted: ControlAccept(raw.ControlsAccepted) & knownAccepts,
		ExitCode:         decodeExitCode(raw.Win32ExitCode, raw.ServiceSpecificExitCode),
		Checkpoint:       raw.CheckPoint,
		WaitHint:         fromMillis(raw.WaitHint),
	}, nil
}

// DecodeStatusProcess converts a SERVICE_STATUS_PROCESS record.
func DecodeStatusProcess(raw RawStatusProcess) (ServiceStatus, error) {
	s, err := DecodeStatus(raw.RawStatus)
	if err != nil {
		return ServiceStatus{}, err
	}
	s.ProcessID = Some(raw.ProcessID)
	return s, nil
}
