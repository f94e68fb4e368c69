// Package scm models the records exchanged with the Windows Service Control
// Manager and converts them to and from their wire layout.
//
// Everything in this package is pure: the raw mirrors (RawStatus,
// RawConfig, RawFailureActions) and event-data byte slices are filled in by
// the platform packages, so the decoding rules can be tested on any OS.
package scm

import (
	"fmt"
	"strings"
)

// ServiceType is the set of SERVICE_* type bits.
type ServiceType uint32

const (
	KernelDriver        ServiceType = 0x00000001
	FileSystemDriver    ServiceType = 0x00000002
	Win32OwnProcess     ServiceType = 0x00000010
	Win32ShareProcess   ServiceType = 0x00000020
	UserService         ServiceType = 0x00000040
	UserServiceInstance ServiceType = 0x00000080
	InteractiveProcess  ServiceType = 0x00000100

	UserOwnProcess   = UserService | Win32OwnProcess
	UserShareProcess = UserService | Win32ShareProcess
)

const knownServiceTypes = KernelDriver | FileSystemDriver | Win32OwnProcess |
	Win32ShareProcess | UserService | UserServiceInstance | InteractiveProcess

// ServiceTypeFromRaw keeps only the bits this package knows about.
func ServiceTypeFromRaw(raw uint32) ServiceType {
	return ServiceType(raw) & knownServiceTypes
}

// IsDriver reports whether t describes a kernel or file system driver.
func (t ServiceType) IsDriver() bool {
	return t&(KernelDriver|FileSystemDriver) != 0
}

var serviceTypeNames = []struct {
	bit  ServiceType
	name string
}{
	{KernelDriver, "KernelDriver"},
	{FileSystemDriver, "FileSystemDriver"},
	{Win32OwnProcess, "Win32OwnProcess"},
	{Win32ShareProcess, "Win32ShareProcess"},
	{UserService, "UserService"},
	{UserServiceInstance, "UserServiceInstance"},
	{InteractiveProcess, "InteractiveProcess"},
}

func (t ServiceType) String() string {
	var names []string
	for _, n := range serviceTypeNames {
		if t&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// ParseServiceType accepts the short names used on the command line and in
// definition files: own, share, kernel, filesystem, user-own, user-share.
// An "interactive" suffix after a plus sign adds InteractiveProcess.
func ParseServiceType(s string) (ServiceType, error) {
	base, extra, _ := strings.Cut(strings.ToLower(s), "+")
	var t ServiceType
	switch base {
	case "own", "":
		t = Win32OwnProcess
	case "share":
		t = Win32ShareProcess
	case "kernel":
		t = KernelDriver
	case "filesystem":
		t = FileSystemDriver
	case "user-own":
		t = UserOwnProcess
	case "user-share":
		t = UserShareProcess
	default:
		return 0, fmt.Errorf("unknown service type %q", s)
	}
	switch extra {
	case "":
	case "interactive":
		if t.IsDriver() {
			return 0, fmt.Errorf("service type %q: drivers cannot be interactive", s)
		}
		t |= InteractiveProcess
	default:
		return 0, fmt.Errorf("unknown service type %q", s)
	}
	return t, nil
}

// StartType controls when the SCM starts a service.
type StartType uint32

const (
	BootStart   StartType = 0
	SystemStart StartType = 1
	AutoStart   StartType = 2
	OnDemand    StartType = 3
	Disabled    StartType = 4
)

// StartTypeFromRaw decodes a SERVICE_*_START value.
func StartTypeFromRaw(raw uint32) (StartType, error) {
	if raw > uint32(Disabled) {
		return 0, &DecodeError{Kind: "start type", Raw: raw}
	}
	return StartType(raw), nil
}

func (s StartType) String() string {
	switch s {
	case BootStart:
		return "Boot"
	case SystemStart:
		return "System"
	case AutoStart:
		return "Auto"
	case OnDemand:
		return "Demand"
	case Disabled:
		return "Disabled"
	default:
		return fmt.Sprintf("StartType(%d)", uint32(s))
	}
}

// ParseStartType accepts the names used on the command line and in
// definition files.
func ParseStartType(s string) (StartType, error) {
	switch strings.ToLower(s) {
	case "auto", "automatic":
		return AutoStart, nil
	case "demand", "manual", "ondemand":
		return OnDemand, nil
	case "disabled":
		return Disabled, nil
	case "boot":
		return BootStart, nil
	case "system":
		return SystemStart, nil
	}
	return 0, fmt.Errorf("unknown start type %q", s)
}

// ErrorControl is the severity the OS applies when the service fails to start.
type ErrorControl uint32

const (
	ErrorIgnore   ErrorControl = 0
	ErrorNormal   ErrorControl = 1
	ErrorSevere   ErrorControl = 2
	ErrorCritical ErrorControl = 3
)

// ErrorControlFromRaw decodes a SERVICE_ERROR_* value.
func ErrorControlFromRaw(raw uint32) (ErrorControl, error) {
	if raw > uint32(ErrorCritical) {
		return 0, &DecodeError{Kind: "error control", Raw: raw}
	}
	return ErrorControl(raw), nil
}

func (e ErrorControl) String() string {
	switch e {
	case ErrorIgnore:
		return "Ignore"
	case ErrorNormal:
		return "Normal"
	case ErrorSevere:
		return "Severe"
	case ErrorCritical:
		return "Critical"
	default:
		return fmt.Sprintf("ErrorControl(%d)", uint32(e))
	}
}

// ParseErrorControl accepts ignore, normal, severe or critical.
func ParseErrorControl(s string) (ErrorControl, error) {
	switch strings.ToLower(s) {
	case "ignore":
		return ErrorIgnore, nil
	case "normal":
		return ErrorNormal, nil
	case "severe":
		return ErrorSevere, nil
	case "critical":
		return ErrorCritical, nil
	}
	return 0, fmt.Errorf("unknown error control %q", s)
}

// State is the current state of a service.
type State uint32

const (
	Stopped         State = 1
	StartPending    State = 2
	StopPending     State = 3
	Running         State = 4
	ContinuePending State = 5
	PausePending    State = 6
	Paused          State = 7
)

// StateFromRaw decodes a SERVICE_* state value. Values outside 1..7 are
// rejected rather than mapped to a default.
func StateFromRaw(raw uint32) (State, error) {
	if raw < uint32(Stopped) || raw > uint32(Paused) {
		return 0, &DecodeError{Kind: "service state", Raw: raw}
	}
	return State(raw), nil
}

// IsPending reports whether s is one of the four transitional states.
func (s State) IsPending() bool {
	switch s {
	case StartPending, StopPending, ContinuePending, PausePending:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case StartPending:
		return "StartPending"
	case StopPending:
		return "StopPending"
	case Running:
		return "Running"
	case ContinuePending:
		return "ContinuePending"
	case PausePending:
		return "PausePending"
	case Paused:
		return "Paused"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// ControlAccept is the set of controls a service advertises in its status.
type ControlAccept uint32

const (
	AcceptStop                  ControlAccept = 0x00000001
	AcceptPauseContinue         ControlAccept = 0x00000002
	AcceptShutdown              ControlAccept = 0x00000004
	AcceptParamChange           ControlAccept = 0x00000008
	AcceptNetBindChange         ControlAccept = 0x00000010
	AcceptHardwareProfileChange ControlAccept = 0x00000020
	AcceptPowerEvent            ControlAccept = 0x00000040
	AcceptSessionChange         ControlAccept = 0x00000080
	AcceptPreshutdown           ControlAccept = 0x00000100
	AcceptTimeChange            ControlAccept = 0x00000200
	AcceptTriggerEvent          ControlAccept = 0x00000400
)

const knownAccepts = AcceptStop | AcceptPauseContinue | AcceptShutdown |
	AcceptParamChange | AcceptNetBindChange | AcceptHardwareProfileChange |
	AcceptPowerEvent | AcceptSessionChange | AcceptPreshutdown |
	AcceptTimeChange | AcceptTriggerEvent

// ManagerAccess is the access mask requested when connecting to the SCM.
type ManagerAccess uint32

const (
	ManagerConnect          ManagerAccess = 0x0001
	ManagerCreateService    ManagerAccess = 0x0002
	ManagerEnumerateService ManagerAccess = 0x0004
	ManagerLock             ManagerAccess = 0x0008
	ManagerQueryLockStatus  ManagerAccess = 0x0010
	ManagerModifyBootConfig ManagerAccess = 0x0020
	ManagerAllAccess        ManagerAccess = 0xF003F
)

// ServiceAccess is the access mask requested when opening a service.
type ServiceAccess uint32

const (
	ServiceQueryConfig         ServiceAccess = 0x0001
	ServiceChangeConfig        ServiceAccess = 0x0002
	ServiceQueryStatus         ServiceAccess = 0x0004
	ServiceEnumerateDependents ServiceAccess = 0x0008
	ServiceStart               ServiceAccess = 0x0010
	ServiceStop                ServiceAccess = 0x0020
	ServicePauseContinue       ServiceAccess = 0x0040
	ServiceInterrogate         ServiceAccess = 0x0080
	ServiceUserDefinedControl  ServiceAccess = 0x0100
	ServiceDelete              ServiceAccess = 0x10000
	ServiceAllAccess           ServiceAccess = 0xF01FF
)

// SidType selects the service SID added to the process token.
type SidType uint32

const (
	SidNone         SidType = 0
	SidUnrestricted SidType = 1
	SidRestricted   SidType = 3
)

// SidTypeFromRaw decodes a SERVICE_SID_TYPE_* value.
func SidTypeFromRaw(raw uint32) (SidType, error) {
	switch SidType(raw) {
	case SidNone, SidUnrestricted, SidRestricted:
		return SidType(raw), nil
	}
	return 0, &DecodeError{Kind: "sid type", Raw: raw}
}

func (s SidType) String() string {
	switch s {
	case SidNone:
		return "None"
	case SidUnrestricted:
		return "Unrestricted"
	case SidRestricted:
		return "Restricted"
	default:
		return fmt.Sprintf("SidType(%d)", uint32(s))
	}
}

// ParseSidType accepts none, unrestricted or restricted.
func ParseSidType(s string) (SidType, error) {
	switch strings.ToLower(s) {
	case "none":
		return SidNone, nil
	case "unrestricted":
		return SidUnrestricted, nil
	case "restricted":
		return SidRestricted, nil
	}
	return 0, fmt.Errorf("unknown sid type %q", s)
}
