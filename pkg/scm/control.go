package scm

import "fmt"

// Command is a control sent to a running service. Except for UserEvent the
// values equal the SERVICE_CONTROL_* codes.
type Command uint32

const (
	CmdStop                  Command = 0x01
	CmdPause                 Command = 0x02
	CmdContinue              Command = 0x03
	CmdInterrogate           Command = 0x04
	CmdShutdown              Command = 0x05
	CmdParamChange           Command = 0x06
	CmdNetBindAdd            Command = 0x07
	CmdNetBindRemove         Command = 0x08
	CmdNetBindEnable         Command = 0x09
	CmdNetBindDisable        Command = 0x0A
	CmdHardwareProfileChange Command = 0x0C
	CmdPowerEvent            Command = 0x0D
	CmdSessionChange         Command = 0x0E
	CmdPreshutdown           Command = 0x0F
	CmdTimeChange            Command = 0x10
	CmdTriggerEvent          Command = 0x20
	// CmdUserEvent stands for any user-defined code; the code itself is in
	// Control.UserCode.
	CmdUserEvent Command = 0x80
)

// User-defined control codes occupy 128 through 255.
const (
	MinUserControl = 128
	MaxUserControl = 255
)

// IsTerminal reports whether c ends the service's control handler lifetime.
func (c Command) IsTerminal() bool {
	return c == CmdStop || c == CmdShutdown || c == CmdPreshutdown
}

func (c Command) String() string {
	switch c {
	case CmdStop:
		return "Stop"
	case CmdPause:
		return "Pause"
	case CmdContinue:
		return "Continue"
	case CmdInterrogate:
		return "Interrogate"
	case CmdShutdown:
		return "Shutdown"
	case CmdParamChange:
		return "ParamChange"
	case CmdNetBindAdd:
		return "NetBindAdd"
	case CmdNetBindRemove:
		return "NetBindRemove"
	case CmdNetBindEnable:
		return "NetBindEnable"
	case CmdNetBindDisable:
		return "NetBindDisable"
	case CmdHardwareProfileChange:
		return "HardwareProfileChange"
	case CmdPowerEvent:
		return "PowerEvent"
	case CmdSessionChange:
		return "SessionChange"
	case CmdPreshutdown:
		return "Preshutdown"
	case CmdTimeChange:
		return "TimeChange"
	case CmdTriggerEvent:
		return "TriggerEvent"
	case CmdUserEvent:
		return "UserEvent"
	default:
		return fmt.Sprintf("Command(%#x)", uint32(c))
	}
}

// Control is a decoded control request. Only the payload field matching
// Cmd is set.
type Control struct {
	Cmd Command

	UserCode        uint32
	HardwareProfile HardwareProfileChange
	Power           PowerEvent
	Session         SessionChange
}

func (c Control) String() string {
	switch c.Cmd {
	case CmdUserEvent:
		return fmt.Sprintf("UserEvent(%d)", c.UserCode)
	case CmdHardwareProfileChange:
		return fmt.Sprintf("HardwareProfileChange(%s)", c.HardwareProfile)
	case CmdPowerEvent:
		if c.Power.Setting != nil {
			return fmt.Sprintf("PowerEvent(%s, %T%+v)", c.Power.Type, c.Power.Setting, c.Power.Setting)
		}
		return fmt.Sprintf("PowerEvent(%s)", c.Power.Type)
	case CmdSessionChange:
		return fmt.Sprintf("SessionChange(%s, session %d)", c.Session.Reason, c.Session.SessionID)
	default:
		return c.Cmd.String()
	}
}

// DecodeControl decodes the arguments of a HandlerEx callback. data holds
// the bytes behind lpEventData, or nil when the control carries none.
func DecodeControl(code, eventType uint32, data []byte) (Control, error) {
	cmd := Command(code)
	switch cmd {
	case CmdStop, CmdPause, CmdContinue, CmdInterrogate, CmdShutdown,
		CmdParamChange, CmdNetBindAdd, CmdNetBindRemove, CmdNetBindEnable,
		CmdNetBindDisable, CmdPreshutdown, CmdTimeChange, CmdTriggerEvent:
		return Control{Cmd: cmd}, nil
	case CmdHardwareProfileChange:
		h, err := DecodeHardwareProfileChange(eventType)
		if err != nil {
			return Control{}, err
		}
		return Control{Cmd: cmd, HardwareProfile: h}, nil
	case CmdPowerEvent:
		p, err := DecodePowerEvent(eventType, data)
		if err != nil {
			return Control{}, err
		}
		return Control{Cmd: cmd, Power: p}, nil
	case CmdSessionChange:
		s, err := DecodeSessionChange(eventType, data)
		if err != nil {
			return Control{}, err
		}
		return Control{Cmd: cmd, Session: s}, nil
	}
	if code >= MinUserControl && code <= MaxUserControl {
		return Control{Cmd: CmdUserEvent, UserCode: code}, nil
	}
	return Control{}, &DecodeError{Kind: "control code", Raw: code}
}

// UserControl returns the control for a user-defined code, or a
// DecodeError when code is outside 128..255.
func UserControl(code uint32) (Control, error) {
	if code < MinUserControl || code > MaxUserControl {
		return Control{}, &DecodeError{Kind: "user control code", Raw: code}
	}
	return Control{Cmd: CmdUserEvent, UserCode: code}, nil
}
