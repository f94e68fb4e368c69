package scm

import (
	"encoding/binary"
	"fmt"
)

// SessionChangeReason is the WTS_* reason of a session change event.
type SessionChangeReason uint32

const (
	ConsoleConnect       SessionChangeReason = 0x1
	ConsoleDisconnect    SessionChangeReason = 0x2
	RemoteConnect        SessionChangeReason = 0x3
	RemoteDisconnect     SessionChangeReason = 0x4
	SessionLogon         SessionChangeReason = 0x5
	SessionLogoff        SessionChangeReason = 0x6
	SessionLock          SessionChangeReason = 0x7
	SessionUnlock        SessionChangeReason = 0x8
	SessionRemoteControl SessionChangeReason = 0x9
	SessionCreate        SessionChangeReason = 0xA
	SessionTerminate     SessionChangeReason = 0xB
)

var sessionReasonNames = [...]string{
	ConsoleConnect:       "ConsoleConnect",
	ConsoleDisconnect:    "ConsoleDisconnect",
	RemoteConnect:        "RemoteConnect",
	RemoteDisconnect:     "RemoteDisconnect",
	SessionLogon:         "SessionLogon",
	SessionLogoff:        "SessionLogoff",
	SessionLock:          "SessionLock",
	SessionUnlock:        "SessionUnlock",
	SessionRemoteControl: "SessionRemoteControl",
	SessionCreate:        "SessionCreate",
	SessionTerminate:     "SessionTerminate",
}

func (r SessionChangeReason) String() string {
	if r >= ConsoleConnect && r <= SessionTerminate {
		return sessionReasonNames[r]
	}
	return fmt.Sprintf("SessionChangeReason(%d)", uint32(r))
}

// SessionChange is the payload of a session change control.
type SessionChange struct {
	Reason SessionChangeReason
	// Size is the cbSize field of WTSSESSION_NOTIFICATION.
	Size      uint32
	SessionID uint32
}

// sessionNotificationSize is sizeof(WTSSESSION_NOTIFICATION).
const sessionNotificationSize = 8

// DecodeSessionChange decodes the reason and the WTSSESSION_NOTIFICATION
// record in data.
func DecodeSessionChange(eventType uint32, data []byte) (SessionChange, error) {
	r := SessionChangeReason(eventType)
	if r < ConsoleConnect || r > SessionTerminate {
		return SessionChange{}, &DecodeError{Kind: "session change reason", Raw: eventType}
	}
	if len(data) < sessionNotificationSize {
		return SessionChange{}, fmt.Errorf("session notification: %w", ErrShortEventData)
	}
	return SessionChange{
		Reason:    r,
		Size:      binary.LittleEndian.Uint32(data[0:4]),
		SessionID: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// HardwareProfileChange is the DBT_* reason of a hardware profile change.
type HardwareProfileChange uint32

const (
	QueryChangeConfig    HardwareProfileChange = 0x0017
	ConfigChanged        HardwareProfileChange = 0x0018
	ConfigChangeCanceled HardwareProfileChange = 0x0019
)

func (h HardwareProfileChange) String() string {
	switch h {
	case QueryChangeConfig:
		return "QueryChangeConfig"
	case ConfigChanged:
		return "ConfigChanged"
	case ConfigChangeCanceled:
		return "ConfigChangeCanceled"
	default:
		return fmt.Sprintf("HardwareProfileChange(%#x)", uint32(h))
	}
}

// DecodeHardwareProfileChange decodes the event type of a hardware profile
// change control.
func DecodeHardwareProfileChange(eventType uint32) (HardwareProfileChange, error) {
	h := HardwareProfileChange(eventType)
	switch h {
	case QueryChangeConfig, ConfigChanged, ConfigChangeCanceled:
		return h, nil
	}
	return 0, &DecodeError{Kind: "hardware profile change", Raw: eventType}
}
