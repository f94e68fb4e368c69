package scm

import (
	"encoding/binary"
	"fmt"
)

// PowerEventType is the PBT_* value of a power event.
type PowerEventType uint32

const (
	PowerQuerySuspend       PowerEventType = 0x0000
	PowerQuerySuspendFailed PowerEventType = 0x0002
	PowerSuspend            PowerEventType = 0x0004
	PowerResumeCritical     PowerEventType = 0x0006
	PowerResumeSuspend      PowerEventType = 0x0007
	PowerBatteryLow         PowerEventType = 0x0009
	PowerStatusChange       PowerEventType = 0x000A
	PowerOemEvent           PowerEventType = 0x000B
	PowerResumeAutomatic    PowerEventType = 0x0012
	PowerSettingChange      PowerEventType = 0x8013
)

func (t PowerEventType) String() string {
	switch t {
	case PowerQuerySuspend:
		return "QuerySuspend"
	case PowerQuerySuspendFailed:
		return "QuerySuspendFailed"
	case PowerSuspend:
		return "Suspend"
	case PowerResumeCritical:
		return "ResumeCritical"
	case PowerResumeSuspend:
		return "ResumeSuspend"
	case PowerBatteryLow:
		return "BatteryLow"
	case PowerStatusChange:
		return "PowerStatusChange"
	case PowerOemEvent:
		return "OemEvent"
	case PowerResumeAutomatic:
		return "ResumeAutomatic"
	case PowerSettingChange:
		return "PowerSettingChange"
	default:
		return fmt.Sprintf("PowerEventType(%#x)", uint32(t))
	}
}

// PowerEvent is the payload of a power event control. Setting is only set
// for PowerSettingChange.
type PowerEvent struct {
	Type    PowerEventType
	Setting PowerSetting
}

// DecodePowerEvent decodes the event type and, for setting changes, the
// POWERBROADCAST_SETTING record in data.
func DecodePowerEvent(eventType uint32, data []byte) (PowerEvent, error) {
	t := PowerEventType(eventType)
	switch t {
	case PowerQuerySuspend, PowerQuerySuspendFailed, PowerSuspend,
		PowerResumeCritical, PowerResumeSuspend, PowerBatteryLow,
		PowerStatusChange, PowerOemEvent, PowerResumeAutomatic:
		return PowerEvent{Type: t}, nil
	case PowerSettingChange:
		s, err := DecodePowerSetting(data)
		if err != nil {
			return PowerEvent{}, err
		}
		return PowerEvent{Type: t, Setting: s}, nil
	}
	return PowerEvent{}, &DecodeError{Kind: "power event", Raw: eventType}
}

// Power setting GUIDs from winnt.h.
var (
	guidAcdcPowerSource            = mustGUID("5D3E9A59-E9D5-4B00-A6BD-FF34FF516548")
	guidBatteryPercentageRemaining = mustGUID("A7AD8041-B45A-4CAE-87A3-EECBB468A9E1")
	guidConsoleDisplayState        = mustGUID("6FE69556-704A-47A0-8F24-C28D936FDA47")
	guidGlobalUserPresence         = mustGUID("786E8A1D-B427-4344-9207-09E70BDCBEA9")
	guidIdleBackgroundTask         = mustGUID("515C31D8-F734-163D-A0FD-11A08C91E8F1")
	guidMonitorPowerOn             = mustGUID("02731015-4510-4526-99E6-E5A17EBD1AEA")
	guidPowerSavingStatus          = mustGUID("E00958C0-C213-4ACE-AC77-FECCED2EEEA5")
	guidPowerSchemePersonality     = mustGUID("245D8541-3943-4422-B025-13A784F679B7")
	guidSystemAwayMode             = mustGUID("98A7F580-01F7-48AA-9C0F-44352C29E5C0")

	guidMinPowerSavings     = mustGUID("8C5E7FDA-E8BF-4A96-9A85-A6E23A8C635C")
	guidMaxPowerSavings     = mustGUID("A1841308-3541-4FAB-BC81-F71556F20B4A")
	guidTypicalPowerSavings = mustGUID("381B4222-F694-41F0-9685-FF5BB260DF2E")
)

// PowerSetting is one of the decoded power setting notifications.
type PowerSetting interface {
	// GUID returns the power setting identifier.
	GUID() GUID
}

type (
	AcdcPowerSource            struct{ Source PowerSource }
	BatteryPercentageRemaining struct{ Percent uint32 }
	ConsoleDisplayState        struct{ State DisplayState }
	GlobalUserPresence         struct{ Status UserStatus }
	IdleBackgroundTask         struct{}
	MonitorPowerOn             struct{ State MonitorState }
	PowerSavingStatus          struct{ State BatterySaverState }
	PowerSchemePersonality     struct{ Personality Personality }
	SystemAwayMode             struct{ State AwayModeState }
)

func (AcdcPowerSource) GUID() GUID            { return guidAcdcPowerSource }
func (BatteryPercentageRemaining) GUID() GUID { return guidBatteryPercentageRemaining }
func (ConsoleDisplayState) GUID() GUID        { return guidConsoleDisplayState }
func (GlobalUserPresence) GUID() GUID         { return guidGlobalUserPresence }
func (IdleBackgroundTask) GUID() GUID         { return guidIdleBackgroundTask }
func (MonitorPowerOn) GUID() GUID             { return guidMonitorPowerOn }
func (PowerSavingStatus) GUID() GUID          { return guidPowerSavingStatus }
func (PowerSchemePersonality) GUID() GUID     { return guidPowerSchemePersonality }
func (SystemAwayMode) GUID() GUID             { return guidSystemAwayMode }

// PowerSource is the data of an AC/DC power source notification.
type PowerSource uint32

const (
	PowerSourceAC  PowerSource = 0
	PowerSourceDC  PowerSource = 1
	PowerSourceHot PowerSource = 2
)

// DisplayState is the data of a console display state notification.
type DisplayState uint32

const (
	DisplayOff    DisplayState = 0
	DisplayOn     DisplayState = 1
	DisplayDimmed DisplayState = 2
)

// UserStatus is the data of a global user presence notification.
type UserStatus uint32

const (
	UserPresent  UserStatus = 0
	UserInactive UserStatus = 2
)

// MonitorState is the data of a monitor power notification.
type MonitorState uint32

const (
	MonitorOff MonitorState = 0
	MonitorOn  MonitorState = 1
)

// BatterySaverState is the data of a power saving status notification.
type BatterySaverState uint32

const (
	BatterySaverOff BatterySaverState = 0
	BatterySaverOn  BatterySaverState = 1
)

// AwayModeState is the data of a system away mode notification.
type AwayModeState uint32

const (
	AwayModeExiting  AwayModeState = 0
	AwayModeEntering AwayModeState = 1
)

// Personality is the active power scheme.
type Personality int

const (
	HighPerformance Personality = iota
	PowerSaver
	Automatic
)

func (p Personality) String() string {
	switch p {
	case HighPerformance:
		return "HighPerformance"
	case PowerSaver:
		return "PowerSaver"
	case Automatic:
		return "Automatic"
	default:
		return fmt.Sprintf("Personality(%d)", int(p))
	}
}

// PersonalityFromGUID maps a power scheme GUID to its personality.
func PersonalityFromGUID(g GUID) (Personality, error) {
	switch g {
	case guidMinPowerSavings:
		return HighPerformance, nil
	case guidMaxPowerSavings:
		return PowerSaver, nil
	case guidTypicalPowerSavings:
		return Automatic, nil
	}
	return 0, &DecodeError{Kind: "power scheme personality", GUID: g.String()}
}

// powerBroadcastHeader is the size of POWERBROADCAST_SETTING up to Data.
const powerBroadcastHeader = 20

// DecodePowerSetting decodes a POWERBROADCAST_SETTING record: a 16-byte
// setting GUID, a DWORD data length and the setting data.
func DecodePowerSetting(data []byte) (PowerSetting, error) {
	if len(data) < powerBroadcastHeader {
		return nil, fmt.Errorf("power setting: %w", ErrShortEventData)
	}
	id, _ := GUIDFromBytes(data[:16])
	n := binary.LittleEndian.Uint32(data[16:20])
	payload := data[powerBroadcastHeader:]
	if uint64(n) < uint64(len(payload)) {
		payload = payload[:n]
	}

	switch id {
	case guidIdleBackgroundTask:
		return IdleBackgroundTask{}, nil
	case guidPowerSchemePersonality:
		g, err := GUIDFromBytes(payload)
		if err != nil {
			return nil, err
		}
		p, err := PersonalityFromGUID(g)
		if err != nil {
			return nil, err
		}
		return PowerSchemePersonality{Personality: p}, nil
	}

	known := id == guidAcdcPowerSource || id == guidBatteryPercentageRemaining ||
		id == guidConsoleDisplayState || id == guidGlobalUserPresence ||
		id == guidMonitorPowerOn || id == guidPowerSavingStatus ||
		id == guidSystemAwayMode
	if !known {
		return nil, &DecodeError{Kind: "power setting", GUID: id.String()}
	}
	if len(payload) < 4 {
		return nil, fmt.Errorf("power setting %s: %w", id, ErrShortEventData)
	}
	v := binary.LittleEndian.Uint32(payload)

	switch id {
	case guidAcdcPowerSource:
		if v > uint32(PowerSourceHot) {
			return nil, &DecodeError{Kind: "power source", Raw: v}
		}
		return AcdcPowerSource{Source: PowerSource(v)}, nil
	case guidBatteryPercentageRemaining:
		return BatteryPercentageRemaining{Percent: v}, nil
	case guidConsoleDisplayState:
		if v > uint32(DisplayDimmed) {
			return nil, &DecodeError{Kind: "display state", Raw: v}
		}
		return ConsoleDisplayState{State: DisplayState(v)}, nil
	case guidGlobalUserPresence:
		if v != uint32(UserPresent) && v != uint32(UserInactive) {
			return nil, &DecodeError{Kind: "user status", Raw: v}
		}
		return GlobalUserPresence{Status: UserStatus(v)}, nil
	case guidMonitorPowerOn:
		if v > uint32(MonitorOn) {
			return nil, &DecodeError{Kind: "monitor state", Raw: v}
		}
		return MonitorPowerOn{State: MonitorState(v)}, nil
	case guidPowerSavingStatus:
		if v > uint32(BatterySaverOn) {
			return nil, &DecodeError{Kind: "battery saver state", Raw: v}
		}
		return PowerSavingStatus{State: BatterySaverState(v)}, nil
	default:
		if v > uint32(AwayModeEntering) {
			return nil, &DecodeError{Kind: "away mode state", Raw: v}
		}
		return SystemAwayMode{State: AwayModeState(v)}, nil
	}
}

// EncodePowerSetting builds a POWERBROADCAST_SETTING record carrying a
// DWORD value. It is the inverse of DecodePowerSetting for DWORD settings.
func EncodePowerSetting(id GUID, value uint32) []byte {
	b := make([]byte, powerBroadcastHeader+4)
	copy(b, id.Bytes())
	binary.LittleEndian.PutUint32(b[16:20], 4)
	binary.LittleEndian.PutUint32(b[20:24], value)
	return b
}
