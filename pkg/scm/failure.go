package scm

import (
	"fmt"
	"time"
)

// infinite (INFINITE) as a reset period means the failure count is never reset.
const infinite = 0xFFFFFFFF

// ActionType is what the SCM does when a service fails.
type ActionType uint32

const (
	ActionNone       ActionType = 0
	ActionRestart    ActionType = 1
	ActionReboot     ActionType = 2
	ActionRunCommand ActionType = 3
)

// ActionTypeFromRaw decodes an SC_ACTION_* value.
func ActionTypeFromRaw(raw uint32) (ActionType, error) {
	if raw > uint32(ActionRunCommand) {
		return 0, &DecodeError{Kind: "action type", Raw: raw}
	}
	return ActionType(raw), nil
}

func (a ActionType) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRestart:
		return "restart"
	case ActionReboot:
		return "reboot"
	case ActionRunCommand:
		return "run"
	default:
		return fmt.Sprintf("ActionType(%d)", uint32(a))
	}
}

// ParseActionType accepts the names produced by ActionType.String.
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "none":
		return ActionNone, nil
	case "restart":
		return ActionRestart, nil
	case "reboot":
		return ActionReboot, nil
	case "run", "command":
		return ActionRunCommand, nil
	}
	return 0, fmt.Errorf("unknown failure action %q", s)
}

// Action is one step of a failure policy.
type Action struct {
	Type  ActionType
	Delay time.Duration
}

// ResetPeriod is how long without failures before the failure count
// returns to zero.
type ResetPeriod struct {
	after time.Duration
	never bool
}

// ResetNever keeps the failure count forever.
func ResetNever() ResetPeriod { return ResetPeriod{never: true} }

// ResetAfter resets the failure count after d without failures.
func ResetAfter(d time.Duration) ResetPeriod { return ResetPeriod{after: d} }

// Never reports whether the failure count is never reset.
func (r ResetPeriod) Never() bool { return r.never }

// After returns the reset delay. It is zero when Never is true.
func (r ResetPeriod) After() time.Duration { return r.after }

func (r ResetPeriod) String() string {
	if r.never {
		return "never"
	}
	return r.after.String()
}

// FailureActions is the recovery policy of a service.
//
// For updates, an absent field is left unchanged. A present empty
// RebootMessage or Command clears it, and a present empty Actions list
// removes all actions.
type FailureActions struct {
	ResetPeriod   ResetPeriod
	RebootMessage Optional[string]
	Command       Optional[string]
	Actions       Optional[[]Action]
}

// RawAction mirrors SC_ACTION.
type RawAction struct {
	Type  uint32
	Delay uint32
}

// RawFailureActions mirrors SERVICE_FAILURE_ACTIONSW after its strings have
// been read. Nil fields stand for null pointers.
type RawFailureActions struct {
	ResetPeriod uint32
	RebootMsg   *string
	Command     *string
	Actions     []RawAction
}

// EncodedFailureActions holds the wire buffers for ChangeServiceConfig2W.
// A nil string buffer leaves the field unchanged. When ActionsSet is true
// and Actions is empty the caller must pass a non-null pointer with a zero
// count so the SCM removes the existing actions.
type EncodedFailureActions struct {
	ResetPeriod uint32
	RebootMsg   []uint16
	Command     []uint16
	Actions     []RawAction
	ActionsSet  bool
}

// Encode converts fa for ChangeServiceConfig2W. It panics if the reset
// period or an action delay does not fit its DWORD field.
func (fa FailureActions) Encode() (EncodedFailureActions, error) {
	var (
		enc EncodedFailureActions
		err error
	)
	if fa.ResetPeriod.never {
		enc.ResetPeriod = infinite
	} else {
		enc.ResetPeriod = seconds("reset period", fa.ResetPeriod.after)
	}
	if msg, ok := fa.RebootMessage.Get(); ok {
		if enc.RebootMsg, err = encodeField("reboot message", -1, msg); err != nil {
			return EncodedFailureActions{}, err
		}
	}
	if cmd, ok := fa.Command.Get(); ok {
		if enc.Command, err = encodeField("command", -1, cmd); err != nil {
			return EncodedFailureActions{}, err
		}
	}
	if actions, ok := fa.Actions.Get(); ok {
		enc.ActionsSet = true
		enc.Actions = make([]RawAction, len(actions))
		for i, a := range actions {
			enc.Actions[i] = RawAction{
				Type:  uint32(a.Type),
				Delay: millis("action delay", a.Delay),
			}
		}
	}
	return enc, nil
}

// DecodeFailureActions converts a SERVICE_FAILURE_ACTIONSW record. Null and
// empty strings both decode as absent.
func DecodeFailureActions(raw RawFailureActions) (FailureActions, error) {
	var fa FailureActions
	if raw.ResetPeriod == infinite {
		fa.ResetPeriod = ResetNever()
	} else {
		fa.ResetPeriod = ResetAfter(time.Duration(raw.ResetPeriod) * time.Second)
	}
	if raw.RebootMsg != nil && *raw.RebootMsg != "" {
		fa.RebootMessage = Some(*raw.RebootMsg)
	}
	if raw.Command != nil && *raw.Command != "" {
		fa.Command = Some(*raw.Command)
	}
	if raw.Actions != nil {
		actions := make([]Action, len(raw.Actions))
		for i, a := range raw.Actions {
			t, err := ActionTypeFromRaw(a.Type)
			if err != nil {
				return FailureActions{}, err
			}
			actions[i] = Action{Type: t, Delay: fromMillis(a.Delay)}
		}
		fa.Actions = Some(actions)
	}
	return fa, nil
}
