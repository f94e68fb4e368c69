//go:build windows

package mgr

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/wstr"
)

// FailureActions returns the recovery policy. Requires scm.ServiceQueryConfig.
func (s *Service) FailureActions() (scm.FailureActions, error) {
	buf, err := s.queryConfig2(windows.SERVICE_CONFIG_FAILURE_ACTIONS)
	if err != nil {
		return scm.FailureActions{}, err
	}
	p := (*windows.SERVICE_FAILURE_ACTIONS)(buf.ptr())
	raw := scm.RawFailureActions{ResetPeriod: p.ResetPeriod}
	if m, ok := wstr.StringPtr(p.RebootMsg); ok {
		raw.RebootMsg = &m
	}
	if c, ok := wstr.StringPtr(p.Command); ok {
		raw.Command = &c
	}
	if p.Actions != nil {
		actions := unsafe.Slice(p.Actions, p.ActionsCount)
		raw.Actions = make([]scm.RawAction, len(actions))
		for i, a := range actions {
			raw.Actions[i] = scm.RawAction{Type: a.Type, Delay: a.Delay}
		}
	}
	return scm.DecodeFailureActions(raw)
}

// UpdateFailureActions changes the recovery policy. Absent fields of fa are
// left unchanged. A policy with a restart action needs the handle to have
// been opened with scm.ServiceStart as well as scm.ServiceChangeConfig.
func (s *Service) UpdateFailureActions(fa scm.FailureActions) error {
	enc, err := fa.Encode()
	if err != nil {
		return err
	}
	info := windows.SERVICE_FAILURE_ACTIONS{
		ResetPeriod: enc.ResetPeriod,
		RebootMsg:   wstr.Ptr(enc.RebootMsg),
		Command:     wstr.Ptr(enc.Command),
	}
	if enc.ActionsSet {
		actions := make([]windows.SC_ACTIONS, len(enc.Actions), len(enc.Actions)+1)
		for i, a := range enc.Actions {
			actions[i] = windows.SC_ACTIONS{Type: a.Type, Delay: a.Delay}
		}
		// a non-null pointer with a zero count deletes the actions
		info.Actions = &actions[:cap(actions)][0]
		info.ActionsCount = uint32(len(enc.Actions))
	}
	return s.changeConfig2(windows.SERVICE_CONFIG_FAILURE_ACTIONS, unsafe.Pointer(&info))
}

// FailureActionsOnNonCrashFailures reports whether failure actions also run
// when the service stops with a non-zero exit code.
func (s *Service) FailureActionsOnNonCrashFailures() (bool, error) {
	buf, err := s.queryConfig2(windows.SERVICE_CONFIG_FAILURE_ACTIONS_FLAG)
	if err != nil {
		return false, err
	}
	p := (*windows.SERVICE_FAILURE_ACTIONS_FLAG)(buf.ptr())
	return p.FailureActionsOnNonCrashFailures != 0, nil
}

// SetFailureActionsOnNonCrashFailures changes the non-crash failure flag.
func (s *Service) SetFailureActionsOnNonCrashFailures(enabled bool) error {
	var info windows.SERVICE_FAILURE_ACTIONS_FLAG
	if enabled {
		info.FailureActionsOnNonCrashFailures = 1
	}
	return s.changeConfig2(windows.SERVICE_CONFIG_FAILURE_ACTIONS_FLAG, unsafe.Pointer(&info))
}

// Description returns the service description, empty when none is set.
func (s *Service) Description() (string, error) {
	buf, err := s.queryConfig2(windows.SERVICE_CONFIG_DESCRIPTION)
	if err != nil {
		return "", err
	}
	d, _ := wstr.StringPtr((*windows.SERVICE_DESCRIPTION)(buf.ptr()).Description)
	return d, nil
}

// SetDescription changes the description. An empty string removes it.
func (s *Service) SetDescription(desc string) error {
	u, err := wstr.UTF16(desc)
	if err != nil {
		return &scm.ValidationError{Field: "description", Index: -1, Err: err}
	}
	info := windows.SERVICE_DESCRIPTION{Description: &u[0]}
	return s.changeConfig2(windows.SERVICE_CONFIG_DESCRIPTION, unsafe.Pointer(&info))
}

// DelayedAutoStart reports whether an auto-start service starts after the
// other auto-start services.
func (s *Service) DelayedAutoStart() (bool, error) {
	buf, err := s.queryConfig2(windows.SERVICE_CONFIG_DELAYED_AUTO_START_INFO)
	if err != nil {
		return false, err
	}
	return (*windows.SERVICE_DELAYED_AUTO_START_INFO)(buf.ptr()).IsDelayedAutoStartUp != 0, nil
}

// SetDelayedAutoStart changes the delayed auto-start flag.
func (s *Service) SetDelayedAutoStart(delayed bool) error {
	var info windows.SERVICE_DELAYED_AUTO_START_INFO
	if delayed {
		info.IsDelayedAutoStartUp = 1
	}
	return s.changeConfig2(windows.SERVICE_CONFIG_DELAYED_AUTO_START_INFO, unsafe.Pointer(&info))
}

// PreshutdownTimeout returns how long the SCM waits after sending a
// preshutdown control.
func (s *Service) PreshutdownTimeout() (time.Duration, error) {
	buf, err := s.queryConfig2(windows.SERVICE_CONFIG_PRESHUTDOWN_INFO)
	if err != nil {
		return 0, err
	}
	ms := (*windows.SERVICE_PRESHUTDOWN_INFO)(buf.ptr()).PreshutdownTimeout
	return scm.PreshutdownTimeoutFromMillis(ms), nil
}

// SetPreshutdownTimeout changes the preshutdown timeout. It panics if d
// does not fit in a DWORD of milliseconds.
func (s *Service) SetPreshutdownTimeout(d time.Duration) error {
	info := windows.SERVICE_PRESHUTDOWN_INFO{PreshutdownTimeout: scm.PreshutdownTimeoutMillis(d)}
	return s.changeConfig2(windows.SERVICE_CONFIG_PRESHUTDOWN_INFO, unsafe.Pointer(&info))
}

// SidType returns the service SID type.
func (s *Service) SidType() (scm.SidType, error) {
	buf, err := s.queryConfig2(windows.SERVICE_CONFIG_SERVICE_SID_INFO)
	if err != nil {
		return 0, err
	}
	return scm.SidTypeFromRaw(*(*uint32)(buf.ptr()))
}

// SetSidType changes the service SID type.
func (s *Service) SetSidType(t scm.SidType) error {
	raw := uint32(t)
	return s.changeConfig2(windows.SERVICE_CONFIG_SERVICE_SID_INFO, unsafe.Pointer(&raw))
}

func (s *Service) queryConfig2(level uint32) (queryBuffer, error) {
	buf := newQueryBuffer()
	var needed uint32
	err := windows.QueryServiceConfig2(s.h, level, (*byte)(buf.ptr()), maxQueryBufferSize, &needed)
	if err != nil {
		return nil, &scm.OSError{Op: config2Op("QueryServiceConfig2", level) + " " + s.Name, Err: err}
	}
	return buf, nil
}

func (s *Service) changeConfig2(level uint32, info unsafe.Pointer) error {
	if err := windows.ChangeServiceConfig2(s.h, level, (*byte)(info)); err != nil {
		return &scm.OSError{Op: config2Op("ChangeServiceConfig2", level) + " " + s.Name, Err: err}
	}
	return nil
}

func config2Op(call string, level uint32) string {
	switch level {
	case windows.SERVICE_CONFIG_DESCRIPTION:
		return call + "(description)"
	case windows.SERVICE_CONFIG_FAILURE_ACTIONS:
		return call + "(failure actions)"
	case windows.SERVICE_CONFIG_DELAYED_AUTO_START_INFO:
		return call + "(delayed auto start)"
	case windows.SERVICE_CONFIG_FAILURE_ACTIONS_FLAG:
		return call + "(failure actions flag)"
	case windows.SERVICE_CONFIG_SERVICE_SID_INFO:
		return call + "(sid info)"
	case windows.SERVICE_CONFIG_PRESHUTDOWN_INFO:
		return call + "(preshutdown info)"
	}
	return call
}
