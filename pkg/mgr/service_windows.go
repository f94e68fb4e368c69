//go:build windows

package mgr

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/wstr"
)

// maxQueryBufferSize is the documented ceiling for QueryServiceConfig and
// QueryServiceConfig2 records. Queries do not retry with a larger buffer.
const maxQueryBufferSize = 8 * 1024

// Service is an open handle to one service.
type Service struct {
	Handle
	Name string
}

// Start starts the service with optional arguments. It returns once the
// SCM has accepted the request; use QueryStatus to follow progress.
// Requires scm.ServiceStart.
func (s *Service) Start(args ...string) error {
	var argv []*uint16
	for i, a := range args {
		u, err := wstr.UTF16(a)
		if err != nil {
			return &scm.ValidationError{Field: "start argument", Index: i, Err: err}
		}
		argv = append(argv, &u[0])
	}
	var p **uint16
	if len(argv) > 0 {
		p = &argv[0]
	}
	if err := windows.StartService(s.h, uint32(len(argv)), p); err != nil {
		return &scm.OSError{Op: "StartService " + s.Name, Err: err}
	}
	return nil
}

// Stop asks the service to stop. Requires scm.ServiceStop.
func (s *Service) Stop() (scm.ServiceStatus, error) {
	return s.control(scm.CmdStop)
}

// Pause asks the service to pause. Requires scm.ServicePauseContinue.
func (s *Service) Pause() (scm.ServiceStatus, error) {
	return s.control(scm.CmdPause)
}

// Resume asks a paused service to continue. Requires scm.ServicePauseContinue.
func (s *Service) Resume() (scm.ServiceStatus, error) {
	return s.control(scm.CmdContinue)
}

// Interrogate asks the service to report its current status.
// Requires scm.ServiceInterrogate.
func (s *Service) Interrogate() (scm.ServiceStatus, error) {
	return s.control(scm.CmdInterrogate)
}

// Notify sends a user-defined control code between 128 and 255.
// Requires scm.ServiceUserDefinedControl.
func (s *Service) Notify(code uint32) (scm.ServiceStatus, error) {
	c, err := scm.UserControl(code)
	if err != nil {
		return scm.ServiceStatus{}, err
	}
	return s.sendControl(c.UserCode, c.Cmd.String())
}

func (s *Service) control(cmd scm.Command) (scm.ServiceStatus, error) {
	return s.sendControl(uint32(cmd), cmd.String())
}

func (s *Service) sendControl(code uint32, name string) (scm.ServiceStatus, error) {
	var st windows.SERVICE_STATUS
	if err := windows.ControlService(s.h, code, &st); err != nil {
		return scm.ServiceStatus{}, &scm.OSError{Op: "ControlService " + name + " " + s.Name, Err: err}
	}
	return scm.DecodeStatus(rawStatus(st))
}

// QueryStatus returns the current status including the process id.
// Requires scm.ServiceQueryStatus.
func (s *Service) QueryStatus() (scm.ServiceStatus, error) {
	var p windows.SERVICE_STATUS_PROCESS
	var needed uint32
	err := windows.QueryServiceStatusEx(s.h, windows.SC_STATUS_PROCESS_INFO,
		(*byte)(unsafe.Pointer(&p)), uint32(unsafe.Sizeof(p)), &needed)
	if err != nil {
		return scm.ServiceStatus{}, &scm.OSError{Op: "QueryServiceStatusEx " + s.Name, Err: err}
	}
	return scm.DecodeStatusProcess(scm.RawStatusProcess{
		RawStatus: scm.RawStatus{
			ServiceType:             p.ServiceType,
			CurrentState:            p.CurrentState,
			ControlsAccepted:        p.ControlsAccepted,
			Win32ExitCode:           p.Win32ExitCode,
			ServiceSpecificExitCode: p.ServiceSpecificExitCode,
			CheckPoint:              p.CheckPoint,
			WaitHint:                p.WaitHint,
		},
		ProcessID:    p.ProcessId,
		ServiceFlags: p.ServiceFlags,
	})
}

// QueryConfig returns the persisted configuration.
// Requires scm.ServiceQueryConfig.
func (s *Service) QueryConfig() (scm.ServiceConfig, error) {
	buf := newQueryBuffer()
	p := (*windows.QUERY_SERVICE_CONFIG)(buf.ptr())
	var needed uint32
	if err := windows.QueryServiceConfig(s.h, p, maxQueryBufferSize, &needed); err != nil {
		return scm.ServiceConfig{}, &scm.OSError{Op: "QueryServiceConfig " + s.Name, Err: err}
	}
	raw := scm.RawConfig{
		ServiceType:  p.ServiceType,
		StartType:    p.StartType,
		ErrorControl: p.ErrorControl,
		TagID:        p.TagId,
		Dependencies: wstr.SplitPtr(p.Dependencies),
	}
	raw.BinaryPathName, _ = wstr.StringPtr(p.BinaryPathName)
	raw.DisplayName, _ = wstr.StringPtr(p.DisplayName)
	if g, ok := wstr.StringPtr(p.LoadOrderGroup); ok {
		raw.LoadOrderGroup = &g
	}
	if a, ok := wstr.StringPtr(p.ServiceStartName); ok {
		raw.ServiceStartName = &a
	}
	return scm.DecodeConfig(raw)
}

// ChangeConfig rewrites the configuration from info. The name cannot be
// changed, a nil Account leaves the run-as account unchanged, and an empty
// dependency list removes all dependencies. Requires scm.ServiceChangeConfig.
func (s *Service) ChangeConfig(info scm.ServiceInfo) error {
	raw, err := info.Encode()
	if err != nil {
		return err
	}
	deps := raw.Dependencies
	if deps == nil {
		deps = []uint16{0, 0}
	}
	err = windows.ChangeServiceConfig(
		s.h,
		raw.ServiceType,
		raw.StartType,
		raw.ErrorControl,
		wstr.Ptr(raw.LaunchCommand),
		nil,
		nil,
		&deps[0],
		wstr.Ptr(raw.AccountName),
		wstr.Ptr(raw.Password),
		wstr.Ptr(raw.DisplayName),
	)
	if err != nil {
		return &scm.OSError{Op: "ChangeServiceConfig " + s.Name, Err: err}
	}
	return nil
}

// Delete marks the service for deletion. The SCM removes it once every
// handle is closed and the service has stopped, so Open may still succeed
// for a while afterwards. Requires scm.ServiceDelete.
func (s *Service) Delete() error {
	if err := windows.DeleteService(s.h); err != nil {
		return &scm.OSError{Op: "DeleteService " + s.Name, Err: err}
	}
	return nil
}

func rawStatus(st windows.SERVICE_STATUS) scm.RawStatus {
	return scm.RawStatus{
		ServiceType:             st.ServiceType,
		CurrentState:            st.CurrentState,
		ControlsAccepted:        st.ControlsAccepted,
		Win32ExitCode:           st.Win32ExitCode,
		ServiceSpecificExitCode: st.ServiceSpecificExitCode,
		CheckPoint:              st.CheckPoint,
		WaitHint:                st.WaitHint,
	}
}

// queryBuffer is an 8-byte aligned buffer of maxQueryBufferSize bytes.
type queryBuffer []uint64

func newQueryBuffer() queryBuffer {
	return make(queryBuffer, maxQueryBufferSize/8)
}

func (b queryBuffer) ptr() unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}
