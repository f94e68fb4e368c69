//go:build windows

package mgr

import (
	"golang.org/x/sys/windows"

	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/wstr"
)

// Manager is a connection to the SCM of one machine.
type Manager struct {
	Handle
}

// ConnectLocal connects to the SCM on this machine. An empty database
// selects the active services database.
func ConnectLocal(database string, access scm.ManagerAccess) (*Manager, error) {
	return ConnectRemote("", database, access)
}

// ConnectRemote connects to the SCM on machine. An empty machine means the
// local machine.
func ConnectRemote(machine, database string, access scm.ManagerAccess) (*Manager, error) {
	m, err := optionalUTF16("machine name", machine)
	if err != nil {
		return nil, err
	}
	db, err := optionalUTF16("database name", database)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenSCManager(wstr.Ptr(m), wstr.Ptr(db), uint32(access))
	if err != nil {
		return nil, &scm.OSError{Op: "OpenSCManager", Err: err}
	}
	return &Manager{Handle{h: h}}, nil
}

// Create registers a new service described by info and opens it with
// access.
func (m *Manager) Create(info scm.ServiceInfo, access scm.ServiceAccess) (*Service, error) {
	raw, err := info.Encode()
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateService(
		m.h,
		wstr.Ptr(raw.Name),
		wstr.Ptr(raw.DisplayName),
		uint32(access),
		raw.ServiceType,
		raw.StartType,
		raw.ErrorControl,
		wstr.Ptr(raw.LaunchCommand),
		nil,
		nil,
		wstr.Ptr(raw.Dependencies),
		wstr.Ptr(raw.AccountName),
		wstr.Ptr(raw.Password),
	)
	if err != nil {
		return nil, &scm.OSError{Op: "CreateService " + info.Name, Err: err}
	}
	return &Service{Handle: Handle{h: h}, Name: info.Name}, nil
}

// Open opens an existing service. A missing service fails with
// windows.ERROR_SERVICE_DOES_NOT_EXIST and insufficient rights with
// windows.ERROR_ACCESS_DENIED, both reachable through errors.Is.
func (m *Manager) Open(name string, access scm.ServiceAccess) (*Service, error) {
	n, err := wstr.UTF16(name)
	if err != nil {
		return nil, &scm.ValidationError{Field: "name", Index: -1, Err: err}
	}
	h, err := windows.OpenService(m.h, &n[0], uint32(access))
	if err != nil {
		return nil, &scm.OSError{Op: "OpenService " + name, Err: err}
	}
	return &Service{Handle: Handle{h: h}, Name: name}, nil
}

func optionalUTF16(field, s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	u, err := wstr.UTF16(s)
	if err != nil {
		return nil, &scm.ValidationError{Field: field, Index: -1, Err: err}
	}
	return u, nil
}
