//go:build windows

package cmd

import (
	"strings"

	"github.com/Microsoft/go-winio"
	"github.com/warpdl/svcctl/pkg/logger"
	"github.com/warpdl/svcctl/pkg/mgr"
	"github.com/warpdl/svcctl/pkg/scm"
	"golang.org/x/sys/windows"
)

func init() {
	isAdminFunc = isAdmin
	connectManager = connectSCM
	lookupAccount = lookupAccountSid
	installEventSource = logger.InstallEventSource
	removeEventSource = logger.RemoveEventSource
}

// isAdmin checks if the current process has administrator privileges.
// It uses the Windows API to check if the process token is elevated.
func isAdmin() bool {
	var sid *windows.SID

	// Create a SID for the BUILTIN\Administrators group
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	token := windows.Token(0)
	isMember, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return isMember
}

type scmManager struct {
	m *mgr.Manager
}

func connectSCM(machine, database string, access scm.ManagerAccess) (manager, error) {
	var (
		m   *mgr.Manager
		err error
	)
	if machine == "" {
		m, err = mgr.ConnectLocal(database, access)
	} else {
		m, err = mgr.ConnectRemote(machine, database, access)
	}
	if err != nil {
		return nil, err
	}
	return scmManager{m: m}, nil
}

func (a scmManager) Create(info scm.ServiceInfo) (service, error) {
	s, err := a.m.Create(info, scm.ServiceAllAccess)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a scmManager) Open(name string, access scm.ServiceAccess) (service, error) {
	s, err := a.m.Open(name, access)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a scmManager) Close() error {
	return a.m.Close()
}

// lookupAccountSid resolves name to its SID string. Names relative to the
// local machine (".\user") are looked up without the prefix, and the
// LocalSystem pseudo account has no SID to look up.
func lookupAccountSid(name string) (string, error) {
	if strings.EqualFold(name, "LocalSystem") {
		return "S-1-5-18", nil
	}
	return winio.LookupSidByName(strings.TrimPrefix(name, `.\`))
}
