//go:build !windows

package cmd

import "github.com/warpdl/svcctl/pkg/scm"

func init() {
	isAdminFunc = func() bool { return false }
	connectManager = func(string, string, scm.ManagerAccess) (manager, error) {
		return nil, errUnsupported
	}
	lookupAccount = func(name string) (string, error) { return name, nil }
	installEventSource = func(string) error { return nil }
	removeEventSource = func(string) error { return nil }
}
