package cmd

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/pkg/scm"
)

// ErrRequiresAdmin is returned when an operation requires administrator privileges.
var ErrRequiresAdmin = errors.New("this operation requires administrator privileges")

// errUnsupported is returned by the service operations on platforms without
// a service control manager.
var errUnsupported = errors.New("service control is only available on Windows")

// Win32 error codes mapped to operator messages.
const (
	errnoAccessDenied          = syscall.Errno(5)
	errnoInvalidServiceControl = syscall.Errno(1052)
	errnoAlreadyRunning        = syscall.Errno(1056)
	errnoServiceDisabled       = syscall.Errno(1058)
	errnoServiceDoesNotExist   = syscall.Errno(1060)
	errnoCannotAcceptCtrl      = syscall.Errno(1061)
	errnoNotActive             = syscall.Errno(1062)
	errnoMarkedForDelete       = syscall.Errno(1072)
	errnoServiceExists         = syscall.Errno(1073)
)

// service is the subset of mgr.Service the commands use.
type service interface {
	Start(args ...string) error
	Stop() (scm.ServiceStatus, error)
	Pause() (scm.ServiceStatus, error)
	Resume() (scm.ServiceStatus, error)
	Notify(code uint32) (scm.ServiceStatus, error)
	QueryStatus() (scm.ServiceStatus, error)
	QueryConfig() (scm.ServiceConfig, error)
	ChangeConfig(info scm.ServiceInfo) error
	FailureActions() (scm.FailureActions, error)
	UpdateFailureActions(fa scm.FailureActions) error
	FailureActionsOnNonCrashFailures() (bool, error)
	SetFailureActionsOnNonCrashFailures(enabled bool) error
	Description() (string, error)
	SetDescription(desc string) error
	DelayedAutoStart() (bool, error)
	SetDelayedAutoStart(delayed bool) error
	PreshutdownTimeout() (time.Duration, error)
	SetPreshutdownTimeout(d time.Duration) error
	SidType() (scm.SidType, error)
	SetSidType(t scm.SidType) error
	Delete() error
	Close() error
}

// manager is the subset of mgr.Manager the commands use.
type manager interface {
	Create(info scm.ServiceInfo) (service, error)
	Open(name string, access scm.ServiceAccess) (service, error)
	Close() error
}

// Dependency injection variables for testing. The platform files assign
// the real implementations.
var (
	isAdminFunc    func() bool
	connectManager func(machine, database string, access scm.ManagerAccess) (manager, error)
	// lookupAccount resolves an account name so typos fail before the SCM
	// stores them.
	lookupAccount func(name string) (string, error)
	// installEventSource registers a service name as an event log source.
	installEventSource func(name string) error
	removeEventSource  func(name string) error
)

// requireAdmin checks for admin privileges and returns ErrRequiresAdmin if not elevated.
// Remote machines enforce their own access checks.
func requireAdmin() error {
	if current.machine == "" && !isAdminFunc() {
		return ErrRequiresAdmin
	}
	return nil
}

func connect(access scm.ManagerAccess) (manager, error) {
	m, err := connectManager(current.machine, current.database, access)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to service control manager: %w", err)
	}
	return m, nil
}

// withService connects, opens name with access and runs fn.
func withService(name string, access scm.ServiceAccess, fn func(service) error) error {
	m, err := connect(scm.ManagerConnect)
	if err != nil {
		return err
	}
	defer m.Close()

	s, err := m.Open(name, access)
	if err != nil {
		return describeErr(name, "open", err)
	}
	defer s.Close()
	return fn(s)
}

// describeErr turns the common SCM failures into operator messages. The
// OS error stays wrapped so callers can still match the errno.
func describeErr(name, action string, err error) error {
	switch {
	case errors.Is(err, errnoServiceDoesNotExist):
		return fmt.Errorf("service '%s' is not installed: %w", name, err)
	case errors.Is(err, errnoServiceExists):
		return fmt.Errorf("service '%s' is already installed: %w", name, err)
	case errors.Is(err, errnoAlreadyRunning):
		return fmt.Errorf("service '%s' is already running: %w", name, err)
	case errors.Is(err, errnoNotActive):
		return fmt.Errorf("service '%s' is not running: %w", name, err)
	case errors.Is(err, errnoServiceDisabled):
		return fmt.Errorf("service '%s' is disabled: %w", name, err)
	case errors.Is(err, errnoMarkedForDelete):
		return fmt.Errorf("service '%s' is marked for deletion; close open handles to it: %w", name, err)
	case errors.Is(err, errnoCannotAcceptCtrl), errors.Is(err, errnoInvalidServiceControl):
		return fmt.Errorf("service '%s' cannot accept this control in its current state: %w", name, err)
	case errors.Is(err, errnoAccessDenied):
		return fmt.Errorf("failed to %s service '%s': access denied: %w", action, name, err)
	}
	return fmt.Errorf("failed to %s service '%s': %w", action, name, err)
}

// serviceName returns the first positional argument or a usage error.
func serviceName(ctx *cli.Context) (string, error) {
	name := ctx.Args().First()
	if name == "" {
		return "", errors.New("missing service name")
	}
	return name, nil
}
