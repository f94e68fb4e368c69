package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/credential"
	"github.com/warpdl/svcctl/internal/definition"
	"github.com/warpdl/svcctl/pkg/scm"
)

// fsys is where definition files are read from and exported to.
var fsys = afero.NewOsFs()

var credentialPassword = credential.Password

var installFlags = []cli.Flag{
	cli.StringFlag{Name: "file, f", Usage: "JSON service definition"},
	cli.StringFlag{Name: "exe", Usage: "path of the service executable"},
	cli.StringSliceFlag{Name: "arg", Usage: "launch argument (repeatable)"},
	cli.StringFlag{Name: "display-name", Usage: "name shown in the services console"},
	cli.StringFlag{Name: "type", Usage: "own, share, kernel, filesystem, user-own or user-share"},
	cli.StringFlag{Name: "start", Usage: "auto, demand, disabled, boot or system"},
	cli.StringFlag{Name: "error-control", Usage: "ignore, normal, severe or critical"},
	cli.StringSliceFlag{Name: "depend", Usage: "service this one depends on (repeatable)"},
	cli.StringSliceFlag{Name: "group-depend", Usage: "load order group this one depends on (repeatable)"},
	cli.StringFlag{Name: "account", Usage: `run-as account, e.g. ".\user" or "NT AUTHORITY\LocalService"`},
	cli.StringFlag{Name: "password-from-keyring", Usage: "keyring entry holding the account password, as service/user"},
	cli.StringFlag{Name: "description", Usage: "service description"},
	cli.BoolFlag{Name: "delayed", Usage: "delay automatic start until other auto-start services are running"},
	cli.DurationFlag{Name: "preshutdown-timeout", Usage: "time the service may spend handling preshutdown"},
	cli.StringFlag{Name: "sid-type", Usage: "none, unrestricted or restricted"},
	cli.BoolFlag{Name: "event-source", Usage: "register the service name as an event log source"},
}

var uninstallFlags = []cli.Flag{
	cli.BoolFlag{Name: "event-source", Usage: "also remove the event log source"},
	cli.DurationFlag{Name: "timeout", Usage: "time to wait for the service to stop", Value: DEF_WAIT_TIMEOUT},
}

// loadDefinition merges the definition file (if any) with the flags.
func loadDefinition(ctx *cli.Context) (*definition.Definition, error) {
	def := &definition.Definition{}
	if path := ctx.String("file"); path != "" {
		d, err := definition.Read(fsys, path)
		if err != nil {
			return nil, err
		}
		def = d
	}
	if name := ctx.Args().First(); name != "" {
		def.Name = name
	}
	setString := func(flag string, dst *string) {
		if ctx.IsSet(flag) {
			*dst = ctx.String(flag)
		}
	}
	setString("exe", &def.Executable)
	setString("display-name", &def.DisplayName)
	setString("type", &def.Type)
	setString("start", &def.Start)
	setString("error-control", &def.ErrorControl)
	setString("sid-type", &def.SidType)
	if ctx.IsSet("arg") {
		def.Arguments = ctx.StringSlice("arg")
	}
	if ctx.IsSet("depend") {
		def.Dependencies = ctx.StringSlice("depend")
	}
	if ctx.IsSet("group-depend") {
		def.GroupDependencies = ctx.StringSlice("group-depend")
	}
	if ctx.IsSet("account") {
		def.Account = &definition.Account{Name: ctx.String("account")}
	}
	if ctx.IsSet("password-from-keyring") {
		if def.Account == nil {
			return nil, fmt.Errorf("--password-from-keyring needs an account")
		}
		def.Account.PasswordRef = ctx.String("password-from-keyring")
	}
	if ctx.IsSet("description") {
		desc := ctx.String("description")
		def.Description = &desc
	}
	if ctx.IsSet("delayed") {
		delayed := ctx.Bool("delayed")
		def.DelayedAutoStart = &delayed
	}
	if ctx.IsSet("preshutdown-timeout") {
		d := definition.Duration(ctx.Duration("preshutdown-timeout"))
		def.PreshutdownTimeout = &d
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// resolveAccount checks the account exists and fills in its password.
func resolveAccount(def *definition.Definition, info *scm.ServiceInfo) error {
	if info.Account == nil {
		return nil
	}
	sid, err := lookupAccount(info.Account.Name)
	if err != nil {
		return fmt.Errorf("unknown account %q: %w", info.Account.Name, err)
	}
	current.log.Info("account %s has SID %s", info.Account.Name, sid)
	if def.Account.PasswordRef == "" {
		return nil
	}
	ref, err := credential.ParseRef(def.Account.PasswordRef)
	if err != nil {
		return err
	}
	pw, err := credentialPassword(ref)
	if err != nil {
		return err
	}
	info.Account.Password = pw
	return nil
}

// applySettings applies the optional settings of def to s and returns
// every failure.
func applySettings(s service, def *definition.Definition) error {
	var result *multierror.Error
	if def.Description != nil {
		if err := s.SetDescription(*def.Description); err != nil {
			result = multierror.Append(result, fmt.Errorf("description: %w", err))
		}
	}
	if def.DelayedAutoStart != nil {
		if err := s.SetDelayedAutoStart(*def.DelayedAutoStart); err != nil {
			result = multierror.Append(result, fmt.Errorf("delayed auto start: %w", err))
		}
	}
	if def.PreshutdownTimeout != nil {
		if err := s.SetPreshutdownTimeout(time.Duration(*def.PreshutdownTimeout)); err != nil {
			result = multierror.Append(result, fmt.Errorf("preshutdown timeout: %w", err))
		}
	}
	if sid, _ := def.Sid(); sid.IsSet() {
		t, _ := sid.Get()
		if err := s.SetSidType(t); err != nil {
			result = multierror.Append(result, fmt.Errorf("sid type: %w", err))
		}
	}
	if fa, _ := def.Failure(); fa.IsSet() {
		v, _ := fa.Get()
		if err := s.UpdateFailureActions(v); err != nil {
			result = multierror.Append(result, fmt.Errorf("failure actions: %w", err))
		}
		if flag := def.FailureActions.OnNonCrashFailures; flag != nil {
			if err := s.SetFailureActionsOnNonCrashFailures(*flag); err != nil {
				result = multierror.Append(result, fmt.Errorf("failure actions flag: %w", err))
			}
		}
	}
	return result.ErrorOrNil()
}

func install(ctx *cli.Context) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	def, err := loadDefinition(ctx)
	if err != nil {
		return err
	}
	info, err := def.ServiceInfo()
	if err != nil {
		return err
	}
	if err := resolveAccount(def, &info); err != nil {
		return err
	}

	m, err := connect(scm.ManagerConnect | scm.ManagerCreateService)
	if err != nil {
		return err
	}
	defer m.Close()

	s, err := m.Create(info)
	if err != nil {
		err = describeErr(info.Name, "create", err)
		current.record(info.Name, "install", def.Executable, err)
		return err
	}
	defer s.Close()

	err = applySettings(s, def)
	if err == nil && ctx.Bool("event-source") {
		err = installEventSource(info.Name)
	}
	if err != nil {
		// Rollback: delete the service if it could not be configured
		if derr := s.Delete(); derr != nil {
			err = multierror.Append(err, fmt.Errorf("rollback: %w", derr))
		}
		current.record(info.Name, "install", def.Executable, err)
		return fmt.Errorf("failed to configure service '%s': %w", info.Name, err)
	}

	current.record(info.Name, "install", strings.TrimSpace(def.Executable+" "+strings.Join(def.Arguments, " ")), nil)
	fmt.Printf("Service '%s' installed successfully\n", info.Name)
	return nil
}

func uninstall(ctx *cli.Context) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}

	access := scm.ServiceStop | scm.ServiceQueryStatus | scm.ServiceDelete
	err = withService(name, access, func(s service) error {
		var result *multierror.Error
		st, err := s.QueryStatus()
		if err != nil {
			return describeErr(name, "query", err)
		}
		if st.State != scm.Stopped {
			if _, err := s.Stop(); err != nil && !isNotActive(err) {
				result = multierror.Append(result, describeErr(name, "stop", err))
			} else if _, err := waitForState(name, s, scm.Stopped, ctx.Duration("timeout")); err != nil {
				current.log.Warning("%v", err)
			}
		}
		if err := s.Delete(); err != nil {
			return multierror.Append(result, describeErr(name, "delete", err)).ErrorOrNil()
		}
		if ctx.Bool("event-source") {
			if err := removeEventSource(name); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	})
	current.record(name, "uninstall", "", err)
	if err != nil {
		return err
	}
	fmt.Printf("Service '%s' uninstalled successfully\n", name)
	return nil
}

func isNotActive(err error) bool {
	return errors.Is(err, errnoNotActive)
}
