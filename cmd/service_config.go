package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/definition"
	"github.com/warpdl/svcctl/pkg/scm"
)

var configFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "export, o",
		Usage: "write the configuration to a definition file instead of printing it",
	},
	cli.StringFlag{
		Name:  "apply",
		Usage: "reconfigure the service from a definition file",
	},
}

var failureActionsFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "reset",
		Usage: `time without failures before the count resets, or "never"`,
	},
	cli.StringFlag{
		Name:  "reboot-message",
		Usage: "message broadcast before a reboot action",
	},
	cli.StringFlag{
		Name:  "command",
		Usage: "command line run by a run action",
	},
	cli.StringSliceFlag{
		Name:  "action",
		Usage: "action as type[/delay], e.g. restart/5s (repeatable, replaces the list)",
	},
	cli.BoolFlag{
		Name:  "clear",
		Usage: "remove all actions",
	},
	cli.StringFlag{
		Name:  "non-crash",
		Usage: "also apply the actions when the service stops with an error (true or false)",
	},
}

func showConfig(ctx *cli.Context) error {
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}
	if path := ctx.String("apply"); path != "" {
		return applyConfig(name, path)
	}
	return withService(name, scm.ServiceQueryConfig, func(s service) error {
		cfg, err := s.QueryConfig()
		if err != nil {
			return describeErr(name, "query", err)
		}
		def := definitionFromConfig(name, cfg)
		readSettings(s, def)

		if path := ctx.String("export"); path != "" {
			if err := definition.Save(fsys, path, def); err != nil {
				return err
			}
			fmt.Printf("Configuration of '%s' written to %s\n", name, path)
			return nil
		}
		printConfig(cfg, def)
		return nil
	})
}

// applyConfig reconfigures name from the definition file at path. The
// service keeps its name whatever the file says.
func applyConfig(name, path string) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	def, err := definition.Read(fsys, path)
	if err != nil {
		return err
	}
	def.Name = name
	if err := def.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	info, err := def.ServiceInfo()
	if err != nil {
		return err
	}
	if err := resolveAccount(def, &info); err != nil {
		return err
	}

	access := scm.ServiceChangeConfig | scm.ServiceQueryConfig | scm.ServiceStart
	err = withService(name, access, func(s service) error {
		if err := s.ChangeConfig(info); err != nil {
			return describeErr(name, "reconfigure", err)
		}
		return applySettings(s, def)
	})
	current.record(name, "config", path, err)
	if err != nil {
		return err
	}
	fmt.Printf("Service '%s' reconfigured from %s\n", name, path)
	return nil
}

// definitionFromConfig converts the SCM view of a service into a definition.
func definitionFromConfig(name string, cfg scm.ServiceConfig) *definition.Definition {
	def := &definition.Definition{
		Name:         name,
		DisplayName:  cfg.DisplayName,
		Type:         serviceTypeName(cfg.ServiceType),
		Start:        strings.ToLower(cfg.StartType.String()),
		ErrorControl: strings.ToLower(cfg.ErrorControl.String()),
	}
	if cfg.ServiceType.IsDriver() {
		def.Executable = cfg.ExecutablePath
	} else if argv := splitCommandLine(cfg.ExecutablePath); len(argv) > 0 {
		def.Executable = argv[0]
		def.Arguments = argv[1:]
	}
	for _, d := range cfg.Dependencies {
		if d.Kind == scm.DependsOnGroup {
			def.GroupDependencies = append(def.GroupDependencies, d.Name)
		} else {
			def.Dependencies = append(def.Dependencies, d.Name)
		}
	}
	if account, ok := cfg.AccountName.Get(); ok && !strings.EqualFold(account, "LocalSystem") {
		def.Account = &definition.Account{Name: account}
	}
	return def
}

// readSettings copies the optional settings of s into def. Settings that
// cannot be read, as happens for drivers, are skipped with a warning.
func readSettings(s service, def *definition.Definition) {
	warn := func(what string, err error) {
		current.log.Warning("%s: %s: %v", def.Name, what, err)
	}
	if desc, err := s.Description(); err != nil {
		warn("description", err)
	} else if desc != "" {
		def.Description = &desc
	}
	if delayed, err := s.DelayedAutoStart(); err != nil {
		warn("delayed auto start", err)
	} else if delayed {
		def.DelayedAutoStart = &delayed
	}
	if d, err := s.PreshutdownTimeout(); err != nil {
		warn("preshutdown timeout", err)
	} else {
		pt := definition.Duration(d)
		def.PreshutdownTimeout = &pt
	}
	if t, err := s.SidType(); err != nil {
		warn("sid type", err)
	} else {
		def.SidType = strings.ToLower(t.String())
	}
	fa, err := s.FailureActions()
	if err != nil {
		warn("failure actions", err)
		return
	}
	actions, _ := fa.Actions.Get()
	if len(actions) == 0 && !fa.Command.IsSet() && !fa.RebootMessage.IsSet() {
		return
	}
	def.FailureActions = definition.FromFailureActions(fa)
	if flag, err := s.FailureActionsOnNonCrashFailures(); err != nil {
		warn("failure actions flag", err)
	} else {
		def.FailureActions.OnNonCrashFailures = &flag
	}
}

func printConfig(cfg scm.ServiceConfig, def *definition.Definition) {
	txt := fmt.Sprintf("Service:       %s", def.Name)
	txt += fmt.Sprintf("\nDisplay name:  %s", cfg.DisplayName)
	txt += fmt.Sprintf("\nType:          %s", cfg.ServiceType)
	start := cfg.StartType.String()
	if def.DelayedAutoStart != nil && *def.DelayedAutoStart {
		start += " (delayed)"
	}
	txt += fmt.Sprintf("\nStart:         %s", start)
	txt += fmt.Sprintf("\nError control: %s", cfg.ErrorControl)
	txt += fmt.Sprintf("\nCommand line:  %s", cfg.ExecutablePath)
	if group, ok := cfg.LoadOrderGroup.Get(); ok && group != "" {
		txt += fmt.Sprintf("\nGroup:         %s", group)
	}
	if len(cfg.Dependencies) > 0 {
		deps := make([]string, 0, len(cfg.Dependencies))
		for _, d := range cfg.Dependencies {
			deps = append(deps, d.Identifier())
		}
		txt += fmt.Sprintf("\nDependencies:  %s", strings.Join(deps, ", "))
	}
	txt += fmt.Sprintf("\nAccount:       %s", cfg.AccountName.Or("-"))
	if def.Description != nil {
		txt += fmt.Sprintf("\nDescription:   %s", *def.Description)
	}
	if def.PreshutdownTimeout != nil {
		txt += fmt.Sprintf("\nPreshutdown:   %s", time.Duration(*def.PreshutdownTimeout))
	}
	if def.SidType != "" {
		txt += fmt.Sprintf("\nSID type:      %s", def.SidType)
	}
	if def.FailureActions != nil {
		txt += fmt.Sprintf("\nOn failure:    %s", formatActions(def.FailureActions.Actions))
	}
	fmt.Println(txt)
}

func failureActionsGet(ctx *cli.Context) error {
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}
	return withService(name, scm.ServiceQueryConfig, func(s service) error {
		fa, err := s.FailureActions()
		if err != nil {
			return describeErr(name, "query", err)
		}
		nonCrash, err := s.FailureActionsOnNonCrashFailures()
		if err != nil {
			return describeErr(name, "query", err)
		}
		out := definition.FromFailureActions(fa)
		txt := fmt.Sprintf("Reset after:    %s", out.ResetPeriod)
		txt += fmt.Sprintf("\nActions:        %s", formatActions(out.Actions))
		if out.Command != nil {
			txt += fmt.Sprintf("\nCommand:        %s", *out.Command)
		}
		if out.RebootMessage != nil {
			txt += fmt.Sprintf("\nReboot message: %s", *out.RebootMessage)
		}
		txt += fmt.Sprintf("\nNon-crash:      %t", nonCrash)
		fmt.Println(txt)
		return nil
	})
}

// failureActionsUpdate builds the update described by the flags. cur
// supplies the action list when only the reset period changes, since the
// SCM ignores a reset period sent without actions.
func failureActionsUpdate(ctx *cli.Context, cur scm.FailureActions) (scm.FailureActions, bool, error) {
	update := scm.FailureActions{ResetPeriod: cur.ResetPeriod}
	changed := false
	if ctx.IsSet("reset") {
		rp, err := parseResetPeriod(ctx.String("reset"))
		if err != nil {
			return update, false, err
		}
		update.ResetPeriod = rp
		update.Actions = scm.Some(cur.Actions.Or(nil))
		changed = true
	}
	if ctx.IsSet("reboot-message") {
		update.RebootMessage = scm.Some(ctx.String("reboot-message"))
		changed = true
	}
	if ctx.IsSet("command") {
		update.Command = scm.Some(ctx.String("command"))
		changed = true
	}
	switch {
	case ctx.Bool("clear") && ctx.IsSet("action"):
		return update, false, errors.New("--clear and --action cannot be combined")
	case ctx.Bool("clear"):
		update.Actions = scm.Some([]scm.Action{})
		changed = true
	case ctx.IsSet("action"):
		actions, err := parseActions(ctx.StringSlice("action"))
		if err != nil {
			return update, false, err
		}
		update.Actions = scm.Some(actions)
		changed = true
	}
	return update, changed, nil
}

func failureActionsSet(ctx *cli.Context) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}
	var nonCrash *bool
	if ctx.IsSet("non-crash") {
		v, err := strconv.ParseBool(ctx.String("non-crash"))
		if err != nil {
			return fmt.Errorf("invalid --non-crash value %q", ctx.String("non-crash"))
		}
		nonCrash = &v
	}

	// Restart actions need start access on the handle.
	access := scm.ServiceChangeConfig | scm.ServiceQueryConfig | scm.ServiceStart
	var detail string
	err = withService(name, access, func(s service) error {
		cur, err := s.FailureActions()
		if err != nil {
			return describeErr(name, "query", err)
		}
		update, changed, err := failureActionsUpdate(ctx, cur)
		if err != nil {
			return err
		}
		if !changed && nonCrash == nil {
			return errors.New("nothing to change")
		}
		if changed {
			detail = formatActions(definition.FromFailureActions(update).Actions)
			if err := s.UpdateFailureActions(update); err != nil {
				return describeErr(name, "update", err)
			}
		}
		if nonCrash != nil {
			detail = strings.TrimSpace(fmt.Sprintf("%s non-crash=%t", detail, *nonCrash))
			if err := s.SetFailureActionsOnNonCrashFailures(*nonCrash); err != nil {
				return describeErr(name, "update", err)
			}
		}
		return nil
	})
	current.record(name, "failure-actions", detail, err)
	if err != nil {
		return err
	}
	fmt.Printf("Failure actions of '%s' updated\n", name)
	return nil
}

func describe(ctx *cli.Context) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}
	desc := strings.Join(ctx.Args().Tail(), " ")
	err = withService(name, scm.ServiceChangeConfig, func(s service) error {
		if err := s.SetDescription(desc); err != nil {
			return describeErr(name, "describe", err)
		}
		return nil
	})
	current.record(name, "describe", desc, err)
	if err != nil {
		return err
	}
	if desc == "" {
		fmt.Printf("Description of '%s' cleared\n", name)
	} else {
		fmt.Printf("Description of '%s' updated\n", name)
	}
	return nil
}

func parseResetPeriod(s string) (scm.ResetPeriod, error) {
	switch strings.ToLower(s) {
	case "never", "infinite":
		return scm.ResetNever(), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 || d > scm.MaxResetPeriod {
		return scm.ResetPeriod{}, fmt.Errorf("invalid reset period %q", s)
	}
	return scm.ResetAfter(d), nil
}

// parseActions parses "type[/delay]" entries such as "restart/5s".
func parseActions(specs []string) ([]scm.Action, error) {
	actions := make([]scm.Action, 0, len(specs))
	for _, spec := range specs {
		typ, delay, hasDelay := strings.Cut(spec, "/")
		t, err := scm.ParseActionType(strings.ToLower(typ))
		if err != nil {
			return nil, err
		}
		a := scm.Action{Type: t}
		if hasDelay {
			d, err := time.ParseDuration(delay)
			if err != nil || d < 0 || d > scm.MaxActionDelay {
				return nil, fmt.Errorf("invalid delay in action %q", spec)
			}
			a.Delay = d
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func formatActions(actions []definition.Action) string {
	if len(actions) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		if a.Delay == 0 {
			parts = append(parts, a.Type)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s/%s", a.Type, time.Duration(a.Delay)))
	}
	return strings.Join(parts, ", ")
}

// serviceTypeName is the inverse of scm.ParseServiceType.
func serviceTypeName(t scm.ServiceType) string {
	var name string
	switch {
	case t&scm.KernelDriver != 0:
		return "kernel"
	case t&scm.FileSystemDriver != 0:
		return "filesystem"
	case t&scm.UserService != 0 && t&scm.Win32ShareProcess != 0:
		name = "user-share"
	case t&scm.UserService != 0:
		name = "user-own"
	case t&scm.Win32ShareProcess != 0:
		name = "share"
	default:
		name = "own"
	}
	if t&scm.InteractiveProcess != 0 {
		name += "+interactive"
	}
	return name
}

// splitCommandLine splits a stored launch command using the quoting rules
// of CommandLineToArgvW, undoing the escaping applied at install time.
func splitCommandLine(s string) []string {
	var (
		args    []string
		arg     strings.Builder
		inQuote bool
		inArg   bool
		slashes int
	)
	flushSlashes := func() {
		arg.WriteString(strings.Repeat(`\`, slashes))
		slashes = 0
	}
	for _, r := range s {
		switch {
		case r == '\\':
			slashes++
			inArg = true
		case r == '"':
			arg.WriteString(strings.Repeat(`\`, slashes/2))
			if slashes%2 == 1 {
				arg.WriteRune('"')
			} else {
				inQuote = !inQuote
			}
			slashes = 0
			inArg = true
		case (r == ' ' || r == '\t') && !inQuote:
			flushSlashes()
			if inArg {
				args = append(args, arg.String())
				arg.Reset()
				inArg = false
			}
		default:
			flushSlashes()
			arg.WriteRune(r)
			inArg = true
		}
	}
	flushSlashes()
	if inArg {
		args = append(args, arg.String())
	}
	return args
}
