package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/pkg/scm"
)

var waitFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "wait, w",
		Usage: "wait until the service reaches the requested state",
	},
	cli.DurationFlag{
		Name:  "timeout",
		Usage: "how long --wait waits",
		Value: DEF_WAIT_TIMEOUT,
	},
}

// transition describes one control command.
type transition struct {
	op     string
	access scm.ServiceAccess
	// want is the state --wait waits for.
	want scm.State
	done string
	send func(s service, ctx *cli.Context) error
}

var (
	startTransition = transition{
		op:     "start",
		access: scm.ServiceStart,
		want:   scm.Running,
		done:   "started",
		send: func(s service, ctx *cli.Context) error {
			return s.Start(ctx.Args().Tail()...)
		},
	}
	stopTransition = transition{
		op:     "stop",
		access: scm.ServiceStop,
		want:   scm.Stopped,
		done:   "stopped",
		send: func(s service, _ *cli.Context) error {
			_, err := s.Stop()
			return err
		},
	}
	pauseTransition = transition{
		op:     "pause",
		access: scm.ServicePauseContinue,
		want:   scm.Paused,
		done:   "paused",
		send: func(s service, _ *cli.Context) error {
			_, err := s.Pause()
			return err
		},
	}
	resumeTransition = transition{
		op:     "resume",
		access: scm.ServicePauseContinue,
		want:   scm.Running,
		done:   "resumed",
		send: func(s service, _ *cli.Context) error {
			_, err := s.Resume()
			return err
		},
	}
)

func start(ctx *cli.Context) error  { return runTransition(ctx, startTransition) }
func stop(ctx *cli.Context) error   { return runTransition(ctx, stopTransition) }
func pause(ctx *cli.Context) error  { return runTransition(ctx, pauseTransition) }
func resume(ctx *cli.Context) error { return runTransition(ctx, resumeTransition) }

func runTransition(ctx *cli.Context, t transition) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}

	wait := ctx.Bool("wait")
	access := t.access
	if wait {
		access |= scm.ServiceQueryStatus
	}
	err = withService(name, access, func(s service) error {
		if err := t.send(s, ctx); err != nil {
			return describeErr(name, t.op, err)
		}
		if !wait {
			fmt.Printf("Service '%s': %s requested\n", name, t.op)
			return nil
		}
		if _, err := waitForState(name, s, t.want, ctx.Duration("timeout")); err != nil {
			return err
		}
		fmt.Printf("Service '%s' %s\n", name, t.done)
		return nil
	})
	current.record(name, t.op, strings.Join(ctx.Args().Tail(), " "), err)
	return err
}

func notify(ctx *cli.Context) error {
	if err := requireAdmin(); err != nil {
		return err
	}
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}
	arg := ctx.Args().Get(1)
	if arg == "" {
		return fmt.Errorf("missing control code")
	}
	code, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid control code %q", arg)
	}
	if _, err := scm.UserControl(uint32(code)); err != nil {
		return fmt.Errorf("control code must be between %d and %d: %w", scm.MinUserControl, scm.MaxUserControl, err)
	}

	var st scm.ServiceStatus
	err = withService(name, scm.ServiceUserDefinedControl, func(s service) error {
		st, err = s.Notify(uint32(code))
		if err != nil {
			return describeErr(name, "notify", err)
		}
		return nil
	})
	current.record(name, "notify", arg, err)
	if err != nil {
		return err
	}
	fmt.Printf("Service '%s' accepted control %d (state %s)\n", name, code, st.State)
	return nil
}

func status(ctx *cli.Context) error {
	name, err := serviceName(ctx)
	if err != nil {
		return err
	}
	return withService(name, scm.ServiceQueryStatus, func(s service) error {
		st, err := s.QueryStatus()
		if err != nil {
			return describeErr(name, "query", err)
		}
		printStatus(name, st)
		return nil
	})
}

func printStatus(name string, st scm.ServiceStatus) {
	txt := fmt.Sprintf("Service:    %s", name)
	txt += fmt.Sprintf("\nState:      %s", st.State)
	txt += fmt.Sprintf("\nType:       %s", st.ServiceType)
	if pid, ok := st.ProcessID.Get(); ok && pid != 0 {
		txt += fmt.Sprintf("\nPID:        %d", pid)
	}
	txt += fmt.Sprintf("\nAccepts:    %s", acceptNames(st.ControlsAccepted))
	if st.State == scm.Stopped {
		txt += fmt.Sprintf("\nExit code:  %s", st.ExitCode)
	}
	if st.State.IsPending() {
		txt += fmt.Sprintf("\nCheckpoint: %d", st.Checkpoint)
		txt += fmt.Sprintf("\nWait hint:  %s", st.WaitHint)
	}
	fmt.Println(txt)
}

var acceptNameList = []struct {
	bit  scm.ControlAccept
	name string
}{
	{scm.AcceptStop, "stop"},
	{scm.AcceptPauseContinue, "pause-continue"},
	{scm.AcceptShutdown, "shutdown"},
	{scm.AcceptPreshutdown, "preshutdown"},
	{scm.AcceptParamChange, "param-change"},
	{scm.AcceptNetBindChange, "netbind-change"},
	{scm.AcceptHardwareProfileChange, "hardware-profile-change"},
	{scm.AcceptPowerEvent, "power-event"},
	{scm.AcceptSessionChange, "session-change"},
	{scm.AcceptTimeChange, "time-change"},
	{scm.AcceptTriggerEvent, "trigger-event"},
}

func acceptNames(a scm.ControlAccept) string {
	var names []string
	for _, n := range acceptNameList {
		if a&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
