package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/probe"
)

const probeDialTimeout = 5 * time.Second

var probeFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "pipe",
		Usage:  "name of the probe's status pipe",
		EnvVar: PipeNameEnv,
		Value:  DEF_PROBE_PIPE,
	},
	cli.BoolFlag{
		Name:  "events, e",
		Usage: "list the recorded control events",
	},
	cli.Uint64Flag{
		Name:  "since",
		Usage: "only list events after this sequence number",
	},
	cli.IntFlag{
		Name:  "limit, l",
		Usage: "maximum number of events to list",
		Value: 20,
	},
}

// dialProbe is replaced in tests.
var dialProbe = probe.Dial

func probeStatus(ctx *cli.Context) error {
	pipe := ctx.String("pipe")
	dctx, cancel := context.WithTimeout(context.Background(), probeDialTimeout)
	defer cancel()

	conn, err := dialProbe(dctx, pipe)
	if err != nil {
		return fmt.Errorf("failed to connect to probe at %s: %w", probe.Endpoint(pipe), err)
	}
	client := probe.NewClient(conn)
	defer client.Close()

	if ctx.Bool("events") {
		events, err := client.Events(dctx, ctx.Uint64("since"), ctx.Int("limit"))
		if err != nil {
			return fmt.Errorf("probe.events: %w", err)
		}
		printEvents(events)
		return nil
	}

	st, err := client.Status(dctx)
	if err != nil {
		return fmt.Errorf("probe.status: %w", err)
	}
	txt := fmt.Sprintf("State:      %s", st.State)
	txt += fmt.Sprintf("\nStarted:    %s", st.Started.Format(time.RFC3339))
	txt += fmt.Sprintf("\nTarget:     %s every %s", st.Addr, st.Interval)
	txt += fmt.Sprintf("\nPings:      %d (%d failed)", st.Pings, st.Failures)
	if !st.LastPing.IsZero() {
		txt += fmt.Sprintf("\nLast ping:  %s", st.LastPing.Format(time.RFC3339))
	}
	if st.LastError != "" {
		txt += fmt.Sprintf("\nLast error: %s", st.LastError)
	}
	txt += fmt.Sprintf("\nLast event: %d", st.LastEvent)
	fmt.Println(txt)
	return nil
}

func printEvents(events []probe.Event) {
	if len(events) == 0 {
		fmt.Println("probe: no control events recorded")
		return
	}
	for _, e := range events {
		fmt.Printf("%6d  %s  %-16s %-40s %d\n", e.Seq, e.Time.Format(time.RFC3339), e.Command, e.Control, e.Result)
	}
}
