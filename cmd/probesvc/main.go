// Command probesvc is the example service managed by svcctl. Installed as a
// Windows service it reports through the SCM; started from a console it runs
// until interrupted.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/probe"
	"github.com/warpdl/svcctl/pkg/logger"
)

var version = "dev"

const defaultName = "svcctl-probe"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "probesvc: %s\n", err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	def := probe.DefaultConfig()
	app := cli.NewApp()
	app.Name = "probesvc"
	app.Usage = "example service that pings a UDP address and records control requests"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "service name used for registration and event log source",
			Value: defaultName,
		},
		cli.StringFlag{
			Name:  "addr",
			Usage: "UDP address to ping",
			Value: def.Addr,
		},
		cli.DurationFlag{
			Name:  "interval",
			Usage: "time between pings",
			Value: def.Interval,
		},
		cli.StringFlag{
			Name:  "payload",
			Usage: "datagram payload",
			Value: def.Payload,
		},
		cli.IntFlag{
			Name:  "history",
			Usage: "number of control events kept for the status endpoint",
			Value: def.History,
		},
		cli.StringFlag{
			Name:   "pipe",
			Usage:  "status endpoint name",
			EnvVar: "SVCCTL_PIPE_NAME",
			Value:  defaultName,
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "minimum level logged: info, warning or error",
			EnvVar: "SVCCTL_LOG_LEVEL",
			Value:  "info",
		},
	}
	app.Action = run
	return app
}

type options struct {
	name  string
	pipe  string
	level logger.Level
	cfg   probe.Config
}

func parseOptions(ctx *cli.Context) (options, error) {
	level, err := logger.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return options{}, err
	}
	cfg := probe.DefaultConfig()
	cfg.Addr = ctx.String("addr")
	cfg.Interval = ctx.Duration("interval")
	cfg.Payload = ctx.String("payload")
	cfg.History = ctx.Int("history")
	if cfg.Interval < 10*time.Millisecond {
		return options{}, fmt.Errorf("interval %s is too short", cfg.Interval)
	}
	return options{
		name:  ctx.String("name"),
		pipe:  ctx.String("pipe"),
		level: level,
		cfg:   cfg,
	}, nil
}
