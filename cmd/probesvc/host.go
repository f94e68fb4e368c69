package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/probe"
	"github.com/warpdl/svcctl/pkg/logger"
	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/svc"
)

// consoleReporter stands in for the SCM when the probe runs in a terminal.
type consoleReporter struct {
	log logger.Logger
}

func (c consoleReporter) Report(s scm.ServiceStatus) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.log.Info("status %s (checkpoint %d, wait hint %s, exit %s)", s.State, s.Checkpoint, s.WaitHint, s.ExitCode)
	return nil
}

// serve runs the probe and its status endpoint until the probe stops.
func serve(ctx context.Context, opts options, l logger.Logger, rep *svc.Reporter, s *probe.Service) scm.ExitCode {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ln, err := probe.Listen(opts.pipe)
	if err != nil {
		l.Warning("status endpoint unavailable: %v", err)
	} else {
		srv := probe.NewServer(probe.Methods(s), l)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Serve(ctx, ln); err != nil {
				l.Error("status endpoint failed: %v", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
		l.Info("status endpoint listening on %s", probe.Endpoint(opts.pipe))
	}
	return s.Run(ctx, rep)
}

func runConsole(opts options) error {
	l := logger.NewLevelFilter(logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags)), opts.level)
	defer l.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := probe.New(opts.cfg, l)
	rep := svc.NewReporter(consoleReporter{log: l}, scm.Win32OwnProcess, probe.Accepts)
	exit := serve(ctx, opts, l, rep, s)
	if exit != scm.NoError {
		return cli.NewExitError("probe stopped with exit code "+exit.String(), 1)
	}
	return nil
}
