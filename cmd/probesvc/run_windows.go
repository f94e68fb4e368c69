//go:build windows

package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/probe"
	"github.com/warpdl/svcctl/pkg/logger"
	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/svc"
)

func run(ctx *cli.Context) error {
	opts, err := parseOptions(ctx)
	if err != nil {
		return err
	}
	isService, err := svc.IsWindowsService()
	if err != nil {
		return err
	}
	if !isService {
		return runConsole(opts)
	}
	return runService(opts)
}

func runService(opts options) error {
	var sinks []logger.Logger
	el, elErr := logger.NewEventLogger(opts.name)
	if elErr == nil {
		sinks = append(sinks, el)
	}
	sinks = append(sinks, logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags)))
	l := logger.NewLevelFilter(logger.NewMultiLogger(sinks...), opts.level)
	defer l.Close()
	if elErr != nil {
		l.Warning("event log unavailable, logging to stderr only: %v", elErr)
	}

	var runErr error
	err := svc.StartDispatcher(opts.name, func(args []string) {
		if len(args) > 1 {
			l.Info("start parameters: %v", args[1:])
		}
		s := probe.New(opts.cfg, l)
		h, err := svc.Register(opts.name, s.Handle)
		if err != nil {
			l.Error("failed to register control handler: %v", err)
			runErr = err
			return
		}
		rep := svc.NewReporter(h, scm.Win32OwnProcess, probe.Accepts)
		serve(context.Background(), opts, l, rep, s)
	})
	if err != nil {
		return err
	}
	return runErr
}
