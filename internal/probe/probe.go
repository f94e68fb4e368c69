// Package probe implements a small example service used to exercise the
// service library end to end. While running it sends a UDP datagram to a
// configured address on every tick, records every control request it
// receives, and exposes both over a JSON-RPC endpoint.
package probe

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/warpdl/svcctl/pkg/logger"
	"github.com/warpdl/svcctl/pkg/scm"
	"github.com/warpdl/svcctl/pkg/svc"
)

// Accepts is the set of controls the probe advertises while running.
const Accepts = scm.AcceptStop | scm.AcceptPauseContinue | scm.AcceptShutdown |
	scm.AcceptSessionChange | scm.AcceptPowerEvent | scm.AcceptTimeChange |
	scm.AcceptParamChange

// Service-specific exit codes reported when the probe stops on an error.
const (
	ExitDialFailed   uint32 = 1
	ExitReportFailed uint32 = 2
)

// errorServiceCannotAcceptCtrl is returned from the handler when a pause or
// continue request arrives faster than the worker drains them.
const errorServiceCannotAcceptCtrl = 1061

// Config controls the probe's behaviour.
type Config struct {
	// Addr is the UDP address pinged on each tick.
	Addr string

	Interval time.Duration
	Payload  string

	// StartWait and StopWait are the wait hints reported while starting
	// and stopping.
	StartWait time.Duration
	StopWait  time.Duration

	// History is the number of control events retained.
	History int
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Addr:      "127.0.0.1:9",
		Interval:  5 * time.Second,
		Payload:   "svcctl-probe",
		StartWait: 3 * time.Second,
		StopWait:  5 * time.Second,
		History:   128,
	}
}

// Stats is a snapshot of the worker's counters.
type Stats struct {
	State     string    `json:"state"`
	Started   time.Time `json:"started"`
	Pings     uint64    `json:"pings"`
	Failures  uint64    `json:"failures"`
	LastPing  time.Time `json:"lastPing,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Service is the probe. The zero value is not usable; call New.
type Service struct {
	cfg    Config
	log    logger.Logger
	events *Recorder

	requests chan scm.Command
	stop     chan struct{}
	stopOnce sync.Once

	dial func(network, addr string) (net.Conn, error)
	now  func() time.Time

	mu    sync.Mutex
	stats Stats
}

// New returns a probe with cfg. A nil logger discards output.
func New(cfg Config, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNopLogger()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StartWait <= 0 {
		cfg.StartWait = def.StartWait
	}
	if cfg.StopWait <= 0 {
		cfg.StopWait = def.StopWait
	}
	return &Service{
		cfg:      cfg,
		log:      l,
		events:   NewRecorder(cfg.History),
		requests: make(chan scm.Command, 8),
		stop:     make(chan struct{}),
		dial:     net.Dial,
		now:      time.Now,
		stats:    Stats{State: scm.Stopped.String()},
	}
}

// Events returns the control event recorder.
func (s *Service) Events() *Recorder { return s.events }

// Stats returns a snapshot of the worker counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Handle is the probe's control handler. It never blocks: terminal
// commands close the stop channel, pause and continue are queued for the
// worker, notifications are only recorded.
func (s *Service) Handle(ctl scm.Control) svc.HandlerResult {
	result := s.handle(ctl)
	s.events.Add(ctl.Cmd.String(), ctl.String(), uint32(result))
	return result
}

func (s *Service) handle(ctl scm.Control) svc.HandlerResult {
	switch ctl.Cmd {
	case scm.CmdStop, scm.CmdShutdown, scm.CmdPreshutdown:
		s.stopOnce.Do(func() { close(s.stop) })
		return svc.NoError
	case scm.CmdPause, scm.CmdContinue:
		select {
		case s.requests <- ctl.Cmd:
			return svc.NoError
		default:
			return svc.Other(errorServiceCannotAcceptCtrl)
		}
	case scm.CmdInterrogate:
		return svc.NoError
	case scm.CmdSessionChange:
		s.log.Info("session %d: %s", ctl.Session.SessionID, ctl.Session.Reason)
		return svc.NoError
	case scm.CmdPowerEvent:
		s.log.Info("power event: %s", ctl)
		return svc.NoError
	case scm.CmdUserEvent:
		s.log.Info("user control %d", ctl.UserCode)
		return svc.NoError
	case scm.CmdTimeChange, scm.CmdParamChange:
		return svc.NoError
	}
	return svc.NotImplemented
}

// Run drives the service lifecycle through rep until a terminal control
// arrives or ctx is cancelled, and returns the exit code it reported.
func (s *Service) Run(ctx context.Context, rep *svc.Reporter) scm.ExitCode {
	s.setState(scm.StartPending)
	if err := rep.Pending(scm.StartPending, s.cfg.StartWait); err != nil {
		s.log.Error("failed to report start pending: %v", err)
		return s.finish(rep, scm.ServiceSpecific(ExitReportFailed))
	}

	conn, err := s.dial("udp", s.cfg.Addr)
	if err != nil {
		s.log.Error("failed to open probe socket to %s: %v", s.cfg.Addr, err)
		s.recordFailure(err)
		return s.finish(rep, scm.ServiceSpecific(ExitDialFailed))
	}
	defer conn.Close()

	if err := s.settle(rep, scm.Running); err != nil {
		return s.finish(rep, scm.ServiceSpecific(ExitReportFailed))
	}
	s.mu.Lock()
	s.stats.Started = s.now()
	s.mu.Unlock()
	s.log.Info("probe started, pinging %s every %s", s.cfg.Addr, s.cfg.Interval)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-ctx.Done():
			s.log.Info("probe context cancelled")
			return s.shutdown(rep)
		case <-s.stop:
			return s.shutdown(rep)
		case cmd := <-s.requests:
			switch {
			case cmd == scm.CmdPause && !paused:
				if err := s.transition(rep, scm.PausePending, scm.Paused); err != nil {
					return s.finish(rep, scm.ServiceSpecific(ExitReportFailed))
				}
				paused = true
			case cmd == scm.CmdContinue && paused:
				if err := s.transition(rep, scm.ContinuePending, scm.Running); err != nil {
					return s.finish(rep, scm.ServiceSpecific(ExitReportFailed))
				}
				paused = false
			}
		case <-ticker.C:
			if !paused {
				s.ping(conn)
			}
		}
	}
}

func (s *Service) ping(conn net.Conn) {
	_ = conn.SetWriteDeadline(s.now().Add(s.cfg.Interval))
	_, err := conn.Write([]byte(s.cfg.Payload))
	if err != nil {
		s.log.Warning("ping %s failed: %v", s.cfg.Addr, err)
		s.recordFailure(err)
		return
	}
	s.mu.Lock()
	s.stats.Pings++
	s.stats.LastPing = s.now()
	s.mu.Unlock()
}

func (s *Service) transition(rep *svc.Reporter, pending, settled scm.State) error {
	s.setState(pending)
	if err := rep.Pending(pending, time.Second); err != nil {
		s.log.Error("failed to report %s: %v", pending, err)
		return err
	}
	return s.settle(rep, settled)
}

func (s *Service) settle(rep *svc.Reporter, state scm.State) error {
	var err error
	switch state {
	case scm.Running:
		err = rep.Running()
	case scm.Paused:
		err = rep.Paused()
	default:
		return fmt.Errorf("cannot settle in %s", state)
	}
	if err != nil {
		s.log.Error("failed to report %s: %v", state, err)
		return err
	}
	s.setState(state)
	return nil
}

func (s *Service) shutdown(rep *svc.Reporter) scm.ExitCode {
	s.log.Info("probe stopping")
	s.setState(scm.StopPending)
	if err := rep.Pending(scm.StopPending, s.cfg.StopWait); err != nil {
		s.log.Error("failed to report stop pending: %v", err)
	}
	return s.finish(rep, scm.NoError)
}

func (s *Service) finish(rep *svc.Reporter, exit scm.ExitCode) scm.ExitCode {
	if err := rep.Stopped(exit); err != nil {
		s.log.Error("failed to report stopped: %v", err)
	}
	s.setState(scm.Stopped)
	s.log.Info("probe stopped with exit code %s", exit)
	return exit
}

func (s *Service) setState(state scm.State) {
	s.mu.Lock()
	s.stats.State = state.String()
	s.mu.Unlock()
}

func (s *Service) recordFailure(err error) {
	s.mu.Lock()
	s.stats.Failures++
	s.stats.LastError = err.Error()
	s.mu.Unlock()
}
