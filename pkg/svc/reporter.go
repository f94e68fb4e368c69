package svc

import (
	"sync"
	"time"

	"github.com/warpdl/svcctl/pkg/scm"
)

// StatusReporter sends one status report to the SCM.
type StatusReporter interface {
	Report(scm.ServiceStatus) error
}

// Reporter tracks the checkpoint of a service so callers only name the
// state they are moving to. While a pending state is repeated the
// checkpoint advances; settled states reset it to zero.
type Reporter struct {
	mu      sync.Mutex
	dst     StatusReporter
	typ     scm.ServiceType
	accepts scm.ControlAccept
	current scm.ServiceStatus
}

// NewReporter returns a Reporter that advertises accepts while running or
// paused.
func NewReporter(dst StatusReporter, typ scm.ServiceType, accepts scm.ControlAccept) *Reporter {
	return &Reporter{
		dst:     dst,
		typ:     typ,
		accepts: accepts,
		current: scm.ServiceStatus{ServiceType: typ, State: scm.Stopped},
	}
}

// Pending reports a pending state with the time until the next report.
func (r *Reporter) Pending(state scm.State, waitHint time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := scm.ServiceStatus{
		ServiceType: r.typ,
		State:       state,
		Checkpoint:  1,
		WaitHint:    waitHint,
	}
	if r.current.State == state {
		next.Checkpoint = r.current.Checkpoint + 1
	}
	if state == scm.ContinuePending || state == scm.PausePending {
		next.ControlsAccepted = r.accepts
	}
	return r.send(next)
}

// Running reports the running state.
func (r *Reporter) Running() error {
	return r.settle(scm.Running, r.accepts, scm.NoError)
}

// Paused reports the paused state.
func (r *Reporter) Paused() error {
	return r.settle(scm.Paused, r.accepts, scm.NoError)
}

// Stopped reports the stopped state with the service's exit code.
func (r *Reporter) Stopped(exit scm.ExitCode) error {
	return r.settle(scm.Stopped, 0, exit)
}

// Refresh re-sends the last status, as expected after an interrogate control.
func (r *Reporter) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.send(r.current)
}

// Current returns the last status sent.
func (r *Reporter) Current() scm.ServiceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Reporter) settle(state scm.State, accepts scm.ControlAccept, exit scm.ExitCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.send(scm.ServiceStatus{
		ServiceType:      r.typ,
		State:            state,
		ControlsAccepted: accepts,
		ExitCode:         exit,
	})
}

func (r *Reporter) send(s scm.ServiceStatus) error {
	if err := r.dst.Report(s); err != nil {
		return err
	}
	r.current = s
	return nil
}
