package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/svcctl/cmd/common"
	"github.com/warpdl/svcctl/pkg/scm"
)

var (
	// ErrServiceHung is returned when a pending service stops advancing its
	// checkpoint for longer than its wait hint.
	ErrServiceHung = errors.New("service stopped reporting progress")

	// ErrUnexpectedState is returned when a service settles in a state other
	// than the one waited for.
	ErrUnexpectedState = errors.New("service settled in an unexpected state")
)

// minStallWindow is the shortest time a pending service may go without
// advancing its checkpoint. Services often report a zero wait hint.
const minStallWindow = 10 * time.Second

// Dependency injection variables for testing.
var (
	waitNow  = time.Now
	waitPoll = DEF_POLL_INTERVAL
)

// waitProgress receives the wait spinner.
var waitProgress io.Writer = os.Stderr

type statusQuerier interface {
	QueryStatus() (scm.ServiceStatus, error)
}

// WaitForState polls q every poll until the service reports want. It fails
// with ErrUnexpectedState when the service settles anywhere else, with
// ErrServiceHung when the checkpoint of a pending state does not move
// within the wait hint, and with ctx.Err() when ctx is done. progress, if
// not nil, sees every status read.
func WaitForState(ctx context.Context, q statusQuerier, want scm.State, poll time.Duration, progress func(scm.ServiceStatus)) (scm.ServiceStatus, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var (
		lastState      scm.State
		lastCheckpoint uint32
		deadline       time.Time
	)
	for {
		st, err := q.QueryStatus()
		if err != nil {
			return st, err
		}
		if progress != nil {
			progress(st)
		}
		if st.State == want {
			return st, nil
		}
		if !st.State.IsPending() {
			return st, fmt.Errorf("%w: %s (exit code %s), want %s", ErrUnexpectedState, st.State, st.ExitCode, want)
		}

		now := waitNow()
		switch {
		case deadline.IsZero() || st.State != lastState || st.Checkpoint != lastCheckpoint:
			lastState, lastCheckpoint = st.State, st.Checkpoint
			window := st.WaitHint
			if window < minStallWindow {
				window = minStallWindow
			}
			deadline = now.Add(window)
		case now.After(deadline):
			return st, fmt.Errorf("%w: %s at checkpoint %d", ErrServiceHung, st.State, st.Checkpoint)
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitForState waits up to timeout for the service name to reach want,
// showing a spinner with the current state. Ctrl-C stops the wait, not the
// service.
func waitForState(name string, q statusQuerier, want scm.State, timeout time.Duration) (scm.ServiceStatus, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	p := mpb.New(mpb.WithOutput(waitProgress))
	bar := common.InitStateBar(p, name, "querying")
	st, err := WaitForState(ctx, q, want, waitPoll, func(st scm.ServiceStatus) {
		bar.Set(st.State.String())
	})
	bar.Done(err == nil)
	p.Wait()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return st, fmt.Errorf("timed out after %s waiting for service '%s' to reach %s (last state %s)", timeout, name, want, st.State)
	case errors.Is(err, context.Canceled):
		return st, fmt.Errorf("stopped waiting for service '%s' (last state %s)", name, st.State)
	case err != nil:
		return st, fmt.Errorf("service '%s': %w", name, err)
	}
	return st, nil
}
