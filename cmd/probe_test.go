package cmd

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/warpdl/svcctl/internal/probe"
	"github.com/warpdl/svcctl/pkg/scm"
)

// serveProbe runs the probe RPC server for s on a loopback listener and
// points dialProbe at it.
func serveProbe(t *testing.T, s *probe.Service) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = probe.NewServer(probe.Methods(s), nil).Serve(ctx, l)
	}()

	old := dialProbe
	dialProbe = func(ctx context.Context, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", l.Addr().String())
	}
	t.Cleanup(func() {
		dialProbe = old
		cancel()
		<-done
	})
}

func TestProbeStatus(t *testing.T) {
	cfg := probe.DefaultConfig()
	cfg.Addr = "192.0.2.7:9"
	s := probe.New(cfg, nil)
	s.Handle(scm.Control{Cmd: scm.CmdInterrogate})
	serveProbe(t, s)

	var err error
	out, _ := captureOutput(func() { err = probeStatus(newContext(t, probeFlags)) })
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	assertContainsAll(t, out, []string{
		"State:      Stopped",
		"Target:     192.0.2.7:9 every 5s",
		"Pings:      0 (0 failed)",
		"Last event: 1",
	})
	assertNotContains(t, out, "Last error")
}

func TestProbeStatus_Events(t *testing.T) {
	s := probe.New(probe.DefaultConfig(), nil)
	for code := uint32(128); code < 131; code++ {
		ctl, err := scm.UserControl(code)
		if err != nil {
			t.Fatal(err)
		}
		s.Handle(ctl)
	}
	serveProbe(t, s)

	var err error
	out, _ := captureOutput(func() {
		err = probeStatus(newContext(t, probeFlags, "--events", "--since", "1", "--limit", "5"))
	})
	if err != nil {
		t.Fatalf("probe --events: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected events 2 and 3, got:\n%s", out)
	}
	assertContains(t, lines[0], "     2  ")
	assertContains(t, lines[1], "     3  ")
}

func TestProbeStatus_NoEvents(t *testing.T) {
	serveProbe(t, probe.New(probe.DefaultConfig(), nil))

	out, _ := captureOutput(func() {
		if err := probeStatus(newContext(t, probeFlags, "-e")); err != nil {
			t.Errorf("probe -e: %v", err)
		}
	})
	assertContains(t, out, "no control events recorded")
}

func TestProbeStatus_BadLimit(t *testing.T) {
	serveProbe(t, probe.New(probe.DefaultConfig(), nil))

	err := probeStatus(newContext(t, probeFlags, "--events", "--limit", "5000"))
	if err == nil || !strings.Contains(err.Error(), "probe.events") {
		t.Fatalf("expected an RPC error, got %v", err)
	}
}

func TestProbeStatus_DialError(t *testing.T) {
	old := dialProbe
	t.Cleanup(func() { dialProbe = old })
	var gotPipe string
	dialProbe = func(_ context.Context, pipe string) (net.Conn, error) {
		gotPipe = pipe
		return nil, errors.New("no such pipe")
	}

	err := probeStatus(newContext(t, probeFlags, "--pipe", "other-probe"))
	if err == nil || !strings.Contains(err.Error(), "failed to connect to probe") {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPipe != "other-probe" {
		t.Errorf("dialed %q", gotPipe)
	}
}

func TestProbeStatus_PipeFromEnv(t *testing.T) {
	t.Setenv(PipeNameEnv, "env-probe")
	old := dialProbe
	t.Cleanup(func() { dialProbe = old })
	var gotPipe string
	dialProbe = func(_ context.Context, pipe string) (net.Conn, error) {
		gotPipe = pipe
		return nil, errors.New("no such pipe")
	}

	_ = probeStatus(newContext(t, probeFlags))
	if gotPipe != "env-probe" {
		t.Errorf("dialed %q, want the pipe named in %s", gotPipe, PipeNameEnv)
	}
}
