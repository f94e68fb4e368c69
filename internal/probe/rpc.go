package probe

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/warpdl/svcctl/pkg/logger"
)

const codeInvalidParams = jrpc2.Code(-32602)

// maxEventsPerCall caps the size of a probe.events response.
const maxEventsPerCall = 1000

// StatusResult is the response for probe.status.
type StatusResult struct {
	Stats
	Addr      string `json:"addr"`
	Interval  string `json:"interval"`
	LastEvent uint64 `json:"lastEvent"`
}

// EventsParams is the input for probe.events.
type EventsParams struct {
	Since uint64 `json:"since,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// EventsResult is the response for probe.events.
type EventsResult struct {
	Events []Event `json:"events"`
}

// Methods returns the JSON-RPC method table served for s.
func Methods(s *Service) handler.Map {
	return handler.Map{
		"probe.status": handler.New(s.rpcStatus),
		"probe.events": handler.New(s.rpcEvents),
	}
}

func (s *Service) rpcStatus(_ context.Context) (*StatusResult, error) {
	return &StatusResult{
		Stats:     s.Stats(),
		Addr:      s.cfg.Addr,
		Interval:  s.cfg.Interval.String(),
		LastEvent: s.events.Last(),
	}, nil
}

func (s *Service) rpcEvents(_ context.Context, p *EventsParams) (*EventsResult, error) {
	if p == nil {
		p = &EventsParams{}
	}
	if p.Limit < 0 || p.Limit > maxEventsPerCall {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "limit must be between 0 and 1000"}
	}
	return &EventsResult{Events: s.events.Since(p.Since, p.Limit)}, nil
}

// Server accepts connections on a listener and serves each with its own
// jrpc2 server over a line-delimited channel.
type Server struct {
	methods handler.Map
	log     logger.Logger

	mu    sync.Mutex
	conns map[*jrpc2.Server]struct{}
	wg    sync.WaitGroup
}

// NewServer returns a Server for methods.
func NewServer(methods handler.Map, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Server{
		methods: methods,
		log:     l,
		conns:   make(map[*jrpc2.Server]struct{}),
	}
}

// Serve accepts connections until ctx is cancelled or l fails. It closes l
// and waits for open connections to finish before returning.
func (srv *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	defer srv.wg.Wait()
	defer srv.stopAll()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		srv.serveConn(conn)
	}
}

func (srv *Server) serveConn(conn net.Conn) {
	s := jrpc2.NewServer(srv.methods, nil).Start(channel.Line(conn, conn))
	srv.mu.Lock()
	srv.conns[s] = struct{}{}
	srv.mu.Unlock()

	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		if err := s.Wait(); err != nil {
			srv.log.Info("probe rpc connection closed: %v", err)
		}
		srv.mu.Lock()
		delete(srv.conns, s)
		srv.mu.Unlock()
	}()
}

func (srv *Server) stopAll() {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for s := range srv.conns {
		s.Stop()
	}
}

// Client queries a running probe.
type Client struct {
	c *jrpc2.Client
}

// NewClient wraps an established connection to a probe endpoint.
func NewClient(conn net.Conn) *Client {
	return &Client{c: jrpc2.NewClient(channel.Line(conn, conn), nil)}
}

// Status calls probe.status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var res StatusResult
	if err := c.c.CallResult(ctx, "probe.status", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Events calls probe.events.
func (c *Client) Events(ctx context.Context, since uint64, limit int) ([]Event, error) {
	var res EventsResult
	if err := c.c.CallResult(ctx, "probe.events", &EventsParams{Since: since, Limit: limit}, &res); err != nil {
		return nil, err
	}
	return res.Events, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.c.Close()
}
