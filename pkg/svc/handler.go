// Package svc is the service side of the SCM protocol: registering a
// control handler, reporting status and running the service dispatcher.
package svc

import (
	"fmt"
	"sync"

	"github.com/warpdl/svcctl/pkg/scm"
)

// HandlerResult is the value returned to the SCM from a control handler.
type HandlerResult uint32

const (
	// NoError acknowledges the control.
	NoError HandlerResult = 0
	// NotImplemented (ERROR_CALL_NOT_IMPLEMENTED) rejects a control the
	// service does not handle.
	NotImplemented HandlerResult = 120
)

// Other returns an arbitrary Win32 error code as a handler result.
func Other(code uint32) HandlerResult {
	return HandlerResult(code)
}

func (r HandlerResult) String() string {
	switch r {
	case NoError:
		return "NoError"
	case NotImplemented:
		return "NotImplemented"
	default:
		return fmt.Sprintf("Other(%d)", uint32(r))
	}
}

// Handler receives decoded controls. The SCM never calls it concurrently
// for the same service.
type Handler func(scm.Control) HandlerResult

// arena holds registered handlers. The OS only sees an integer token, so no
// Go pointer crosses the callback boundary. A cell is released once, right
// after its terminal control returns.
type arena struct {
	mu    sync.Mutex
	next  uintptr
	cells map[uintptr]Handler
}

func newArena() *arena {
	return &arena{cells: make(map[uintptr]Handler)}
}

// handlers is shared by every service in the process.
var handlers = newArena()

func (a *arena) add(h Handler) uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.cells[a.next] = h
	return a.next
}

func (a *arena) lookup(token uintptr) (Handler, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.cells[token]
	return h, ok
}

// release drops the cell for token and reports whether it was still live.
func (a *arena) release(token uintptr) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.cells[token]; !ok {
		return false
	}
	delete(a.cells, token)
	return true
}

func (a *arena) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cells)
}

// dispatch decodes one control and hands it to the handler registered
// under token. Controls that cannot be decoded, or that arrive for a
// released token, are answered with NotImplemented.
func (a *arena) dispatch(token uintptr, code, eventType uint32, data []byte) HandlerResult {
	ctl, err := scm.DecodeControl(code, eventType, data)
	if err != nil {
		return NotImplemented
	}
	h, ok := a.lookup(token)
	if !ok {
		return NotImplemented
	}
	r := h(ctl)
	if ctl.Cmd.IsTerminal() {
		a.release(token)
	}
	return r
}
