//go:build windows

package mgr

import "golang.org/x/sys/windows"

// Handle owns one SC_HANDLE. It is only created from a successful OS call.
type Handle struct {
	h windows.Handle
}

// Raw returns the native handle for use with other SCM calls. It is zero
// after Close.
func (h *Handle) Raw() windows.Handle {
	return h.h
}

// Close releases the handle. Release failures are ignored and later calls
// do nothing.
func (h *Handle) Close() error {
	if h.h == 0 {
		return nil
	}
	_ = windows.CloseServiceHandle(h.h)
	h.h = 0
	return nil
}
