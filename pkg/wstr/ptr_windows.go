//go:build windows

package wstr

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// SplitPtr decodes a double-nul-terminated multi-string owned by the OS.
// A nil pointer yields an empty list. The walk never reads beyond the
// terminating empty value.
func SplitPtr(p *uint16) []string {
	out := []string{}
	if p == nil {
		return out
	}
	for *p != 0 {
		s := windows.UTF16PtrToString(p)
		out = append(out, s)
		n := 0
		for q := p; *q != 0; q = (*uint16)(unsafe.Add(unsafe.Pointer(q), 2)) {
			n++
		}
		p = (*uint16)(unsafe.Add(unsafe.Pointer(p), uintptr(n+1)*2))
	}
	return out
}

// StringPtr decodes a nul-terminated string owned by the OS. It reports
// false for a nil pointer so callers can tell "absent" from "empty".
func StringPtr(p *uint16) (string, bool) {
	if p == nil {
		return "", false
	}
	return windows.UTF16PtrToString(p), true
}

// Ptr returns a pointer to the first element of b, or nil for an absent
// buffer.
func Ptr(b []uint16) *uint16 {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}
