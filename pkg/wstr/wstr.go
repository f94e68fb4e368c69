// Package wstr converts between Go strings and the nul-terminated UTF-16
// buffers exchanged with the service control manager.
//
// The multi-string form used for dependency lists stores every value
// followed by a nul and terminates the list with one extra nul:
//
//	"a\x00b\x00\x00"
//
// An empty list is encoded as no buffer at all (nil), which the SCM reads
// as "no dependencies".
package wstr

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
)

// NulError reports a value that contains an embedded nul character and so
// cannot be represented in a nul-terminated buffer.
type NulError struct {
	// Index is the position of the offending value in a list, or -1 when a
	// single value was converted.
	Index int
	// Position is the UTF-16 offset of the nul within the value.
	Position int
}

func (e *NulError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("nul character found at position %d", e.Position)
	}
	return fmt.Sprintf("nul character found at position %d in value %d", e.Position, e.Index)
}

// UTF16 encodes s as a nul-terminated UTF-16 buffer.
func UTF16(s string) ([]uint16, error) {
	u := utf16.Encode([]rune(s))
	for i, c := range u {
		if c == 0 {
			return nil, &NulError{Index: -1, Position: i}
		}
	}
	return append(u, 0), nil
}

// String decodes b up to the first nul, or the whole slice when it has none.
func String(b []uint16) string {
	for i, c := range b {
		if c == 0 {
			return string(utf16.Decode(b[:i]))
		}
	}
	return string(utf16.Decode(b))
}

// Join encodes values as a double-nul-terminated multi-string. A nil result
// with a nil error means the list was empty.
func Join(values []string) ([]uint16, error) {
	if len(values) == 0 {
		return nil, nil
	}
	var buf []uint16
	for i, v := range values {
		u, err := UTF16(v)
		if err != nil {
			ne := err.(*NulError)
			ne.Index = i
			return nil, ne
		}
		buf = append(buf, u...)
	}
	return append(buf, 0), nil
}

// Split decodes a double-nul-terminated multi-string. Decoding stops at the
// first empty value or at the end of b, whichever comes first.
func Split(b []uint16) []string {
	var out []string
	start := 0
	for i := 0; i < len(b); i++ {
		if b[i] != 0 {
			continue
		}
		if i == start {
			break
		}
		out = append(out, string(utf16.Decode(b[start:i])))
		start = i + 1
	}
	if out == nil {
		return []string{}
	}
	return out
}

// LaunchCommand builds the single command line the SCM stores for a
// service: the escaped executable path followed by each escaped argument.
func LaunchCommand(path string, args []string) (string, error) {
	parts := make([]string, 0, len(args)+1)
	p, err := Escape(path)
	if err != nil {
		return "", fmt.Errorf("executable path: %w", err)
	}
	parts = append(parts, p)
	for i, a := range args {
		e, err := Escape(a)
		if err != nil {
			var ne *NulError
			if errors.As(err, &ne) {
				ne.Index = i
			}
			return "", fmt.Errorf("launch argument %d: %w", i, err)
		}
		parts = append(parts, e)
	}
	return strings.Join(parts, " "), nil
}

// Escape quotes a single command-line token so it can be concatenated into
// a launch command and read back as the same token. Tokens that need no
// quoting are returned unchanged.
func Escape(s string) (string, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return "", &NulError{Index: -1, Position: len(utf16.Encode([]rune(s[:i])))}
	}
	return escape(s), nil
}
