package scm

import (
	"errors"
	"fmt"

	"github.com/warpdl/svcctl/pkg/wstr"
)

var (
	// ErrLaunchArgumentsNotSupported is returned when launch arguments are
	// given for a kernel or file system driver.
	ErrLaunchArgumentsNotSupported = errors.New("launch arguments are not supported for driver services")

	// ErrProgressOutsidePending is returned for a status that carries a
	// checkpoint or wait hint while not in a pending state.
	ErrProgressOutsidePending = errors.New("checkpoint and wait hint are only valid in a pending state")

	// ErrExitCodeOutsideStopped is returned for a status that carries an
	// exit code while not stopped.
	ErrExitCodeOutsideStopped = errors.New("exit code is only valid in the stopped state")

	// ErrShutdownAndPreshutdown is returned when a status accepts both
	// shutdown and preshutdown notifications.
	ErrShutdownAndPreshutdown = errors.New("shutdown and preshutdown controls are mutually exclusive")
)

// ValidationError reports an input field that cannot be encoded for the SCM.
type ValidationError struct {
	// Field names the offending input, e.g. "display name" or "launch argument".
	Field string
	// Index is the list position for list fields and -1 otherwise.
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s %d: %v", e.Field, e.Index, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DecodeError reports a raw value or GUID read from an OS record that does
// not map to any known value.
type DecodeError struct {
	Kind string
	Raw  uint32
	// GUID is set instead of Raw for GUID-keyed payloads.
	GUID string
}

func (e *DecodeError) Error() string {
	if e.GUID != "" {
		return fmt.Sprintf("invalid %s GUID %s", e.Kind, e.GUID)
	}
	return fmt.Sprintf("invalid %s value %d", e.Kind, e.Raw)
}

// OSError wraps a failed system call without reinterpreting it. errors.Is
// works against the underlying errno.
type OSError struct {
	Op  string
	Err error
}

func (e *OSError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OSError) Unwrap() error { return e.Err }

// encodeField converts one string field, reporting failures as a
// ValidationError on field.
func encodeField(field string, index int, s string) ([]uint16, error) {
	u, err := wstr.UTF16(s)
	if err != nil {
		return nil, &ValidationError{Field: field, Index: index, Err: err}
	}
	return u, nil
}

// ErrShortEventData is returned when a control's event data is smaller
// than the record it should hold.
var ErrShortEventData = errors.New("event data too short")
