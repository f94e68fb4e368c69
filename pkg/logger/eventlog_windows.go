//go:build windows

package logger

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows/svc/eventlog"
)

// EventLogWriter abstracts the Windows Event Log API for testability.
// The interface matches the methods of eventlog.Log that EventLogger uses.
type EventLogWriter interface {
	// Info writes an information event to the event log.
	Info(eid uint32, msg string) error

	// Warning writes a warning event to the event log.
	Warning(eid uint32, msg string) error

	// Error writes an error event to the event log.
	Error(eid uint32, msg string) error

	// Close closes the event log handle.
	Close() error
}

// Registry operations on event sources, replaced in tests.
var (
	installSource = eventlog.InstallAsEventCreate
	removeSource  = eventlog.Remove
)

// InstallEventSource registers source so NewEventLogger can open it.
// A source that already exists is not an error.
func InstallEventSource(source string) error {
	err := installSource(source, eventlog.Error|eventlog.Warning|eventlog.Info)
	if err == nil || isSourceExists(err) {
		return nil
	}
	return fmt.Errorf("failed to install event source %s: %w", source, err)
}

// RemoveEventSource deletes the registry entry created by InstallEventSource.
func RemoveEventSource(source string) error {
	if err := removeSource(source); err != nil {
		return fmt.Errorf("failed to remove event source %s: %w", source, err)
	}
	return nil
}

// isSourceExists matches the error eventlog.InstallAsEventCreate returns
// when the registry key is already present.
func isSourceExists(err error) bool {
	return strings.Contains(err.Error(), "registry key already exists")
}
