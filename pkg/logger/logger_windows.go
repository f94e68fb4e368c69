//go:build windows

package logger

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// Event IDs for Windows Event Log entries.
const (
	// EventIDInfo is used for lifecycle messages (starting, running, stopped).
	EventIDInfo uint32 = 1

	// EventIDWarning is used for rejected or undecodable controls.
	EventIDWarning uint32 = 2

	// EventIDError is used for failed status reports and worker failures.
	EventIDError uint32 = 3
)

// eventLogOpener opens an event source. Tests replace it.
var eventLogOpener = func(sourceName string) (EventLogWriter, error) {
	return eventlog.Open(sourceName)
}

// EventLogger writes log messages to Windows Event Log.
// The event source must be installed with InstallEventSource first;
// svcctl install does that for every service it creates.
type EventLogger struct {
	log EventLogWriter
}

// NewEventLogger opens the event source sourceName, normally the service
// name.
func NewEventLogger(sourceName string) (*EventLogger, error) {
	w, err := eventLogOpener(sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &EventLogger{log: w}, nil
}

// NewEventLoggerWithWriter wraps an existing writer.
func NewEventLoggerWithWriter(w EventLogWriter) *EventLogger {
	return &EventLogger{log: w}
}

// Info logs an informational message with EventIDInfo.
func (e *EventLogger) Info(format string, args ...interface{}) {
	// A service keeps running when the event log is unavailable.
	_ = e.log.Info(EventIDInfo, fmt.Sprintf(format, args...))
}

// Warning logs a warning message with EventIDWarning.
func (e *EventLogger) Warning(format string, args ...interface{}) {
	_ = e.log.Warning(EventIDWarning, fmt.Sprintf(format, args...))
}

// Error logs an error message with EventIDError.
func (e *EventLogger) Error(format string, args ...interface{}) {
	_ = e.log.Error(EventIDError, fmt.Sprintf(format, args...))
}

// Close releases the Windows Event Log handle.
func (e *EventLogger) Close() error {
	if e.log != nil {
		return e.log.Close()
	}
	return nil
}

// Ensure EventLogger satisfies the Logger interface.
var _ Logger = (*EventLogger)(nil)
