package logger

import (
	"fmt"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts info, warn, warning or error. An empty string is info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error", "err":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LevelFilter forwards messages at or above a minimum level.
type LevelFilter struct {
	next Logger
	min  Level
}

// NewLevelFilter wraps next so that messages below min are dropped.
func NewLevelFilter(next Logger, min Level) *LevelFilter {
	return &LevelFilter{next: next, min: min}
}

// Info forwards the message when the filter admits info.
func (f *LevelFilter) Info(format string, args ...interface{}) {
	if f.min <= LevelInfo {
		f.next.Info(format, args...)
	}
}

// Warning forwards the message when the filter admits warnings.
func (f *LevelFilter) Warning(format string, args ...interface{}) {
	if f.min <= LevelWarning {
		f.next.Warning(format, args...)
	}
}

// Error always forwards the message.
func (f *LevelFilter) Error(format string, args ...interface{}) {
	f.next.Error(format, args...)
}

// Close closes the wrapped logger.
func (f *LevelFilter) Close() error {
	return f.next.Close()
}

var _ Logger = (*LevelFilter)(nil)
