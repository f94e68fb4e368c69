package scm

import (
	"fmt"
	"math"
	"time"
)

// Longest durations the failure action fields can carry.
const (
	MaxResetPeriod = time.Duration(math.MaxUint32-1) * time.Second
	MaxActionDelay = time.Duration(math.MaxUint32) * time.Millisecond
)

// millis converts d for a DWORD millisecond field. Values that do not fit
// are a programming error and panic.
func millis(field string, d time.Duration) uint32 {
	ms := d.Milliseconds()
	if d < 0 || ms > math.MaxUint32 {
		panic(fmt.Sprintf("scm: %s %v does not fit in a 32-bit millisecond field", field, d))
	}
	return uint32(ms)
}

// seconds converts d for a DWORD seconds field and panics when it does not
// fit. The all-ones value is reserved for INFINITE.
func seconds(field string, d time.Duration) uint32 {
	s := int64(d / time.Second)
	if d < 0 || s >= math.MaxUint32 {
		panic(fmt.Sprintf("scm: %s %v does not fit in a 32-bit seconds field", field, d))
	}
	return uint32(s)
}

func fromMillis(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// PreshutdownTimeoutMillis converts a preshutdown timeout for the wire. It
// panics when d does not fit.
func PreshutdownTimeoutMillis(d time.Duration) uint32 {
	return millis("preshutdown timeout", d)
}

// PreshutdownTimeoutFromMillis is the inverse of PreshutdownTimeoutMillis.
func PreshutdownTimeoutFromMillis(ms uint32) time.Duration {
	return fromMillis(ms)
}
