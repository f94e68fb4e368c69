package probe

import (
	"sync"
	"time"
)

// Event is one control request as seen by the probe's handler.
type Event struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Command string    `json:"command"`
	Control string    `json:"control"`
	Result  uint32    `json:"result"`
}

// Recorder keeps the most recent control events in a fixed-size ring.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	seq    uint64
	now    func() time.Time
}

// NewRecorder returns a Recorder that keeps up to size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = 64
	}
	return &Recorder{events: make([]Event, size), now: time.Now}
}

// Add appends an event and returns its sequence number. Sequence numbers
// start at 1 and never repeat.
func (r *Recorder) Add(command, control string, result uint32) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.events[r.next] = Event{
		Seq:     r.seq,
		Time:    r.now(),
		Command: command,
		Control: control,
		Result:  result,
	}
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
	return r.seq
}

// Since returns, oldest first, at most limit events with a sequence number
// greater than after. A limit of 0 returns everything retained.
func (r *Recorder) Since(after uint64, limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []Event
	if r.full {
		ordered = append(ordered, r.events[r.next:]...)
	}
	ordered = append(ordered, r.events[:r.next]...)

	out := make([]Event, 0, len(ordered))
	for _, e := range ordered {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Last returns the sequence number of the newest event, 0 when empty.
func (r *Recorder) Last() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
