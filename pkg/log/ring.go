package log

import "sync"

// DefaultRingCapacity bounds the number of recent events kept per channel.
const DefaultRingCapacity = 50

// Ring is a Logger that retains the most recent events in a fixed-size
// buffer. A snapshot of the ring is handed to error delegates so that
// diagnostics include the protocol activity leading up to a failure.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewRing creates a ring buffer holding up to capacity events.
// A non-positive capacity uses DefaultRingCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{events: make([]Event, capacity)}
}

// Log records an event, evicting the oldest when the ring is full.
func (r *Ring) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = event
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the retained events in chronological order.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Event, r.next)
		copy(out, r.events[:r.next])
		return out
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	out = append(out, r.events[:r.next]...)
	return out
}

// Len returns the number of retained events.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.events)
	}
	return r.next
}

var _ Logger = (*Ring)(nil)
