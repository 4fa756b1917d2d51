package telemetry

import "sync"

// Ring is a bounded, concurrency-safe buffer of the most recent Readings.
// The live dashboard reads from it; it never blocks the producer.
type Ring struct {
	mu       sync.RWMutex
	readings []Reading
	next     int
	full     bool
}

func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{readings: make([]Reading, size)}
}

// Push appends a reading, evicting the oldest when the buffer is full.
func (r *Ring) Push(reading Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings[r.next] = reading
	r.next = (r.next + 1) % len(r.readings)
	if r.next == 0 {
		r.full = true
	}
}

// Latest returns the most recently pushed reading.
func (r *Ring) Latest() (Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.full && r.next == 0 {
		return Reading{}, false
	}
	idx := r.next - 1
	if idx < 0 {
		idx = len(r.readings) - 1
	}
	return r.readings[idx], true
}

// Snapshot returns the buffered readings oldest-first. The returned slice is
// a copy and safe to hold across cycles.
func (r *Ring) Snapshot() []Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Reading, r.next)
		copy(out, r.readings[:r.next])
		return out
	}
	out := make([]Reading, 0, len(r.readings))
	out = append(out, r.readings[r.next:]...)
	out = append(out, r.readings[:r.next]...)
	return out
}

// Len reports how many readings are currently buffered.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.readings)
	}
	return r.next
}
