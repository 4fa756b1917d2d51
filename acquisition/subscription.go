package acquisition

import (
	"sync/atomic"

	"github.com/emusa/energymon/telemetry"
)

// Subscription is one consumer's bounded queue of readings. When the queue
// is full the oldest unconsumed reading is evicted so the producer never
// blocks; evictions are counted as backpressure.
type Subscription struct {
	Name string
	C    <-chan telemetry.Reading

	ch      chan telemetry.Reading
	dropped atomic.Uint64
}

// Subscribe registers a consumer. Call before Run; subscriptions are fixed
// for the life of the loop.
func (l *Loop) Subscribe(name string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription{
		Name: name,
		ch:   make(chan telemetry.Reading, buffer),
	}
	s.C = s.ch

	l.mu.Lock()
	l.subs = append(l.subs, s)
	l.mu.Unlock()
	return s
}

// Dropped returns how many readings this subscriber has lost to
// backpressure.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// offer enqueues without ever blocking the acquisition cadence.
func (s *Subscription) offer(reading telemetry.Reading) {
	select {
	case s.ch <- reading:
		return
	default:
	}

	// queue full: evict the oldest and try once more. If the consumer drains
	// the queue between these selects the new reading still goes in.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- reading:
	default:
		s.dropped.Add(1)
	}
}
