package event

import (
	"context"
	"errors"
	"sync/atomic"
)

// DefaultCapacity is the queue depth used by the device.
const DefaultCapacity = 64

// ErrCapacity is returned when a Mux is created without room for events.
var ErrCapacity = errors.New("event: mux capacity must be positive")

// Mux is the single hand-off point between the producers and the one
// consumer. Enqueue never blocks; a full queue drops the new event.
// Dequeue blocks until an event is available.
//
// The wake signal is binary: any number of enqueues between two waits
// coalesce into one wake, so the consumer always drains by re-checking
// the queue rather than counting signals.
type Mux struct {
	queue chan AxisEvent
	wake  chan struct{}

	enqueued atomic.Uint64
	dropped  atomic.Uint64
}

// NewMux creates a Mux holding at most capacity pending events.
func NewMux(capacity int) (*Mux, error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	return &Mux{
		queue: make(chan AxisEvent, capacity),
		wake:  make(chan struct{}, 1),
	}, nil
}

// Enqueue adds ev to the queue. It returns false if the queue was full and
// the event was dropped.
func (m *Mux) Enqueue(ev AxisEvent) bool {
	select {
	case m.queue <- ev:
	default:
		m.dropped.Add(1)
		return false
	}
	m.enqueued.Add(1)

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue returns the oldest pending event, if any.
func (m *Mux) TryDequeue() (AxisEvent, bool) {
	select {
	case ev := <-m.queue:
		return ev, true
	default:
		return AxisEvent{}, false
	}
}

// Dequeue waits for the oldest pending event. It only returns early when
// ctx is done.
func (m *Mux) Dequeue(ctx context.Context) (AxisEvent, error) {
	for {
		if ev, ok := m.TryDequeue(); ok {
			return ev, nil
		}
		select {
		case <-m.wake:
		case <-ctx.Done():
			return AxisEvent{}, ctx.Err()
		}
	}
}

// Len returns the number of pending events.
func (m *Mux) Len() int { return len(m.queue) }

// Cap returns the queue capacity.
func (m *Mux) Cap() int { return cap(m.queue) }

// Enqueued returns the number of events accepted so far.
func (m *Mux) Enqueued() uint64 { return m.enqueued.Load() }

// Dropped returns the number of events rejected because the queue was full.
func (m *Mux) Dropped() uint64 { return m.dropped.Load() }
