// Package capture reads packets from a live interface and hands them
// to the enrichment pipeline through a bounded queue.
package capture

import (
	"sync/atomic"
	"time"

	"netscope/internal/models"
)

// Queue is the bounded buffer between the capture goroutine and the
// enrichment worker. Push never blocks: when the queue is full the
// oldest event is evicted to make room, so under sustained overload
// the queue holds the most recent events in arrival order.
type Queue struct {
	events  chan models.PacketEvent
	dropped atomic.Uint64
}

// NewQueue returns a Queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	return &Queue{events: make(chan models.PacketEvent, capacity)}
}

// Push adds ev without blocking, evicting the oldest event when the
// queue is full. The capture loop is the only producer, so eviction
// always frees a slot for the incoming event.
func (q *Queue) Push(ev models.PacketEvent) {
	for {
		select {
		case q.events <- ev:
			return
		default:
		}
		select {
		case <-q.events:
			q.dropped.Add(1)
		default:
		}
	}
}

// Pop waits up to timeout for the next event. The second return is
// false when the timeout expires first.
func (q *Queue) Pop(timeout time.Duration) (models.PacketEvent, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-q.events:
		return ev, true
	case <-timer.C:
		return models.PacketEvent{}, false
	}
}

// Events exposes the queue for select-based consumers.
func (q *Queue) Events() <-chan models.PacketEvent {
	return q.events
}

// Depth returns the number of events currently queued.
func (q *Queue) Depth() int {
	return len(q.events)
}

// Dropped returns the number of events evicted due to overflow.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
