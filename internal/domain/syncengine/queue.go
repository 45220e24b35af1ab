package syncengine

import (
	"sort"
	gosync "sync"
	"time"

	"github.com/google/uuid"
)

// SyncQueue is the ordered buffer of pending events awaiting propagation.
// Insertion order is preserved; priority never reorders the queue. The queue
// exclusively owns in-flight events: producers append through Enqueue and only
// the batch processor pops.
type SyncQueue struct {
	mu     gosync.Mutex
	events []*SyncEvent
	closed bool
}

// NewSyncQueue creates an empty queue
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{
		events: make([]*SyncEvent, 0),
	}
}

// Enqueue appends an event in arrival order
func (q *SyncQueue) Enqueue(event *SyncEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.events = append(q.events, event)
	return nil
}

// PopReady removes and returns up to limit events that are ready at the given
// instant, oldest first. Events still inside their retry backoff window stay
// queued in their original position.
func (q *SyncQueue) PopReady(now time.Time, limit int) []*SyncEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 || len(q.events) == 0 {
		return nil
	}

	batch := make([]*SyncEvent, 0, limit)
	remaining := q.events[:0]
	for _, event := range q.events {
		if len(batch) < limit && event.Ready(now) {
			batch = append(batch, event)
			continue
		}
		remaining = append(remaining, event)
	}
	// Release popped slots for GC
	for i := len(remaining); i < len(q.events); i++ {
		q.events[i] = nil
	}
	q.events = remaining
	return batch
}

// Requeue returns a retried event to the queue. Original relative ordering is
// not guaranteed after reinsertion.
func (q *SyncQueue) Requeue(event *SyncEvent) error {
	return q.Enqueue(event)
}

// PendingForEntity returns queued events for the same tenant's entity whose
// timestamps fall within the window around the reference event's timestamp,
// excluding the reference event itself. Other tenants' entities never collide,
// even under the same entity ID.
func (q *SyncQueue) PendingForEntity(reference *SyncEvent, window time.Duration) []*SyncEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	var colliding []*SyncEvent
	for _, event := range q.events {
		if event.ID == reference.ID ||
			event.TenantID != reference.TenantID ||
			event.EntityID != reference.EntityID {
			continue
		}
		delta := event.Timestamp.Sub(reference.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			colliding = append(colliding, event)
		}
	}
	return colliding
}

// Remove deletes an event from the queue by ID, returning true if found.
// Used when a colliding event is consumed by conflict resolution.
func (q *SyncQueue) Remove(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, event := range q.events {
		if event.ID == id {
			q.events = append(q.events[:i], q.events[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of queued events
func (q *SyncQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Snapshot returns a copy of the queued events ordered oldest first.
// Used by operator tooling; the returned slice does not alias queue storage.
func (q *SyncQueue) Snapshot() []*SyncEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*SyncEvent, len(q.events))
	copy(out, q.events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Close rejects further enqueues. Events already queued drain normally.
func (q *SyncQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
