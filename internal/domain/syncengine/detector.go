package syncengine

import (
	"context"
	"fmt"
	"time"
)

// DefaultConcurrencyWindow is the timestamp window within which two pending
// writes on the same entity are treated as concurrent.
const DefaultConcurrencyWindow = 5 * time.Second

// ConflictDetector inspects an event against queue state and last-known
// entity state across sources. Either check alone is sufficient to flag a
// conflict:
//
//   - version mismatch: any source reports a version greater than the event's
//   - concurrent window: another pending event on the same entity falls within
//     the concurrency window of the event's timestamp
type ConflictDetector struct {
	lookups []StateLookup
	queue   *SyncQueue
	window  time.Duration
}

// NewConflictDetector creates a detector over the given source lookups and queue
func NewConflictDetector(lookups []StateLookup, queue *SyncQueue, window time.Duration) *ConflictDetector {
	if window <= 0 {
		window = DefaultConcurrencyWindow
	}
	return &ConflictDetector{
		lookups: lookups,
		queue:   queue,
		window:  window,
	}
}

// Detect returns a conflict record when the event disagrees with known state,
// nil when propagation may proceed. A lookup failure is not a conflict; it is
// returned as an error and treated as a transient failure of the event.
func (d *ConflictDetector) Detect(ctx context.Context, event *SyncEvent) (*ConflictRecord, error) {
	// Version mismatch against every source's last-known state
	for _, lookup := range d.lookups {
		state, err := lookup.CurrentState(ctx, event.TenantID, event.EntityID, event.EntityType)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrStateLookupFailed, lookup.Name(), err)
		}
		if state == nil {
			continue
		}
		if state.Version > event.Version {
			record := NewConflictRecord(ConflictVersionMismatch, []*SyncEvent{event})
			record.ConflictingValues = append(record.ConflictingValues, state.Value.Clone())
			record.Sources = append(record.Sources, state.Source)
			return record, nil
		}
	}

	// Concurrent window over other pending events for the same entity
	colliding := d.queue.PendingForEntity(event, d.window)
	if len(colliding) > 0 {
		implicated := append([]*SyncEvent{event}, colliding...)
		return NewConflictRecord(ConflictConcurrentUpdate, implicated), nil
	}

	return nil, nil
}

// Window returns the configured concurrency window
func (d *ConflictDetector) Window() time.Duration {
	return d.window
}
