package syncengine

import (
	"time"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/google/uuid"
)

// Domain event types published by the engine. Observability backends subscribe
// to these instead of being called from business logic directly.
const (
	EventTypeConflictDetected = "syncengine.conflict_detected"
	EventTypeSyncEventFailed  = "syncengine.event_failed"
	EventTypeBatchCompleted   = "syncengine.batch_completed"
)

// ConflictDetectedEvent is published when the detector flags a conflict,
// including manual-review deferrals so unresolved conflicts stay observable
// to operators.
type ConflictDetectedEvent struct {
	shared.BaseDomainEvent
	ConflictID   uuid.UUID    `json:"conflict_id"`
	ConflictType ConflictType `json:"conflict_type"`
	Sources      []Source     `json:"sources"`
	AutoResolved bool         `json:"auto_resolved"`
}

// NewConflictDetectedEvent creates a conflict-detected domain event
func NewConflictDetectedEvent(record *ConflictRecord, autoResolved bool) *ConflictDetectedEvent {
	return &ConflictDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConflictDetected, record.EntityType, record.EntityID, record.TenantID),
		ConflictID:      record.ID,
		ConflictType:    record.ConflictType,
		Sources:         record.Sources,
		AutoResolved:    autoResolved,
	}
}

// SyncEventFailedEvent is published when an event exhausts its retries and is
// marked permanently failed.
type SyncEventFailedEvent struct {
	shared.BaseDomainEvent
	SyncEventID uuid.UUID `json:"sync_event_id"`
	Source      Source    `json:"source"`
	RetryCount  int       `json:"retry_count"`
	LastError   string    `json:"last_error"`
}

// NewSyncEventFailedEvent creates an event-failed domain event
func NewSyncEventFailedEvent(event *SyncEvent) *SyncEventFailedEvent {
	return &SyncEventFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncEventFailed, event.EntityType, event.EntityID, event.TenantID),
		SyncEventID:     event.ID,
		Source:          event.Source,
		RetryCount:      event.RetryCount,
		LastError:       event.LastError,
	}
}

// BatchCompletedEvent is published after each drain with throughput figures
// for health reporting.
type BatchCompletedEvent struct {
	shared.BaseDomainEvent
	BatchSize  int           `json:"batch_size"`
	Completed  int           `json:"completed"`
	Failed     int           `json:"failed"`
	Conflicted int           `json:"conflicted"`
	Duration   time.Duration `json:"duration"`
}

// NewBatchCompletedEvent creates a batch-completed domain event
func NewBatchCompletedEvent(tenantID uuid.UUID, batchSize, completed, failed, conflicted int, duration time.Duration) *BatchCompletedEvent {
	return &BatchCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCompleted, "sync_batch", "", tenantID),
		BatchSize:       batchSize,
		Completed:       completed,
		Failed:          failed,
		Conflicted:      conflicted,
		Duration:        duration,
	}
}
