package syncengine

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncEvent Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidEventType   = errors.New("syncengine: invalid sync event type")
	ErrInvalidSource      = errors.New("syncengine: invalid source")
	ErrInvalidPriority    = errors.New("syncengine: invalid priority")
	ErrInvalidTenantID    = errors.New("syncengine: invalid tenant ID")
	ErrEmptyEntityID      = errors.New("syncengine: entity ID is required")
	ErrEmptyEntityType    = errors.New("syncengine: entity type is required")
	ErrInvalidTransition  = errors.New("syncengine: invalid event status transition")
	ErrRetriesExhausted   = errors.New("syncengine: retry attempts exhausted")
	ErrQueueClosed        = errors.New("syncengine: sync queue is closed")
	ErrPropagationFailed  = errors.New("syncengine: target propagation failed")
	ErrStateLookupFailed  = errors.New("syncengine: source state lookup failed")
	ErrConflictNotFound   = errors.New("syncengine: conflict record not found")
	ErrConflictNotOpen    = errors.New("syncengine: conflict record is not unresolved")
	ErrUnresolvableValues = errors.New("syncengine: merge requires exactly two conflicting values")
)

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// SyncEventType classifies the kind of mutation an event carries
type SyncEventType string

const (
	EventTypeInventoryUpdate SyncEventType = "inventory-update"
	EventTypePriceChange     SyncEventType = "price-change"
	EventTypeEntityCreate    SyncEventType = "entity-create"
	EventTypeEntityUpdate    SyncEventType = "entity-update"
	EventTypeEntityDelete    SyncEventType = "entity-delete"
)

// IsValid returns true if the event type is valid
func (t SyncEventType) IsValid() bool {
	switch t {
	case EventTypeInventoryUpdate, EventTypePriceChange,
		EventTypeEntityCreate, EventTypeEntityUpdate, EventTypeEntityDelete:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncEventType
func (t SyncEventType) String() string {
	return string(t)
}

// Source identifies the system that originated a change
type Source string

const (
	// SourceLocal is the local system of record
	SourceLocal Source = "local"
	// SourceShopify is the Shopify marketplace integration
	SourceShopify Source = "shopify"
	// SourceMercadoLibre is the MercadoLibre marketplace integration
	SourceMercadoLibre Source = "mercadolibre"
	// SourceManual marks operator-initiated writes (manual resolution, rollback)
	SourceManual Source = "manual"
)

// IsValid returns true if the source is valid
func (s Source) IsValid() bool {
	switch s {
	case SourceLocal, SourceShopify, SourceMercadoLibre, SourceManual:
		return true
	default:
		return false
	}
}

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// IsTarget returns true if the source is also a propagation target.
// Manual writes have no corresponding destination system.
func (s Source) IsTarget() bool {
	return s.IsValid() && s != SourceManual
}

// SyncPriority controls trigger timing for an event. Priority never reorders
// the queue itself; critical events only trigger an immediate drain.
type SyncPriority string

const (
	PriorityLow      SyncPriority = "low"
	PriorityMedium   SyncPriority = "medium"
	PriorityHigh     SyncPriority = "high"
	PriorityCritical SyncPriority = "critical"
)

// IsValid returns true if the priority is valid
func (p SyncPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncPriority
func (p SyncPriority) String() string {
	return string(p)
}

// SyncEventStatus tracks an event through its lifecycle.
// pending -> processing -> completed | failed | conflict
// conflict is transient: it resolves into a new event or a ledger entry.
type SyncEventStatus string

const (
	StatusPending    SyncEventStatus = "pending"
	StatusProcessing SyncEventStatus = "processing"
	StatusCompleted  SyncEventStatus = "completed"
	StatusFailed     SyncEventStatus = "failed"
	StatusConflict   SyncEventStatus = "conflict"
)

// IsValid returns true if the status is valid
func (s SyncEventStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusConflict:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for statuses the engine never leaves
func (s SyncEventStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String returns the string representation of SyncEventStatus
func (s SyncEventStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Payload
// ---------------------------------------------------------------------------

// Payload is an opaque snapshot of entity state before or after a mutation
type Payload map[string]any

// Clone returns a shallow copy of the payload. Adapters receive copies so
// shared queue state is never mutated outside the engine.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// SyncEvent
// ---------------------------------------------------------------------------

// SyncEvent represents a proposed mutation to a tracked entity
type SyncEvent struct {
	ID         uuid.UUID
	Type       SyncEventType
	Source     Source
	TenantID   uuid.UUID
	EntityID   string
	EntityType string
	Before     Payload
	After      Payload
	Timestamp  time.Time
	Version    int64
	Priority   SyncPriority
	RetryCount int
	Status     SyncEventStatus
	LastError  string

	// ReadyAt gates retried events: the batch processor skips events whose
	// ready time has not elapsed yet. Zero for never-failed events.
	ReadyAt time.Time
}

// NewSyncEvent creates a new pending sync event. The version must already be
// allocated by the version allocator for the event's entity.
func NewSyncEvent(eventType SyncEventType, source Source, tenantID uuid.UUID, entityID, entityType string, before, after Payload, priority SyncPriority, version int64) (*SyncEvent, error) {
	if !eventType.IsValid() {
		return nil, ErrInvalidEventType
	}
	if !source.IsValid() {
		return nil, ErrInvalidSource
	}
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if entityID == "" {
		return nil, ErrEmptyEntityID
	}
	if entityType == "" {
		return nil, ErrEmptyEntityType
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	return &SyncEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Source:     source,
		TenantID:   tenantID,
		EntityID:   entityID,
		EntityType: entityType,
		Before:     before,
		After:      after,
		Timestamp:  time.Now(),
		Version:    version,
		Priority:   priority,
		Status:     StatusPending,
	}, nil
}

// MarkProcessing transitions the event to processing
func (e *SyncEvent) MarkProcessing() error {
	if e.Status != StatusPending {
		return ErrInvalidTransition
	}
	e.Status = StatusProcessing
	return nil
}

// Complete transitions the event to its terminal completed state
func (e *SyncEvent) Complete() {
	e.Status = StatusCompleted
	e.LastError = ""
}

// MarkConflict flags the event as conflicted pending resolution
func (e *SyncEvent) MarkConflict() {
	e.Status = StatusConflict
}

// ScheduleRetry increments the retry counter and returns the event to pending
// with a linear backoff gate: delay = retryDelay * retryCount. Returns
// ErrRetriesExhausted once maxRetries attempts have been consumed, in which
// case the event is marked permanently failed.
func (e *SyncEvent) ScheduleRetry(cause error, maxRetries int, retryDelay time.Duration) error {
	e.RetryCount++
	if cause != nil {
		e.LastError = cause.Error()
	}
	if e.RetryCount >= maxRetries {
		e.Status = StatusFailed
		return ErrRetriesExhausted
	}
	e.Status = StatusPending
	e.ReadyAt = time.Now().Add(retryDelay * time.Duration(e.RetryCount))
	return nil
}

// Ready reports whether the event may be popped at the given instant
func (e *SyncEvent) Ready(now time.Time) bool {
	return e.ReadyAt.IsZero() || !now.Before(e.ReadyAt)
}

// IsCritical returns true for critical-priority events
func (e *SyncEvent) IsCritical() bool {
	return e.Priority == PriorityCritical
}
