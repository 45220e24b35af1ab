package syncengine

import (
	"context"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Target / Source Ports
// ---------------------------------------------------------------------------

// TargetAdapter pushes a reconciled value into a destination system.
// Implementations must be idempotent with respect to the event ID: retries may
// call Propagate more than once for the same logical change. Adapters receive
// payload copies and must never mutate engine state.
type TargetAdapter interface {
	// Name returns the source/target this adapter serves
	Name() Source

	// Propagate applies the event's after state to the destination system
	Propagate(ctx context.Context, event *SyncEvent) error
}

// EntityState is one source's view of an entity's current state
type EntityState struct {
	Source  Source
	Version int64
	Value   Payload
}

// StateLookup reports a source's last-known state for an entity. Used by the
// conflict detector to discover version mismatches.
type StateLookup interface {
	// Name returns the source this lookup serves
	Name() Source

	// CurrentState returns the source's view of the entity, or nil if the
	// source does not know the entity
	CurrentState(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*EntityState, error)
}

// ---------------------------------------------------------------------------
// Repository Ports
// ---------------------------------------------------------------------------

// ChangeLogRepository persists the append-only change log
type ChangeLogRepository interface {
	// Append stores the given entries; entries are never updated afterwards
	Append(ctx context.Context, entries []ChangeLogEntry) error

	// FindByEntityVersion returns the entries recorded for the exact
	// (entity, version) pair, or shared.ErrNotFound-compatible error handling
	// by returning an empty slice
	FindByEntityVersion(ctx context.Context, tenantID uuid.UUID, entityID string, version int64) ([]ChangeLogEntry, error)

	// FindByEntity returns the entity's entries newest first
	FindByEntity(ctx context.Context, tenantID uuid.UUID, entityID string, limit int) ([]ChangeLogEntry, error)

	// MarkSynced flags all entries of an event as propagated
	MarkSynced(ctx context.Context, eventID uuid.UUID) error

	// Count returns the total number of entries for the tenant
	Count(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// EntityStateRepository persists the local store of record
type EntityStateRepository interface {
	// Upsert inserts the record or updates the existing (tenant, entity, type)
	// row when the record carries a newer version
	Upsert(ctx context.Context, record *EntityStateRecord) error

	// FindByEntity returns the record or shared.ErrNotFound
	FindByEntity(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*EntityStateRecord, error)
}

// ConflictRepository persists the conflict ledger
type ConflictRepository interface {
	// Save inserts or updates a conflict record
	Save(ctx context.Context, record *ConflictRecord) error

	// FindByID returns the record or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*ConflictRecord, error)

	// FindUnresolved returns open records for the tenant, oldest first
	FindUnresolved(ctx context.Context, tenantID uuid.UUID) ([]ConflictRecord, error)

	// CountUnresolved returns the number of open records for the tenant
	CountUnresolved(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
