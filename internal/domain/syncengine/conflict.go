package syncengine

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ConflictType
// ---------------------------------------------------------------------------

// ConflictType classifies how a disagreement was detected
type ConflictType string

const (
	// ConflictVersionMismatch means a source reported a newer version than the event carries
	ConflictVersionMismatch ConflictType = "version-mismatch"
	// ConflictConcurrentUpdate means another pending write on the same entity fell within the concurrency window
	ConflictConcurrentUpdate ConflictType = "concurrent-update"
	// ConflictDataInconsistency means sources disagree about current state
	ConflictDataInconsistency ConflictType = "data-inconsistency"
)

// IsValid returns true if the conflict type is valid
func (t ConflictType) IsValid() bool {
	switch t {
	case ConflictVersionMismatch, ConflictConcurrentUpdate, ConflictDataInconsistency:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConflictType
func (t ConflictType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// ConflictStatus
// ---------------------------------------------------------------------------

// ConflictStatus tracks a conflict record through review
type ConflictStatus string

const (
	ConflictUnresolved ConflictStatus = "unresolved"
	ConflictResolved   ConflictStatus = "resolved"
	ConflictIgnored    ConflictStatus = "ignored"
)

// IsValid returns true if the status is valid
func (s ConflictStatus) IsValid() bool {
	switch s {
	case ConflictUnresolved, ConflictResolved, ConflictIgnored:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConflictStatus
func (s ConflictStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// ResolutionStrategy selects how competing writes are reconciled
type ResolutionStrategy string

const (
	StrategyLastWriteWins  ResolutionStrategy = "last-write-wins"
	StrategySourcePriority ResolutionStrategy = "source-priority"
	StrategyMergeFields    ResolutionStrategy = "merge-fields"
	StrategyManualReview   ResolutionStrategy = "manual-review"
)

// IsValid returns true if the strategy is valid
func (s ResolutionStrategy) IsValid() bool {
	switch s {
	case StrategyLastWriteWins, StrategySourcePriority, StrategyMergeFields, StrategyManualReview:
		return true
	default:
		return false
	}
}

// String returns the string representation of ResolutionStrategy
func (s ResolutionStrategy) String() string {
	return string(s)
}

// Resolution records how a conflict was closed
type Resolution struct {
	Strategy      ResolutionStrategy `json:"strategy"`
	ResolvedValue Payload            `json:"resolved_value" gorm:"serializer:json"`
	ResolvedBy    string             `json:"resolved_by"`
	ResolvedAt    time.Time          `json:"resolved_at"`
}

// ---------------------------------------------------------------------------
// ConflictRecord
// ---------------------------------------------------------------------------

// ConflictRecord represents a detected disagreement between competing writes
// on the same entity. Records are owned exclusively by the conflict ledger.
type ConflictRecord struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventIDs          []uuid.UUID    `gorm:"serializer:json"`
	EntityID          string         `gorm:"not null;index"`
	EntityType        string         `gorm:"not null"`
	ConflictType      ConflictType   `gorm:"not null"`
	ConflictingValues []Payload      `gorm:"serializer:json"`
	Sources           []Source       `gorm:"serializer:json"`
	Timestamp         time.Time      `gorm:"not null"`
	Status            ConflictStatus `gorm:"not null;index"`
	Resolution        *Resolution    `gorm:"serializer:json"`
}

// TableName returns the table name for GORM
func (ConflictRecord) TableName() string {
	return "conflict_records"
}

// NewConflictRecord creates an unresolved conflict record over the implicated events
func NewConflictRecord(conflictType ConflictType, events []*SyncEvent) *ConflictRecord {
	record := &ConflictRecord{
		ID:           uuid.New(),
		ConflictType: conflictType,
		Timestamp:    time.Now(),
		Status:       ConflictUnresolved,
	}
	for _, event := range events {
		record.TenantID = event.TenantID
		record.EntityID = event.EntityID
		record.EntityType = event.EntityType
		record.EventIDs = append(record.EventIDs, event.ID)
		record.ConflictingValues = append(record.ConflictingValues, event.After.Clone())
		record.Sources = append(record.Sources, event.Source)
	}
	return record
}

// Resolve closes the record with the winning value. Only unresolved records
// can be resolved.
func (r *ConflictRecord) Resolve(strategy ResolutionStrategy, value Payload, resolvedBy string) error {
	if r.Status != ConflictUnresolved {
		return ErrConflictNotOpen
	}
	r.Status = ConflictResolved
	r.Resolution = &Resolution{
		Strategy:      strategy,
		ResolvedValue: value.Clone(),
		ResolvedBy:    resolvedBy,
		ResolvedAt:    time.Now(),
	}
	return nil
}

// Ignore closes the record without producing a reconciled value
func (r *ConflictRecord) Ignore() error {
	if r.Status != ConflictUnresolved {
		return ErrConflictNotOpen
	}
	r.Status = ConflictIgnored
	return nil
}

// IsOpen returns true while the record awaits resolution
func (r *ConflictRecord) IsOpen() bool {
	return r.Status == ConflictUnresolved
}
