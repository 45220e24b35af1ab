package syncengine

import (
	"time"

	"github.com/google/uuid"
)

// EntityStateRecord is the local store of record: the last reconciled value of
// an entity per tenant, kept current as propagations complete. It backs the
// local state lookup used for version-mismatch detection.
type EntityStateRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entity_states_key,priority:1"`
	EntityID   string    `gorm:"not null;uniqueIndex:idx_entity_states_key,priority:2"`
	EntityType string    `gorm:"not null;uniqueIndex:idx_entity_states_key,priority:3"`
	Version    int64     `gorm:"not null"`
	Value      Payload   `gorm:"serializer:json"`
	Source     Source    `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityStateRecord) TableName() string {
	return "entity_states"
}

// NewEntityStateRecord creates a state record from a completed event
func NewEntityStateRecord(event *SyncEvent) *EntityStateRecord {
	return &EntityStateRecord{
		ID:         uuid.New(),
		TenantID:   event.TenantID,
		EntityID:   event.EntityID,
		EntityType: event.EntityType,
		Version:    event.Version,
		Value:      event.After.Clone(),
		Source:     event.Source,
		UpdatedAt:  time.Now(),
	}
}

// Apply folds a newer event into the record. Older versions are ignored so a
// late retry cannot roll the store of record backwards.
func (r *EntityStateRecord) Apply(event *SyncEvent) bool {
	if event.Version <= r.Version {
		return false
	}
	r.Version = event.Version
	r.Value = event.After.Clone()
	r.Source = event.Source
	r.UpdatedAt = time.Now()
	return true
}
