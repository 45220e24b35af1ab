package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// GormChangeLogRepository implements ChangeLogRepository using GORM
type GormChangeLogRepository struct {
	db *gorm.DB
}

// NewGormChangeLogRepository creates a new GormChangeLogRepository
func NewGormChangeLogRepository(db *gorm.DB) *GormChangeLogRepository {
	return &GormChangeLogRepository{db: db}
}

// Append stores the given entries. The log is append-only: rows are inserted
// once and only their synced flag ever changes afterwards.
func (r *GormChangeLogRepository) Append(ctx context.Context, entries []syncengine.ChangeLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindByEntityVersion returns the entries recorded for the exact (entity, version) pair
func (r *GormChangeLogRepository) FindByEntityVersion(ctx context.Context, tenantID uuid.UUID, entityID string, version int64) ([]syncengine.ChangeLogEntry, error) {
	var entries []syncengine.ChangeLogEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ? AND version = ?", tenantID, entityID, version).
		Order("field ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByEntity returns the entity's entries newest first
func (r *GormChangeLogRepository) FindByEntity(ctx context.Context, tenantID uuid.UUID, entityID string, limit int) ([]syncengine.ChangeLogEntry, error) {
	var entries []syncengine.ChangeLogEntry
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ?", tenantID, entityID).
		Order("version DESC, field ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkSynced flags all entries of an event as propagated
func (r *GormChangeLogRepository) MarkSynced(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&syncengine.ChangeLogEntry{}).
		Where("event_id = ?", eventID).
		Update("synced", true).Error
}

// Count returns the total number of entries for the tenant
func (r *GormChangeLogRepository) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&syncengine.ChangeLogEntry{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormChangeLogRepository implements ChangeLogRepository
var _ syncengine.ChangeLogRepository = (*GormChangeLogRepository)(nil)
