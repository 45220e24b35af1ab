package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// GormConflictRepository implements ConflictRepository using GORM
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// Save inserts or updates a conflict record
func (r *GormConflictRepository) Save(ctx context.Context, record *syncengine.ConflictRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

// FindByID returns the record or shared.ErrNotFound
func (r *GormConflictRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncengine.ConflictRecord, error) {
	var record syncengine.ConflictRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindUnresolved returns open records for the tenant, oldest first
func (r *GormConflictRepository) FindUnresolved(ctx context.Context, tenantID uuid.UUID) ([]syncengine.ConflictRecord, error) {
	var records []syncengine.ConflictRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, syncengine.ConflictUnresolved).
		Order("timestamp ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountUnresolved returns the number of open records for the tenant
func (r *GormConflictRepository) CountUnresolved(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&syncengine.ConflictRecord{}).
		Where("tenant_id = ? AND status = ?", tenantID, syncengine.ConflictUnresolved).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormConflictRepository implements ConflictRepository
var _ syncengine.ConflictRepository = (*GormConflictRepository)(nil)
