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

// GormEntityStateRepository implements EntityStateRepository using GORM
type GormEntityStateRepository struct {
	db *gorm.DB
}

// NewGormEntityStateRepository creates a new GormEntityStateRepository
func NewGormEntityStateRepository(db *gorm.DB) *GormEntityStateRepository {
	return &GormEntityStateRepository{db: db}
}

// Upsert inserts the record, or updates the existing (tenant, entity, type)
// row when the record carries a newer version. A stale write is a no-op so
// late retries cannot roll the store of record backwards.
func (r *GormEntityStateRepository) Upsert(ctx context.Context, record *syncengine.EntityStateRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "entity_id"}, {Name: "entity_type"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"version":    record.Version,
				"value":      record.Value,
				"source":     record.Source,
				"updated_at": record.UpdatedAt,
			}),
			Where: clause.Where{
				Exprs: []clause.Expression{
					clause.Lt{Column: clause.Column{Table: "entity_states", Name: "version"}, Value: record.Version},
				},
			},
		}).
		Create(record).Error
}

// FindByEntity returns the record or shared.ErrNotFound
func (r *GormEntityStateRepository) FindByEntity(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*syncengine.EntityStateRecord, error) {
	var record syncengine.EntityStateRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ? AND entity_type = ?", tenantID, entityID, entityType).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Ensure GormEntityStateRepository implements EntityStateRepository
var _ syncengine.EntityStateRepository = (*GormEntityStateRepository)(nil)
