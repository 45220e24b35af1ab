package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

func setupEntityStateDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&syncengine.EntityStateRecord{}))
	return db
}

func makeStateRecord(tenantID uuid.UUID, entityID string, version int64, quantity int) *syncengine.EntityStateRecord {
	return &syncengine.EntityStateRecord{
		ID:         uuid.New(),
		TenantID:   tenantID,
		EntityID:   entityID,
		EntityType: "product",
		Version:    version,
		Value:      syncengine.Payload{"quantity": quantity},
		Source:     syncengine.SourceLocal,
		UpdatedAt:  time.Now(),
	}
}

func TestGormEntityStateRepository_Upsert(t *testing.T) {
	db := setupEntityStateDB(t)
	repo := NewGormEntityStateRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("inserts new record", func(t *testing.T) {
		record := makeStateRecord(tenantID, "sku-1", 1, 5)
		require.NoError(t, repo.Upsert(ctx, record))

		found, err := repo.FindByEntity(ctx, tenantID, "sku-1", "product")
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.Version)
	})

	t.Run("newer version replaces existing row", func(t *testing.T) {
		record := makeStateRecord(tenantID, "sku-1", 2, 9)
		require.NoError(t, repo.Upsert(ctx, record))

		found, err := repo.FindByEntity(ctx, tenantID, "sku-1", "product")
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.Version)
		assert.EqualValues(t, 9, found.Value["quantity"])
	})

	t.Run("stale version is ignored", func(t *testing.T) {
		record := makeStateRecord(tenantID, "sku-1", 1, 3)
		require.NoError(t, repo.Upsert(ctx, record))

		found, err := repo.FindByEntity(ctx, tenantID, "sku-1", "product")
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.Version, "late retry must not roll the store backwards")
		assert.EqualValues(t, 9, found.Value["quantity"])
	})
}

func TestGormEntityStateRepository_FindByEntity(t *testing.T) {
	db := setupEntityStateDB(t)
	repo := NewGormEntityStateRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	require.NoError(t, repo.Upsert(ctx, makeStateRecord(tenantID, "sku-1", 1, 5)))

	t.Run("returns not found for unknown entity", func(t *testing.T) {
		_, err := repo.FindByEntity(ctx, tenantID, "sku-404", "product")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("scopes by tenant", func(t *testing.T) {
		_, err := repo.FindByEntity(ctx, uuid.New(), "sku-1", "product")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("scopes by entity type", func(t *testing.T) {
		_, err := repo.FindByEntity(ctx, tenantID, "sku-1", "listing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
