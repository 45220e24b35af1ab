package syncengine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conflictEvents(t *testing.T) []*SyncEvent {
	t.Helper()
	tenantID := uuid.New()
	first, err := NewSyncEvent(
		EventTypeInventoryUpdate, SourceLocal, tenantID,
		"sku-1", "inventory", Payload{"quantity": 10}, Payload{"quantity": 5},
		PriorityMedium, 2,
	)
	require.NoError(t, err)
	second, err := NewSyncEvent(
		EventTypeInventoryUpdate, SourceShopify, tenantID,
		"sku-1", "inventory", Payload{"quantity": 10}, Payload{"quantity": 8},
		PriorityMedium, 3,
	)
	require.NoError(t, err)
	return []*SyncEvent{first, second}
}

func TestNewConflictRecord(t *testing.T) {
	events := conflictEvents(t)
	record := NewConflictRecord(ConflictConcurrentUpdate, events)

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, ConflictConcurrentUpdate, record.ConflictType)
	assert.Equal(t, ConflictUnresolved, record.Status)
	assert.True(t, record.IsOpen())
	assert.Equal(t, events[0].TenantID, record.TenantID)
	assert.Equal(t, "sku-1", record.EntityID)
	assert.Equal(t, []uuid.UUID{events[0].ID, events[1].ID}, record.EventIDs)
	assert.Equal(t, []Source{SourceLocal, SourceShopify}, record.Sources)
	require.Len(t, record.ConflictingValues, 2)
	assert.Equal(t, Payload{"quantity": 5}, record.ConflictingValues[0])
	assert.Equal(t, Payload{"quantity": 8}, record.ConflictingValues[1])
}

func TestConflictRecordResolve(t *testing.T) {
	t.Run("resolution closes the record", func(t *testing.T) {
		record := NewConflictRecord(ConflictVersionMismatch, conflictEvents(t))
		value := Payload{"quantity": 5}

		require.NoError(t, record.Resolve(StrategyLastWriteWins, value, "system"))
		assert.Equal(t, ConflictResolved, record.Status)
		assert.False(t, record.IsOpen())
		require.NotNil(t, record.Resolution)
		assert.Equal(t, StrategyLastWriteWins, record.Resolution.Strategy)
		assert.Equal(t, value, record.Resolution.ResolvedValue)
		assert.Equal(t, "system", record.Resolution.ResolvedBy)
		assert.False(t, record.Resolution.ResolvedAt.IsZero())
	})

	t.Run("resolved value is a copy", func(t *testing.T) {
		record := NewConflictRecord(ConflictVersionMismatch, conflictEvents(t))
		value := Payload{"quantity": 5}
		require.NoError(t, record.Resolve(StrategyManualReview, value, "admin"))

		value["quantity"] = 999
		assert.Equal(t, 5, record.Resolution.ResolvedValue["quantity"])
	})

	t.Run("double resolution is rejected", func(t *testing.T) {
		record := NewConflictRecord(ConflictVersionMismatch, conflictEvents(t))
		require.NoError(t, record.Resolve(StrategyLastWriteWins, Payload{}, "system"))
		assert.ErrorIs(t, record.Resolve(StrategyLastWriteWins, Payload{}, "system"), ErrConflictNotOpen)
	})
}

func TestConflictRecordIgnore(t *testing.T) {
	record := NewConflictRecord(ConflictDataInconsistency, conflictEvents(t))

	require.NoError(t, record.Ignore())
	assert.Equal(t, ConflictIgnored, record.Status)
	assert.Nil(t, record.Resolution)
	assert.ErrorIs(t, record.Ignore(), ErrConflictNotOpen)
}
