package syncengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	source Source
	state  *EntityState
	err    error
}

func (s *stubLookup) Name() Source { return s.source }

func (s *stubLookup) CurrentState(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*EntityState, error) {
	return s.state, s.err
}

func detectorEvent(t *testing.T, version int64) *SyncEvent {
	t.Helper()
	event, err := NewSyncEvent(
		EventTypeInventoryUpdate, SourceLocal, uuid.New(),
		"sku-1", "inventory", Payload{"quantity": 10}, Payload{"quantity": 5},
		PriorityMedium, version,
	)
	require.NoError(t, err)
	return event
}

func TestConflictDetectorVersionMismatch(t *testing.T) {
	t.Run("newer remote version flags a conflict", func(t *testing.T) {
		lookup := &stubLookup{
			source: SourceShopify,
			state:  &EntityState{Source: SourceShopify, Version: 5, Value: Payload{"quantity": 8}},
		}
		detector := NewConflictDetector([]StateLookup{lookup}, NewSyncQueue(), DefaultConcurrencyWindow)

		record, err := detector.Detect(context.Background(), detectorEvent(t, 3))
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, ConflictVersionMismatch, record.ConflictType)
		// Implicated values: the event's after state plus the remote view
		require.Len(t, record.ConflictingValues, 2)
		assert.Equal(t, Payload{"quantity": 8}, record.ConflictingValues[1])
		assert.Equal(t, []Source{SourceLocal, SourceShopify}, record.Sources)
	})

	t.Run("equal or older remote version passes", func(t *testing.T) {
		lookup := &stubLookup{
			source: SourceShopify,
			state:  &EntityState{Source: SourceShopify, Version: 3},
		}
		detector := NewConflictDetector([]StateLookup{lookup}, NewSyncQueue(), DefaultConcurrencyWindow)

		record, err := detector.Detect(context.Background(), detectorEvent(t, 3))
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("unknown entity passes", func(t *testing.T) {
		lookup := &stubLookup{source: SourceShopify}
		detector := NewConflictDetector([]StateLookup{lookup}, NewSyncQueue(), DefaultConcurrencyWindow)

		record, err := detector.Detect(context.Background(), detectorEvent(t, 1))
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("lookup failure is an error not a conflict", func(t *testing.T) {
		lookup := &stubLookup{source: SourceShopify, err: errors.New("api down")}
		detector := NewConflictDetector([]StateLookup{lookup}, NewSyncQueue(), DefaultConcurrencyWindow)

		record, err := detector.Detect(context.Background(), detectorEvent(t, 1))
		assert.ErrorIs(t, err, ErrStateLookupFailed)
		assert.Nil(t, record)
	})
}

func TestConflictDetectorConcurrentWindow(t *testing.T) {
	queue := NewSyncQueue()
	event := detectorEvent(t, 1)
	sibling := detectorEvent(t, 2)
	sibling.TenantID = event.TenantID
	sibling.Timestamp = event.Timestamp.Add(2 * time.Second)
	require.NoError(t, queue.Enqueue(sibling))

	detector := NewConflictDetector(nil, queue, 5*time.Second)

	record, err := detector.Detect(context.Background(), event)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, ConflictConcurrentUpdate, record.ConflictType)
	assert.Equal(t, []uuid.UUID{event.ID, sibling.ID}, record.EventIDs)

	t.Run("other tenant's write on the same entity id is not concurrent", func(t *testing.T) {
		foreign := detectorEvent(t, 1)
		foreign.Timestamp = sibling.Timestamp

		record, err := detector.Detect(context.Background(), foreign)
		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

func TestConflictDetectorWindowDefault(t *testing.T) {
	detector := NewConflictDetector(nil, NewSyncQueue(), 0)
	assert.Equal(t, DefaultConcurrencyWindow, detector.Window())
}
