package marketplace

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// LocalAdapter maintains the local store of record. It is both a propagation
// target (completed events land in entity_states) and the authoritative state
// lookup for version-mismatch detection.
type LocalAdapter struct {
	states syncengine.EntityStateRepository
}

// NewLocalAdapter creates an adapter over the entity state repository
func NewLocalAdapter(states syncengine.EntityStateRepository) *LocalAdapter {
	return &LocalAdapter{states: states}
}

// Name returns the source this adapter serves
func (a *LocalAdapter) Name() syncengine.Source {
	return syncengine.SourceLocal
}

// Propagate folds the event into the local store of record. The repository
// ignores stale versions, so replays are harmless without any dedup state.
func (a *LocalAdapter) Propagate(ctx context.Context, event *syncengine.SyncEvent) error {
	return a.states.Upsert(ctx, syncengine.NewEntityStateRecord(event))
}

// CurrentState returns the local view of the entity, or nil when the entity
// has never been reconciled
func (a *LocalAdapter) CurrentState(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*syncengine.EntityState, error) {
	record, err := a.states.FindByEntity(ctx, tenantID, entityID, entityType)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &syncengine.EntityState{
		Source:  syncengine.SourceLocal,
		Version: record.Version,
		Value:   record.Value.Clone(),
	}, nil
}

// Ensure LocalAdapter serves both ports
var (
	_ syncengine.TargetAdapter = (*LocalAdapter)(nil)
	_ syncengine.StateLookup   = (*LocalAdapter)(nil)
)
