package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// AuditLogHandler writes an audit trail of synchronization outcomes. Conflicts
// that end up in manual review and events that exhaust their retries are the
// two signals operators act on, so those log at warn; the rest at info.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler backed by the given logger
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		logger: logger.Named("audit"),
	}
}

// EventTypes returns the event types this handler subscribes to
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		syncengine.EventTypeConflictDetected,
		syncengine.EventTypeSyncEventFailed,
		syncengine.EventTypeBatchCompleted,
	}
}

// Handle processes a domain event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *syncengine.ConflictDetectedEvent:
		h.logConflict(e)
	case *syncengine.SyncEventFailedEvent:
		h.logger.Warn("sync event failed permanently",
			zap.String("sync_event_id", e.SyncEventID.String()),
			zap.String("entity_id", e.AggregateID()),
			zap.String("source", string(e.Source)),
			zap.Int("retry_count", e.RetryCount),
			zap.String("last_error", e.LastError),
		)
	case *syncengine.BatchCompletedEvent:
		h.logger.Info("sync batch completed",
			zap.Int("batch_size", e.BatchSize),
			zap.Int("completed", e.Completed),
			zap.Int("failed", e.Failed),
			zap.Int("conflicted", e.Conflicted),
			zap.Duration("duration", e.Duration),
		)
	}
	return nil
}

func (h *AuditLogHandler) logConflict(e *syncengine.ConflictDetectedEvent) {
	fields := []zap.Field{
		zap.String("conflict_id", e.ConflictID.String()),
		zap.String("conflict_type", string(e.ConflictType)),
		zap.String("entity_id", e.AggregateID()),
		zap.String("entity_type", e.AggregateType()),
		zap.Bool("auto_resolved", e.AutoResolved),
	}
	if e.AutoResolved {
		h.logger.Info("conflict detected and resolved", fields...)
		return
	}
	h.logger.Warn("conflict awaiting manual review", fields...)
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
