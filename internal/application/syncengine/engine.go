package syncengine

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// Engine coordinates ingestion, conflict handling and propagation of sync
// events. All mutable state (queue, version map, ledger access) hangs off this
// object; construct one per deployment (or one per tenant) with injected
// adapters and repositories.
type Engine struct {
	config    Config
	logger    *zap.Logger
	publisher shared.EventPublisher

	queue     *syncengine.SyncQueue
	versions  *syncengine.VersionAllocator
	detector  *syncengine.ConflictDetector
	resolver  *syncengine.ConflictResolver
	adapters  []syncengine.TargetAdapter
	changeLog syncengine.ChangeLogRepository
	conflicts syncengine.ConflictRepository

	// draining guards against overlapping drains: a tick that fires while a
	// drain is still running is skipped.
	draining atomic.Bool
	trigger  chan struct{}

	statsMu        gosync.Mutex
	processed      int64
	completed      int64
	lastThroughput float64
}

// NewEngine creates an engine with the given configuration and collaborators
func NewEngine(
	config Config,
	adapters []syncengine.TargetAdapter,
	lookups []syncengine.StateLookup,
	changeLog syncengine.ChangeLogRepository,
	conflicts syncengine.ConflictRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	enabled := make(map[syncengine.Source]bool, len(config.EnabledTargets))
	for _, target := range config.EnabledTargets {
		enabled[target] = true
	}
	active := make([]syncengine.TargetAdapter, 0, len(adapters))
	for _, adapter := range adapters {
		if enabled[adapter.Name()] {
			active = append(active, adapter)
		}
	}

	queue := syncengine.NewSyncQueue()
	return &Engine{
		config:    config,
		logger:    logger,
		publisher: publisher,
		queue:     queue,
		versions:  syncengine.NewVersionAllocator(),
		detector:  syncengine.NewConflictDetector(lookups, queue, config.ConcurrencyWindow),
		resolver:  syncengine.NewConflictResolver(config.Resolution),
		adapters:  active,
		changeLog: changeLog,
		conflicts: conflicts,
		trigger:   make(chan struct{}, 1),
	}, nil
}

// ---------------------------------------------------------------------------
// Ingestion
// ---------------------------------------------------------------------------

// Submit allocates a version, records the field-level diff in the change log
// and enqueues the event for propagation. It returns immediately; propagation
// happens on the next drain. Critical-priority events trigger an out-of-band
// drain when real-time sync is enabled.
func (e *Engine) Submit(ctx context.Context, input SubmitInput) (uuid.UUID, error) {
	version := e.versions.Next(input.TenantID, input.EntityID)

	event, err := syncengine.NewSyncEvent(
		input.Type, input.Source, input.TenantID,
		input.EntityID, input.EntityType,
		input.Before, input.After,
		input.Priority, version,
	)
	if err != nil {
		return uuid.Nil, err
	}

	entries := syncengine.DiffFields(event)
	if len(entries) > 0 {
		if err := e.changeLog.Append(ctx, entries); err != nil {
			return uuid.Nil, fmt.Errorf("append change log: %w", err)
		}
	}

	if err := e.queue.Enqueue(event); err != nil {
		return uuid.Nil, err
	}

	e.logger.Debug("sync event submitted",
		zap.String("event_id", event.ID.String()),
		zap.String("entity_id", event.EntityID),
		zap.String("type", event.Type.String()),
		zap.String("source", event.Source.String()),
		zap.Int64("version", event.Version),
		zap.Int("changed_fields", len(entries)),
	)

	if event.IsCritical() && e.config.RealtimeEnabled {
		e.TriggerDrain()
	}
	return event.ID, nil
}

// TriggerDrain requests an immediate out-of-band drain. Non-blocking; a drain
// request that is already pending is not duplicated.
func (e *Engine) TriggerDrain() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// DrainSignal exposes the out-of-band drain channel to the scheduler
func (e *Engine) DrainSignal() <-chan struct{} {
	return e.trigger
}

// Close rejects further submissions. Queued events drain normally.
func (e *Engine) Close() {
	e.queue.Close()
}

// ---------------------------------------------------------------------------
// Batch processing
// ---------------------------------------------------------------------------

// Drain processes up to BatchSize ready events sequentially. Events are popped
// one at a time so that colliding submissions still queued remain visible to
// the concurrent-update check until their own turn. Target propagation within
// a single event fans out in parallel. Drains are mutually exclusive; a call
// that overlaps a running drain returns an empty result immediately.
func (e *Engine) Drain(ctx context.Context) BatchResult {
	if !e.draining.CompareAndSwap(false, true) {
		return BatchResult{}
	}
	defer e.draining.Store(false)

	start := time.Now()
	var result BatchResult
	for result.BatchSize < e.config.BatchSize {
		popped := e.queue.PopReady(time.Now(), 1)
		if len(popped) == 0 {
			break
		}
		result.BatchSize++

		switch e.safeProcess(ctx, popped[0]) {
		case outcomeCompleted:
			result.Completed++
		case outcomeFailed:
			result.Failed++
		case outcomeConflict:
			result.Conflicted++
		case outcomeRetried:
			result.Retried++
		}
	}
	if result.BatchSize == 0 {
		return result
	}

	result.Duration = time.Since(start)
	e.recordBatch(result)

	if err := e.publisher.Publish(ctx, syncengine.NewBatchCompletedEvent(
		uuid.Nil, result.BatchSize, result.Completed, result.Failed, result.Conflicted, result.Duration,
	)); err != nil {
		e.logger.Warn("failed to publish batch completion", zap.Error(err))
	}

	e.logger.Info("sync batch drained",
		zap.Int("batch_size", result.BatchSize),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Int("conflicted", result.Conflicted),
		zap.Int("retried", result.Retried),
		zap.Duration("duration", result.Duration),
	)
	return result
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeConflict
	outcomeRetried
)

// safeProcess processes one event with panic recovery so a bad event cannot
// halt the batch.
func (e *Engine) safeProcess(ctx context.Context, event *syncengine.SyncEvent) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while processing sync event",
				zap.String("event_id", event.ID.String()),
				zap.Any("panic", r),
			)
			result = e.handleFailure(ctx, event, fmt.Errorf("panic: %v", r))
		}
	}()
	return e.processEvent(ctx, event)
}

func (e *Engine) processEvent(ctx context.Context, event *syncengine.SyncEvent) outcome {
	if err := event.MarkProcessing(); err != nil {
		e.logger.Warn("skipping event in unexpected status",
			zap.String("event_id", event.ID.String()),
			zap.String("status", event.Status.String()),
		)
		return outcomeFailed
	}

	record, err := e.detector.Detect(ctx, event)
	if err != nil {
		// Lookup unavailability is a transient failure of this event
		return e.handleFailure(ctx, event, err)
	}
	if record != nil {
		return e.handleConflict(ctx, event, record)
	}

	if err := e.propagate(ctx, event); err != nil {
		return e.handleFailure(ctx, event, err)
	}

	event.Complete()
	e.versions.Observe(event.TenantID, event.EntityID, event.Version)
	if err := e.changeLog.MarkSynced(ctx, event.ID); err != nil {
		e.logger.Warn("failed to mark change log entries synced",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
	return outcomeCompleted
}

// propagate fans out to every enabled target adapter except the event's own
// origin, joins all calls, and fails the whole event if any adapter fails.
func (e *Engine) propagate(ctx context.Context, event *syncengine.SyncEvent) error {
	targets := make([]syncengine.TargetAdapter, 0, len(e.adapters))
	for _, adapter := range e.adapters {
		if adapter.Name() != event.Source {
			targets = append(targets, adapter)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	var wg gosync.WaitGroup
	errs := make([]error, len(targets))
	for i, adapter := range targets {
		wg.Add(1)
		go func(i int, adapter syncengine.TargetAdapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.config.AdapterTimeout)
			defer cancel()
			errs[i] = adapter.Propagate(callCtx, readOnlyCopy(event))
		}(i, adapter)
	}
	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", targets[i].Name(), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", syncengine.ErrPropagationFailed, failed)
	}
	return nil
}

// readOnlyCopy hands adapters their own event copy with cloned payloads so
// they cannot mutate queue-owned state.
func readOnlyCopy(event *syncengine.SyncEvent) *syncengine.SyncEvent {
	clone := *event
	clone.Before = event.Before.Clone()
	clone.After = event.After.Clone()
	return &clone
}

func (e *Engine) handleFailure(ctx context.Context, event *syncengine.SyncEvent, cause error) outcome {
	err := event.ScheduleRetry(cause, e.config.RetryAttempts, e.config.RetryDelay)
	if errors.Is(err, syncengine.ErrRetriesExhausted) {
		e.logger.Error("sync event failed permanently",
			zap.String("event_id", event.ID.String()),
			zap.String("entity_id", event.EntityID),
			zap.Int("retry_count", event.RetryCount),
			zap.String("last_error", event.LastError),
		)
		if pubErr := e.publisher.Publish(ctx, syncengine.NewSyncEventFailedEvent(event)); pubErr != nil {
			e.logger.Warn("failed to publish event failure", zap.Error(pubErr))
		}
		return outcomeFailed
	}

	if requeueErr := e.queue.Requeue(event); requeueErr != nil {
		e.logger.Error("failed to requeue sync event",
			zap.String("event_id", event.ID.String()),
			zap.Error(requeueErr),
		)
		return outcomeFailed
	}
	e.logger.Warn("sync event scheduled for retry",
		zap.String("event_id", event.ID.String()),
		zap.Int("retry_count", event.RetryCount),
		zap.Time("ready_at", event.ReadyAt),
		zap.Error(cause),
	)
	return outcomeRetried
}

// ---------------------------------------------------------------------------
// Conflict handling
// ---------------------------------------------------------------------------

func (e *Engine) handleConflict(ctx context.Context, event *syncengine.SyncEvent, record *syncengine.ConflictRecord) outcome {
	event.MarkConflict()

	// Colliding events are consumed by the resolution; pull them out of the
	// queue so they cannot propagate independently.
	implicated := []*syncengine.SyncEvent{event}
	if record.ConflictType == syncengine.ConflictConcurrentUpdate {
		for _, id := range record.EventIDs {
			if id == event.ID {
				continue
			}
			if sibling := e.takeFromQueue(id); sibling != nil {
				sibling.MarkConflict()
				implicated = append(implicated, sibling)
			}
		}
	}

	value, strategy, err := e.resolver.Resolve(event.EntityType, syncengine.CandidatesFromEvents(implicated))
	switch {
	case err == nil:
		if resolveErr := record.Resolve(strategy, value, "system"); resolveErr != nil {
			e.logger.Error("failed to close conflict record", zap.Error(resolveErr))
		}
		if saveErr := e.conflicts.Save(ctx, record); saveErr != nil {
			e.logger.Error("failed to persist conflict record", zap.Error(saveErr))
		}
		e.publishConflict(ctx, record, true)
		if _, submitErr := e.Submit(ctx, SubmitInput{
			Type:       event.Type,
			Source:     syncengine.SourceManual,
			TenantID:   event.TenantID,
			EntityID:   event.EntityID,
			EntityType: event.EntityType,
			Before:     event.Before,
			After:      value,
			Priority:   syncengine.PriorityHigh,
		}); submitErr != nil {
			e.logger.Error("failed to resubmit reconciled event",
				zap.String("conflict_id", record.ID.String()),
				zap.Error(submitErr),
			)
		}
		e.logger.Info("conflict resolved automatically",
			zap.String("conflict_id", record.ID.String()),
			zap.String("strategy", strategy.String()),
			zap.String("entity_id", record.EntityID),
		)

	case errors.Is(err, syncengine.ErrManualReviewRequired):
		if saveErr := e.conflicts.Save(ctx, record); saveErr != nil {
			e.logger.Error("failed to persist unresolved conflict", zap.Error(saveErr))
		}
		e.publishConflict(ctx, record, false)
		e.logger.Warn("conflict deferred to manual review",
			zap.String("conflict_id", record.ID.String()),
			zap.String("conflict_type", record.ConflictType.String()),
			zap.String("entity_id", record.EntityID),
		)

	default:
		// Misconfigured automatic resolution (e.g. non-numeric merge field)
		// degrades to manual review rather than losing the conflict.
		if saveErr := e.conflicts.Save(ctx, record); saveErr != nil {
			e.logger.Error("failed to persist unresolved conflict", zap.Error(saveErr))
		}
		e.publishConflict(ctx, record, false)
		e.logger.Error("automatic conflict resolution failed, deferring to manual review",
			zap.String("conflict_id", record.ID.String()),
			zap.Error(err),
		)
	}
	return outcomeConflict
}

func (e *Engine) takeFromQueue(id uuid.UUID) *syncengine.SyncEvent {
	for _, queued := range e.queue.Snapshot() {
		if queued.ID == id {
			if e.queue.Remove(id) {
				return queued
			}
			return nil
		}
	}
	return nil
}

func (e *Engine) publishConflict(ctx context.Context, record *syncengine.ConflictRecord, autoResolved bool) {
	if err := e.publisher.Publish(ctx, syncengine.NewConflictDetectedEvent(record, autoResolved)); err != nil {
		e.logger.Warn("failed to publish conflict event", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Operator API
// ---------------------------------------------------------------------------

// ListUnresolvedConflicts returns the tenant's open conflict records
func (e *Engine) ListUnresolvedConflicts(ctx context.Context, tenantID uuid.UUID) ([]syncengine.ConflictRecord, error) {
	return e.conflicts.FindUnresolved(ctx, tenantID)
}

// ResolveManually closes an unresolved conflict with an operator-supplied
// value. Behaves identically to automatic resolution's synthesis step: a new
// high-priority event carrying the value re-enters the queue.
func (e *Engine) ResolveManually(ctx context.Context, conflictID uuid.UUID, value syncengine.Payload, resolvedBy string) error {
	record, err := e.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		return err
	}
	if err := record.Resolve(syncengine.StrategyManualReview, value, resolvedBy); err != nil {
		return err
	}
	if err := e.conflicts.Save(ctx, record); err != nil {
		return err
	}

	_, err = e.Submit(ctx, SubmitInput{
		Type:       syncengine.EventTypeEntityUpdate,
		Source:     syncengine.SourceManual,
		TenantID:   record.TenantID,
		EntityID:   record.EntityID,
		EntityType: record.EntityType,
		After:      value,
		Priority:   syncengine.PriorityHigh,
	})
	return err
}

// RollbackToVersion walks an entity back to the state captured before the
// given version, through the normal propagation path rather than a direct
// write. Fails with shared.ErrVersionNotFound when the version was never
// recorded for the entity; no event is produced in that case.
func (e *Engine) RollbackToVersion(ctx context.Context, tenantID uuid.UUID, entityID, entityType string, version int64) (uuid.UUID, error) {
	entries, err := e.changeLog.FindByEntityVersion(ctx, tenantID, entityID, version)
	if err != nil {
		return uuid.Nil, err
	}
	if len(entries) == 0 {
		return uuid.Nil, shared.ErrVersionNotFound
	}

	return e.Submit(ctx, SubmitInput{
		Type:       syncengine.EventTypeEntityUpdate,
		Source:     syncengine.SourceManual,
		TenantID:   tenantID,
		EntityID:   entityID,
		EntityType: entityType,
		After:      syncengine.RestorePayload(entries),
		Priority:   syncengine.PriorityHigh,
	})
}

// ChangeLog returns the entity's audit trail, newest first
func (e *Engine) ChangeLog(ctx context.Context, tenantID uuid.UUID, entityID string, limit int) ([]syncengine.ChangeLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return e.changeLog.FindByEntity(ctx, tenantID, entityID, limit)
}

// ---------------------------------------------------------------------------
// Stats / Health
// ---------------------------------------------------------------------------

func (e *Engine) recordBatch(result BatchResult) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.processed += int64(result.Completed + result.Failed + result.Conflicted)
	e.completed += int64(result.Completed)
	if result.Duration > 0 {
		e.lastThroughput = float64(result.BatchSize) / result.Duration.Seconds()
	}
}

// Stats derives queue depth, throughput and conflict counts for observability
func (e *Engine) Stats(ctx context.Context, tenantID uuid.UUID) (Stats, error) {
	unresolved, err := e.conflicts.CountUnresolved(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}
	logSize, err := e.changeLog.Count(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}

	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	successRate := 1.0
	if e.processed > 0 {
		successRate = float64(e.completed) / float64(e.processed)
	}
	return Stats{
		QueueSize:           e.queue.Size(),
		UnresolvedConflicts: unresolved,
		ChangeLogSize:       logSize,
		Throughput:          e.lastThroughput,
		SuccessRate:         successRate,
	}, nil
}

// Health reports the engine's health verdict. Excess unresolved conflicts
// take precedence over queue depth warnings.
func (e *Engine) Health(ctx context.Context, tenantID uuid.UUID) (Health, error) {
	unresolved, err := e.conflicts.CountUnresolved(ctx, tenantID)
	if err != nil {
		return Health{}, err
	}

	health := Health{
		Status:        HealthHealthy,
		QueueSize:     e.queue.Size(),
		ConflictCount: unresolved,
	}
	switch {
	case unresolved > e.config.ConflictErrorCount:
		health.Status = HealthError
	case health.QueueSize > e.config.QueueWarningDepth:
		health.Status = HealthWarning
	}
	return health, nil
}

// QueueSize returns the current queue depth
func (e *Engine) QueueSize() int {
	return e.queue.Size()
}
