package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appsync "github.com/ElGueydelCalzado/backend-app-sub002/internal/application/syncengine"
)

// SyncScheduler drives the engine's batch processor. A single goroutine owns
// the drain loop: it fires on the configured interval and on the engine's
// out-of-band trigger (critical-priority submissions). The engine itself
// rejects overlapping drains, so a trigger that lands mid-drain is coalesced.
type SyncScheduler struct {
	engine   *appsync.Engine
	interval time.Duration
	logger   *zap.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a scheduler over the given engine
func NewSyncScheduler(engine *appsync.Engine, interval time.Duration, logger *zap.Logger) (*SyncScheduler, error) {
	if interval <= 0 {
		return nil, ErrInvalidConfig
	}
	return &SyncScheduler{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}, nil
}

// Start launches the drain loop
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerAlreadyRunning
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)

	s.logger.Info("sync scheduler started",
		zap.Duration("interval", s.interval),
	)
	return nil
}

// Stop halts future ticks. A drain already in progress finishes its current
// batch before the scheduler goes idle.
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *SyncScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sync scheduler loop exiting")
			return
		case <-ticker.C:
			s.drain(ctx, "tick")
		case <-s.engine.DrainSignal():
			s.drain(ctx, "realtime")
		}
	}
}

func (s *SyncScheduler) drain(ctx context.Context, reason string) {
	result := s.engine.Drain(ctx)
	if result.BatchSize == 0 {
		return
	}
	s.logger.Debug("drain cycle finished",
		zap.String("reason", reason),
		zap.Int("batch_size", result.BatchSize),
		zap.Duration("duration", result.Duration),
	)
}
