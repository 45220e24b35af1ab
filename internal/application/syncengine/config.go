package syncengine

import (
	"errors"
	"time"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// ErrInvalidConfig indicates an invalid engine configuration
var ErrInvalidConfig = errors.New("syncengine: invalid engine configuration")

// Config holds process-wide engine configuration. It is loaded once at
// startup and never mutated during a run.
type Config struct {
	// BatchSize is the maximum number of events drained per cycle
	BatchSize int
	// SyncInterval is the scheduler tick between drains
	SyncInterval time.Duration
	// RetryAttempts is the number of propagation attempts before an event
	// fails permanently
	RetryAttempts int
	// RetryDelay is the linear backoff factor between retries
	// (delay = RetryDelay * retryCount)
	RetryDelay time.Duration
	// ConcurrencyWindow is the timestamp window for concurrent-update detection
	ConcurrencyWindow time.Duration
	// AdapterTimeout bounds every individual target adapter call
	AdapterTimeout time.Duration
	// RealtimeEnabled lets critical-priority events trigger an immediate
	// out-of-band drain instead of waiting for the next tick
	RealtimeEnabled bool
	// EnabledTargets lists the destination systems events propagate to
	EnabledTargets []syncengine.Source
	// SourcePriority is the global trust ordering of origins
	SourcePriority []syncengine.Source
	// Resolution configures the conflict strategy per entity type;
	// unconfigured entity types default to manual review
	Resolution map[string]syncengine.ResolutionConfig
	// QueueWarningDepth is the queue size above which health degrades to warning
	QueueWarningDepth int
	// ConflictErrorCount is the unresolved-conflict count above which health
	// degrades to error
	ConflictErrorCount int64
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:         50,
		SyncInterval:      5 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        time.Second,
		ConcurrencyWindow: syncengine.DefaultConcurrencyWindow,
		AdapterTimeout:    10 * time.Second,
		RealtimeEnabled:   true,
		EnabledTargets: []syncengine.Source{
			syncengine.SourceLocal,
			syncengine.SourceShopify,
			syncengine.SourceMercadoLibre,
		},
		SourcePriority: []syncengine.Source{
			syncengine.SourceLocal,
			syncengine.SourceShopify,
			syncengine.SourceMercadoLibre,
		},
		Resolution:         make(map[string]syncengine.ResolutionConfig),
		QueueWarningDepth:  1000,
		ConflictErrorCount: 50,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return ErrInvalidConfig
	}
	if c.SyncInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryDelay < 0 {
		return ErrInvalidConfig
	}
	if c.AdapterTimeout <= 0 {
		return ErrInvalidConfig
	}
	if len(c.EnabledTargets) == 0 {
		return ErrInvalidConfig
	}
	for _, target := range c.EnabledTargets {
		if !target.IsTarget() {
			return ErrInvalidConfig
		}
	}
	for entityType, resolution := range c.Resolution {
		if entityType == "" || !resolution.Strategy.IsValid() {
			return ErrInvalidConfig
		}
		for _, rule := range resolution.MergeRules {
			if !rule.IsValid() {
				return ErrInvalidConfig
			}
		}
	}
	return nil
}
