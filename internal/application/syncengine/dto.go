package syncengine

import (
	"time"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
	"github.com/google/uuid"
)

// SubmitInput carries a proposed mutation into the engine
type SubmitInput struct {
	Type       syncengine.SyncEventType
	Source     syncengine.Source
	TenantID   uuid.UUID
	EntityID   string
	EntityType string
	Before     syncengine.Payload
	After      syncengine.Payload
	Priority   syncengine.SyncPriority
}

// BatchResult summarizes one drain cycle
type BatchResult struct {
	BatchSize  int
	Completed  int
	Failed     int
	Conflicted int
	Retried    int
	Duration   time.Duration
}

// Stats is the engine's observability snapshot
type Stats struct {
	QueueSize           int     `json:"queue_size"`
	UnresolvedConflicts int64   `json:"unresolved_conflicts"`
	ChangeLogSize       int64   `json:"change_log_size"`
	Throughput          float64 `json:"throughput"`
	SuccessRate         float64 `json:"success_rate"`
}

// HealthStatus is the engine's health verdict
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
)

// Health reports queue depth and conflict pressure for operator tooling
type Health struct {
	Status        HealthStatus `json:"status"`
	QueueSize     int          `json:"queue_size"`
	ConflictCount int64        `json:"conflict_count"`
}
