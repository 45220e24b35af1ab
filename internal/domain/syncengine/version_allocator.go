package syncengine

import (
	gosync "sync"

	"github.com/google/uuid"
)

// entityKey scopes version counters to a tenant's entity. Two tenants tracking
// the same SKU get independent version sequences.
type entityKey struct {
	tenantID uuid.UUID
	entityID string
}

// VersionAllocator issues a monotonically increasing per-entity version number
// for every incoming change. Allocation is atomic per call: no gaps, no reuse,
// safe under concurrent issuance for the same entity. The first allocation for
// an unseen entity returns 1.
type VersionAllocator struct {
	mu   gosync.Mutex
	last map[entityKey]int64
}

// NewVersionAllocator creates an empty allocator
func NewVersionAllocator() *VersionAllocator {
	return &VersionAllocator{
		last: make(map[entityKey]int64),
	}
}

// Next increments and returns the version for the tenant's entity
func (a *VersionAllocator) Next(tenantID uuid.UUID, entityID string) int64 {
	key := entityKey{tenantID: tenantID, entityID: entityID}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last[key]++
	return a.last[key]
}

// Current returns the last issued version for the tenant's entity, zero if unseen
func (a *VersionAllocator) Current(tenantID uuid.UUID, entityID string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last[entityKey{tenantID: tenantID, entityID: entityID}]
}

// Observe raises the entity's counter to at least the given version, so
// versions learned from external sources are never reissued locally.
func (a *VersionAllocator) Observe(tenantID uuid.UUID, entityID string, version int64) {
	key := entityKey{tenantID: tenantID, entityID: entityID}
	a.mu.Lock()
	defer a.mu.Unlock()
	if version > a.last[key] {
		a.last[key] = version
	}
}
