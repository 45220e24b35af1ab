package syncengine

import (
	gosync "sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestVersionAllocatorNext(t *testing.T) {
	allocator := NewVersionAllocator()
	tenantID := uuid.New()

	t.Run("first allocation is one", func(t *testing.T) {
		assert.Equal(t, int64(1), allocator.Next(tenantID, "sku-1"))
	})

	t.Run("versions are per entity", func(t *testing.T) {
		assert.Equal(t, int64(2), allocator.Next(tenantID, "sku-1"))
		assert.Equal(t, int64(1), allocator.Next(tenantID, "sku-2"))
	})

	t.Run("versions are per tenant", func(t *testing.T) {
		otherTenant := uuid.New()
		assert.Equal(t, int64(1), allocator.Next(otherTenant, "sku-1"))
		assert.Equal(t, int64(2), allocator.Current(tenantID, "sku-1"), "other tenant's allocation must not advance this tenant")
	})

	t.Run("current reflects last issued", func(t *testing.T) {
		assert.Equal(t, int64(2), allocator.Current(tenantID, "sku-1"))
		assert.Zero(t, allocator.Current(tenantID, "never-seen"))
		assert.Zero(t, allocator.Current(uuid.New(), "sku-1"))
	})
}

func TestVersionAllocatorObserve(t *testing.T) {
	allocator := NewVersionAllocator()
	tenantID := uuid.New()
	allocator.Observe(tenantID, "sku-1", 7)

	assert.Equal(t, int64(7), allocator.Current(tenantID, "sku-1"))
	assert.Equal(t, int64(8), allocator.Next(tenantID, "sku-1"))

	// Observing an older version never lowers the counter
	allocator.Observe(tenantID, "sku-1", 3)
	assert.Equal(t, int64(8), allocator.Current(tenantID, "sku-1"))

	// An observation is scoped to its tenant
	assert.Zero(t, allocator.Current(uuid.New(), "sku-1"))
}

func TestVersionAllocatorConcurrent(t *testing.T) {
	allocator := NewVersionAllocator()
	tenantID := uuid.New()
	const goroutines = 50
	const perGoroutine = 20

	seen := make(chan int64, goroutines*perGoroutine)
	var wg gosync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- allocator.Next(tenantID, "sku-1")
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]struct{}, goroutines*perGoroutine)
	for v := range seen {
		_, dup := unique[v]
		assert.False(t, dup, "version %d issued twice", v)
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), allocator.Current(tenantID, "sku-1"))
}
