package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/ElGueydelCalzado/backend-app-sub002/internal/application/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// stubSyncService records calls and returns canned responses
type stubSyncService struct {
	submitInput   appsync.SubmitInput
	submitErr     error
	rollbackErr   error
	resolveErr    error
	resolvedID    uuid.UUID
	resolvedValue syncengine.Payload
	changeLog     []syncengine.ChangeLogEntry
	conflicts     []syncengine.ConflictRecord
	health        appsync.Health
	eventID       uuid.UUID
}

func (s *stubSyncService) Submit(_ context.Context, input appsync.SubmitInput) (uuid.UUID, error) {
	s.submitInput = input
	if s.submitErr != nil {
		return uuid.Nil, s.submitErr
	}
	return s.eventID, nil
}

func (s *stubSyncService) RollbackToVersion(_ context.Context, _ uuid.UUID, _, _ string, _ int64) (uuid.UUID, error) {
	if s.rollbackErr != nil {
		return uuid.Nil, s.rollbackErr
	}
	return s.eventID, nil
}

func (s *stubSyncService) ChangeLog(_ context.Context, _ uuid.UUID, _ string, _ int) ([]syncengine.ChangeLogEntry, error) {
	return s.changeLog, nil
}

func (s *stubSyncService) ListUnresolvedConflicts(_ context.Context, _ uuid.UUID) ([]syncengine.ConflictRecord, error) {
	return s.conflicts, nil
}

func (s *stubSyncService) ResolveManually(_ context.Context, conflictID uuid.UUID, value syncengine.Payload, _ string) error {
	s.resolvedID = conflictID
	s.resolvedValue = value
	return s.resolveErr
}

func (s *stubSyncService) Stats(_ context.Context, _ uuid.UUID) (appsync.Stats, error) {
	return appsync.Stats{QueueSize: 3, SuccessRate: 1.0}, nil
}

func (s *stubSyncService) Health(_ context.Context, _ uuid.UUID) (appsync.Health, error) {
	return s.health, nil
}

func newSyncTestRouter(service SyncService) *gin.Engine {
	router := gin.New()
	handler := NewSyncHandler(service, zap.NewNop())
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSyncHandler_SubmitEvent(t *testing.T) {
	service := &stubSyncService{eventID: uuid.New()}
	router := newSyncTestRouter(service)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/events", gin.H{
		"type":        "inventory-update",
		"source":      "shopify",
		"entity_id":   "sku-1",
		"entity_type": "product",
		"after":       gin.H{"quantity": 5},
		"priority":    "high",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), service.eventID.String())
	assert.Equal(t, syncengine.EventTypeInventoryUpdate, service.submitInput.Type)
	assert.Equal(t, syncengine.SourceShopify, service.submitInput.Source)
	assert.Equal(t, syncengine.PriorityHigh, service.submitInput.Priority)
	assert.Equal(t, defaultTenantID, service.submitInput.TenantID, "missing header falls back to default tenant")
}

func TestSyncHandler_SubmitEvent_ValidationFailure(t *testing.T) {
	router := newSyncTestRouter(&stubSyncService{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/events", gin.H{
		"type":   "teleport",
		"source": "shopify",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
}

func TestSyncHandler_SubmitEvent_TenantHeader(t *testing.T) {
	service := &stubSyncService{eventID: uuid.New()}
	router := newSyncTestRouter(service)
	tenantID := uuid.New()

	body, err := json.Marshal(gin.H{
		"type":        "price-change",
		"source":      "local",
		"entity_id":   "sku-2",
		"entity_type": "product",
		"after":       gin.H{"price": 99.0},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, tenantID, service.submitInput.TenantID)
}

func TestSyncHandler_Rollback(t *testing.T) {
	service := &stubSyncService{eventID: uuid.New()}
	router := newSyncTestRouter(service)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/rollback", gin.H{
		"entity_id":   "sku-1",
		"entity_type": "product",
		"version":     3,
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSyncHandler_Rollback_VersionNotFound(t *testing.T) {
	service := &stubSyncService{rollbackErr: shared.ErrVersionNotFound}
	router := newSyncTestRouter(service)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/rollback", gin.H{
		"entity_id":   "sku-1",
		"entity_type": "product",
		"version":     99,
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestSyncHandler_Rollback_RejectsZeroVersion(t *testing.T) {
	router := newSyncTestRouter(&stubSyncService{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/rollback", gin.H{
		"entity_id":   "sku-1",
		"entity_type": "product",
		"version":     0,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_GetChangeLog(t *testing.T) {
	service := &stubSyncService{
		changeLog: []syncengine.ChangeLogEntry{
			{
				ID:         uuid.New(),
				EventID:    uuid.New(),
				TenantID:   defaultTenantID,
				EntityID:   "sku-1",
				EntityType: "product",
				Field:      "quantity",
				OldValue:   "3",
				NewValue:   "5",
				Source:     syncengine.SourceShopify,
				Timestamp:  time.Now(),
				Version:    2,
				Synced:     true,
			},
		},
	}
	router := newSyncTestRouter(service)

	w := doJSON(t, router, http.MethodGet, "/api/v1/sync/changelog/sku-1?limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"quantity"`)
	assert.Contains(t, w.Body.String(), `"source":"shopify"`)
}

func TestSyncHandler_ListConflicts(t *testing.T) {
	tenantID := uuid.New()
	eventA, err := syncengine.NewSyncEvent(
		syncengine.EventTypeInventoryUpdate, syncengine.SourceShopify, tenantID,
		"sku-1", "product", nil, syncengine.Payload{"quantity": 5}, syncengine.PriorityMedium, 1,
	)
	require.NoError(t, err)
	eventB, err := syncengine.NewSyncEvent(
		syncengine.EventTypeInventoryUpdate, syncengine.SourceMercadoLibre, tenantID,
		"sku-1", "product", nil, syncengine.Payload{"quantity": 7}, syncengine.PriorityMedium, 2,
	)
	require.NoError(t, err)

	record := syncengine.NewConflictRecord(syncengine.ConflictConcurrentUpdate,
		[]*syncengine.SyncEvent{eventA, eventB})

	service := &stubSyncService{conflicts: []syncengine.ConflictRecord{*record}}
	router := newSyncTestRouter(service)

	w := doJSON(t, router, http.MethodGet, "/api/v1/sync/conflicts", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conflict_type":"concurrent-update"`)
	assert.Contains(t, w.Body.String(), `"status":"unresolved"`)
}

func TestSyncHandler_ResolveConflict(t *testing.T) {
	service := &stubSyncService{}
	router := newSyncTestRouter(service)
	conflictID := uuid.New()

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/conflicts/"+conflictID.String()+"/resolve", gin.H{
		"value":       gin.H{"quantity": 6},
		"resolved_by": "ops@egdc",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, conflictID, service.resolvedID)
	assert.EqualValues(t, 6, service.resolvedValue["quantity"])
}

func TestSyncHandler_ResolveConflict_NotFound(t *testing.T) {
	service := &stubSyncService{resolveErr: shared.ErrNotFound}
	router := newSyncTestRouter(service)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/conflicts/"+uuid.NewString()+"/resolve", gin.H{
		"value":       gin.H{"quantity": 6},
		"resolved_by": "ops@egdc",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncHandler_ResolveConflict_InvalidID(t *testing.T) {
	router := newSyncTestRouter(&stubSyncService{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/conflicts/not-a-uuid/resolve", gin.H{
		"value":       gin.H{"quantity": 6},
		"resolved_by": "ops@egdc",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_GetStats(t *testing.T) {
	router := newSyncTestRouter(&stubSyncService{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/sync/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queue_size":3`)
}

func TestSyncHandler_GetHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		service := &stubSyncService{health: appsync.Health{Status: appsync.HealthHealthy}}
		router := newSyncTestRouter(service)

		w := doJSON(t, router, http.MethodGet, "/api/v1/sync/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	})

	t.Run("error verdict returns 503", func(t *testing.T) {
		service := &stubSyncService{health: appsync.Health{Status: appsync.HealthError, ConflictCount: 80}}
		router := newSyncTestRouter(service)

		w := doJSON(t, router, http.MethodGet, "/api/v1/sync/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"error"`)
	})
}
