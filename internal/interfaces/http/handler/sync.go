package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/ElGueydelCalzado/backend-app-sub002/internal/application/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/interfaces/http/dto"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/interfaces/http/middleware"
)

// SyncService is the application surface the HTTP layer drives
type SyncService interface {
	Submit(ctx context.Context, input appsync.SubmitInput) (uuid.UUID, error)
	RollbackToVersion(ctx context.Context, tenantID uuid.UUID, entityID, entityType string, version int64) (uuid.UUID, error)
	ChangeLog(ctx context.Context, tenantID uuid.UUID, entityID string, limit int) ([]syncengine.ChangeLogEntry, error)
	ListUnresolvedConflicts(ctx context.Context, tenantID uuid.UUID) ([]syncengine.ConflictRecord, error)
	ResolveManually(ctx context.Context, conflictID uuid.UUID, value syncengine.Payload, resolvedBy string) error
	Stats(ctx context.Context, tenantID uuid.UUID) (appsync.Stats, error)
	Health(ctx context.Context, tenantID uuid.UUID) (appsync.Health, error)
}

// SyncHandler handles sync engine API endpoints
type SyncHandler struct {
	BaseHandler
	service SyncService
	logger  *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{service: service, logger: logger}
}

// RegisterRoutes registers sync routes on the API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/events", h.SubmitEvent)
		sync.POST("/rollback", h.Rollback)
		sync.GET("/changelog/:entityId", h.GetChangeLog)
		sync.GET("/conflicts", h.ListConflicts)
		sync.POST("/conflicts/:id/resolve", h.ResolveConflict)
		sync.GET("/stats", h.GetStats)
		sync.GET("/health", h.GetHealth)
	}
}

// SubmitEvent accepts a proposed mutation and enqueues it for propagation.
// Returns 202: processing happens on the next drain, not in-request.
func (h *SyncHandler) SubmitEvent(c *gin.Context) {
	var req SubmitSyncEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	eventID, err := h.service.Submit(c.Request.Context(), appsync.SubmitInput{
		Type:       syncengine.SyncEventType(req.Type),
		Source:     syncengine.Source(req.Source),
		TenantID:   tenantID,
		EntityID:   req.EntityID,
		EntityType: req.EntityType,
		Before:     req.Before,
		After:      req.After,
		Priority:   syncengine.SyncPriority(req.Priority),
	})
	if err != nil {
		h.logger.Warn("sync event rejected",
			zap.String("entity_id", req.EntityID),
			zap.Error(err),
		)
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
		return
	}

	h.Accepted(c, SubmitSyncEventResponse{EventID: eventID})
}

// Rollback walks an entity back to the state recorded before the given
// version. The rollback travels the normal propagation path.
func (h *SyncHandler) Rollback(c *gin.Context) {
	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	eventID, err := h.service.RollbackToVersion(c.Request.Context(), tenantID, req.EntityID, req.EntityType, req.Version)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("rollback submitted",
		zap.String("entity_id", req.EntityID),
		zap.Int64("version", req.Version),
		zap.String("event_id", eventID.String()),
	)
	h.Accepted(c, SubmitSyncEventResponse{EventID: eventID})
}

// GetChangeLog returns the entity's field-level audit trail, newest first
func (h *SyncHandler) GetChangeLog(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" {
		h.BadRequest(c, "Entity ID is required")
		return
	}

	var query dto.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entries, err := h.service.ChangeLog(c.Request.Context(), tenantID, entityID, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toChangeLogResponse(entries))
}

// ListConflicts returns the tenant's open conflict records
func (h *SyncHandler) ListConflicts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	records, err := h.service.ListUnresolvedConflicts(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConflictListResponse(records))
}

// ResolveConflict closes an open conflict with an operator-supplied value
func (h *SyncHandler) ResolveConflict(c *gin.Context) {
	var id dto.IDRequest
	if err := c.ShouldBindUri(&id); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	var req ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	conflictID, err := uuid.Parse(id.ID)
	if err != nil {
		h.BadRequest(c, "Invalid conflict ID")
		return
	}

	if err := h.service.ResolveManually(c.Request.Context(), conflictID, req.Value, req.ResolvedBy); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("conflict resolved manually",
		zap.String("conflict_id", conflictID.String()),
		zap.String("resolved_by", req.ResolvedBy),
	)
	h.NoContent(c)
}

// GetStats returns engine throughput and backlog counters
func (h *SyncHandler) GetStats(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// GetHealth returns the engine's health verdict. The HTTP status mirrors the
// verdict so load balancers can probe this endpoint directly.
func (h *SyncHandler) GetHealth(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	health, err := h.service.Health(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if health.Status == appsync.HealthError {
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(health))
		return
	}
	h.Success(c, health)
}
