package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// SubmitSyncEventRequest carries a proposed entity mutation
type SubmitSyncEventRequest struct {
	Type       string         `json:"type" binding:"required,oneof=inventory-update price-change entity-create entity-update entity-delete"`
	Source     string         `json:"source" binding:"required,oneof=local shopify mercadolibre manual"`
	EntityID   string         `json:"entity_id" binding:"required"`
	EntityType string         `json:"entity_type" binding:"required"`
	Before     map[string]any `json:"before"`
	After      map[string]any `json:"after"`
	Priority   string         `json:"priority" binding:"omitempty,oneof=low medium high critical"`
}

// SubmitSyncEventResponse acknowledges an accepted sync event
type SubmitSyncEventResponse struct {
	EventID uuid.UUID `json:"event_id"`
}

// RollbackRequest asks for an entity to be walked back to an earlier version
type RollbackRequest struct {
	EntityID   string `json:"entity_id" binding:"required"`
	EntityType string `json:"entity_type" binding:"required"`
	Version    int64  `json:"version" binding:"gt=0"`
}

// ResolveConflictRequest carries an operator's resolution for an open conflict
type ResolveConflictRequest struct {
	Value      map[string]any `json:"value" binding:"required"`
	ResolvedBy string         `json:"resolved_by" binding:"required"`
}

// ChangeLogEntryResponse is one field-level change in an entity's audit trail
type ChangeLogEntryResponse struct {
	EventID    uuid.UUID `json:"event_id"`
	EntityID   string    `json:"entity_id"`
	EntityType string    `json:"entity_type"`
	Field      string    `json:"field"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Version    int64     `json:"version"`
	Synced     bool      `json:"synced"`
}

// toChangeLogResponse maps change log entries for the API
func toChangeLogResponse(entries []syncengine.ChangeLogEntry) []ChangeLogEntryResponse {
	out := make([]ChangeLogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ChangeLogEntryResponse{
			EventID:    entry.EventID,
			EntityID:   entry.EntityID,
			EntityType: entry.EntityType,
			Field:      entry.Field,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			Source:     entry.Source.String(),
			Timestamp:  entry.Timestamp,
			Version:    entry.Version,
			Synced:     entry.Synced,
		})
	}
	return out
}

// ResolutionResponse describes how a conflict was closed
type ResolutionResponse struct {
	Strategy      string         `json:"strategy"`
	ResolvedValue map[string]any `json:"resolved_value,omitempty"`
	ResolvedBy    string         `json:"resolved_by"`
	ResolvedAt    time.Time      `json:"resolved_at"`
}

// ConflictResponse is one conflict ledger record
type ConflictResponse struct {
	ID                uuid.UUID           `json:"id"`
	EventIDs          []uuid.UUID         `json:"event_ids"`
	EntityID          string              `json:"entity_id"`
	EntityType        string              `json:"entity_type"`
	ConflictType      string              `json:"conflict_type"`
	ConflictingValues []map[string]any    `json:"conflicting_values"`
	Sources           []string            `json:"sources"`
	Timestamp         time.Time           `json:"timestamp"`
	Status            string              `json:"status"`
	Resolution        *ResolutionResponse `json:"resolution,omitempty"`
}

// toConflictResponse maps a conflict record for the API
func toConflictResponse(record syncengine.ConflictRecord) ConflictResponse {
	resp := ConflictResponse{
		ID:           record.ID,
		EventIDs:     record.EventIDs,
		EntityID:     record.EntityID,
		EntityType:   record.EntityType,
		ConflictType: record.ConflictType.String(),
		Timestamp:    record.Timestamp,
		Status:       record.Status.String(),
	}
	for _, value := range record.ConflictingValues {
		resp.ConflictingValues = append(resp.ConflictingValues, value)
	}
	for _, source := range record.Sources {
		resp.Sources = append(resp.Sources, source.String())
	}
	if record.Resolution != nil {
		resp.Resolution = &ResolutionResponse{
			Strategy:      record.Resolution.Strategy.String(),
			ResolvedValue: record.Resolution.ResolvedValue,
			ResolvedBy:    record.Resolution.ResolvedBy,
			ResolvedAt:    record.Resolution.ResolvedAt,
		}
	}
	return resp
}

func toConflictListResponse(records []syncengine.ConflictRecord) []ConflictResponse {
	out := make([]ConflictResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toConflictResponse(record))
	}
	return out
}
