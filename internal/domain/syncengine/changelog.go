package syncengine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChangeLogEntry is one row per changed field per event. Entries are
// append-only and never mutated after creation; they form the basis for
// rollback-to-version.
type ChangeLogEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityID   string    `gorm:"not null;index:idx_change_log_entity_version,priority:1"`
	EntityType string    `gorm:"not null"`
	Field      string    `gorm:"not null"`
	OldValue   string
	NewValue   string
	Source     Source    `gorm:"not null"`
	Timestamp  time.Time `gorm:"not null"`
	Version    int64     `gorm:"not null;index:idx_change_log_entity_version,priority:2"`
	Synced     bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ChangeLogEntry) TableName() string {
	return "change_log_entries"
}

// DiffFields computes one ChangeLogEntry per field that differs between the
// before and after snapshots of the given event. Fields present only in
// before are recorded as removals (empty new value); fields present only in
// after as additions. Identical snapshots yield no entries.
func DiffFields(event *SyncEvent) []ChangeLogEntry {
	fields := make(map[string]struct{}, len(event.Before)+len(event.After))
	for k := range event.Before {
		fields[k] = struct{}{}
	}
	for k := range event.After {
		fields[k] = struct{}{}
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	entries := make([]ChangeLogEntry, 0, len(names))
	for _, field := range names {
		oldVal, hadOld := event.Before[field]
		newVal, hasNew := event.After[field]
		if hadOld && hasNew && stringify(oldVal) == stringify(newVal) {
			continue
		}

		entry := ChangeLogEntry{
			ID:         uuid.New(),
			EventID:    event.ID,
			TenantID:   event.TenantID,
			EntityID:   event.EntityID,
			EntityType: event.EntityType,
			Field:      field,
			Source:     event.Source,
			Timestamp:  event.Timestamp,
			Version:    event.Version,
		}
		if hadOld {
			entry.OldValue = stringify(oldVal)
		}
		if hasNew {
			entry.NewValue = stringify(newVal)
		}
		entries = append(entries, entry)
	}
	return entries
}

// RestorePayload rebuilds the entity snapshot captured before the given
// version was applied, from the change log entries recorded at that version.
func RestorePayload(entries []ChangeLogEntry) Payload {
	payload := make(Payload, len(entries))
	for _, entry := range entries {
		payload[entry.Field] = entry.OldValue
	}
	return payload
}

// stringify renders a payload value for storage. Values round-trip as their
// default Go formatting; rollback replays them as strings, which targets
// coerce on their side the same way they coerce inbound payloads.
func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
