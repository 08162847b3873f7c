// Package audit records who did what to which entity. Import runs write an
// entry per lifecycle step so a bad import can be traced back to its upload.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

type Logger struct {
	store store.AuditStore
}

func NewLogger(s store.AuditStore) *Logger {
	return &Logger{store: s}
}

type Entry struct {
	UserEmail  string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  string
	Metadata   map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	record := store.AuditEntry{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
	}
	if entry.UserEmail != "" {
		record.UserEmail = &entry.UserEmail
	}
	if entry.RequestID != "" {
		record.RequestID = &entry.RequestID
	}

	if err := l.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
