package postgres

import (
	"context"

	"github.com/lumacrm/api/internal/store"
)

type auditStore struct {
	db DBTX
}

const insertAuditLog = `
INSERT INTO audit_logs (user_email, action, entity_type, entity_id, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::jsonb))
`

func (s *auditStore) Insert(ctx context.Context, entry store.AuditEntry) error {
	_, err := s.db.Exec(ctx, insertAuditLog,
		entry.UserEmail,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.RequestID,
		entry.Metadata,
	)
	return err
}
