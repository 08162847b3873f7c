package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

type leadStore struct {
	db DBTX
}

const findLeadByTitleAndContact = `
SELECT id, title, status, contact_id, owner_id, created_at, updated_at
FROM leads
WHERE contact_id = $1 AND lower(title) = lower($2)
`

func (s *leadStore) FindByTitleAndContact(ctx context.Context, title string, contactID uuid.UUID) (store.Lead, error) {
	row := s.db.QueryRow(ctx, findLeadByTitleAndContact, contactID, title)
	return scanLead(row)
}

const createLead = `
INSERT INTO leads (title, status, contact_id, owner_id)
VALUES ($1, $2, $3, $4)
RETURNING id, title, status, contact_id, owner_id, created_at, updated_at
`

func (s *leadStore) Create(ctx context.Context, params store.CreateLeadParams) (store.Lead, error) {
	row := s.db.QueryRow(ctx, createLead, params.Title, string(params.Status), params.ContactID, params.OwnerID)
	return scanLead(row)
}

const updateLead = `
UPDATE leads
SET status = $2, owner_id = $3, updated_at = now()
WHERE id = $1
RETURNING id, title, status, contact_id, owner_id, created_at, updated_at
`

func (s *leadStore) Update(ctx context.Context, params store.UpdateLeadParams) (store.Lead, error) {
	row := s.db.QueryRow(ctx, updateLead, params.ID, string(params.Status), params.OwnerID)
	return scanLead(row)
}

func scanLead(row rowScanner) (store.Lead, error) {
	var lead store.Lead
	var status string
	err := row.Scan(
		&lead.ID,
		&lead.Title,
		&status,
		&lead.ContactID,
		&lead.OwnerID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return store.Lead{}, translateErr(err)
	}
	lead.Status = store.LeadStatus(status)
	return lead, nil
}
