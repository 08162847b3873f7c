package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

type opportunityStore struct {
	db DBTX
}

const opportunityColumns = `id, title, lead_id, customer_id, owner_id, type, stage, value_cents, recurring, close_date, description, created_at, updated_at`

const findOpportunityByLeadAndTitle = `
SELECT ` + opportunityColumns + `
FROM opportunities
WHERE lead_id = $1 AND lower(title) = lower($2)
`

func (s *opportunityStore) FindByLeadAndTitle(ctx context.Context, leadID uuid.UUID, title string) (store.Opportunity, error) {
	row := s.db.QueryRow(ctx, findOpportunityByLeadAndTitle, leadID, title)
	return scanOpportunity(row)
}

const createOpportunity = `
INSERT INTO opportunities (title, lead_id, customer_id, owner_id, type, stage, value_cents, recurring, close_date, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + opportunityColumns

func (s *opportunityStore) Create(ctx context.Context, params store.CreateOpportunityParams) (store.Opportunity, error) {
	row := s.db.QueryRow(ctx, createOpportunity,
		params.Title,
		params.LeadID,
		params.CustomerID,
		params.OwnerID,
		string(params.Type),
		params.Stage,
		params.ValueCents,
		params.Recurring,
		params.CloseDate,
		params.Description,
	)
	return scanOpportunity(row)
}

const updateOpportunity = `
UPDATE opportunities
SET customer_id = $2, owner_id = $3, type = $4, stage = $5, value_cents = $6,
    recurring = $7, close_date = $8, description = $9, updated_at = now()
WHERE id = $1
RETURNING ` + opportunityColumns

func (s *opportunityStore) Update(ctx context.Context, params store.UpdateOpportunityParams) (store.Opportunity, error) {
	row := s.db.QueryRow(ctx, updateOpportunity,
		params.ID,
		params.CustomerID,
		params.OwnerID,
		string(params.Type),
		params.Stage,
		params.ValueCents,
		params.Recurring,
		params.CloseDate,
		params.Description,
	)
	return scanOpportunity(row)
}

func scanOpportunity(row rowScanner) (store.Opportunity, error) {
	var opp store.Opportunity
	var oppType string
	err := row.Scan(
		&opp.ID,
		&opp.Title,
		&opp.LeadID,
		&opp.CustomerID,
		&opp.OwnerID,
		&oppType,
		&opp.Stage,
		&opp.ValueCents,
		&opp.Recurring,
		&opp.CloseDate,
		&opp.Description,
		&opp.CreatedAt,
		&opp.UpdatedAt,
	)
	if err != nil {
		return store.Opportunity{}, translateErr(err)
	}
	opp.Type = store.OpportunityType(oppType)
	return opp, nil
}
