package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

// RowOutcome classifies what a successfully processed row did to its
// opportunity.
type RowOutcome string

const (
	RowCreated RowOutcome = "created"
	RowUpdated RowOutcome = "updated"
	RowSkipped RowOutcome = "skipped"
)

// rowValues reads a row's cells through the job's field mapping, so the rest
// of the pipeline speaks target field keys instead of source column names.
type rowValues struct {
	mapping store.FieldMapping
	row     map[string]string
}

func (v rowValues) get(field string) string {
	column, ok := v.mapping[field]
	if !ok {
		return ""
	}
	return v.row[column]
}

// executeOptions are the job-level knobs for a run. The default owner and
// customer are validated before the first row, so executeRow may trust them.
type executeOptions struct {
	DefaultStage      string
	DefaultOwnerID    *uuid.UUID
	DefaultCustomerID *uuid.UUID
	ManualMatches     map[string]uuid.UUID
	UpdateExisting    bool
}

// rowResult reports a processed row plus the entities that were created in
// its transaction. Those are cached only after the transaction commits; a
// rolled-back row must not poison the run caches.
type rowResult struct {
	Outcome        RowOutcome
	Contact        store.Contact
	ContactCreated bool
	Lead           store.Lead
	LeadCreated    bool
}

// executeRow performs all writes for one spreadsheet row against st, which
// the caller has already scoped to a transaction. Errors of type rowError
// fail just this row; anything else aborts the whole run.
func executeRow(ctx context.Context, st store.Store, rc *resolutionContext, values rowValues, opts executeOptions) (rowResult, error) {
	title := strings.TrimSpace(values.get(FieldTitle))
	if title == "" {
		return rowResult{}, rowErrorf("opportunity title is required")
	}

	contact, contactCreated, err := resolveContact(ctx, st, rc, values)
	if err != nil {
		return rowResult{}, err
	}

	ownerID := opts.DefaultOwnerID
	if email := strings.TrimSpace(values.get(FieldOwnerEmail)); email != "" {
		ownerID, err = resolveOwner(ctx, st, rc, email)
		if err != nil {
			return rowResult{}, err
		}
	}

	customerID, err := resolveCustomer(ctx, st, rc,
		values.get(FieldCustomerEmail), values.get(FieldCustomerName),
		opts.DefaultCustomerID, opts.ManualMatches)
	if err != nil {
		return rowResult{}, err
	}

	lead, leadCreated, err := resolveLead(ctx, st, rc, values, contact, ownerID)
	if err != nil {
		return rowResult{}, err
	}

	oppType := store.OpportunityTypeNewBusiness
	if raw := strings.TrimSpace(values.get(FieldType)); raw != "" {
		oppType, err = store.ParseOpportunityType(raw)
		if err != nil {
			return rowResult{}, rowErrorf("%v", err)
		}
	}

	valueCents, err := ParseValueCents(values.get(FieldValue))
	if err != nil {
		return rowResult{}, err
	}

	stage := strings.TrimSpace(values.get(FieldStage))
	if stage == "" {
		stage = strings.TrimSpace(opts.DefaultStage)
	}
	if stage == "" {
		stage = "Prospecting"
	}

	closeDate, err := ParseFlexibleDate(values.get(FieldCloseDate))
	if err != nil {
		return rowResult{}, err
	}

	description := buildDescription(values.get(FieldDescription), values.get(FieldNotes))

	result := rowResult{
		Contact:        contact,
		ContactCreated: contactCreated,
		Lead:           lead,
		LeadCreated:    leadCreated,
	}

	existing, err := st.Opportunities().FindByLeadAndTitle(ctx, lead.ID, title)
	switch {
	case err == nil:
		if !opts.UpdateExisting {
			result.Outcome = RowSkipped
			return result, nil
		}
		if _, err := st.Opportunities().Update(ctx, store.UpdateOpportunityParams{
			ID:          existing.ID,
			CustomerID:  customerID,
			OwnerID:     ownerID,
			Type:        oppType,
			Stage:       stage,
			ValueCents:  valueCents,
			Recurring:   ParseTruthy(values.get(FieldRecurring)),
			CloseDate:   closeDate,
			Description: description,
		}); err != nil {
			return rowResult{}, err
		}
		result.Outcome = RowUpdated
		return result, nil
	case errors.Is(err, store.ErrNotFound):
		if _, err := st.Opportunities().Create(ctx, store.CreateOpportunityParams{
			Title:       title,
			LeadID:      lead.ID,
			CustomerID:  customerID,
			OwnerID:     ownerID,
			Type:        oppType,
			Stage:       stage,
			ValueCents:  valueCents,
			Recurring:   ParseTruthy(values.get(FieldRecurring)),
			CloseDate:   closeDate,
			Description: description,
		}); err != nil {
			return rowResult{}, err
		}
		result.Outcome = RowCreated
		return result, nil
	default:
		return rowResult{}, err
	}
}

// buildDescription strips HTML from the description and appends the notes
// cell as a trailing Notes section. Both empty yields nil.
func buildDescription(rawDescription, rawNotes string) *string {
	description := StripHTML(rawDescription)
	notes := StripHTML(rawNotes)
	if notes != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Notes: " + notes
	}
	if description == "" {
		return nil
	}
	return &description
}
