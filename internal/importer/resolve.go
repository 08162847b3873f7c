package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

// resolutionContext holds the per-run lookup caches. It bounds store
// round-trips to one per unique value instead of one per row, lives for a
// single execution run, and is never shared across jobs.
type resolutionContext struct {
	customersByName  map[string]store.Customer
	customersByEmail map[string]store.Customer
	ownersByEmail    map[string]store.User
	contactsByEmail  map[string]store.Contact
	leadsByKey       map[string]store.Lead
}

func newResolutionContext() *resolutionContext {
	return &resolutionContext{
		customersByName:  map[string]store.Customer{},
		customersByEmail: map[string]store.Customer{},
		ownersByEmail:    map[string]store.User{},
		contactsByEmail:  map[string]store.Contact{},
		leadsByKey:       map[string]store.Lead{},
	}
}

func leadCacheKey(title, contactEmail string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "::" + normalizeEmail(contactEmail)
}

// cacheContact records a contact for the remainder of the run. Contacts
// created inside a row transaction are only cached after the row commits.
func (rc *resolutionContext) cacheContact(contact store.Contact) {
	rc.contactsByEmail[normalizeEmail(contact.Email)] = contact
}

func (rc *resolutionContext) cacheLead(title, contactEmail string, lead store.Lead) {
	rc.leadsByKey[leadCacheKey(title, contactEmail)] = lead
}

// resolveCustomer implements the precedence chain: manual match, explicit
// email, explicit name, job default, none. An explicit email or name that
// matches nothing is a hard row failure; it never silently falls back.
func resolveCustomer(ctx context.Context, st store.Store, rc *resolutionContext, email, name string, defaultID *uuid.UUID, manual map[string]uuid.UUID) (*uuid.UUID, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if len(manual) > 0 {
		for _, token := range []string{email, strings.ToLower(name)} {
			if token == "" {
				continue
			}
			if id, ok := manual[token]; ok {
				return &id, nil
			}
		}
	}

	if email != "" {
		if customer, ok := rc.customersByEmail[email]; ok {
			return &customer.ID, nil
		}
		customer, err := st.Customers().FindByEmail(ctx, email)
		if err == nil {
			rc.customersByEmail[email] = customer
			return &customer.ID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, rowErrorf("no customer found with email %q", email)
	}

	if name != "" {
		nameKey := strings.ToLower(name)
		if customer, ok := rc.customersByName[nameKey]; ok {
			return &customer.ID, nil
		}
		customer, err := st.Customers().FindFirstByName(ctx, name)
		if err == nil {
			rc.customersByName[nameKey] = customer
			return &customer.ID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, rowErrorf("no customer found with name %q", name)
	}

	if defaultID != nil {
		id := *defaultID
		return &id, nil
	}
	return nil, nil
}

// resolveOwner looks a user up by email through the per-run cache. A row that
// names an owner nobody has is a hard row failure.
func resolveOwner(ctx context.Context, st store.Store, rc *resolutionContext, email string) (*uuid.UUID, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	if owner, ok := rc.ownersByEmail[email]; ok {
		return &owner.ID, nil
	}
	owner, err := st.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, rowErrorf("no user found with email %q", email)
		}
		return nil, err
	}
	rc.ownersByEmail[email] = owner
	return &owner.ID, nil
}

// resolveContact reuses the contact with the row's email or creates one from
// the name columns. The returned bool reports whether the contact was created
// in this row's transaction (and so must only be cached after commit).
func resolveContact(ctx context.Context, st store.Store, rc *resolutionContext, values rowValues) (store.Contact, bool, error) {
	email := normalizeEmail(values.get(FieldContactEmail))
	if email == "" {
		return store.Contact{}, false, rowErrorf("contact email is required")
	}

	if contact, ok := rc.contactsByEmail[email]; ok {
		return contact, false, nil
	}

	contact, err := st.Contacts().FindByEmail(ctx, email)
	if err == nil {
		rc.cacheContact(contact)
		return contact, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Contact{}, false, err
	}

	first := strings.TrimSpace(values.get(FieldContactFirstName))
	last := strings.TrimSpace(values.get(FieldContactLastName))
	if first == "" && last == "" {
		first, last = SplitFullName(values.get(FieldContactFullName))
	}
	var phone *string
	if p := strings.TrimSpace(values.get(FieldContactPhone)); p != "" {
		phone = &p
	}

	created, err := st.Contacts().Create(ctx, store.CreateContactParams{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     phone,
	})
	if err != nil {
		return store.Contact{}, false, err
	}
	return created, true, nil
}

// resolveLead finds or creates the lead for (title, contact email). An
// existing lead is updated: status from the row when present, owner from the
// row unconditionally, so a row without an owner disassociates the previous
// one. The returned bool reports creation, for deferred caching.
func resolveLead(ctx context.Context, st store.Store, rc *resolutionContext, values rowValues, contact store.Contact, ownerID *uuid.UUID) (store.Lead, bool, error) {
	title := strings.TrimSpace(values.get(FieldLeadTitle))
	if title == "" {
		title = strings.TrimSpace(values.get(FieldTitle))
	}

	var status store.LeadStatus
	rawStatus := strings.TrimSpace(values.get(FieldLeadStatus))
	if rawStatus != "" {
		parsed, err := store.ParseLeadStatus(rawStatus)
		if err != nil {
			return store.Lead{}, false, rowErrorf("%v", err)
		}
		status = parsed
	}

	key := leadCacheKey(title, contact.Email)
	lead, cached := rc.leadsByKey[key]
	if !cached {
		found, err := st.Leads().FindByTitleAndContact(ctx, title, contact.ID)
		if err == nil {
			lead = found
			cached = true
		} else if !errors.Is(err, store.ErrNotFound) {
			return store.Lead{}, false, err
		}
	}

	if cached {
		if status == "" {
			status = lead.Status
		}
		updated, err := st.Leads().Update(ctx, store.UpdateLeadParams{
			ID:      lead.ID,
			Status:  status,
			OwnerID: ownerID,
		})
		if err != nil {
			return store.Lead{}, false, err
		}
		return updated, false, nil
	}

	if status == "" {
		status = store.LeadStatusNew
	}
	created, err := st.Leads().Create(ctx, store.CreateLeadParams{
		Title:     title,
		Status:    status,
		ContactID: contact.ID,
		OwnerID:   ownerID,
	})
	if err != nil {
		return store.Lead{}, false, err
	}
	return created, true, nil
}
