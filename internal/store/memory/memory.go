// Package memory implements store.Store backed by in-process maps. It exists
// for tests and local development; the postgres package is the production
// implementation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

type Store struct {
	mu sync.Mutex

	users         map[uuid.UUID]store.User
	customers     map[uuid.UUID]store.Customer
	contacts      map[uuid.UUID]store.Contact
	leads         map[uuid.UUID]store.Lead
	opportunities map[uuid.UUID]store.Opportunity
	importJobs    map[uuid.UUID]store.ImportJob
	auditLog      []store.AuditEntry

	// forcedErr, when set, fails every subsequent store call. Tests use it to
	// simulate the backing database going away mid-run.
	forcedErr error
}

func New() *Store {
	return &Store{
		users:         map[uuid.UUID]store.User{},
		customers:     map[uuid.UUID]store.Customer{},
		contacts:      map[uuid.UUID]store.Contact{},
		leads:         map[uuid.UUID]store.Lead{},
		opportunities: map[uuid.UUID]store.Opportunity{},
		importJobs:    map[uuid.UUID]store.ImportJob{},
	}
}

func (s *Store) Users() store.UserStore                 { return (*userStore)(s) }
func (s *Store) Customers() store.CustomerStore         { return (*customerStore)(s) }
func (s *Store) Contacts() store.ContactStore           { return (*contactStore)(s) }
func (s *Store) Leads() store.LeadStore                 { return (*leadStore)(s) }
func (s *Store) Opportunities() store.OpportunityStore  { return (*opportunityStore)(s) }
func (s *Store) ImportJobs() store.ImportJobStore       { return (*importJobStore)(s) }
func (s *Store) Audit() store.AuditStore                { return (*auditStore)(s) }

// RunInTx snapshots the entity maps, runs fn, and restores the snapshot if fn
// fails. Good enough to honor the per-row all-or-nothing contract in tests.
func (s *Store) RunInTx(ctx context.Context, fn func(store.Store) error) error {
	if err := s.fail(); err != nil {
		return err
	}
	snapshot := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// SetErr makes every subsequent call return err; SetErr(nil) clears it.
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedErr = err
}

func (s *Store) SeedUser(user store.User) store.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = user
	return user
}

func (s *Store) SeedCustomer(customer store.Customer) store.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	s.customers[customer.ID] = customer
	return customer
}

// AuditEntries returns a copy of the recorded audit log.
func (s *Store) AuditEntries() []store.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AuditEntry, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

func (s *Store) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcedErr
}

type state struct {
	customers     map[uuid.UUID]store.Customer
	contacts      map[uuid.UUID]store.Contact
	leads         map[uuid.UUID]store.Lead
	opportunities map[uuid.UUID]store.Opportunity
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return state{
		customers:     cloneMap(s.customers),
		contacts:      cloneMap(s.contacts),
		leads:         cloneMap(s.leads),
		opportunities: cloneMap(s.opportunities),
	}
}

func (s *Store) restore(snap state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = snap.customers
	s.contacts = snap.contacts
	s.leads = snap.leads
	s.opportunities = snap.opportunities
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type userStore Store

func (s *userStore) GetByEmail(ctx context.Context, email string) (store.User, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

type customerStore Store

func (s *customerStore) GetByID(ctx context.Context, id uuid.UUID) (store.Customer, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return store.Customer{}, store.ErrNotFound
	}
	return customer, nil
}

func (s *customerStore) FindByEmail(ctx context.Context, email string) (store.Customer, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, customer := range s.customers {
		if customer.Email != nil && strings.EqualFold(*customer.Email, email) {
			return customer, nil
		}
	}
	return store.Customer{}, store.ErrNotFound
}

func (s *customerStore) FindFirstByName(ctx context.Context, name string) (store.Customer, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, customer := range s.customers {
		if strings.EqualFold(customer.Name, name) {
			return customer, nil
		}
	}
	return store.Customer{}, store.ErrNotFound
}

type contactStore Store

func (s *contactStore) FindByEmail(ctx context.Context, email string) (store.Contact, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Contact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, contact := range s.contacts {
		if strings.EqualFold(contact.Email, email) {
			return contact, nil
		}
	}
	return store.Contact{}, store.ErrNotFound
}

func (s *contactStore) Create(ctx context.Context, params store.CreateContactParams) (store.Contact, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Contact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	contact := store.Contact{
		ID:        uuid.New(),
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
		Phone:     params.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.contacts[contact.ID] = contact
	return contact, nil
}

type leadStore Store

func (s *leadStore) FindByTitleAndContact(ctx context.Context, title string, contactID uuid.UUID) (store.Lead, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lead := range s.leads {
		if lead.ContactID == contactID && strings.EqualFold(lead.Title, title) {
			return lead, nil
		}
	}
	return store.Lead{}, store.ErrNotFound
}

func (s *leadStore) Create(ctx context.Context, params store.CreateLeadParams) (store.Lead, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	lead := store.Lead{
		ID:        uuid.New(),
		Title:     params.Title,
		Status:    params.Status,
		ContactID: params.ContactID,
		OwnerID:   params.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *leadStore) Update(ctx context.Context, params store.UpdateLeadParams) (store.Lead, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[params.ID]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	lead.Status = params.Status
	lead.OwnerID = params.OwnerID
	lead.UpdatedAt = time.Now().UTC()
	s.leads[lead.ID] = lead
	return lead, nil
}

type opportunityStore Store

func (s *opportunityStore) FindByLeadAndTitle(ctx context.Context, leadID uuid.UUID, title string) (store.Opportunity, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Opportunity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, opp := range s.opportunities {
		if opp.LeadID == leadID && strings.EqualFold(opp.Title, title) {
			return opp, nil
		}
	}
	return store.Opportunity{}, store.ErrNotFound
}

func (s *opportunityStore) Create(ctx context.Context, params store.CreateOpportunityParams) (store.Opportunity, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Opportunity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	opp := store.Opportunity{
		ID:          uuid.New(),
		Title:       params.Title,
		LeadID:      params.LeadID,
		CustomerID:  params.CustomerID,
		OwnerID:     params.OwnerID,
		Type:        params.Type,
		Stage:       params.Stage,
		ValueCents:  params.ValueCents,
		Recurring:   params.Recurring,
		CloseDate:   params.CloseDate,
		Description: params.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.opportunities[opp.ID] = opp
	return opp, nil
}

func (s *opportunityStore) Update(ctx context.Context, params store.UpdateOpportunityParams) (store.Opportunity, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.Opportunity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	opp, ok := s.opportunities[params.ID]
	if !ok {
		return store.Opportunity{}, store.ErrNotFound
	}
	opp.CustomerID = params.CustomerID
	opp.OwnerID = params.OwnerID
	opp.Type = params.Type
	opp.Stage = params.Stage
	opp.ValueCents = params.ValueCents
	opp.Recurring = params.Recurring
	opp.CloseDate = params.CloseDate
	opp.Description = params.Description
	opp.UpdatedAt = time.Now().UTC()
	s.opportunities[opp.ID] = opp
	return opp, nil
}

type importJobStore Store

func (s *importJobStore) Create(ctx context.Context, params store.CreateImportJobParams) (store.ImportJob, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.ImportJob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job := store.ImportJob{
		ID:         uuid.New(),
		ImportType: params.ImportType,
		Filename:   params.Filename,
		StorageKey: params.StorageKey,
		TotalRows:  params.TotalRows,
		Status:     store.ImportJobPending,
		CreatedAt:  time.Now().UTC(),
	}
	s.importJobs[job.ID] = job
	return job, nil
}

func (s *importJobStore) GetByID(ctx context.Context, id uuid.UUID) (store.ImportJob, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.ImportJob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.importJobs[id]
	if !ok {
		return store.ImportJob{}, store.ErrNotFound
	}
	return job, nil
}

func (s *importJobStore) ListByType(ctx context.Context, importType string, limit int) ([]store.ImportJob, error) {
	if err := (*Store)(s).fail(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]store.ImportJob, 0, len(s.importJobs))
	for _, job := range s.importJobs {
		if job.ImportType == importType {
			jobs = append(jobs, job)
		}
	}
	sortJobsNewestFirst(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *importJobStore) SetMapping(ctx context.Context, id uuid.UUID, mapping store.FieldMapping, ignoredColumns []string) (store.ImportJob, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.ImportJob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.importJobs[id]
	if !ok {
		return store.ImportJob{}, store.ErrNotFound
	}
	job.Mapping = mapping
	job.IgnoredColumns = ignoredColumns
	s.importJobs[id] = job
	return job, nil
}

func (s *importJobStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (store.ImportJob, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.ImportJob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.importJobs[id]
	if !ok {
		return store.ImportJob{}, store.ErrNotFound
	}
	job.Status = store.ImportJobProcessing
	job.SuccessCount = 0
	job.FailureCount = 0
	job.Errors = nil
	job.StartedAt = &startedAt
	job.CompletedAt = nil
	s.importJobs[id] = job
	return job, nil
}

func (s *importJobStore) Finish(ctx context.Context, params store.FinishImportJobParams) (store.ImportJob, error) {
	if err := (*Store)(s).fail(); err != nil {
		return store.ImportJob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.importJobs[params.ID]
	if !ok {
		return store.ImportJob{}, store.ErrNotFound
	}
	job.Status = params.Status
	job.SuccessCount = params.SuccessCount
	job.FailureCount = params.FailureCount
	job.Errors = params.Errors
	completed := params.CompletedAt
	job.CompletedAt = &completed
	s.importJobs[params.ID] = job
	return job, nil
}

type auditStore Store

func (s *auditStore) Insert(ctx context.Context, entry store.AuditEntry) error {
	if err := (*Store)(s).fail(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, entry)
	return nil
}

func sortJobsNewestFirst(jobs []store.ImportJob) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
