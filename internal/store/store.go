package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that match no record. Postgres
// implementations translate pgx.ErrNoRows into this error so callers never
// depend on the driver.
var ErrNotFound = errors.New("store: not found")

// Store bundles the per-entity stores behind one handle. RunInTx executes fn
// against a store whose writes commit or roll back together; the import
// pipeline wraps each row's multi-entity writes in one transaction so a
// mid-row failure cannot leave a contact orphaned from its lead.
type Store interface {
	Users() UserStore
	Customers() CustomerStore
	Contacts() ContactStore
	Leads() LeadStore
	Opportunities() OpportunityStore
	ImportJobs() ImportJobStore
	Audit() AuditStore

	RunInTx(ctx context.Context, fn func(Store) error) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
}

type CustomerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Customer, error)
	FindByEmail(ctx context.Context, email string) (Customer, error)
	// FindFirstByName matches case-insensitively and returns the first match;
	// ambiguous names are not reported.
	FindFirstByName(ctx context.Context, name string) (Customer, error)
}

type ContactStore interface {
	FindByEmail(ctx context.Context, email string) (Contact, error)
	Create(ctx context.Context, params CreateContactParams) (Contact, error)
}

type LeadStore interface {
	FindByTitleAndContact(ctx context.Context, title string, contactID uuid.UUID) (Lead, error)
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	// Update overwrites status and owner. A nil OwnerID disassociates the
	// previous owner.
	Update(ctx context.Context, params UpdateLeadParams) (Lead, error)
}

type OpportunityStore interface {
	FindByLeadAndTitle(ctx context.Context, leadID uuid.UUID, title string) (Opportunity, error)
	Create(ctx context.Context, params CreateOpportunityParams) (Opportunity, error)
	Update(ctx context.Context, params UpdateOpportunityParams) (Opportunity, error)
}

type ImportJobStore interface {
	Create(ctx context.Context, params CreateImportJobParams) (ImportJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (ImportJob, error)
	ListByType(ctx context.Context, importType string, limit int) ([]ImportJob, error)
	// SetMapping overwrites the stored mapping and ignored columns; the job
	// status is unchanged.
	SetMapping(ctx context.Context, id uuid.UUID, mapping FieldMapping, ignoredColumns []string) (ImportJob, error)
	// MarkProcessing transitions the job to StatusProcessing, resets the
	// counters and error list, and stamps the start time.
	MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (ImportJob, error)
	// Finish records the terminal status with the final counters and errors.
	Finish(ctx context.Context, params FinishImportJobParams) (ImportJob, error)
}

type AuditStore interface {
	Insert(ctx context.Context, entry AuditEntry) error
}

type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	CreatedAt time.Time
}

type Customer struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Contact struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateContactParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

type Lead struct {
	ID        uuid.UUID
	Title     string
	Status    LeadStatus
	ContactID uuid.UUID
	OwnerID   *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateLeadParams struct {
	Title     string
	Status    LeadStatus
	ContactID uuid.UUID
	OwnerID   *uuid.UUID
}

type UpdateLeadParams struct {
	ID      uuid.UUID
	Status  LeadStatus
	OwnerID *uuid.UUID
}

type Opportunity struct {
	ID          uuid.UUID
	Title       string
	LeadID      uuid.UUID
	CustomerID  *uuid.UUID
	OwnerID     *uuid.UUID
	Type        OpportunityType
	Stage       string
	ValueCents  int64
	Recurring   bool
	CloseDate   *time.Time
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateOpportunityParams struct {
	Title       string
	LeadID      uuid.UUID
	CustomerID  *uuid.UUID
	OwnerID     *uuid.UUID
	Type        OpportunityType
	Stage       string
	ValueCents  int64
	Recurring   bool
	CloseDate   *time.Time
	Description *string
}

type UpdateOpportunityParams struct {
	ID          uuid.UUID
	CustomerID  *uuid.UUID
	OwnerID     *uuid.UUID
	Type        OpportunityType
	Stage       string
	ValueCents  int64
	Recurring   bool
	CloseDate   *time.Time
	Description *string
}

type AuditEntry struct {
	UserEmail  *string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  *string
	Metadata   []byte
}
