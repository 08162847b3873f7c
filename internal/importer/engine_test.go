package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumacrm/api/internal/filestore"
	"github.com/lumacrm/api/internal/store"
	"github.com/lumacrm/api/internal/store/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	db := memory.New()
	return &Engine{
		Store:  db,
		Files:  files,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, db
}

func uploadCSV(t *testing.T, e *Engine, csv string) UploadResult {
	t.Helper()
	result, err := e.Upload(context.Background(), ImportTypeOpportunities, "deals.csv", []byte(csv))
	require.NoError(t, err)
	return result
}

func mapColumns(t *testing.T, e *Engine, jobID uuid.UUID, pairs map[string]string) {
	t.Helper()
	entries := make([]MappingEntry, 0, len(pairs))
	for field, column := range pairs {
		entries = append(entries, MappingEntry{SourceColumn: column, TargetField: field})
	}
	_, err := e.SetMapping(context.Background(), ImportTypeOpportunities, jobID, entries, nil)
	require.NoError(t, err)
}

func TestUploadCreatesPendingJob(t *testing.T) {
	e, _ := newTestEngine(t)

	result := uploadCSV(t, e, "Deal Name,Email\nBig Deal,amy@example.com\nSmall Deal,bob@example.com\n")

	assert.Equal(t, store.ImportJobPending, result.Job.Status)
	assert.Equal(t, 2, result.Job.TotalRows)
	assert.Equal(t, "deals.csv", result.Job.Filename)
	assert.Equal(t, []string{"Deal Name", "Email"}, result.Columns)
	assert.Len(t, result.SampleRows, 2)
	assert.NotEmpty(t, result.AvailableFields)
}

func TestUploadSuggestsMappings(t *testing.T) {
	e, _ := newTestEngine(t)

	result := uploadCSV(t, e, "Opportunity Title,Contact Email,Deal Size\nA,a@x.com,100\n")

	byColumn := map[string]string{}
	for _, s := range result.Suggestions {
		byColumn[s.SourceColumn] = s.TargetField
	}
	assert.Equal(t, FieldTitle, byColumn["Opportunity Title"])
	assert.Equal(t, FieldContactEmail, byColumn["Contact Email"])
	assert.NotContains(t, byColumn, "Deal Size")
}

func TestUploadCapsSampleRows(t *testing.T) {
	e, _ := newTestEngine(t)

	var sb strings.Builder
	sb.WriteString("Title,Email\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Deal %d,u%d@example.com\n", i, i)
	}
	result := uploadCSV(t, e, sb.String())

	assert.Equal(t, 20, result.Job.TotalRows)
	assert.Len(t, result.SampleRows, 5)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Upload(context.Background(), ImportTypeOpportunities, "deals.pdf", []byte("x"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestUploadRejectsHeaderlessFile(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Upload(context.Background(), ImportTypeOpportunities, "deals.csv", []byte(""))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestSetMappingRejectsMissingRequiredField(t *testing.T) {
	e, _ := newTestEngine(t)
	result := uploadCSV(t, e, "Title,Email\nA,a@x.com\n")

	_, err := e.SetMapping(context.Background(), ImportTypeOpportunities, result.Job.ID,
		[]MappingEntry{{SourceColumn: "Title", TargetField: FieldTitle}}, nil)

	var bm *BadMappingError
	require.ErrorAs(t, err, &bm)
	assert.Contains(t, bm.Message, FieldContactEmail)
}

func TestSetMappingRejectsUnknownColumn(t *testing.T) {
	e, _ := newTestEngine(t)
	result := uploadCSV(t, e, "Title,Email\nA,a@x.com\n")

	_, err := e.SetMapping(context.Background(), ImportTypeOpportunities, result.Job.ID,
		[]MappingEntry{
			{SourceColumn: "Title", TargetField: FieldTitle},
			{SourceColumn: "Nope", TargetField: FieldContactEmail},
		}, nil)

	var bm *BadMappingError
	require.ErrorAs(t, err, &bm)
}

func TestSetMappingPersists(t *testing.T) {
	e, db := newTestEngine(t)
	result := uploadCSV(t, e, "Title,Email,Extra\nA,a@x.com,x\n")

	job, err := e.SetMapping(context.Background(), ImportTypeOpportunities, result.Job.ID,
		[]MappingEntry{
			{SourceColumn: "Title", TargetField: FieldTitle},
			{SourceColumn: "Email", TargetField: FieldContactEmail},
		}, []string{"Extra"})
	require.NoError(t, err)

	assert.Equal(t, store.FieldMapping{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
	}, job.Mapping)
	assert.Equal(t, []string{"Extra"}, job.IgnoredColumns)

	stored, err := db.ImportJobs().GetByID(context.Background(), result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Mapping, stored.Mapping)
}

func TestExecuteRequiresMapping(t *testing.T) {
	e, _ := newTestEngine(t)
	result := uploadCSV(t, e, "Title,Email\nA,a@x.com\n")

	_, err := e.Execute(context.Background(), ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestExecuteRejectsRunningJob(t *testing.T) {
	e, db := newTestEngine(t)
	result := uploadCSV(t, e, "Title,Email\nA,a@x.com\n")
	mapColumns(t, e, result.Job.ID, map[string]string{FieldTitle: "Title", FieldContactEmail: "Email"})

	_, err := db.ImportJobs().MarkProcessing(context.Background(), result.Job.ID, result.Job.CreatedAt)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	e, _ := newTestEngine(t)
	e.MaxRows = 2

	_, err := e.Upload(context.Background(), ImportTypeOpportunities, "deals.csv",
		[]byte("Title,Email\nA,a@x.com\nB,b@x.com\nC,c@x.com\n"))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestExecuteValidatesDefaultsBeforeAnyRow(t *testing.T) {
	e, db := newTestEngine(t)
	result := uploadCSV(t, e, "Title,Email\nA,a@x.com\n")
	mapColumns(t, e, result.Job.ID, map[string]string{FieldTitle: "Title", FieldContactEmail: "Email"})

	_, err := e.Execute(context.Background(), ImportTypeOpportunities, result.Job.ID,
		ExecuteRequest{DefaultOwnerEmail: "ghost@example.com"})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)

	job, err := db.ImportJobs().GetByID(context.Background(), result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ImportJobPending, job.Status)
}

func TestExecuteEndToEnd(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e,
		"Title,Email,First,Last,Value,Stage\n"+
			"Website Redesign,amy@example.com,Amy,Adams,\"$1,250.50\",Negotiation\n"+
			",,,,,\n"+
			"Hosting Renewal,amy@example.com,Amy,Adams,300,\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:            "Title",
		FieldContactEmail:     "Email",
		FieldContactFirstName: "First",
		FieldContactLastName:  "Last",
		FieldValue:            "Value",
		FieldStage:            "Stage",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalRows)
	assert.Equal(t, 2, summary.CreatedCount)
	assert.Equal(t, 1, summary.SkippedCount)
	assert.Equal(t, 0, summary.FailedCount)
	assert.Equal(t, 2, summary.ProcessedRows)

	contact, err := db.Contacts().FindByEmail(ctx, "amy@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Amy", contact.FirstName)

	lead, err := db.Leads().FindByTitleAndContact(ctx, "Website Redesign", contact.ID)
	require.NoError(t, err)

	opp, err := db.Opportunities().FindByLeadAndTitle(ctx, lead.ID, "Website Redesign")
	require.NoError(t, err)
	assert.Equal(t, int64(125050), opp.ValueCents)
	assert.Equal(t, "Negotiation", opp.Stage)
	assert.Equal(t, store.OpportunityTypeNewBusiness, opp.Type)

	leadB, err := db.Leads().FindByTitleAndContact(ctx, "Hosting Renewal", contact.ID)
	require.NoError(t, err)
	oppB, err := db.Opportunities().FindByLeadAndTitle(ctx, leadB.ID, "Hosting Renewal")
	require.NoError(t, err)
	assert.Equal(t, "Prospecting", oppB.Stage)

	job, err := db.ImportJobs().GetByID(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ImportJobCompleted, job.Status)
	assert.Equal(t, 2, job.SuccessCount)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
}

func TestExecuteRowFailureDoesNotAbortRun(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e,
		"Title,Email,Value\n"+
			"Deal A,a@x.com,100\n"+
			"Deal B,b@x.com,not-a-number\n"+
			"Deal C,c@x.com,200\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldValue:        "Value",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CreatedCount)
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 3, summary.Errors[0].Row)
	assert.Contains(t, summary.Errors[0].Message, "not-a-number")

	job, err := db.ImportJobs().GetByID(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ImportJobCompleted, job.Status)
	assert.Equal(t, 1, job.FailureCount)
}

func TestExecuteRowFailureRollsBackWholeRow(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	// The contact is created before the value is parsed; a bad value must
	// roll back the contact too.
	result := uploadCSV(t, e, "Title,Email,Value\nDeal A,new@x.com,banana\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldValue:        "Value",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedCount)

	_, err = db.Contacts().FindByEmail(ctx, "new@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExecuteErrorCap(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var sb strings.Builder
	sb.WriteString("Title,Email\n")
	for i := 0; i < ErrorCap+1; i++ {
		fmt.Fprintf(&sb, ",u%d@example.com\n", i) // missing title fails the row
	}
	result := uploadCSV(t, e, sb.String())
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)

	assert.Equal(t, ErrorCap+1, summary.FailedCount)
	assert.Len(t, summary.Errors, ErrorCap)
}

func TestExecuteRerunIsIdempotent(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e, "Title,Email,Value\nDeal A,a@x.com,100\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldValue:        "Value",
	})

	first, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CreatedCount)

	second, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Equal(t, 1, second.SkippedCount)

	third, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, third.UpdatedCount)

	contact, err := db.Contacts().FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	lead, err := db.Leads().FindByTitleAndContact(ctx, "Deal A", contact.ID)
	require.NoError(t, err)
	_, err = db.Opportunities().FindByLeadAndTitle(ctx, lead.ID, "Deal A")
	require.NoError(t, err)
}

func TestExecuteOwnerAssignmentAndDisassociation(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()
	owner := db.SeedUser(store.User{Email: "rep@example.com", FullName: "Rita Reyes"})

	result := uploadCSV(t, e, "Title,Email,Owner\nDeal A,a@x.com,rep@example.com\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldOwnerEmail:   "Owner",
	})

	_, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)

	contact, err := db.Contacts().FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	lead, err := db.Leads().FindByTitleAndContact(ctx, "Deal A", contact.ID)
	require.NoError(t, err)
	require.NotNil(t, lead.OwnerID)
	assert.Equal(t, owner.ID, *lead.OwnerID)

	// A re-import of the same lead without an owner column clears the owner.
	second := uploadCSV(t, e, "Title,Email\nDeal A,a@x.com\n")
	mapColumns(t, e, second.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
	})
	_, err = e.Execute(ctx, ImportTypeOpportunities, second.Job.ID, ExecuteRequest{})
	require.NoError(t, err)

	lead, err = db.Leads().FindByTitleAndContact(ctx, "Deal A", contact.ID)
	require.NoError(t, err)
	assert.Nil(t, lead.OwnerID)
}

func TestExecuteUnknownOwnerFailsRow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e, "Title,Email,Owner\nDeal A,a@x.com,ghost@example.com\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldOwnerEmail:   "Owner",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Message, "ghost@example.com")
}

func TestExecuteCustomerPrecedence(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	byEmailAddr := "acme@example.com"
	byEmail := db.SeedCustomer(store.Customer{Name: "Acme Ltd", Email: &byEmailAddr})
	byName := db.SeedCustomer(store.Customer{Name: "Globex"})
	manual := db.SeedCustomer(store.Customer{Name: "Initech"})
	fallback := db.SeedCustomer(store.Customer{Name: "Fallback Inc"})

	result := uploadCSV(t, e,
		"Title,Email,CustEmail,CustName\n"+
			"Deal Manual,a@x.com,,Initech Holdings\n"+ // pinned by hand, no customer has this name
			"Deal Email,b@x.com,acme@example.com,Globex\n"+
			"Deal Name,c@x.com,,Globex\n"+
			"Deal Default,d@x.com,,\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:         "Title",
		FieldContactEmail:  "Email",
		FieldCustomerEmail: "CustEmail",
		FieldCustomerName:  "CustName",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{
		DefaultCustomerID: &fallback.ID,
		ManualMatches:     map[string]uuid.UUID{"initech holdings": manual.ID},
	})
	require.NoError(t, err)
	require.Equal(t, 4, summary.CreatedCount)

	assertCustomer := func(title, email string, want uuid.UUID) {
		t.Helper()
		contact, err := db.Contacts().FindByEmail(ctx, email)
		require.NoError(t, err)
		lead, err := db.Leads().FindByTitleAndContact(ctx, title, contact.ID)
		require.NoError(t, err)
		opp, err := db.Opportunities().FindByLeadAndTitle(ctx, lead.ID, title)
		require.NoError(t, err)
		require.NotNil(t, opp.CustomerID)
		assert.Equal(t, want, *opp.CustomerID)
	}

	assertCustomer("Deal Manual", "a@x.com", manual.ID)
	assertCustomer("Deal Email", "b@x.com", byEmail.ID)
	assertCustomer("Deal Name", "c@x.com", byName.ID)
	assertCustomer("Deal Default", "d@x.com", fallback.ID)
}

func TestExecuteUnknownCustomerFailsRow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e, "Title,Email,CustEmail\nDeal A,a@x.com,nobody@example.com\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:         "Title",
		FieldContactEmail:  "Email",
		FieldCustomerEmail: "CustEmail",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedCount)
}

// txFailStore passes everything through to the memory store but fails the
// nth transaction with an infrastructure error.
type txFailStore struct {
	*memory.Store
	failOn int
	calls  int
	err    error
}

func (f *txFailStore) RunInTx(ctx context.Context, fn func(store.Store) error) error {
	f.calls++
	if f.calls == f.failOn {
		return f.err
	}
	return f.Store.RunInTx(ctx, fn)
}

func TestExecuteInfrastructureFailureMarksJobFailed(t *testing.T) {
	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	db := memory.New()
	flaky := &txFailStore{Store: db, failOn: 2, err: errors.New("connection reset by peer")}
	e := &Engine{Store: flaky, Files: files, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx := context.Background()

	result, err := e.Upload(ctx, ImportTypeOpportunities, "deals.csv",
		[]byte("Title,Email\nDeal A,a@x.com\nDeal B,b@x.com\nDeal C,c@x.com\n"))
	require.NoError(t, err)
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
	})

	_, err = e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	job, err := db.ImportJobs().GetByID(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ImportJobFailed, job.Status)

	// The first row committed before the failure and stays committed.
	_, err = db.Contacts().FindByEmail(ctx, "a@x.com")
	assert.NoError(t, err)
}

func TestExecuteDescriptionNotesAndFlags(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e,
		"Title,Email,Desc,Notes,Recurring,Close,Type\n"+
			"Deal A,a@x.com,<p>Hello &amp; welcome</p>,call back monday,yes,2026-03-22,renewal\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldDescription:  "Desc",
		FieldNotes:        "Notes",
		FieldRecurring:    "Recurring",
		FieldCloseDate:    "Close",
		FieldType:         "Type",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.CreatedCount)

	contact, err := db.Contacts().FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	lead, err := db.Leads().FindByTitleAndContact(ctx, "Deal A", contact.ID)
	require.NoError(t, err)
	opp, err := db.Opportunities().FindByLeadAndTitle(ctx, lead.ID, "Deal A")
	require.NoError(t, err)

	require.NotNil(t, opp.Description)
	assert.Equal(t, "Hello & welcome\n\nNotes: call back monday", *opp.Description)
	assert.True(t, opp.Recurring)
	assert.Equal(t, store.OpportunityTypeRenewal, opp.Type)
	require.NotNil(t, opp.CloseDate)
	assert.Equal(t, "2026-03-22", opp.CloseDate.Format("2006-01-02"))
}

func TestExecuteInvalidEnumFailsRow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	result := uploadCSV(t, e,
		"Title,Email,Type\n"+
			"Deal A,a@x.com,sideways\n"+
			"Deal B,b@x.com,cross sell\n")
	mapColumns(t, e, result.Job.ID, map[string]string{
		FieldTitle:        "Title",
		FieldContactEmail: "Email",
		FieldType:         "Type",
	})

	summary, err := e.Execute(ctx, ImportTypeOpportunities, result.Job.ID, ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 1, summary.CreatedCount)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 2, summary.Errors[0].Row)
}
