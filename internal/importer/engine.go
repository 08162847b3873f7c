// Package importer implements the spreadsheet import pipeline: upload and
// parse, column mapping, and per-row execution against the CRM stores.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/filestore"
	"github.com/lumacrm/api/internal/store"
)

// ErrorCap bounds the itemized error list on a job. Failures past the cap
// still count toward failedCount.
const ErrorCap = 50

const sampleRowCount = 5

// Engine runs import jobs. It owns no state of its own; every call reloads
// the job from the store, so concurrent API replicas see the same picture.
type Engine struct {
	Store  store.Store
	Files  filestore.Store
	Logger *slog.Logger
	// MaxRows rejects oversized uploads before anything is persisted.
	// Zero means unlimited.
	MaxRows int
}

// UploadResult is everything the mapping UI needs after an upload: the
// persisted job, the detected columns, a preview, and suggested mappings.
type UploadResult struct {
	Job             store.ImportJob
	Columns         []string
	SampleRows      []map[string]string
	AvailableFields []Field
	Suggestions     []Suggestion
}

// ExecuteRequest carries the job-level execution options.
type ExecuteRequest struct {
	UpdateExisting    bool
	DefaultStage      string
	DefaultOwnerEmail string
	DefaultCustomerID *uuid.UUID
	// ManualMatches pins rows to customers ahead of the automatic email and
	// name resolution. Keys are customer emails or lowercased customer names
	// as they appear in the sheet.
	ManualMatches map[string]uuid.UUID
}

// Summary is the outcome of one execution run.
type Summary struct {
	ImportID      uuid.UUID
	TotalRows     int
	ProcessedRows int
	CreatedCount  int
	UpdatedCount  int
	SkippedCount  int
	FailedCount   int
	Errors        []store.ImportError
}

// Upload parses the file, stores it, and creates a PENDING job. The file is
// rejected before anything is persisted if it cannot be parsed.
func (e *Engine) Upload(ctx context.Context, importType, filename string, data []byte) (UploadResult, error) {
	if err := checkImportType(importType); err != nil {
		return UploadResult{}, err
	}

	sheet, err := Parse(filename, data)
	if err != nil {
		return UploadResult{}, err
	}
	if e.MaxRows > 0 && len(sheet.Rows) > e.MaxRows {
		return UploadResult{}, configErrorf("file has %d rows, the limit is %d", len(sheet.Rows), e.MaxRows)
	}

	key, err := filestore.NewObjectKey(filename)
	if err != nil {
		return UploadResult{}, err
	}
	if err := e.Files.Write(ctx, key, data); err != nil {
		return UploadResult{}, err
	}

	job, err := e.Store.ImportJobs().Create(ctx, store.CreateImportJobParams{
		ImportType: importType,
		Filename:   filestore.SanitizeFilename(filename),
		StorageKey: key,
		TotalRows:  len(sheet.Rows),
	})
	if err != nil {
		return UploadResult{}, err
	}

	samples := sheet.Rows
	if len(samples) > sampleRowCount {
		samples = samples[:sampleRowCount]
	}

	e.Logger.Info("import uploaded",
		"jobId", job.ID,
		"importType", importType,
		"filename", job.Filename,
		"totalRows", job.TotalRows)

	return UploadResult{
		Job:             job,
		Columns:         sheet.Headers,
		SampleRows:      samples,
		AvailableFields: Catalog(importType),
		Suggestions:     SuggestMappings(sheet.Headers, Catalog(importType)),
	}, nil
}

// SetMapping validates the submitted mapping against the stored file's
// headers and persists it. An invalid submission leaves the job untouched.
func (e *Engine) SetMapping(ctx context.Context, importType string, jobID uuid.UUID, entries []MappingEntry, ignoredColumns []string) (store.ImportJob, error) {
	job, err := e.loadJob(ctx, importType, jobID)
	if err != nil {
		return store.ImportJob{}, err
	}
	if job.Status == store.ImportJobProcessing {
		return store.ImportJob{}, ErrAlreadyRunning
	}

	data, err := e.Files.Read(ctx, job.StorageKey)
	if err != nil {
		return store.ImportJob{}, err
	}
	sheet, err := Parse(job.Filename, data)
	if err != nil {
		return store.ImportJob{}, err
	}

	mapping, err := ValidateMapping(importType, sheet.Headers, entries, ignoredColumns)
	if err != nil {
		return store.ImportJob{}, err
	}

	updated, err := e.Store.ImportJobs().SetMapping(ctx, job.ID, mapping, ignoredColumns)
	if err != nil {
		return store.ImportJob{}, err
	}

	e.Logger.Info("import mapping saved", "jobId", job.ID, "mappedFields", len(mapping))
	return updated, nil
}

// Execute runs the job over every row of the stored file. Row failures are
// counted and the run continues; infrastructure failures abort the run and
// mark the job FAILED. Re-running a finished job is allowed and idempotent
// because every entity write is keyed on natural identity.
func (e *Engine) Execute(ctx context.Context, importType string, jobID uuid.UUID, req ExecuteRequest) (Summary, error) {
	job, err := e.loadJob(ctx, importType, jobID)
	if err != nil {
		return Summary{}, err
	}
	if job.Status == store.ImportJobProcessing {
		return Summary{}, ErrAlreadyRunning
	}
	if len(job.Mapping) == 0 {
		return Summary{}, configErrorf("import %s has no field mapping", job.ID)
	}

	data, err := e.Files.Read(ctx, job.StorageKey)
	if err != nil {
		return Summary{}, err
	}
	sheet, err := Parse(job.Filename, data)
	if err != nil {
		return Summary{}, err
	}

	rc := newResolutionContext()
	opts, err := e.resolveOptions(ctx, rc, req)
	if err != nil {
		return Summary{}, err
	}

	if _, err := e.Store.ImportJobs().MarkProcessing(ctx, job.ID, time.Now().UTC()); err != nil {
		return Summary{}, err
	}

	summary := Summary{ImportID: job.ID, TotalRows: len(sheet.Rows)}
	for i, row := range sheet.Rows {
		rowNum := i + 2 // 1-based, after the header row
		if isBlankRow(row) {
			summary.SkippedCount++
			continue
		}

		var result rowResult
		err := e.Store.RunInTx(ctx, func(tx store.Store) error {
			var rowErr error
			result, rowErr = executeRow(ctx, tx, rc, rowValues{mapping: job.Mapping, row: row}, opts)
			return rowErr
		})
		if err != nil {
			var re *rowError
			if !errors.As(err, &re) {
				summary.recordError(rowNum, err.Error())
				e.finish(ctx, job.ID, store.ImportJobFailed, summary)
				return Summary{}, err
			}
			summary.recordError(rowNum, re.Error())
			continue
		}

		// Caches absorb the row's entities only after its transaction has
		// committed; a rolled-back row must leave them untouched.
		if result.ContactCreated {
			rc.cacheContact(result.Contact)
		}
		rc.cacheLead(result.Lead.Title, result.Contact.Email, result.Lead)

		switch result.Outcome {
		case RowCreated:
			summary.CreatedCount++
		case RowUpdated:
			summary.UpdatedCount++
		case RowSkipped:
			summary.SkippedCount++
		}
	}

	summary.ProcessedRows = summary.CreatedCount + summary.UpdatedCount
	if err := e.finish(ctx, job.ID, store.ImportJobCompleted, summary); err != nil {
		return Summary{}, err
	}

	e.Logger.Info("import completed",
		"jobId", job.ID,
		"totalRows", summary.TotalRows,
		"created", summary.CreatedCount,
		"updated", summary.UpdatedCount,
		"skipped", summary.SkippedCount,
		"failed", summary.FailedCount)
	return summary, nil
}

// resolveOptions validates the job-level defaults before the first row is
// touched, so a typo in the default owner email fails the request instead of
// failing every row.
func (e *Engine) resolveOptions(ctx context.Context, rc *resolutionContext, req ExecuteRequest) (executeOptions, error) {
	opts := executeOptions{
		DefaultStage:   req.DefaultStage,
		UpdateExisting: req.UpdateExisting,
	}

	if email := normalizeEmail(req.DefaultOwnerEmail); email != "" {
		owner, err := e.Store.Users().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return executeOptions{}, configErrorf("default owner %q not found", email)
			}
			return executeOptions{}, err
		}
		rc.ownersByEmail[email] = owner
		opts.DefaultOwnerID = &owner.ID
	}

	if req.DefaultCustomerID != nil {
		customer, err := e.Store.Customers().GetByID(ctx, *req.DefaultCustomerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return executeOptions{}, configErrorf("default customer %s not found", req.DefaultCustomerID)
			}
			return executeOptions{}, err
		}
		opts.DefaultCustomerID = &customer.ID
	}

	if len(req.ManualMatches) > 0 {
		opts.ManualMatches = make(map[string]uuid.UUID, len(req.ManualMatches))
		for token, id := range req.ManualMatches {
			opts.ManualMatches[strings.ToLower(strings.TrimSpace(token))] = id
		}
	}
	return opts, nil
}

func (e *Engine) finish(ctx context.Context, jobID uuid.UUID, status store.ImportJobStatus, summary Summary) error {
	_, err := e.Store.ImportJobs().Finish(ctx, store.FinishImportJobParams{
		ID:           jobID,
		Status:       status,
		SuccessCount: summary.CreatedCount + summary.UpdatedCount,
		FailureCount: summary.FailedCount,
		Errors:       summary.Errors,
		CompletedAt:  time.Now().UTC(),
	})
	if err != nil {
		e.Logger.Error("record import outcome", "jobId", jobID, "error", err)
	}
	return err
}

func (e *Engine) loadJob(ctx context.Context, importType string, jobID uuid.UUID) (store.ImportJob, error) {
	if err := checkImportType(importType); err != nil {
		return store.ImportJob{}, err
	}
	job, err := e.Store.ImportJobs().GetByID(ctx, jobID)
	if err != nil {
		return store.ImportJob{}, err
	}
	if job.ImportType != importType {
		return store.ImportJob{}, store.ErrNotFound
	}
	return job, nil
}

func (s *Summary) recordError(row int, message string) {
	s.FailedCount++
	if len(s.Errors) < ErrorCap {
		s.Errors = append(s.Errors, store.ImportError{Row: row, Message: message})
	}
}

func checkImportType(importType string) error {
	if importType != ImportTypeOpportunities {
		return configErrorf("unknown import type %q", importType)
	}
	return nil
}
