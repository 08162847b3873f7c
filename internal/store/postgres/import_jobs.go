package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

type importJobStore struct {
	db DBTX
}

const importJobColumns = `id, import_type, filename, storage_key, total_rows, mapping, ignored_columns, status, success_count, failure_count, errors, created_at, started_at, completed_at`

const createImportJob = `
INSERT INTO import_jobs (import_type, filename, storage_key, total_rows, status)
VALUES ($1, $2, $3, $4, 'PENDING')
RETURNING ` + importJobColumns

func (s *importJobStore) Create(ctx context.Context, params store.CreateImportJobParams) (store.ImportJob, error) {
	row := s.db.QueryRow(ctx, createImportJob, params.ImportType, params.Filename, params.StorageKey, params.TotalRows)
	return scanImportJob(row)
}

const getImportJobByID = `
SELECT ` + importJobColumns + `
FROM import_jobs
WHERE id = $1
`

func (s *importJobStore) GetByID(ctx context.Context, id uuid.UUID) (store.ImportJob, error) {
	return scanImportJob(s.db.QueryRow(ctx, getImportJobByID, id))
}

const listImportJobsByType = `
SELECT ` + importJobColumns + `
FROM import_jobs
WHERE import_type = $1
ORDER BY created_at DESC
LIMIT $2
`

func (s *importJobStore) ListByType(ctx context.Context, importType string, limit int) ([]store.ImportJob, error) {
	rows, err := s.db.Query(ctx, listImportJobsByType, importType, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	jobs := []store.ImportJob{}
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const setImportJobMapping = `
UPDATE import_jobs
SET mapping = $2, ignored_columns = $3
WHERE id = $1
RETURNING ` + importJobColumns

func (s *importJobStore) SetMapping(ctx context.Context, id uuid.UUID, mapping store.FieldMapping, ignoredColumns []string) (store.ImportJob, error) {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return store.ImportJob{}, fmt.Errorf("marshal mapping: %w", err)
	}
	ignoredJSON, err := json.Marshal(ignoredColumns)
	if err != nil {
		return store.ImportJob{}, fmt.Errorf("marshal ignored columns: %w", err)
	}
	return scanImportJob(s.db.QueryRow(ctx, setImportJobMapping, id, mappingJSON, ignoredJSON))
}

const markImportJobProcessing = `
UPDATE import_jobs
SET status = 'PROCESSING', success_count = 0, failure_count = 0, errors = '[]'::jsonb,
    started_at = $2, completed_at = NULL
WHERE id = $1
RETURNING ` + importJobColumns

func (s *importJobStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (store.ImportJob, error) {
	return scanImportJob(s.db.QueryRow(ctx, markImportJobProcessing, id, startedAt))
}

const finishImportJob = `
UPDATE import_jobs
SET status = $2, success_count = $3, failure_count = $4, errors = $5, completed_at = $6
WHERE id = $1
RETURNING ` + importJobColumns

func (s *importJobStore) Finish(ctx context.Context, params store.FinishImportJobParams) (store.ImportJob, error) {
	errorsJSON, err := json.Marshal(params.Errors)
	if err != nil {
		return store.ImportJob{}, fmt.Errorf("marshal errors: %w", err)
	}
	row := s.db.QueryRow(ctx, finishImportJob,
		params.ID,
		string(params.Status),
		params.SuccessCount,
		params.FailureCount,
		errorsJSON,
		params.CompletedAt,
	)
	return scanImportJob(row)
}

func scanImportJob(row rowScanner) (store.ImportJob, error) {
	var job store.ImportJob
	var status string
	var mappingJSON, ignoredJSON, errorsJSON []byte
	err := row.Scan(
		&job.ID,
		&job.ImportType,
		&job.Filename,
		&job.StorageKey,
		&job.TotalRows,
		&mappingJSON,
		&ignoredJSON,
		&status,
		&job.SuccessCount,
		&job.FailureCount,
		&errorsJSON,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return store.ImportJob{}, translateErr(err)
	}
	job.Status = store.ImportJobStatus(status)
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &job.Mapping); err != nil {
			return store.ImportJob{}, fmt.Errorf("unmarshal mapping: %w", err)
		}
	}
	if len(ignoredJSON) > 0 {
		if err := json.Unmarshal(ignoredJSON, &job.IgnoredColumns); err != nil {
			return store.ImportJob{}, fmt.Errorf("unmarshal ignored columns: %w", err)
		}
	}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &job.Errors); err != nil {
			return store.ImportJob{}, fmt.Errorf("unmarshal errors: %w", err)
		}
	}
	return job, nil
}
