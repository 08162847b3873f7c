package store

import (
	"time"

	"github.com/google/uuid"
)

type ImportJobStatus string

const (
	ImportJobPending    ImportJobStatus = "PENDING"
	ImportJobProcessing ImportJobStatus = "PROCESSING"
	ImportJobCompleted  ImportJobStatus = "COMPLETED"
	ImportJobFailed     ImportJobStatus = "FAILED"
)

// FieldMapping maps a target field key to the source column it is read from.
type FieldMapping map[string]string

// ImportError is one captured row failure. The job keeps at most
// importer.ErrorCap of these; failures past the cap are counted but not
// itemized.
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportJob struct {
	ID             uuid.UUID
	ImportType     string
	Filename       string
	StorageKey     string
	TotalRows      int
	Mapping        FieldMapping
	IgnoredColumns []string
	Status         ImportJobStatus
	SuccessCount   int
	FailureCount   int
	Errors         []ImportError
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

type CreateImportJobParams struct {
	ImportType string
	Filename   string
	StorageKey string
	TotalRows  int
}

type FinishImportJobParams struct {
	ID           uuid.UUID
	Status       ImportJobStatus
	SuccessCount int
	FailureCount int
	Errors       []ImportError
	CompletedAt  time.Time
}
