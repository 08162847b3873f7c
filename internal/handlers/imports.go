package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/audit"
	"github.com/lumacrm/api/internal/httpx"
	"github.com/lumacrm/api/internal/importer"
	"github.com/lumacrm/api/internal/middleware"
	"github.com/lumacrm/api/internal/store"
)

const defaultImportListLimit = 50

type importJobResponse struct {
	ID             uuid.UUID             `json:"id"`
	ImportType     string                `json:"importType"`
	Filename       string                `json:"filename"`
	Status         store.ImportJobStatus `json:"status"`
	TotalRows      int                   `json:"totalRows"`
	Mapping        store.FieldMapping    `json:"mapping,omitempty"`
	IgnoredColumns []string              `json:"ignoredColumns,omitempty"`
	SuccessCount   int                   `json:"successCount"`
	FailureCount   int                   `json:"failureCount"`
	Errors         []store.ImportError   `json:"errors"`
	CreatedAt      time.Time             `json:"createdAt"`
	StartedAt      *time.Time            `json:"startedAt,omitempty"`
	CompletedAt    *time.Time            `json:"completedAt,omitempty"`
}

type uploadResponse struct {
	Job               importJobResponse     `json:"job"`
	Columns           []string              `json:"columns"`
	SampleRows        []map[string]string   `json:"sampleRows"`
	AvailableFields   []importer.Field      `json:"availableFields"`
	SuggestedMappings []importer.Suggestion `json:"suggestedMappings"`
}

type mappingRequest struct {
	Mappings       []importer.MappingEntry `json:"mappings"`
	IgnoredColumns []string                `json:"ignoredColumns,omitempty"`
}

type executeRequest struct {
	UpdateExisting    bool              `json:"updateExisting,omitempty"`
	DefaultOwnerEmail string            `json:"defaultOwnerEmail,omitempty"`
	DefaultCustomerID *uuid.UUID        `json:"defaultCustomerId,omitempty"`
	DefaultStage      string            `json:"defaultStage,omitempty"`
	ManualMatches     map[string]string `json:"manualMatches,omitempty"`
}

type executeResponse struct {
	ImportID      uuid.UUID           `json:"importId"`
	TotalRows     int                 `json:"totalRows"`
	ProcessedRows int                 `json:"processedRows"`
	CreatedCount  int                 `json:"createdCount"`
	UpdatedCount  int                 `json:"updatedCount"`
	SkippedCount  int                 `json:"skippedCount"`
	FailedCount   int                 `json:"failedCount"`
	Errors        []store.ImportError `json:"errors"`
}

func (s *Server) PostImportUpload(w http.ResponseWriter, r *http.Request) {
	importType, ok := s.importType(w, r)
	if !ok {
		return
	}

	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_content_type", "Content-Type must be multipart/form-data", nil)
		return
	}
	if err := r.ParseMultipartForm(s.Config.ImportMaxFileBytes); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_multipart", "Failed to parse multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "missing_file", "file is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_file", "Failed to read uploaded file", nil)
		return
	}
	if s.Config.ImportMaxFileBytes > 0 && int64(len(data)) > s.Config.ImportMaxFileBytes {
		httpx.WriteError(w, r, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("File exceeds the %d byte upload limit", s.Config.ImportMaxFileBytes), nil)
		return
	}

	result, err := s.Engine.Upload(r.Context(), importType, header.Filename, data)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}

	jobID := result.Job.ID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import.upload",
		EntityType: "import_job",
		EntityID:   &jobID,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"filename":  result.Job.Filename,
			"totalRows": result.Job.TotalRows,
		},
	})

	httpx.WriteJSON(w, http.StatusCreated, uploadResponse{
		Job:               mapImportJob(result.Job),
		Columns:           result.Columns,
		SampleRows:        result.SampleRows,
		AvailableFields:   result.AvailableFields,
		SuggestedMappings: result.Suggestions,
	})
}

func (s *Server) GetImports(w http.ResponseWriter, r *http.Request) {
	importType, ok := s.importType(w, r)
	if !ok {
		return
	}

	limit := defaultImportListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "limit must be between 1 and 200", nil)
			return
		}
		limit = parsed
	}

	jobs, err := s.Store.ImportJobs().ListByType(r.Context(), importType, limit)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to list imports", nil)
		return
	}

	out := make([]importJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, mapImportJob(job))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"imports": out})
}

func (s *Server) GetImport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapImportJob(job))
}

func (s *Server) PostImportMapping(w http.ResponseWriter, r *http.Request) {
	importType, ok := s.importType(w, r)
	if !ok {
		return
	}
	jobID, ok := s.importID(w, r)
	if !ok {
		return
	}

	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}

	job, err := s.Engine.SetMapping(r.Context(), importType, jobID, req.Mappings, req.IgnoredColumns)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import.map",
		EntityType: "import_job",
		EntityID:   &jobID,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata:   map[string]any{"mappedFields": len(job.Mapping)},
	})

	httpx.WriteJSON(w, http.StatusOK, mapImportJob(job))
}

func (s *Server) PostImportExecute(w http.ResponseWriter, r *http.Request) {
	importType, ok := s.importType(w, r)
	if !ok {
		return
	}
	jobID, ok := s.importID(w, r)
	if !ok {
		return
	}

	var req executeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
			return
		}
	}

	manual := make(map[string]uuid.UUID, len(req.ManualMatches))
	for token, raw := range req.ManualMatches {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("manualMatches[%q] is not a valid customer id", token), nil)
			return
		}
		manual[token] = id
	}

	summary, err := s.Engine.Execute(r.Context(), importType, jobID, importer.ExecuteRequest{
		UpdateExisting:    req.UpdateExisting,
		DefaultStage:      req.DefaultStage,
		DefaultOwnerEmail: req.DefaultOwnerEmail,
		DefaultCustomerID: req.DefaultCustomerID,
		ManualMatches:     manual,
	})
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import.execute",
		EntityType: "import_job",
		EntityID:   &jobID,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"created": summary.CreatedCount,
			"updated": summary.UpdatedCount,
			"skipped": summary.SkippedCount,
			"failed":  summary.FailedCount,
		},
	})

	httpx.WriteJSON(w, http.StatusOK, executeResponse{
		ImportID:      summary.ImportID,
		TotalRows:     summary.TotalRows,
		ProcessedRows: summary.ProcessedRows,
		CreatedCount:  summary.CreatedCount,
		UpdatedCount:  summary.UpdatedCount,
		SkippedCount:  summary.SkippedCount,
		FailedCount:   summary.FailedCount,
		Errors:        summary.Errors,
	})
}

// GetImportErrors streams the job's captured row failures as a CSV download.
func (s *Server) GetImportErrors(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "import-errors-"+job.ID.String()+".csv"))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"row", "message"})
	for _, rowErr := range job.Errors {
		_ = writer.Write([]string{strconv.Itoa(rowErr.Row), rowErr.Message})
	}
	writer.Flush()
}

func (s *Server) importType(w http.ResponseWriter, r *http.Request) (string, bool) {
	importType := chi.URLParam(r, "importType")
	if importType != importer.ImportTypeOpportunities {
		httpx.WriteError(w, r, http.StatusNotFound, "unknown_import_type",
			fmt.Sprintf("Import type %q is not supported", importType), nil)
		return "", false
	}
	return importType, true
}

func (s *Server) importID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "importId"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusNotFound, "import_not_found", "Import was not found", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (store.ImportJob, bool) {
	importType, ok := s.importType(w, r)
	if !ok {
		return store.ImportJob{}, false
	}
	jobID, ok := s.importID(w, r)
	if !ok {
		return store.ImportJob{}, false
	}

	job, err := s.Store.ImportJobs().GetByID(r.Context(), jobID)
	if err != nil || job.ImportType != importType {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import", nil)
			return store.ImportJob{}, false
		}
		httpx.WriteError(w, r, http.StatusNotFound, "import_not_found", "Import was not found", nil)
		return store.ImportJob{}, false
	}
	return job, true
}

func (s *Server) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		parseErr   *importer.ParseError
		mappingErr *importer.BadMappingError
		configErr  *importer.ConfigError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, "import_not_found", "Import was not found", nil)
	case errors.Is(err, importer.ErrAlreadyRunning):
		httpx.WriteError(w, r, http.StatusConflict, "import_running", "Import is already running", nil)
	case errors.As(err, &parseErr):
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_file", parseErr.Message, nil)
	case errors.As(err, &mappingErr):
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_mapping", mappingErr.Message, nil)
	case errors.As(err, &configErr):
		httpx.WriteError(w, r, http.StatusBadRequest, "import_not_ready", configErr.Message, nil)
	default:
		s.Logger.Error("import request failed", "error", err, "request_id", middleware.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Import processing failed", nil)
	}
}

func mapImportJob(job store.ImportJob) importJobResponse {
	errs := job.Errors
	if errs == nil {
		errs = []store.ImportError{}
	}
	return importJobResponse{
		ID:             job.ID,
		ImportType:     job.ImportType,
		Filename:       job.Filename,
		Status:         job.Status,
		TotalRows:      job.TotalRows,
		Mapping:        job.Mapping,
		IgnoredColumns: job.IgnoredColumns,
		SuccessCount:   job.SuccessCount,
		FailureCount:   job.FailureCount,
		Errors:         errs,
		CreatedAt:      job.CreatedAt.UTC(),
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
}
