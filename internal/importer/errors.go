package importer

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning rejects mapping changes and execute calls while a job is
// in the PROCESSING state.
var ErrAlreadyRunning = errors.New("import is already running")

// ParseError reports an unreadable or structurally invalid spreadsheet.
// Upload and execute surface it as a request failure.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// BadMappingError reports a mapping submission that references unknown
// columns, maps a target field twice, or omits a required field. The job's
// stored mapping is left untouched.
type BadMappingError struct {
	Message string
}

func (e *BadMappingError) Error() string { return e.Message }

func badMappingf(format string, args ...any) *BadMappingError {
	return &BadMappingError{Message: fmt.Sprintf(format, args...)}
}

// ConfigError rejects an execute call before any row is touched: missing
// mapping, job already running, or unresolvable job-level defaults.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// rowError isolates a failure to a single row. The orchestrator counts it and
// moves on; it never aborts the run.
type rowError struct {
	message string
}

func (e *rowError) Error() string { return e.message }

func rowErrorf(format string, args ...any) *rowError {
	return &rowError{message: fmt.Sprintf(format, args...)}
}
