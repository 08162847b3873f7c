package importer

import (
	"github.com/lumacrm/api/internal/store"
)

// MappingEntry is one user-submitted column-to-field pairing.
type MappingEntry struct {
	SourceColumn string `json:"sourceColumn"`
	TargetField  string `json:"targetField"`
}

// ValidateMapping checks entries against the actual spreadsheet headers and
// the field catalog for importType. Headers come from re-parsing the stored
// file, never from the client. On success it returns the normalized
// field-to-column map.
func ValidateMapping(importType string, headers []string, entries []MappingEntry, ignoredColumns []string) (store.FieldMapping, error) {
	known := make(map[string]struct{}, len(headers))
	for _, header := range headers {
		if header != "" {
			known[header] = struct{}{}
		}
	}
	knownFields := knownFieldKeys(importType)

	mapping := store.FieldMapping{}
	for _, entry := range entries {
		if _, ok := known[entry.SourceColumn]; !ok {
			return nil, badMappingf("column %q does not exist in the uploaded file", entry.SourceColumn)
		}
		if _, ok := knownFields[entry.TargetField]; !ok {
			return nil, badMappingf("unknown target field %q", entry.TargetField)
		}
		if _, dup := mapping[entry.TargetField]; dup {
			return nil, badMappingf("target field %q is mapped more than once", entry.TargetField)
		}
		mapping[entry.TargetField] = entry.SourceColumn
	}

	for _, required := range RequiredFields(importType) {
		if _, ok := mapping[required]; !ok {
			return nil, badMappingf("required field %q is not mapped", required)
		}
	}

	for _, column := range ignoredColumns {
		if _, ok := known[column]; !ok {
			return nil, badMappingf("ignored column %q does not exist in the uploaded file", column)
		}
	}

	return mapping, nil
}
