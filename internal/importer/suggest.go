package importer

import "strings"

// Suggestion proposes one source column for one target field. Suggestions only
// pre-fill the mapping step; the user can discard them freely.
type Suggestion struct {
	SourceColumn string `json:"sourceColumn"`
	TargetField  string `json:"targetField"`
}

// SuggestMappings pairs spreadsheet columns with target fields by name
// similarity: exact normalized match first, then substring containment. Each
// column and each field is used at most once.
func SuggestMappings(headers []string, fields []Field) []Suggestion {
	usedColumns := map[string]struct{}{}
	claimedFields := map[string]struct{}{}
	suggestions := []Suggestion{}

	claim := func(field Field, match func(header string) bool) bool {
		for _, header := range headers {
			if header == "" {
				continue
			}
			if _, taken := usedColumns[header]; taken {
				continue
			}
			if match(header) {
				usedColumns[header] = struct{}{}
				claimedFields[field.Key] = struct{}{}
				suggestions = append(suggestions, Suggestion{SourceColumn: header, TargetField: field.Key})
				return true
			}
		}
		return false
	}

	for _, field := range fields {
		key := normalizeColumnName(field.Key)
		label := normalizeColumnName(field.Label)
		claim(field, func(header string) bool {
			normalized := normalizeColumnName(header)
			return normalized == key || normalized == label
		})
	}

	for _, field := range fields {
		if _, done := claimedFields[field.Key]; done {
			continue
		}
		key := normalizeColumnName(field.Key)
		label := normalizeColumnName(field.Label)
		claim(field, func(header string) bool {
			normalized := normalizeColumnName(header)
			if normalized == "" {
				return false
			}
			return strings.Contains(normalized, key) || strings.Contains(key, normalized) ||
				(label != "" && (strings.Contains(normalized, label) || strings.Contains(label, normalized)))
		})
	}

	return suggestions
}

func normalizeColumnName(raw string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", "/", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
}
