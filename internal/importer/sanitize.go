package importer

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML reduces HTML to plain text: tags removed, entities unescaped,
// whitespace collapsed.
func StripHTML(raw string) string {
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// ParseTruthy maps the small truthy vocabulary to true; anything else,
// including an empty cell, is false. Never an error.
func ParseTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

// ParseValueCents parses a money amount into cents. Currency symbols,
// thousands separators and spaces are stripped; blank parses to zero.
func ParseValueCents(raw string) (int64, error) {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, rowErrorf("value %q is not numeric", strings.TrimSpace(raw))
	}
	if amount < 0 {
		return 0, nil
	}
	return int64(amount*100 + 0.5), nil
}

// SplitFullName splits a full name on the first space. A single-token name is
// used as both first and last name.
func SplitFullName(full string) (first, last string) {
	trimmed := strings.Join(strings.Fields(full), " ")
	if trimmed == "" {
		return "", ""
	}
	idx := strings.Index(trimmed, " ")
	if idx < 0 {
		return trimmed, trimmed
	}
	return trimmed[:idx], trimmed[idx+1:]
}

var dateFormats = []string{"2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02", "01-02-2006", "1-2-2006"}

// ParseFlexibleDate accepts the date shapes spreadsheets commonly carry.
// Ambiguous day/month values are read as MM/DD. Blank parses to nil.
func ParseFlexibleDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	for _, format := range dateFormats {
		parsed, err := time.Parse(format, trimmed)
		if err != nil {
			continue
		}
		date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &date, nil
	}
	return nil, rowErrorf("date %q is not in a recognized format", trimmed)
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
