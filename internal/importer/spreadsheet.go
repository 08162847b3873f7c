package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is a parsed spreadsheet: the header row plus the data rows keyed by
// header name. Cells are trimmed; missing cells become empty strings.
type Sheet struct {
	Headers []string
	Rows    []map[string]string
}

// Parse reads a CSV or XLSX upload into a Sheet. The format is chosen by the
// filename extension. A file without headers is a hard failure.
func Parse(filename string, data []byte) (Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return Sheet{}, parseErrorf("unsupported file extension %q", filepath.Ext(filename))
	}
}

func parseCSV(data []byte) (Sheet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records := make([][]string, 0, 1024)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Sheet{}, parseErrorf("malformed CSV: %v", err)
		}
		records = append(records, record)
	}
	return sheetFromRecords(records)
}

func parseXLSX(data []byte) (Sheet, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, parseErrorf("malformed XLSX: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, parseErrorf("XLSX file contains no sheets")
	}
	records, err := file.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, parseErrorf("read XLSX rows: %v", err)
	}
	return sheetFromRecords(records)
}

func sheetFromRecords(records [][]string) (Sheet, error) {
	if len(records) == 0 {
		return Sheet{}, parseErrorf("file is empty")
	}

	headers := make([]string, 0, len(records[0]))
	for _, raw := range records[0] {
		headers = append(headers, strings.TrimPrefix(strings.TrimSpace(raw), "\ufeff"))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return Sheet{}, parseErrorf("file has no header row")
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			// First occurrence wins for duplicated header names.
			if _, seen := row[header]; !seen {
				row[header] = value
			}
		}
		rows = append(rows, row)
	}

	return Sheet{Headers: headers, Rows: rows}, nil
}

func isBlankRow(row map[string]string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
