package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	sheet, err := Parse("deals.csv", []byte("Title,Email\nDeal A,a@x.com\nDeal B,b@x.com\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Email"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Deal A", sheet.Rows[0]["Title"])
	assert.Equal(t, "b@x.com", sheet.Rows[1]["Email"])
}

func TestParseCSVStripsBOM(t *testing.T) {
	sheet, err := Parse("deals.csv", []byte("\ufeffTitle,Email\nDeal A,a@x.com\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Email"}, sheet.Headers)
}

func TestParseCSVRaggedRows(t *testing.T) {
	sheet, err := Parse("deals.csv", []byte("Title,Email,Phone\nDeal A,a@x.com\n"))
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "", sheet.Rows[0]["Phone"])
}

func TestParseCSVDuplicateHeadersFirstWins(t *testing.T) {
	sheet, err := Parse("deals.csv", []byte("Title,Title\nfirst,second\n"))
	require.NoError(t, err)
	assert.Equal(t, "first", sheet.Rows[0]["Title"])
}

func TestParseCSVTrimsTrailingEmptyHeaders(t *testing.T) {
	sheet, err := Parse("deals.csv", []byte("Title,Email,,\nDeal A,a@x.com,,\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Email"}, sheet.Headers)
}

func TestParseEmptyFile(t *testing.T) {
	_, err := Parse("deals.csv", nil)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseUnsupportedExtension(t *testing.T) {
	_, err := Parse("deals.txt", []byte("Title\nA\n"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Title", "Email"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Deal A", "a@x.com"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	sheet, err := Parse("deals.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Email"}, sheet.Headers)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "Deal A", sheet.Rows[0]["Title"])
}

func TestParseXLSXMalformed(t *testing.T) {
	_, err := Parse("deals.xlsx", []byte("not a zip"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, isBlankRow(map[string]string{"a": "", "b": "  "}))
	assert.False(t, isBlankRow(map[string]string{"a": "", "b": "x"}))
}
