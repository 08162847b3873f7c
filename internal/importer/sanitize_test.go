package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", StripHTML("<p>Hello <b>world</b></p>"))
	assert.Equal(t, "a & b", StripHTML("a &amp; b"))
	assert.Equal(t, "plain text", StripHTML("plain   text"))
	assert.Equal(t, "", StripHTML("<br/><br/>"))
}

func TestParseTruthy(t *testing.T) {
	for _, raw := range []string{"true", "TRUE", "1", "yes", "Y", " y "} {
		assert.True(t, ParseTruthy(raw), raw)
	}
	for _, raw := range []string{"", "false", "0", "no", "maybe"} {
		assert.False(t, ParseTruthy(raw), raw)
	}
}

func TestParseValueCents(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"100", 10000},
		{"1250.50", 125050},
		{"$1,250.50", 125050},
		{"€ 99", 9900},
		{"0.1", 10},
		{"19.99", 1999},
		{"-50", 0},
	}
	for _, tt := range tests {
		got, err := ParseValueCents(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := ParseValueCents("a lot")
	var re *rowError
	require.ErrorAs(t, err, &re)
}

func TestSplitFullName(t *testing.T) {
	first, last := SplitFullName("Amy Adams")
	assert.Equal(t, "Amy", first)
	assert.Equal(t, "Adams", last)

	first, last = SplitFullName("Amy van der Berg")
	assert.Equal(t, "Amy", first)
	assert.Equal(t, "van der Berg", last)

	first, last = SplitFullName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Equal(t, "Cher", last)

	first, last = SplitFullName("   ")
	assert.Equal(t, "", first)
	assert.Equal(t, "", last)
}

func TestParseFlexibleDate(t *testing.T) {
	for _, raw := range []string{"2026-03-22", "03/22/2026", "3/22/2026", "2026/03/22", "03-22-2026"} {
		got, err := ParseFlexibleDate(raw)
		require.NoError(t, err, raw)
		require.NotNil(t, got, raw)
		assert.Equal(t, "2026-03-22", got.Format("2006-01-02"), raw)
	}

	got, err := ParseFlexibleDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseFlexibleDate("next tuesday")
	var re *rowError
	require.ErrorAs(t, err, &re)
}
