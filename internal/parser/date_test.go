package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseW3CDTFFullPrecision(t *testing.T) {
	got, ok := parseW3CDTF("2008-12-30T10:03:15-08:00")
	require.True(t, ok)
	assert.Equal(t, int64(1230660195), got.Unix())
}

func TestParseW3CDTFYearOnlyDefaultsToUTCMidnightJan1(t *testing.T) {
	got, ok := parseW3CDTF("2008")
	require.True(t, ok)
	assert.Equal(t, "Tue, 01 Jan 2008 00:00:00 +0000", got.UTC().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
}

func TestParsePubDatePreferresRFC822(t *testing.T) {
	got, ok := parsePubDate("Tue, 01 Jan 2008 00:00:00 +0000")
	require.True(t, ok)
	assert.Equal(t, 2008, got.Year())
	assert.Equal(t, "UTC", got.Location().String())
}

func TestParsePubDateEmptyIsNotOK(t *testing.T) {
	_, ok := parsePubDate("")
	assert.False(t, ok)
}

func TestParsePubDateIgnoresHostTimezone(t *testing.T) {
	// The offset must come entirely from the input string, never from
	// the process's local timezone.
	got, ok := parseW3CDTF("2008-12-30T10:03:15+05:30")
	require.True(t, ok)
	assert.Equal(t, int64(1230611595), got.Unix())
}
