package esp_test

import (
	"strings"
	"testing"

	"github.com/dealerops/console-api/internal/esp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func known(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func TestParseBulkLinkInput_CommaRows(t *testing.T) {
	rows := esp.ParseBulkLinkInput("acme,loc-1\nglobex,loc-2,Globex Downtown", known("acme", "globex"))

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "acme", rows[0].AccountKey)
	assert.Equal(t, "loc-1", rows[0].LocationID)
	assert.True(t, rows[0].Valid())

	assert.Equal(t, "Globex Downtown", rows[1].LocationName)
	assert.True(t, rows[1].Valid())
}

func TestParseBulkLinkInput_TabWinsOverComma(t *testing.T) {
	// Spreadsheet paste: tab-separated, location name contains a comma.
	rows := esp.ParseBulkLinkInput("acme\tloc-1\tAcme Motors, North Lot", known("acme"))

	require.Len(t, rows, 1)
	assert.Equal(t, "acme", rows[0].AccountKey)
	assert.Equal(t, "loc-1", rows[0].LocationID)
	assert.Equal(t, "Acme Motors, North Lot", rows[0].LocationName)
	assert.True(t, rows[0].Valid())
}

func TestParseBulkLinkInput_ExtraCommaFieldsRejoinAsName(t *testing.T) {
	rows := esp.ParseBulkLinkInput("acme,loc-1,North Lot,Building B", known("acme"))

	require.Len(t, rows, 1)
	assert.Equal(t, "North Lot,Building B", rows[0].LocationName)
}

func TestParseBulkLinkInput_SkipsBlankAndCommentLines(t *testing.T) {
	input := "\n# dealers imported 2026-08\nacme,loc-1\n\n   \n# trailing comment"
	rows := esp.ParseBulkLinkInput(input, known("acme"))

	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Line) // line numbers count every input line
}

func TestParseBulkLinkInput_HeaderRowSkipped(t *testing.T) {
	for _, header := range []string{
		"accountKey,locationId",
		"ACCOUNT_KEY,LOCATION_ID",
		"account\tlocation",
		"accountkey,location,name",
	} {
		rows := esp.ParseBulkLinkInput(header+"\nacme,loc-1", known("acme"))
		require.Len(t, rows, 1, "header %q should be skipped", header)
		assert.Equal(t, "acme", rows[0].AccountKey)
	}
}

func TestParseBulkLinkInput_HeaderWordsAsDataAreNotSkipped(t *testing.T) {
	// Only the synonym *pair* marks a header; "account" as a real key
	// with a non-header second field must flow through validation.
	rows := esp.ParseBulkLinkInput("account,loc-1", known())

	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Error, "Unknown account key")
}

func TestParseBulkLinkInput_MalformedRow(t *testing.T) {
	rows := esp.ParseBulkLinkInput("acme\n,loc-2\nacme,", known("acme"))

	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Contains(t, row.Error, "Expected accountKey,locationId")
	}
}

func TestParseBulkLinkInput_UnknownAccountKey(t *testing.T) {
	rows := esp.ParseBulkLinkInput("ghost,loc-1", map[string]bool{})

	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Error, "Unknown account key")
}

func TestParseBulkLinkInput_DuplicateAccountKey(t *testing.T) {
	rows := esp.ParseBulkLinkInput("acme,loc-1\nacme,loc-2", known("acme"))

	require.Len(t, rows, 2)
	assert.True(t, rows[0].Valid())
	assert.Contains(t, rows[1].Error, "Duplicate")
}

func TestParseBulkLinkInput_ValidationOrderFirstFailureWins(t *testing.T) {
	// Unknown key repeated: the second row reports "unknown", not
	// "duplicate" — unknown keys are never recorded as seen.
	rows := esp.ParseBulkLinkInput("ghost,loc-1\nghost,loc-2", known())

	require.Len(t, rows, 2)
	assert.Contains(t, rows[0].Error, "Unknown account key")
	assert.Contains(t, rows[1].Error, "Unknown account key")
}

// Total coverage: every non-blank, non-comment, non-header line yields
// exactly one row, valid or annotated.
func TestParseBulkLinkInput_TotalCoverage(t *testing.T) {
	input := strings.Join([]string{
		"accountKey,locationId", // header
		"acme,loc-1",            // valid
		"# note",                // comment
		"",                      // blank
		"ghost,loc-2",           // unknown
		"acme,loc-3",            // duplicate
		"justonefield",          // malformed
	}, "\n")

	rows := esp.ParseBulkLinkInput(input, known("acme"))

	assert.Len(t, rows, 4)
	valid := 0
	for _, row := range rows {
		if row.Valid() {
			valid++
		}
	}
	assert.Equal(t, 1, valid)
}

func TestParseBulkLinkInput_EmptyInput(t *testing.T) {
	assert.Empty(t, esp.ParseBulkLinkInput("", known("acme")))
	assert.Empty(t, esp.ParseBulkLinkInput("\n\n# only comments\n", known("acme")))
}
