package esp

import (
	"strings"

	"github.com/dealerops/console-api/internal/domain"
)

// Header synonyms recognized for the first two columns of bulk-link
// input. A line whose first two tokens match one from each set is a
// header row and is skipped entirely.
var (
	accountKeyHeaders = map[string]bool{
		"accountkey":  true,
		"account_key": true,
		"account":     true,
	}
	locationIDHeaders = map[string]bool{
		"locationid":  true,
		"location_id": true,
		"location":    true,
	}
)

const errMalformedRow = "Expected accountKey,locationId[,locationName]"

// ParseBulkLinkInput parses free-text bulk location-link input into
// validated rows. Per non-blank, non-comment line (1-indexed):
//
//   - split on tab if the line contains one, else on comma; trim fields
//   - fields 1-2 are accountKey and locationId; any remainder is
//     rejoined with commas as an optional locationName
//   - a recognized header row is skipped, not emitted
//   - validation order, first failure wins: malformed, unknown account
//     key, duplicate account key within the batch
//
// Every surviving line produces exactly one row, valid or annotated
// with an error — nothing is silently dropped.
func ParseBulkLinkInput(raw string, knownAccountKeys map[string]bool) []domain.BulkLinkRow {
	rows := []domain.BulkLinkRow{}
	seen := make(map[string]bool)

	for i, line := range strings.Split(raw, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := splitLine(trimmed)
		accountKey := field(fields, 0)
		locationID := field(fields, 1)
		locationName := ""
		if len(fields) > 2 {
			locationName = strings.Join(fields[2:], ",")
		}

		if isHeaderRow(accountKey, locationID) {
			continue
		}

		row := domain.BulkLinkRow{
			Line:         lineNo,
			Raw:          line,
			AccountKey:   accountKey,
			LocationID:   locationID,
			LocationName: locationName,
		}

		switch {
		case accountKey == "" || locationID == "":
			row.Error = errMalformedRow
		case !knownAccountKeys[accountKey]:
			row.Error = "Unknown account key"
		case seen[accountKey]:
			row.Error = "Duplicate account key in this batch"
		default:
			seen[accountKey] = true
		}

		rows = append(rows, row)
	}

	return rows
}

// splitLine splits on tab when the line contains one, else on comma,
// trimming each field. Tab input typically comes from spreadsheet
// paste, where location names may themselves contain commas.
func splitLine(line string) []string {
	sep := ","
	if strings.Contains(line, "\t") {
		sep = "\t"
	}
	fields := strings.Split(line, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func isHeaderRow(first, second string) bool {
	return accountKeyHeaders[strings.ToLower(first)] && locationIDHeaders[strings.ToLower(second)]
}
