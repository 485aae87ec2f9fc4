// Package esp implements the provider-readiness core: catalog merging,
// per-account connection status resolution, custom-value sync readiness
// and the bulk location-link parser. Everything in this package is pure
// and deterministic; callers feed it catalog and account data and branch
// on the results.
package esp

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeProviderID returns the canonical form of a provider id:
// lowercase, trimmed. Catalog keys and connection records are always
// compared in this form.
func NormalizeProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NormalizeAccountKey derives a canonical account key from free text
// (typically a dealer name): lowercase, diacritics stripped, runs of
// non-alphanumerics collapsed to single hyphens.
func NormalizeAccountKey(s string) string {
	s = stripDiacritics(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// stripDiacritics removes diacritical marks from a string by NFD
// decomposition followed by dropping combining marks.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
