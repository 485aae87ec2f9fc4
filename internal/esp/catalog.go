package esp

import (
	"github.com/dealerops/console-api/internal/domain"
)

// MergeCatalog combines two provider catalogs into one de-duplicated
// list. Primary entries win field-by-field: a field defined only in the
// secondary fills the gap, but never overwrites a primary-defined
// field. Output order is primary entries first (original order), then
// secondary entries whose key was not in primary (secondary order).
// Entries missing a provider id are dropped; catalogs come from network
// responses that may be partially malformed.
func MergeCatalog(primary, secondary []domain.ProviderCatalogEntry) []domain.ProviderCatalogEntry {
	out := make([]domain.ProviderCatalogEntry, 0, len(primary)+len(secondary))
	index := make(map[string]int, len(primary))

	for _, e := range primary {
		id := NormalizeProviderID(e.Provider)
		if id == "" {
			continue
		}
		if _, seen := index[id]; seen {
			continue
		}
		e.Provider = id
		index[id] = len(out)
		out = append(out, e)
	}

	for _, e := range secondary {
		id := NormalizeProviderID(e.Provider)
		if id == "" {
			continue
		}
		if i, seen := index[id]; seen {
			out[i] = fillGaps(out[i], e)
			continue
		}
		e.Provider = id
		index[id] = len(out)
		out = append(out, e)
	}

	return out
}

// fillGaps copies secondary fields into dst only where dst has no value.
func fillGaps(dst, src domain.ProviderCatalogEntry) domain.ProviderCatalogEntry {
	if dst.Auth == "" {
		dst.Auth = src.Auth
	}
	if dst.OAuthMode == "" {
		dst.OAuthMode = src.OAuthMode
	}

	dst.OAuthSupported = fillBool(dst.OAuthSupported, src.OAuthSupported)
	dst.CredentialConnectSupported = fillBool(dst.CredentialConnectSupported, src.CredentialConnectSupported)
	dst.ValidationSupported = fillBool(dst.ValidationSupported, src.ValidationSupported)
	dst.BusinessDetailsRefreshSupported = fillBool(dst.BusinessDetailsRefreshSupported, src.BusinessDetailsRefreshSupported)
	dst.BusinessDetailsSyncSupported = fillBool(dst.BusinessDetailsSyncSupported, src.BusinessDetailsSyncSupported)
	dst.ActiveForAccount = fillBool(dst.ActiveForAccount, src.ActiveForAccount)

	if len(src.Capabilities) > 0 {
		// Copy before writing so the caller's catalog is never mutated.
		merged := make(map[string]bool, len(dst.Capabilities)+len(src.Capabilities))
		for k, v := range src.Capabilities {
			merged[k] = v
		}
		for k, v := range dst.Capabilities {
			merged[k] = v
		}
		dst.Capabilities = merged
	}
	if len(src.WebhookEndpoints) > 0 {
		merged := make(map[string]string, len(dst.WebhookEndpoints)+len(src.WebhookEndpoints))
		for k, v := range src.WebhookEndpoints {
			merged[k] = v
		}
		for k, v := range dst.WebhookEndpoints {
			merged[k] = v
		}
		dst.WebhookEndpoints = merged
	}

	return dst
}

func fillBool(dst, src *bool) *bool {
	if dst != nil {
		return dst
	}
	return src
}

// FallbackEntry builds a minimal catalog entry for a provider with no
// catalog metadata: all capabilities false, api-key auth.
func FallbackEntry(providerID string) domain.ProviderCatalogEntry {
	f := false
	return domain.ProviderCatalogEntry{
		Provider:                        NormalizeProviderID(providerID),
		Auth:                            domain.AuthAPIKey,
		Capabilities:                    map[string]bool{},
		OAuthSupported:                  &f,
		CredentialConnectSupported:      &f,
		ValidationSupported:             &f,
		BusinessDetailsRefreshSupported: &f,
		BusinessDetailsSyncSupported:    &f,
	}
}

// DeriveCatalogFromAccount scans an account's stored connection fields
// and synthesizes fallback catalog entries for every provider id it
// mentions. Used when the catalog endpoint is unreachable so the
// console can still render the account's providers.
func DeriveCatalogFromAccount(account *domain.Account) []domain.ProviderCatalogEntry {
	if account == nil {
		return []domain.ProviderCatalogEntry{}
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		id = NormalizeProviderID(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	add(account.EspProvider)
	add(account.ActiveEspProvider)
	for _, p := range account.ConnectedProviders {
		add(p)
	}
	for _, c := range account.OAuthConnections {
		add(c.Provider)
	}
	for _, c := range account.EspConnections {
		add(c.Provider)
	}

	out := make([]domain.ProviderCatalogEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, FallbackEntry(id))
	}
	return out
}
