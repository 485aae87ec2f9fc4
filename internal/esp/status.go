package esp

import (
	"github.com/dealerops/console-api/internal/domain"
)

// StatusResolver computes per-provider connection status for one
// account against a merged catalog. It is cheap to build and holds no
// state beyond its two inputs, so callers construct one per request.
type StatusResolver struct {
	byID    map[string]domain.ProviderCatalogEntry
	order   []string
	account *domain.Account
}

// NewStatusResolver indexes the catalog by normalized provider id.
func NewStatusResolver(catalog []domain.ProviderCatalogEntry, account *domain.Account) *StatusResolver {
	r := &StatusResolver{
		byID:    make(map[string]domain.ProviderCatalogEntry, len(catalog)),
		order:   make([]string, 0, len(catalog)),
		account: account,
	}
	for _, e := range catalog {
		id := NormalizeProviderID(e.Provider)
		if id == "" {
			continue
		}
		if _, seen := r.byID[id]; seen {
			continue
		}
		r.byID[id] = e
		r.order = append(r.order, id)
	}
	return r
}

// Entry returns the catalog entry for a provider id, if present.
func (r *StatusResolver) Entry(providerID string) (domain.ProviderCatalogEntry, bool) {
	e, ok := r.byID[NormalizeProviderID(providerID)]
	return e, ok
}

// Providers returns the catalog ids in their merged order.
func (r *StatusResolver) Providers() []string {
	return r.order
}

// Status resolves the connection state of one provider for the
// account. Resolution order: an explicit OAuth connection for the
// provider, then an API-key connection, then none. Scopes are never
// nil on a resolved status.
func (r *StatusResolver) Status(providerID string) domain.ProviderConnectionStatus {
	id := NormalizeProviderID(providerID)
	status := domain.ProviderConnectionStatus{
		Provider:       id,
		ConnectionType: domain.ConnectionTypeNone,
		Scopes:         []string{},
	}
	if r.account == nil {
		return status
	}

	for _, c := range r.account.OAuthConnections {
		if NormalizeProviderID(c.Provider) != id {
			continue
		}
		status.ConnectionType = domain.ConnectionTypeOAuth
		status.OAuthConnected = true
		status.AccountID = c.AccountID
		status.AccountName = c.AccountName
		status.LocationID = c.LocationID
		status.LocationName = c.LocationName
		status.InstalledAt = c.InstalledAt
		if len(c.Scopes) > 0 {
			status.Scopes = append([]string(nil), c.Scopes...)
		}
		status.Connected = true
		return status
	}

	for _, c := range r.account.EspConnections {
		if NormalizeProviderID(c.Provider) != id {
			continue
		}
		status.ConnectionType = domain.ConnectionTypeAPIKey
		status.AccountID = c.AccountID
		status.Connected = true
		return status
	}

	return status
}

// HasAnyConnection reports whether at least one catalog provider
// resolves to connected. Gates the contacts surface: contacts cannot
// be fetched without some live ESP connection.
func (r *StatusResolver) HasAnyConnection() bool {
	for _, id := range r.order {
		if r.Status(id).Connected {
			return true
		}
	}
	return false
}
