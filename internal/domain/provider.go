package domain

// OAuth modes a provider can operate in. Agency mode means OAuth is
// established once at the platform level and individual accounts are
// linked to an external location instead of authorizing separately.
const (
	OAuthModeLegacy = "legacy"
	OAuthModeHybrid = "hybrid"
	OAuthModeAgency = "agency"
)

// Connection types resolved for a provider on a given account.
const (
	ConnectionTypeOAuth  = "oauth"
	ConnectionTypeAPIKey = "api-key"
	ConnectionTypeNone   = "none"
)

// Auth schemes a provider supports for connecting.
const (
	AuthAPIKey = "api-key"
	AuthOAuth  = "oauth"
	AuthBoth   = "both"
)

// ProviderCatalogEntry describes one ESP integration type available in
// the system. The support flags are pointers so a merge can tell
// "declared false" apart from "not declared": a field defined in a
// primary catalog is never overwritten by a secondary one.
type ProviderCatalogEntry struct {
	Provider     string          `json:"provider"`
	Auth         string          `json:"auth,omitempty"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`

	OAuthSupported                  *bool `json:"oauthSupported,omitempty"`
	CredentialConnectSupported      *bool `json:"credentialConnectSupported,omitempty"`
	ValidationSupported             *bool `json:"validationSupported,omitempty"`
	BusinessDetailsRefreshSupported *bool `json:"businessDetailsRefreshSupported,omitempty"`
	BusinessDetailsSyncSupported    *bool `json:"businessDetailsSyncSupported,omitempty"`

	OAuthMode        string            `json:"oauthMode,omitempty"`
	ActiveForAccount *bool             `json:"activeForAccount,omitempty"`
	WebhookEndpoints map[string]string `json:"webhookEndpoints,omitempty"`
}

// SupportsCustomValues reports the customValues capability flag.
func (e ProviderCatalogEntry) SupportsCustomValues() bool {
	return e.Capabilities["customValues"]
}

// OAuthConnection is a stored OAuth grant for one provider on one account.
type OAuthConnection struct {
	Provider     string   `json:"provider"`
	AccountID    string   `json:"accountId,omitempty"`
	AccountName  string   `json:"accountName,omitempty"`
	LocationID   string   `json:"locationId,omitempty"`
	LocationName string   `json:"locationName,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	InstalledAt  string   `json:"installedAt,omitempty"`
}

// EspConnection is a stored API-key credential for one provider on one account.
type EspConnection struct {
	Provider  string `json:"provider"`
	AccountID string `json:"accountId,omitempty"`
	Label     string `json:"label,omitempty"`
}

// ProviderConnectionStatus is the resolved connection state of one
// provider for one account. Computed per request, never persisted.
type ProviderConnectionStatus struct {
	Provider       string   `json:"provider"`
	Connected      bool     `json:"connected"`
	ConnectionType string   `json:"connectionType"`
	OAuthConnected bool     `json:"oauthConnected"`
	AccountID      string   `json:"accountId,omitempty"`
	AccountName    string   `json:"accountName,omitempty"`
	LocationID     string   `json:"locationId,omitempty"`
	LocationName   string   `json:"locationName,omitempty"`
	Scopes         []string `json:"scopes"`
	InstalledAt    string   `json:"installedAt,omitempty"`
}

// SyncReadiness is the decision record for whether custom-value push
// sync may proceed for a provider, and if not, why.
type SyncReadiness struct {
	SupportsCustomValues bool     `json:"supportsCustomValues"`
	HasRequiredScopes    bool     `json:"hasRequiredScopes"`
	NeedsReauthorization bool     `json:"needsReauthorization"`
	ReadyForSync         bool     `json:"readyForSync"`
	RequiredScopes       []string `json:"requiredScopes"`
}

// ProviderCatalogResponse is the payload of GET /v1/esp/providers.
type ProviderCatalogResponse struct {
	AccountProvider string                 `json:"accountProvider,omitempty"`
	Providers       []ProviderCatalogEntry `json:"providers"`
}

// ProviderStatusResponse pairs a resolved status with its readiness
// for the account-detail and settings screens.
type ProviderStatusResponse struct {
	Status    ProviderConnectionStatus `json:"status"`
	Readiness SyncReadiness            `json:"readiness"`
}

// AgencyInstallStatus reports whether the platform-level GHL agency
// OAuth install is present and which locations it exposes.
type AgencyInstallStatus struct {
	Installed   bool             `json:"installed"`
	CompanyID   string           `json:"companyId,omitempty"`
	Scopes      []string         `json:"scopes,omitempty"`
	InstalledAt string           `json:"installedAt,omitempty"`
	Locations   []AgencyLocation `json:"locations,omitempty"`
}

// AgencyLocation is one external location available under the agency install.
type AgencyLocation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
