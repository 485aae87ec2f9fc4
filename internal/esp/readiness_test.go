package esp_test

import (
	"testing"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"

	"github.com/stretchr/testify/assert"
)

func oauthStatus(scopes ...string) domain.ProviderConnectionStatus {
	if scopes == nil {
		scopes = []string{}
	}
	return domain.ProviderConnectionStatus{
		Provider:       "ghl",
		Connected:      true,
		ConnectionType: domain.ConnectionTypeOAuth,
		OAuthConnected: true,
		Scopes:         scopes,
	}
}

func TestResolveSyncReadiness_Ready(t *testing.T) {
	r := esp.ResolveSyncReadiness(true, oauthStatus("locations.readonly", "contacts.write"),
		[]string{"locations.readonly", "contacts.write"})

	assert.True(t, r.ReadyForSync)
	assert.True(t, r.HasRequiredScopes)
	assert.False(t, r.NeedsReauthorization)
}

func TestResolveSyncReadiness_MissingScopesNeedsReauth(t *testing.T) {
	r := esp.ResolveSyncReadiness(true, oauthStatus("locations.readonly"),
		[]string{"locations.readonly", "contacts.write"})

	assert.False(t, r.ReadyForSync)
	assert.False(t, r.HasRequiredScopes)
	assert.True(t, r.NeedsReauthorization)
}

func TestResolveSyncReadiness_EmptyRequiredScopesTriviallySatisfied(t *testing.T) {
	r := esp.ResolveSyncReadiness(true, oauthStatus(), nil)

	assert.True(t, r.HasRequiredScopes)
	assert.True(t, r.ReadyForSync)
	assert.NotNil(t, r.RequiredScopes)
}

func TestResolveSyncReadiness_APIKeyConnectionNeverNeedsReauth(t *testing.T) {
	status := domain.ProviderConnectionStatus{
		Provider:       "mailchimp",
		Connected:      true,
		ConnectionType: domain.ConnectionTypeAPIKey,
		Scopes:         []string{},
	}

	r := esp.ResolveSyncReadiness(true, status, []string{"contacts.write"})

	// Missing scopes on a non-OAuth connection blocks sync but cannot
	// be fixed by re-authorization.
	assert.False(t, r.ReadyForSync)
	assert.False(t, r.NeedsReauthorization)
}

func TestResolveSyncReadiness_UnsupportedProvider(t *testing.T) {
	r := esp.ResolveSyncReadiness(false, oauthStatus("everything"), nil)

	assert.False(t, r.ReadyForSync)
	assert.False(t, r.NeedsReauthorization)
	assert.False(t, r.SupportsCustomValues)
}

// The console shows exactly one of: push enabled, re-authorize prompt,
// provider-unsupported notice, not-connected notice. ReadyForSync and
// NeedsReauthorization must never be simultaneously true for any input
// combination.
func TestResolveSyncReadiness_MutualExclusivity(t *testing.T) {
	statuses := []domain.ProviderConnectionStatus{
		{ConnectionType: domain.ConnectionTypeNone, Scopes: []string{}},
		{Connected: true, ConnectionType: domain.ConnectionTypeAPIKey, Scopes: []string{}},
		oauthStatus(),
		oauthStatus("a"),
		oauthStatus("a", "b"),
	}
	scopeSets := [][]string{nil, {}, {"a"}, {"a", "b"}, {"c"}}

	for _, supports := range []bool{true, false} {
		for _, status := range statuses {
			for _, required := range scopeSets {
				r := esp.ResolveSyncReadiness(supports, status, required)

				if r.ReadyForSync && r.NeedsReauthorization {
					t.Fatalf("ready and needs-reauth both true: supports=%v status=%+v required=%v",
						supports, status, required)
				}

				active := 0
				if r.ReadyForSync {
					active++
				}
				if r.NeedsReauthorization {
					active++
				}
				if !r.SupportsCustomValues {
					active++
				}
				if !status.Connected && r.SupportsCustomValues {
					active++
				}
				if active == 0 {
					// Connected, supported, has scopes: must be ready.
					assert.True(t, r.ReadyForSync)
				}
			}
		}
	}
}

func TestMissingScopes(t *testing.T) {
	missing := esp.MissingScopes(
		[]string{"locations.readonly"},
		[]string{"locations.readonly", "contacts.write", "conversations.write"},
	)
	assert.Equal(t, []string{"contacts.write", "conversations.write"}, missing)

	assert.Nil(t, esp.MissingScopes([]string{"a"}, []string{"a"}))
	assert.Nil(t, esp.MissingScopes(nil, nil))
}

// End-to-end scenario from the account-detail screen: agency-mode GHL
// catalog entry, OAuth connection granting a subset of required scopes.
func TestReadiness_EndToEnd_PartialScopes(t *testing.T) {
	catalog := []domain.ProviderCatalogEntry{{
		Provider:     "ghl",
		Capabilities: map[string]bool{"customValues": true},
		OAuthMode:    domain.OAuthModeAgency,
	}}
	account := &domain.Account{
		Key: "acme-motors",
		OAuthConnections: []domain.OAuthConnection{{
			Provider: "ghl",
			Scopes:   []string{"locations.readonly"},
		}},
	}
	required := []string{"locations.readonly", "contacts.write"}

	resolver := esp.NewStatusResolver(catalog, account)
	status := resolver.Status("ghl")
	assert.True(t, status.Connected)

	entry, _ := resolver.Entry("ghl")
	r := esp.ResolveSyncReadiness(entry.SupportsCustomValues(), status, required)

	assert.True(t, r.NeedsReauthorization)
	assert.False(t, r.ReadyForSync)
}

func TestReadiness_EndToEnd_FullScopes(t *testing.T) {
	catalog := []domain.ProviderCatalogEntry{{
		Provider:     "ghl",
		Capabilities: map[string]bool{"customValues": true},
		OAuthMode:    domain.OAuthModeAgency,
	}}
	account := &domain.Account{
		Key: "acme-motors",
		OAuthConnections: []domain.OAuthConnection{{
			Provider: "ghl",
			Scopes:   []string{"locations.readonly", "contacts.write"},
		}},
	}
	required := []string{"locations.readonly", "contacts.write"}

	resolver := esp.NewStatusResolver(catalog, account)
	entry, _ := resolver.Entry("ghl")
	r := esp.ResolveSyncReadiness(entry.SupportsCustomValues(), resolver.Status("ghl"), required)

	assert.True(t, r.ReadyForSync)
	assert.False(t, r.NeedsReauthorization)
}
