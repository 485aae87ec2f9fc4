package esp_test

import (
	"testing"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []domain.ProviderCatalogEntry {
	return []domain.ProviderCatalogEntry{
		{Provider: "ghl", Capabilities: map[string]bool{"customValues": true}, OAuthMode: domain.OAuthModeAgency},
		{Provider: "mailchimp", Capabilities: map[string]bool{"customValues": false}},
		{Provider: "twilio"},
	}
}

func TestStatus_OAuthConnectionWins(t *testing.T) {
	account := &domain.Account{
		Key: "acme-motors",
		OAuthConnections: []domain.OAuthConnection{{
			Provider:     "GHL",
			AccountID:    "comp-1",
			LocationID:   "loc-42",
			LocationName: "Acme Motors",
			Scopes:       []string{"locations.readonly", "contacts.write"},
			InstalledAt:  "2026-01-15T10:00:00Z",
		}},
		EspConnections: []domain.EspConnection{{Provider: "ghl", AccountID: "legacy"}},
	}
	resolver := esp.NewStatusResolver(testCatalog(), account)

	status := resolver.Status("ghl")

	assert.True(t, status.Connected)
	assert.Equal(t, domain.ConnectionTypeOAuth, status.ConnectionType)
	assert.True(t, status.OAuthConnected)
	assert.Equal(t, "comp-1", status.AccountID)
	assert.Equal(t, "loc-42", status.LocationID)
	assert.Equal(t, []string{"locations.readonly", "contacts.write"}, status.Scopes)
	assert.Equal(t, "2026-01-15T10:00:00Z", status.InstalledAt)
}

func TestStatus_APIKeyFallback(t *testing.T) {
	account := &domain.Account{
		Key:            "acme-motors",
		EspConnections: []domain.EspConnection{{Provider: "mailchimp", AccountID: "mc-9"}},
	}
	resolver := esp.NewStatusResolver(testCatalog(), account)

	status := resolver.Status("mailchimp")

	assert.True(t, status.Connected)
	assert.Equal(t, domain.ConnectionTypeAPIKey, status.ConnectionType)
	assert.False(t, status.OAuthConnected)
	assert.Equal(t, "mc-9", status.AccountID)
	require.NotNil(t, status.Scopes)
	assert.Empty(t, status.Scopes)
}

func TestStatus_None(t *testing.T) {
	resolver := esp.NewStatusResolver(testCatalog(), &domain.Account{Key: "acme-motors"})

	status := resolver.Status("twilio")

	assert.False(t, status.Connected)
	assert.Equal(t, domain.ConnectionTypeNone, status.ConnectionType)
	assert.False(t, status.OAuthConnected)
	require.NotNil(t, status.Scopes)
	assert.Empty(t, status.Scopes)
}

func TestStatus_ScopesNeverNilEvenWhenAbsent(t *testing.T) {
	account := &domain.Account{
		OAuthConnections: []domain.OAuthConnection{{Provider: "ghl"}},
	}
	resolver := esp.NewStatusResolver(testCatalog(), account)

	status := resolver.Status("ghl")

	assert.True(t, status.OAuthConnected)
	require.NotNil(t, status.Scopes)
	assert.Empty(t, status.Scopes)
}

func TestStatus_NilAccount(t *testing.T) {
	resolver := esp.NewStatusResolver(testCatalog(), nil)

	status := resolver.Status("ghl")

	assert.False(t, status.Connected)
	assert.Equal(t, domain.ConnectionTypeNone, status.ConnectionType)
}

func TestHasAnyConnection(t *testing.T) {
	disconnected := esp.NewStatusResolver(testCatalog(), &domain.Account{Key: "a"})
	assert.False(t, disconnected.HasAnyConnection())

	connected := esp.NewStatusResolver(testCatalog(), &domain.Account{
		Key:            "a",
		EspConnections: []domain.EspConnection{{Provider: "twilio"}},
	})
	assert.True(t, connected.HasAnyConnection())
}

func TestHasAnyConnection_ConnectionOutsideCatalogDoesNotCount(t *testing.T) {
	resolver := esp.NewStatusResolver(testCatalog(), &domain.Account{
		Key:            "a",
		EspConnections: []domain.EspConnection{{Provider: "unlisted"}},
	})
	assert.False(t, resolver.HasAnyConnection())
}

func TestEntry_NormalizedLookup(t *testing.T) {
	resolver := esp.NewStatusResolver(testCatalog(), nil)

	entry, ok := resolver.Entry(" GHL ")
	require.True(t, ok)
	assert.Equal(t, "ghl", entry.Provider)
	assert.True(t, entry.SupportsCustomValues())

	_, ok = resolver.Entry("nope")
	assert.False(t, ok)
}
