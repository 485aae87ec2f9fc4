package esp_test

import (
	"testing"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestMergeCatalog_Empty(t *testing.T) {
	assert.Empty(t, esp.MergeCatalog(nil, nil))
	assert.Empty(t, esp.MergeCatalog([]domain.ProviderCatalogEntry{}, nil))
}

func TestMergeCatalog_DropsEntriesWithoutProvider(t *testing.T) {
	merged := esp.MergeCatalog(
		[]domain.ProviderCatalogEntry{{Provider: ""}, {Provider: "ghl"}},
		[]domain.ProviderCatalogEntry{{Provider: "   "}},
	)
	require.Len(t, merged, 1)
	assert.Equal(t, "ghl", merged[0].Provider)
}

func TestMergeCatalog_OrderPrimaryThenNewSecondary(t *testing.T) {
	primary := []domain.ProviderCatalogEntry{
		{Provider: "ghl"},
		{Provider: "mailchimp"},
	}
	secondary := []domain.ProviderCatalogEntry{
		{Provider: "twilio"},
		{Provider: "ghl"}, // overlapping, must not duplicate
		{Provider: "sendgrid"},
	}

	merged := esp.MergeCatalog(primary, secondary)

	ids := make([]string, 0, len(merged))
	for _, e := range merged {
		ids = append(ids, e.Provider)
	}
	assert.Equal(t, []string{"ghl", "mailchimp", "twilio", "sendgrid"}, ids)
}

func TestMergeCatalog_PrimaryWinsFieldByField(t *testing.T) {
	primary := []domain.ProviderCatalogEntry{{
		Provider:       "ghl",
		Auth:           domain.AuthOAuth,
		OAuthMode:      domain.OAuthModeAgency,
		OAuthSupported: boolPtr(true),
		Capabilities:   map[string]bool{"customValues": true},
	}}
	secondary := []domain.ProviderCatalogEntry{{
		Provider:                   "GHL ", // same key after normalization
		Auth:                       domain.AuthAPIKey,
		OAuthMode:                  domain.OAuthModeLegacy,
		OAuthSupported:             boolPtr(false),
		CredentialConnectSupported: boolPtr(true),
		Capabilities:               map[string]bool{"customValues": false, "messaging": true},
		WebhookEndpoints:           map[string]string{"contacts": "https://hooks.example/contacts"},
	}}

	merged := esp.MergeCatalog(primary, secondary)
	require.Len(t, merged, 1)
	got := merged[0]

	// Primary-defined fields survive conflicting secondary values.
	assert.Equal(t, domain.AuthOAuth, got.Auth)
	assert.Equal(t, domain.OAuthModeAgency, got.OAuthMode)
	require.NotNil(t, got.OAuthSupported)
	assert.True(t, *got.OAuthSupported)
	assert.True(t, got.Capabilities["customValues"])

	// Secondary fills gaps only.
	require.NotNil(t, got.CredentialConnectSupported)
	assert.True(t, *got.CredentialConnectSupported)
	assert.True(t, got.Capabilities["messaging"])
	assert.Equal(t, "https://hooks.example/contacts", got.WebhookEndpoints["contacts"])
}

func TestMergeCatalog_Idempotent(t *testing.T) {
	catalog := []domain.ProviderCatalogEntry{
		{
			Provider:       "ghl",
			Auth:           domain.AuthBoth,
			OAuthMode:      domain.OAuthModeHybrid,
			OAuthSupported: boolPtr(true),
			Capabilities:   map[string]bool{"customValues": true, "dnd": false},
		},
		{Provider: "mailchimp", Auth: domain.AuthAPIKey},
	}

	merged := esp.MergeCatalog(catalog, catalog)
	assert.Equal(t, catalog, merged)
}

func TestFallbackEntry(t *testing.T) {
	e := esp.FallbackEntry("  Mailchimp ")

	assert.Equal(t, "mailchimp", e.Provider)
	assert.Equal(t, domain.AuthAPIKey, e.Auth)
	assert.False(t, e.SupportsCustomValues())
	require.NotNil(t, e.OAuthSupported)
	assert.False(t, *e.OAuthSupported)
}

func TestDeriveCatalogFromAccount(t *testing.T) {
	account := &domain.Account{
		Key:                "acme-motors",
		EspProvider:        "ghl",
		ActiveEspProvider:  "GHL", // same provider, different casing
		ConnectedProviders: []string{"mailchimp"},
		OAuthConnections:   []domain.OAuthConnection{{Provider: "twilio"}},
		EspConnections:     []domain.EspConnection{{Provider: "sendgrid"}, {Provider: ""}},
	}

	derived := esp.DeriveCatalogFromAccount(account)

	ids := make([]string, 0, len(derived))
	for _, e := range derived {
		ids = append(ids, e.Provider)
	}
	assert.Equal(t, []string{"ghl", "mailchimp", "twilio", "sendgrid"}, ids)
}

func TestDeriveCatalogFromAccount_NilAccount(t *testing.T) {
	assert.Empty(t, esp.DeriveCatalogFromAccount(nil))
}
