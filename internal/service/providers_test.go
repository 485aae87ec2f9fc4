package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/cache"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/service"

	"go.uber.org/zap"
)

func newProvidersService(store *mockAccountStore, catalog *mockCatalogFetcher, scopes *mockScopeFetcher) *service.ProvidersService {
	return service.NewProvidersService(store, catalog, scopes, cache.New[[]string](time.Minute), observability.NewMetrics(), zap.NewNop())
}

func catalogEntry(provider string, customValues bool) domain.ProviderCatalogEntry {
	return domain.ProviderCatalogEntry{
		Provider:     provider,
		Capabilities: map[string]bool{"customValues": customValues},
	}
}

func connectedAccount(key string, scopes ...string) *domain.Account {
	return &domain.Account{
		Key:                key,
		Dealer:             "Test Dealer",
		ConnectedProviders: []string{"ghl"},
		OAuthConnections: []domain.OAuthConnection{
			{Provider: "ghl", LocationID: "loc-1", Scopes: scopes},
		},
	}
}

func TestGetCatalog_Global(t *testing.T) {
	catalog := &mockCatalogFetcher{global: []domain.ProviderCatalogEntry{
		catalogEntry("ghl", true),
		catalogEntry("mailchimp", false),
	}}
	svc := newProvidersService(newMockAccountStore(), catalog, &mockScopeFetcher{})

	resp, err := svc.GetCatalog(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(resp.Providers))
	}
	if resp.Providers[0].Provider != "ghl" {
		t.Errorf("expected ghl first, got %s", resp.Providers[0].Provider)
	}
	if resp.AccountProvider != "" {
		t.Errorf("expected no account provider, got %s", resp.AccountProvider)
	}
}

func TestGetCatalog_AccountScopedWins(t *testing.T) {
	account := connectedAccount("acme")
	account.ActiveEspProvider = "ghl"
	catalog := &mockCatalogFetcher{
		global: []domain.ProviderCatalogEntry{
			{Provider: "ghl", Auth: domain.AuthAPIKey},
			{Provider: "mailchimp", Auth: domain.AuthAPIKey},
		},
		scoped: map[string][]domain.ProviderCatalogEntry{
			"acme": {{Provider: "ghl", Auth: domain.AuthOAuth}},
		},
	}
	svc := newProvidersService(newMockAccountStore(account), catalog, &mockScopeFetcher{})

	resp, err := svc.GetCatalog(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccountProvider != "ghl" {
		t.Errorf("expected account provider ghl, got %s", resp.AccountProvider)
	}
	if len(resp.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(resp.Providers))
	}
	if resp.Providers[0].Provider != "ghl" || resp.Providers[0].Auth != domain.AuthOAuth {
		t.Errorf("expected account-scoped ghl entry to win, got %+v", resp.Providers[0])
	}
	if resp.Providers[1].Provider != "mailchimp" {
		t.Errorf("expected mailchimp filled from global, got %s", resp.Providers[1].Provider)
	}
}

func TestGetCatalog_CatalogDownDerivesFromAccount(t *testing.T) {
	account := connectedAccount("acme")
	catalog := &mockCatalogFetcher{err: errors.New("catalog unreachable")}
	svc := newProvidersService(newMockAccountStore(account), catalog, &mockScopeFetcher{})

	resp, err := svc.GetCatalog(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Providers) != 1 || resp.Providers[0].Provider != "ghl" {
		t.Fatalf("expected derived ghl entry, got %+v", resp.Providers)
	}
}

func TestGetCatalog_AccountNotFound(t *testing.T) {
	svc := newProvidersService(newMockAccountStore(), &mockCatalogFetcher{}, &mockScopeFetcher{})

	_, err := svc.GetCatalog(context.Background(), "missing")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListStatuses_ReadyForSync(t *testing.T) {
	account := connectedAccount("acme", "contacts.readonly", "customValues.write")
	catalog := &mockCatalogFetcher{
		scoped: map[string][]domain.ProviderCatalogEntry{
			"acme": {catalogEntry("ghl", true)},
		},
	}
	scopes := &mockScopeFetcher{scopes: map[string][]string{"ghl": {"customValues.write"}}}
	svc := newProvidersService(newMockAccountStore(account), catalog, scopes)

	statuses, err := svc.ListStatuses(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	s := statuses[0]
	if !s.Status.Connected || s.Status.ConnectionType != domain.ConnectionTypeOAuth {
		t.Errorf("expected connected oauth status, got %+v", s.Status)
	}
	if !s.Readiness.ReadyForSync {
		t.Errorf("expected ready for sync, got %+v", s.Readiness)
	}
}

func TestListStatuses_MissingScopesNeedReauthorization(t *testing.T) {
	account := connectedAccount("acme", "contacts.readonly")
	catalog := &mockCatalogFetcher{
		scoped: map[string][]domain.ProviderCatalogEntry{
			"acme": {catalogEntry("ghl", true)},
		},
	}
	scopes := &mockScopeFetcher{scopes: map[string][]string{"ghl": {"customValues.write"}}}
	svc := newProvidersService(newMockAccountStore(account), catalog, scopes)

	statuses, err := svc.ListStatuses(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := statuses[0].Readiness
	if r.ReadyForSync {
		t.Error("expected not ready for sync")
	}
	if !r.NeedsReauthorization {
		t.Errorf("expected needs reauthorization, got %+v", r)
	}
}

func TestGetStatus_UnknownProvider(t *testing.T) {
	account := connectedAccount("acme")
	catalog := &mockCatalogFetcher{
		scoped: map[string][]domain.ProviderCatalogEntry{
			"acme": {catalogEntry("ghl", true)},
		},
	}
	svc := newProvidersService(newMockAccountStore(account), catalog, &mockScopeFetcher{})

	_, err := svc.GetStatus(context.Background(), "acme", "sendgrid")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequiredScopes_ServedFromCache(t *testing.T) {
	scopes := &mockScopeFetcher{scopes: map[string][]string{"ghl": {"a", "b"}}}
	svc := newProvidersService(newMockAccountStore(), &mockCatalogFetcher{}, scopes)

	first, err := svc.RequiredScopes(context.Background(), []string{"ghl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first["ghl"]) != 2 {
		t.Fatalf("expected 2 scopes, got %v", first["ghl"])
	}

	second, err := svc.RequiredScopes(context.Background(), []string{"ghl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second["ghl"]) != 2 {
		t.Fatalf("expected 2 scopes on cached read, got %v", second["ghl"])
	}
	if scopes.fetches != 1 {
		t.Errorf("expected a single upstream fetch, got %d", scopes.fetches)
	}
}

func TestRequiredScopes_CachesNegativeAnswers(t *testing.T) {
	scopes := &mockScopeFetcher{scopes: map[string][]string{}}
	svc := newProvidersService(newMockAccountStore(), &mockCatalogFetcher{}, scopes)

	if _, err := svc.RequiredScopes(context.Background(), []string{"mailchimp"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RequiredScopes(context.Background(), []string{"mailchimp"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scopes.fetches != 1 {
		t.Errorf("expected the empty answer to be cached, got %d fetches", scopes.fetches)
	}
}
