// Package service provides the business logic layer (use cases).
// ProvidersService resolves the ESP provider catalog, per-account
// connection status and sync readiness.
package service

import (
	"context"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var providersTracer = otel.Tracer("service/providers")

// ProvidersService merges catalog sources and resolves provider state.
type ProvidersService struct {
	store      port.AccountStore
	catalog    port.CatalogFetcher
	scopes     port.ScopeFetcher
	scopeCache port.Cache[[]string]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewProvidersService creates a new providers service.
func NewProvidersService(store port.AccountStore, catalog port.CatalogFetcher, scopes port.ScopeFetcher, scopeCache port.Cache[[]string], metrics *observability.Metrics, logger *zap.Logger) *ProvidersService {
	return &ProvidersService{
		store:      store,
		catalog:    catalog,
		scopes:     scopes,
		scopeCache: scopeCache,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// Catalog — GET /v1/esp/providers
// ============================================================

// GetCatalog returns the merged provider catalog. With an account key,
// the account-scoped catalog takes precedence over the global one and
// the account's own linkage fills anything both sources miss.
func (s *ProvidersService) GetCatalog(ctx context.Context, accountKey string) (*domain.ProviderCatalogResponse, error) {
	ctx, span := providersTracer.Start(ctx, "ProvidersService.GetCatalog")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	global, err := s.catalog.FetchCatalog(ctx, "")
	if err != nil {
		s.metrics.IncrExternalError("catalog")
		s.logger.Warn("global catalog fetch failed, continuing with fallbacks", zap.Error(err))
		global = nil
	}

	resp := &domain.ProviderCatalogResponse{}

	if accountKey == "" {
		resp.Providers = esp.MergeCatalog(global, nil)
		return resp, nil
	}

	account, err := s.store.GetAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	resp.AccountProvider = account.ActiveEspProvider
	if resp.AccountProvider == "" {
		resp.AccountProvider = account.EspProvider
	}

	scoped, err := s.catalog.FetchCatalog(ctx, accountKey)
	if err != nil {
		s.metrics.IncrExternalError("catalog")
		s.logger.Warn("account catalog fetch failed, deriving from account",
			zap.String("account_key", accountKey),
			zap.Error(err),
		)
		scoped = esp.DeriveCatalogFromAccount(account)
	}

	// Account-scoped entries win field by field; global fills gaps.
	merged := esp.MergeCatalog(scoped, global)
	if len(merged) == 0 {
		merged = esp.DeriveCatalogFromAccount(account)
	}
	resp.Providers = merged

	return resp, nil
}

// ============================================================
// Status — GET /v1/accounts/{key}/providers
// ============================================================

// ListStatuses resolves connection status and sync readiness for every
// provider in the account's catalog.
func (s *ProvidersService) ListStatuses(ctx context.Context, accountKey string) ([]domain.ProviderStatusResponse, error) {
	ctx, span := providersTracer.Start(ctx, "ProvidersService.ListStatuses")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	account, err := s.store.GetAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	catalog, err := s.GetCatalog(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	resolver := esp.NewStatusResolver(catalog.Providers, account)
	providerIDs := resolver.Providers()

	required, err := s.RequiredScopes(ctx, providerIDs)
	if err != nil {
		// Readiness degrades to "not ready" rather than failing the listing.
		s.logger.Warn("required scope fetch failed",
			zap.String("account_key", accountKey),
			zap.Error(err),
		)
		required = map[string][]string{}
	}

	out := make([]domain.ProviderStatusResponse, 0, len(providerIDs))
	for _, id := range providerIDs {
		entry, _ := resolver.Entry(id)
		status := resolver.Status(id)
		out = append(out, domain.ProviderStatusResponse{
			Status:    status,
			Readiness: esp.ResolveSyncReadiness(entry.SupportsCustomValues(), status, required[id]),
		})
	}
	return out, nil
}

// GetStatus resolves one provider's status and readiness.
func (s *ProvidersService) GetStatus(ctx context.Context, accountKey, provider string) (*domain.ProviderStatusResponse, error) {
	ctx, span := providersTracer.Start(ctx, "ProvidersService.GetStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("provider", provider),
	)

	provider = esp.NormalizeProviderID(provider)
	if provider == "" {
		return nil, &domain.ErrValidation{Field: "provider", Message: "required"}
	}

	account, err := s.store.GetAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	catalog, err := s.GetCatalog(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	resolver := esp.NewStatusResolver(catalog.Providers, account)
	entry, ok := resolver.Entry(provider)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "provider", ID: provider}
	}

	required, err := s.RequiredScopes(ctx, []string{provider})
	if err != nil {
		s.logger.Warn("required scope fetch failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		required = map[string][]string{}
	}

	status := resolver.Status(provider)
	return &domain.ProviderStatusResponse{
		Status:    status,
		Readiness: esp.ResolveSyncReadiness(entry.SupportsCustomValues(), status, required[provider]),
	}, nil
}

// ============================================================
// Required scopes (cached)
// ============================================================

// RequiredScopes returns required-OAuth-scope metadata per provider,
// serving from the TTL cache and fetching only the misses. Negative
// answers (no scopes required) are cached too.
func (s *ProvidersService) RequiredScopes(ctx context.Context, providerIDs []string) (map[string][]string, error) {
	ctx, span := providersTracer.Start(ctx, "ProvidersService.RequiredScopes")
	defer span.End()
	span.SetAttributes(attribute.Int("providers", len(providerIDs)))

	result, missing := s.scopeCache.GetMany(providerIDs)
	for range result {
		s.metrics.IncrCacheHit("scopes")
	}
	for range missing {
		s.metrics.IncrCacheMiss("scopes")
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := s.scopes.FetchRequiredScopes(ctx, missing)
	if err != nil {
		s.metrics.IncrExternalError("catalog")
		return nil, err
	}

	for id, scopes := range fetched {
		if scopes == nil {
			scopes = []string{}
		}
		s.scopeCache.Set(id, scopes)
		result[id] = scopes
	}
	return result, nil
}
