// Package service — CustomValuesService owns template value defaults
// and the push sync to connected providers, single-account and fleet-wide.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"
	"github.com/dealerops/console-api/internal/infra/observability"
	"github.com/dealerops/console-api/internal/infra/resilience"
	"github.com/dealerops/console-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var cvTracer = otel.Tracer("service/customvalues")

// CustomValuesService merges default and per-account template values
// and pushes them to the account's active provider when readiness allows.
type CustomValuesService struct {
	accounts  port.AccountStore
	store     port.CustomValueStore
	gateway   port.EspGateway
	providers *ProvidersService
	bulkhead  *resilience.Bulkhead
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewCustomValuesService creates a new custom values service.
func NewCustomValuesService(accounts port.AccountStore, store port.CustomValueStore, gateway port.EspGateway, providers *ProvidersService, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *CustomValuesService {
	return &CustomValuesService{
		accounts:  accounts,
		store:     store,
		gateway:   gateway,
		providers: providers,
		bulkhead:  bulkhead,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// Defaults
// ============================================================

func (s *CustomValuesService) GetDefaults(ctx context.Context) (*domain.CustomValueDefaults, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.GetDefaults")
	defer span.End()

	return s.store.GetDefaults(ctx)
}

func (s *CustomValuesService) PutDefaults(ctx context.Context, defaults *domain.CustomValueDefaults) (*domain.CustomValueDefaults, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.PutDefaults")
	defer span.End()

	if len(defaults.Fields) == 0 {
		return nil, &domain.ErrValidation{Field: "fields", Message: "at least one field is required"}
	}
	for key, v := range defaults.Fields {
		if v.Name == "" {
			return nil, &domain.ErrValidation{Field: key, Message: "name is required"}
		}
	}

	if err := s.store.PutDefaults(ctx, defaults); err != nil {
		return nil, err
	}
	return s.store.GetDefaults(ctx)
}

// GetAccountValues returns the effective custom values for an account:
// global defaults overlaid with the account's own entries.
func (s *CustomValuesService) GetAccountValues(ctx context.Context, accountKey string) (map[string]domain.CustomValue, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.GetAccountValues")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	account, err := s.accounts.GetAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	defaults, err := s.store.GetDefaults(ctx)
	if err != nil {
		return nil, err
	}

	return mergeValues(defaults.Fields, account.CustomValues), nil
}

// PutAccountValues replaces the account's own custom-value entries and
// returns the new effective (defaults-merged) view.
func (s *CustomValuesService) PutAccountValues(ctx context.Context, accountKey string, values map[string]domain.CustomValue) (map[string]domain.CustomValue, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.PutAccountValues")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	for key, v := range values {
		if v.Name == "" {
			return nil, &domain.ErrValidation{Field: key, Message: "name is required"}
		}
	}

	if _, err := s.accounts.UpdateAccount(ctx, accountKey, map[string]any{"custom_values": values}); err != nil {
		return nil, err
	}

	s.logger.Info("account custom values updated",
		zap.String("account_key", accountKey),
		zap.Int("fields", len(values)),
	)
	return s.GetAccountValues(ctx, accountKey)
}

// ============================================================
// Sync — POST /v1/accounts/{key}/custom-values/sync
// ============================================================

// SyncAccount pushes the effective custom values for one account to its
// active provider. A provider without custom-value support or without a
// connection is an error; a connection lacking required scopes skips
// and surfaces the re-authorization readiness instead.
func (s *CustomValuesService) SyncAccount(ctx context.Context, accountKey, provider string) (*domain.SyncResult, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.SyncAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("custom_value_sync", time.Since(start)) }()

	account, err := s.accounts.GetAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	if provider == "" {
		provider = activeProvider(account)
	}
	provider = esp.NormalizeProviderID(provider)
	if provider == "" {
		return nil, &domain.ErrNotConnected{AccountKey: accountKey, Provider: "(none)"}
	}
	span.SetAttributes(attribute.String("provider", provider))

	status, err := s.providers.GetStatus(ctx, accountKey, provider)
	if err != nil {
		return nil, err
	}

	result := &domain.SyncResult{
		AccountKey: accountKey,
		Provider:   provider,
		Readiness:  status.Readiness,
	}

	if !status.Readiness.SupportsCustomValues {
		return nil, &domain.ErrProviderUnsupported{Provider: provider, Operation: "custom-value sync"}
	}
	if !status.Status.Connected {
		return nil, &domain.ErrNotConnected{AccountKey: accountKey, Provider: provider}
	}
	if !status.Readiness.ReadyForSync {
		// Missing scopes: skip, the readiness payload carries the
		// re-authorization prompt.
		s.metrics.IncrSyncRun("skipped")
		s.recordRun(ctx, result, "skipped", "missing required scopes", start)
		s.logger.Warn("custom value sync skipped",
			zap.String("account_key", accountKey),
			zap.String("provider", provider),
			zap.Strings("missing_scopes", esp.MissingScopes(status.Status.Scopes, status.Readiness.RequiredScopes)),
		)
		return result, nil
	}

	values, err := s.GetAccountValues(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	locationID := status.Status.LocationID
	if locationID == "" {
		locationID = account.ActiveLocationID
	}
	if locationID == "" {
		return nil, &domain.ErrNotConnected{AccountKey: accountKey, Provider: provider}
	}

	pushed, err := s.gateway.PushCustomValues(ctx, locationID, values)
	if err != nil {
		s.metrics.IncrSyncRun("failed")
		s.metrics.IncrExternalError("ghl")
		s.recordRun(ctx, result, "failed", err.Error(), start)
		s.logger.Error("custom value sync failed",
			zap.String("account_key", accountKey),
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil, err
	}

	result.PushedCount = pushed
	s.metrics.IncrSyncRun("success")
	s.recordRun(ctx, result, "success", "", start)

	s.logger.Info("custom values synced",
		zap.String("account_key", accountKey),
		zap.String("provider", provider),
		zap.Int("pushed", pushed),
	)
	return result, nil
}

// SyncAll fans the sync out across every account, bounded by the
// bulkhead. Per-account failures are collected, never fatal to the run.
func (s *CustomValuesService) SyncAll(ctx context.Context) (*domain.SyncAllResult, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.SyncAll")
	defer span.End()

	keys, err := s.accounts.ListAccountKeys(ctx)
	if err != nil {
		return nil, err
	}

	out := &domain.SyncAllResult{Total: len(keys), Accounts: []domain.SyncResult{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			result, err := s.SyncAccount(gctx, key, "")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				out.Failed++
				out.Accounts = append(out.Accounts, domain.SyncResult{AccountKey: key})
				s.logger.Warn("sync-all: account failed",
					zap.String("account_key", key),
					zap.Error(err),
				)
			case result.PushedCount == 0 && !result.Readiness.ReadyForSync:
				out.Skipped++
				out.Accounts = append(out.Accounts, *result)
			default:
				out.Synced++
				out.Accounts = append(out.Accounts, *result)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("sync-all finished",
		zap.Int("total", out.Total),
		zap.Int("synced", out.Synced),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

func (s *CustomValuesService) ListSyncRuns(ctx context.Context, accountKey string, page, pageSize int) ([]domain.SyncRun, int, error) {
	ctx, span := cvTracer.Start(ctx, "CustomValuesService.ListSyncRuns")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	return s.store.ListSyncRuns(ctx, accountKey, page, pageSize)
}

// ============================================================
// Internal helpers
// ============================================================

func (s *CustomValuesService) recordRun(ctx context.Context, result *domain.SyncResult, status, errMsg string, start time.Time) {
	run := &domain.SyncRun{
		ID:          uuid.New().String(),
		AccountKey:  result.AccountKey,
		Provider:    result.Provider,
		Status:      status,
		PushedCount: result.PushedCount,
		Error:       errMsg,
		StartedAt:   start,
		FinishedAt:  time.Now(),
	}
	if err := s.store.RecordSyncRun(ctx, run); err != nil {
		s.logger.Error("failed to record sync run",
			zap.String("account_key", result.AccountKey),
			zap.Error(err),
		)
		return
	}
	result.RunID = run.ID
}

// mergeValues overlays account entries on the defaults. Account values
// win; a default never overwrites an account-set field.
func mergeValues(defaults, overrides map[string]domain.CustomValue) map[string]domain.CustomValue {
	merged := make(map[string]domain.CustomValue, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// activeProvider picks the provider the account currently points at.
func activeProvider(account *domain.Account) string {
	switch {
	case account.ActiveConnection != "":
		return account.ActiveConnection
	case account.ActiveEspProvider != "":
		return account.ActiveEspProvider
	case account.EspProvider != "":
		return account.EspProvider
	case len(account.ConnectedProviders) > 0:
		return account.ConnectedProviders[0]
	}
	return ""
}
