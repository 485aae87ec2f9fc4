// Package service — AccountsService handles the sub-account CRUD
// surface: listing, creation with key derivation, partial updates and
// deletion.
package service

import (
	"context"
	"fmt"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/esp"
	"github.com/dealerops/console-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountsTracer = otel.Tracer("service/accounts")

// AccountsService orchestrates account CRUD via the Supabase store.
type AccountsService struct {
	store  port.AccountStore
	logger *zap.Logger
}

// NewAccountsService creates a new accounts service.
func NewAccountsService(store port.AccountStore, logger *zap.Logger) *AccountsService {
	return &AccountsService{store: store, logger: logger}
}

func (s *AccountsService) ListAccounts(ctx context.Context, page, pageSize int) ([]domain.Account, int, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.ListAccounts")
	defer span.End()

	return s.store.ListAccounts(ctx, page, pageSize)
}

func (s *AccountsService) GetAccount(ctx context.Context, key string) (*domain.Account, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", key))

	return s.store.GetAccount(ctx, key)
}

// CreateAccount creates a sub-account. When no key is given it is
// derived from the dealer name; either way the key is normalized and
// checked for collisions before insert.
func (s *AccountsService) CreateAccount(ctx context.Context, req *domain.CreateAccountRequest) (*domain.Account, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.CreateAccount")
	defer span.End()

	if req.Dealer == "" {
		return nil, &domain.ErrValidation{Field: "dealer", Message: "required"}
	}

	key := req.Key
	if key == "" {
		key = req.Dealer
	}
	key = esp.NormalizeAccountKey(key)
	if key == "" {
		return nil, &domain.ErrValidation{Field: "key", Message: "cannot be derived, no usable characters"}
	}
	span.SetAttributes(attribute.String("account.key", key))

	if existing, err := s.store.GetAccount(ctx, key); err == nil && existing != nil {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("account key '%s' already exists", key)}
	}

	account, err := s.store.CreateAccount(ctx, &domain.Account{
		Key:      key,
		Dealer:   req.Dealer,
		Category: req.Category,
		OEMs:     req.OEMs,
		Email:    req.Email,
		Timezone: req.Timezone,
	})
	if err != nil {
		s.logger.Error("failed to create account", zap.String("account_key", key), zap.Error(err))
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("account_key", account.Key),
		zap.String("dealer", account.Dealer),
	)
	return account, nil
}

// UpdateAccount applies a partial update. Nil patch fields are left
// untouched.
func (s *AccountsService) UpdateAccount(ctx context.Context, key string, patch *domain.AccountPatch) (*domain.Account, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.UpdateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", key))

	updates := patchToUpdates(patch)
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	account, err := s.store.UpdateAccount(ctx, key, updates)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account updated",
		zap.String("account_key", key),
		zap.Int("fields", len(updates)),
	)
	return account, nil
}

func (s *AccountsService) DeleteAccount(ctx context.Context, key string) error {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.DeleteAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", key))

	if err := s.store.DeleteAccount(ctx, key); err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("account_key", key))
	return nil
}

// patchToUpdates maps set patch fields onto store column updates.
func patchToUpdates(patch *domain.AccountPatch) map[string]any {
	updates := map[string]any{}
	if patch == nil {
		return updates
	}

	setStr := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	setStr("dealer", patch.Dealer)
	setStr("category", patch.Category)
	setStr("email", patch.Email)
	setStr("phone", patch.Phone)
	setStr("sms_phone", patch.SMSPhone)
	setStr("website", patch.Website)
	setStr("address_line1", patch.AddressLine1)
	setStr("address_line2", patch.AddressLine2)
	setStr("city", patch.City)
	setStr("state", patch.State)
	setStr("postal_code", patch.PostalCode)
	setStr("country", patch.Country)
	setStr("timezone", patch.Timezone)
	setStr("esp_provider", patch.EspProvider)
	setStr("active_connection", patch.ActiveConnection)
	setStr("active_location_id", patch.ActiveLocationID)

	if patch.OEMs != nil {
		updates["oems"] = *patch.OEMs
	}
	if patch.Branding != nil {
		updates["branding"] = *patch.Branding
	}
	if patch.CustomValues != nil {
		updates["custom_values"] = *patch.CustomValues
	}

	return updates
}
