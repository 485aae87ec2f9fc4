// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/dealerops/console-api/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	GetMany(keys []string) (map[string]T, []string)
	Set(key string, value T)
	Delete(key string)
}

// AccountStore defines persistence for sub-account records.
type AccountStore interface {
	ListAccounts(ctx context.Context, page, pageSize int) ([]domain.Account, int, error)
	GetAccount(ctx context.Context, key string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	UpdateAccount(ctx context.Context, key string, updates map[string]any) (*domain.Account, error)
	DeleteAccount(ctx context.Context, key string) error
	ListAccountKeys(ctx context.Context) ([]string, error)

	// Connection linkage mutations
	SaveOAuthConnection(ctx context.Context, accountKey string, conn *domain.OAuthConnection) error
	SaveEspConnection(ctx context.Context, accountKey string, conn *domain.EspConnection) error
	RemoveConnection(ctx context.Context, accountKey, provider string) error
	SaveLocationLink(ctx context.Context, accountKey, locationID, locationName string) error
}

// CustomValueStore defines persistence for template value defaults and
// per-account sync history.
type CustomValueStore interface {
	GetDefaults(ctx context.Context) (*domain.CustomValueDefaults, error)
	PutDefaults(ctx context.Context, defaults *domain.CustomValueDefaults) error
	RecordSyncRun(ctx context.Context, run *domain.SyncRun) error
	ListSyncRuns(ctx context.Context, accountKey string, page, pageSize int) ([]domain.SyncRun, int, error)
}

// RollupStore defines persistence for the contact-rollup job.
type RollupStore interface {
	GetRollupConfig(ctx context.Context) (*domain.RollupConfig, error)
	PutRollupConfig(ctx context.Context, cfg *domain.RollupConfig) error
	RecordRollupRun(ctx context.Context, run *domain.RollupRun) error
	ListRollupRuns(ctx context.Context, limit int) ([]domain.RollupRun, error)
	SaveRollupRows(ctx context.Context, rows []domain.RollupRow) error
	WipeRollupRows(ctx context.Context) error
}

// AdminStore defines lookup of console operators for login.
type AdminStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
}

// CatalogFetcher retrieves the global or per-account provider
// capability catalog from the platform catalog endpoint.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, accountKey string) ([]domain.ProviderCatalogEntry, error)
}

// ScopeFetcher retrieves required-OAuth-scope metadata per provider.
type ScopeFetcher interface {
	FetchRequiredScopes(ctx context.Context, providerIDs []string) (map[string][]string, error)
}

// EspGateway is the vendor-facing side of the console: OAuth exchange,
// credential checks, location links, custom-value push, and contacts.
type EspGateway interface {
	// OAuth / credentials
	AuthorizeURL(provider, accountKey, state string) (string, error)
	ExchangeCode(ctx context.Context, provider, code string) (*domain.OAuthConnection, error)
	ValidateCredential(ctx context.Context, provider, apiKey string) (*domain.ValidateResponse, error)
	AgencyInstallStatus(ctx context.Context) (*domain.AgencyInstallStatus, error)

	// Location links (agency mode)
	CreateLocationLink(ctx context.Context, accountKey, locationID, locationName string) error

	// Custom values
	PushCustomValues(ctx context.Context, locationID string, values map[string]domain.CustomValue) (int, error)

	// Contacts
	ListContacts(ctx context.Context, locationID string, page, pageSize int) (*domain.ContactListResponse, error)
	GetContact(ctx context.Context, locationID, contactID string) (*domain.Contact, error)
	UpdateContactDND(ctx context.Context, locationID, contactID string, dnd bool) error
	SendContactMessage(ctx context.Context, locationID, contactID string, msg *domain.SendMessageRequest) (*domain.ContactMessage, error)
}
