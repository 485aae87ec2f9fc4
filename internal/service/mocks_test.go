package service_test

import (
	"context"
	"sync"

	"github.com/dealerops/console-api/internal/domain"
)

// --- Mocks ---

// mockAccountStore is a map-backed AccountStore.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	err      error

	lastUpdates map[string]any
	oauthSaves  []domain.OAuthConnection
	espSaves    []domain.EspConnection
	removed     []string
	links       []string
}

func newMockAccountStore(accounts ...*domain.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: map[string]*domain.Account{}}
	for _, a := range accounts {
		m.accounts[a.Key] = a
	}
	return m
}

func (m *mockAccountStore) ListAccounts(_ context.Context, page, pageSize int) ([]domain.Account, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAccountStore) GetAccount(_ context.Context, key string) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: key}
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountStore) CreateAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Key] = account
	return account, nil
}

func (m *mockAccountStore) UpdateAccount(_ context.Context, key string, updates map[string]any) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: key}
	}
	m.lastUpdates = updates
	if v, ok := updates["custom_values"].(map[string]domain.CustomValue); ok {
		a.CustomValues = v
	}
	if v, ok := updates["dealer"].(string); ok {
		a.Dealer = v
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountStore) DeleteAccount(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; !ok {
		return &domain.ErrNotFound{Resource: "account", ID: key}
	}
	delete(m.accounts, key)
	return nil
}

func (m *mockAccountStore) ListAccountKeys(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	keys := make([]string, 0, len(m.accounts))
	for k := range m.accounts {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockAccountStore) SaveOAuthConnection(_ context.Context, accountKey string, conn *domain.OAuthConnection) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauthSaves = append(m.oauthSaves, *conn)
	if a, ok := m.accounts[accountKey]; ok {
		a.OAuthConnections = append(a.OAuthConnections, *conn)
	}
	return nil
}

func (m *mockAccountStore) SaveEspConnection(_ context.Context, accountKey string, conn *domain.EspConnection) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.espSaves = append(m.espSaves, *conn)
	if a, ok := m.accounts[accountKey]; ok {
		a.EspConnections = append(a.EspConnections, *conn)
	}
	return nil
}

func (m *mockAccountStore) RemoveConnection(_ context.Context, accountKey, provider string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, accountKey+"/"+provider)
	return nil
}

func (m *mockAccountStore) SaveLocationLink(_ context.Context, accountKey, locationID, locationName string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, accountKey+"="+locationID)
	return nil
}

// mockCustomValueStore is an in-memory CustomValueStore.
type mockCustomValueStore struct {
	mu       sync.Mutex
	defaults *domain.CustomValueDefaults
	runs     []domain.SyncRun
	err      error
}

func (m *mockCustomValueStore) GetDefaults(_ context.Context) (*domain.CustomValueDefaults, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.defaults == nil {
		return &domain.CustomValueDefaults{Fields: map[string]domain.CustomValue{}}, nil
	}
	return m.defaults, nil
}

func (m *mockCustomValueStore) PutDefaults(_ context.Context, defaults *domain.CustomValueDefaults) error {
	if m.err != nil {
		return m.err
	}
	m.defaults = defaults
	return nil
}

func (m *mockCustomValueStore) RecordSyncRun(_ context.Context, run *domain.SyncRun) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockCustomValueStore) ListSyncRuns(_ context.Context, accountKey string, page, pageSize int) ([]domain.SyncRun, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.runs, len(m.runs), nil
}

// mockRollupStore is an in-memory RollupStore.
type mockRollupStore struct {
	mu     sync.Mutex
	config *domain.RollupConfig
	runs   []domain.RollupRun
	rows   []domain.RollupRow
	wiped  bool
	err    error
}

func (m *mockRollupStore) GetRollupConfig(_ context.Context) (*domain.RollupConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.config == nil {
		return &domain.RollupConfig{}, nil
	}
	return m.config, nil
}

func (m *mockRollupStore) PutRollupConfig(_ context.Context, cfg *domain.RollupConfig) error {
	if m.err != nil {
		return m.err
	}
	m.config = cfg
	return nil
}

func (m *mockRollupStore) RecordRollupRun(_ context.Context, run *domain.RollupRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockRollupStore) ListRollupRuns(_ context.Context, limit int) ([]domain.RollupRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runs, nil
}

func (m *mockRollupStore) SaveRollupRows(_ context.Context, rows []domain.RollupRow) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *mockRollupStore) WipeRollupRows(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.wiped = true
	m.rows = nil
	return nil
}

// mockAdminStore returns a single configured operator.
type mockAdminStore struct {
	user *domain.AdminUser
	err  error
}

func (m *mockAdminStore) GetAdminByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil || m.user.Email != email {
		return nil, &domain.ErrNotFound{Resource: "admin user", ID: email}
	}
	return m.user, nil
}

// mockCatalogFetcher serves a fixed catalog.
type mockCatalogFetcher struct {
	global  []domain.ProviderCatalogEntry
	scoped  map[string][]domain.ProviderCatalogEntry
	err     error
	fetches int
}

func (m *mockCatalogFetcher) FetchCatalog(_ context.Context, accountKey string) ([]domain.ProviderCatalogEntry, error) {
	m.fetches++
	if m.err != nil {
		return nil, m.err
	}
	if accountKey == "" {
		return m.global, nil
	}
	return m.scoped[accountKey], nil
}

// mockScopeFetcher serves fixed required-scope metadata.
type mockScopeFetcher struct {
	scopes  map[string][]string
	err     error
	fetches int
}

func (m *mockScopeFetcher) FetchRequiredScopes(_ context.Context, providerIDs []string) (map[string][]string, error) {
	m.fetches++
	if m.err != nil {
		return nil, m.err
	}
	out := map[string][]string{}
	for _, id := range providerIDs {
		out[id] = m.scopes[id]
	}
	return out, nil
}

// mockGateway is a configurable EspGateway.
type mockGateway struct {
	mu sync.Mutex

	authorizeURL string
	exchanged    *domain.OAuthConnection
	validation   *domain.ValidateResponse
	agency       *domain.AgencyInstallStatus
	contacts     []domain.Contact
	contact      *domain.Contact
	message      *domain.ContactMessage
	pushed       int
	err          error

	pushCalls    int
	linkCalls    []string
	dndCalls     []string
	messageCalls []string
}

func (m *mockGateway) AuthorizeURL(provider, accountKey, state string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if provider != "ghl" {
		return "", &domain.ErrProviderUnsupported{Provider: provider, Operation: "oauth authorize"}
	}
	return m.authorizeURL, nil
}

func (m *mockGateway) ExchangeCode(_ context.Context, provider, code string) (*domain.OAuthConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.exchanged, nil
}

func (m *mockGateway) ValidateCredential(_ context.Context, provider, apiKey string) (*domain.ValidateResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.validation == nil {
		return &domain.ValidateResponse{Valid: true}, nil
	}
	return m.validation, nil
}

func (m *mockGateway) AgencyInstallStatus(_ context.Context) (*domain.AgencyInstallStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.agency, nil
}

func (m *mockGateway) CreateLocationLink(_ context.Context, accountKey, locationID, locationName string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkCalls = append(m.linkCalls, accountKey+"="+locationID)
	return nil
}

func (m *mockGateway) PushCustomValues(_ context.Context, locationID string, values map[string]domain.CustomValue) (int, error) {
	m.mu.Lock()
	m.pushCalls++
	m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.pushed > 0 {
		return m.pushed, nil
	}
	return len(values), nil
}

func (m *mockGateway) ListContacts(_ context.Context, locationID string, page, pageSize int) (*domain.ContactListResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ContactListResponse{
		Contacts: m.contacts,
		Total:    len(m.contacts),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (m *mockGateway) GetContact(_ context.Context, locationID, contactID string) (*domain.Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.contact == nil {
		return nil, &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	return m.contact, nil
}

func (m *mockGateway) UpdateContactDND(_ context.Context, locationID, contactID string, dnd bool) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dndCalls = append(m.dndCalls, contactID)
	return nil
}

func (m *mockGateway) SendContactMessage(_ context.Context, locationID, contactID string, msg *domain.SendMessageRequest) (*domain.ContactMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	m.messageCalls = append(m.messageCalls, contactID)
	m.mu.Unlock()
	if m.message != nil {
		return m.message, nil
	}
	return &domain.ContactMessage{ID: "msg-1", Direction: "outbound", Type: msg.Type, Body: msg.Body}, nil
}
