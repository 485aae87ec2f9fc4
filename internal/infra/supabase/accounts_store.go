package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dealerops/console-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Accounts API (implements port.AccountStore) ---

// accountRow maps the accounts table columns to our domain. Branding,
// custom values and connections live in jsonb columns.
type accountRow struct {
	Key          string   `json:"key"`
	Dealer       string   `json:"dealer"`
	Category     string   `json:"category,omitempty"`
	OEMs         []string `json:"oems,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	SMSPhone     string   `json:"sms_phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	AddressLine1 string   `json:"address_line1,omitempty"`
	AddressLine2 string   `json:"address_line2,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	PostalCode   string   `json:"postal_code,omitempty"`
	Country      string   `json:"country,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`

	Branding     *domain.Branding              `json:"branding,omitempty"`
	CustomValues map[string]domain.CustomValue `json:"custom_values,omitempty"`

	EspProvider        string                   `json:"esp_provider,omitempty"`
	ActiveEspProvider  string                   `json:"active_esp_provider,omitempty"`
	ConnectedProviders []string                 `json:"connected_providers,omitempty"`
	OAuthConnections   []domain.OAuthConnection `json:"oauth_connections,omitempty"`
	EspConnections     []domain.EspConnection   `json:"esp_connections,omitempty"`
	ActiveConnection   string                   `json:"active_connection,omitempty"`
	ActiveLocationID   string                   `json:"active_location_id,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func (r accountRow) toDomain() domain.Account {
	a := domain.Account{
		Key:          r.Key,
		Dealer:       r.Dealer,
		Category:     r.Category,
		OEMs:         r.OEMs,
		Email:        r.Email,
		Phone:        r.Phone,
		SMSPhone:     r.SMSPhone,
		Website:      r.Website,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
		Timezone:     r.Timezone,

		CustomValues: r.CustomValues,

		EspProvider:        r.EspProvider,
		ActiveEspProvider:  r.ActiveEspProvider,
		ConnectedProviders: r.ConnectedProviders,
		OAuthConnections:   r.OAuthConnections,
		EspConnections:     r.EspConnections,
		ActiveConnection:   r.ActiveConnection,
		ActiveLocationID:   r.ActiveLocationID,

		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Branding != nil {
		a.Branding = *r.Branding
	}
	return a
}

func accountToRow(a *domain.Account) accountRow {
	row := accountRow{
		Key:          a.Key,
		Dealer:       a.Dealer,
		Category:     a.Category,
		OEMs:         a.OEMs,
		Email:        a.Email,
		Phone:        a.Phone,
		SMSPhone:     a.SMSPhone,
		Website:      a.Website,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Timezone:     a.Timezone,

		CustomValues: a.CustomValues,

		EspProvider:        a.EspProvider,
		ActiveEspProvider:  a.ActiveEspProvider,
		ConnectedProviders: a.ConnectedProviders,
		OAuthConnections:   a.OAuthConnections,
		EspConnections:     a.EspConnections,
		ActiveConnection:   a.ActiveConnection,
		ActiveLocationID:   a.ActiveLocationID,

		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Branding.LogoURL != "" || a.Branding.LogoDarkURL != "" || a.Branding.LogoIconURL != "" ||
		a.Branding.PrimaryColor != "" || a.Branding.AccentColor != "" || len(a.Branding.FontStack) > 0 {
		b := a.Branding
		row.Branding = &b
	}
	return row
}

// asMap converts a row into the generic payload doPost/doPatch expect.
func asMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListAccounts fetches one page of accounts ordered by key.
func (c *Client) ListAccounts(ctx context.Context, page, pageSize int) ([]domain.Account, int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize))

	var accounts []domain.Account
	var total int

	err := c.execute(ctx, func() error {
		keys, err := c.fetchAccountKeys(ctx)
		if err != nil {
			return err
		}
		total = len(keys)

		offset := (page - 1) * pageSize
		path := fmt.Sprintf("accounts?order=key.asc&limit=%d&offset=%d", pageSize, offset)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		accounts = []domain.Account{}
		if body == nil || string(body) == "[]" {
			return nil
		}

		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode accounts: %w", err)
		}
		for _, r := range rows {
			accounts = append(accounts, r.toDomain())
		}
		return nil
	})

	if err != nil {
		return nil, 0, &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return accounts, total, nil
}

// GetAccount fetches a single account by key.
func (c *Client) GetAccount(ctx context.Context, key string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", key))

	var account *domain.Account

	err := c.execute(ctx, func() error {
		row, err := c.fetchAccountRow(ctx, key)
		if err != nil {
			return err
		}
		a := row.toDomain()
		account = &a
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return account, nil
}

// CreateAccount inserts a new account and returns the stored record.
func (c *Client) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", account.Key))

	var created *domain.Account

	err := c.execute(ctx, func() error {
		row := accountToRow(account)
		row.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		row.UpdatedAt = row.CreatedAt

		payload, err := asMap(row)
		if err != nil {
			return err
		}

		body, err := c.doPost(ctx, "accounts", payload)
		if err != nil {
			return err
		}

		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
			// representation missing; fall back to what we sent
			a := row.toDomain()
			created = &a
			return nil
		}
		a := rows[0].toDomain()
		created = &a
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return created, nil
}

// UpdateAccount applies a partial column update and returns the fresh record.
func (c *Client) UpdateAccount(ctx context.Context, key string, updates map[string]any) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", key))

	var account *domain.Account

	err := c.execute(ctx, func() error {
		// Existence check so a missing key surfaces as 404, not a silent no-op.
		if _, err := c.fetchAccountRow(ctx, key); err != nil {
			return err
		}

		updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
		path := fmt.Sprintf("accounts?key=eq.%s", url.QueryEscape(key))
		if err := c.doPatch(ctx, path, updates); err != nil {
			return err
		}

		row, err := c.fetchAccountRow(ctx, key)
		if err != nil {
			return err
		}
		a := row.toDomain()
		account = &a
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return account, nil
}

// DeleteAccount removes an account by key.
func (c *Client) DeleteAccount(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", key))

	err := c.execute(ctx, func() error {
		if _, err := c.fetchAccountRow(ctx, key); err != nil {
			return err
		}
		return c.doDelete(ctx, fmt.Sprintf("accounts?key=eq.%s", url.QueryEscape(key)))
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return nil
}

// ListAccountKeys returns every account key, ordered.
func (c *Client) ListAccountKeys(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccountKeys")
	defer span.End()

	var keys []string

	err := c.execute(ctx, func() error {
		var err error
		keys, err = c.fetchAccountKeys(ctx)
		return err
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return keys, nil
}

// SaveOAuthConnection upserts the OAuth grant for a provider on an account.
func (c *Client) SaveOAuthConnection(ctx context.Context, accountKey string, conn *domain.OAuthConnection) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveOAuthConnection")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("provider", conn.Provider),
	)

	err := c.execute(ctx, func() error {
		row, err := c.fetchAccountRow(ctx, accountKey)
		if err != nil {
			return err
		}

		conns := upsertOAuthConnection(row.OAuthConnections, *conn)
		providers := appendProvider(row.ConnectedProviders, conn.Provider)

		updates := map[string]any{
			"oauth_connections":   conns,
			"connected_providers": providers,
			"updated_at":          time.Now().UTC().Format(time.RFC3339),
		}
		if row.ActiveConnection == "" {
			updates["active_connection"] = conn.Provider
		}
		return c.doPatch(ctx, fmt.Sprintf("accounts?key=eq.%s", url.QueryEscape(accountKey)), updates)
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return nil
}

// SaveEspConnection upserts the API-key credential for a provider on an account.
func (c *Client) SaveEspConnection(ctx context.Context, accountKey string, conn *domain.EspConnection) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveEspConnection")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("provider", conn.Provider),
	)

	err := c.execute(ctx, func() error {
		row, err := c.fetchAccountRow(ctx, accountKey)
		if err != nil {
			return err
		}

		conns := row.EspConnections
		replaced := false
		for i := range conns {
			if conns[i].Provider == conn.Provider {
				conns[i] = *conn
				replaced = true
				break
			}
		}
		if !replaced {
			conns = append(conns, *conn)
		}
		providers := appendProvider(row.ConnectedProviders, conn.Provider)

		updates := map[string]any{
			"esp_connections":     conns,
			"connected_providers": providers,
			"updated_at":          time.Now().UTC().Format(time.RFC3339),
		}
		if row.ActiveConnection == "" {
			updates["active_connection"] = conn.Provider
		}
		return c.doPatch(ctx, fmt.Sprintf("accounts?key=eq.%s", url.QueryEscape(accountKey)), updates)
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return nil
}

// RemoveConnection drops every stored credential for a provider on an account.
func (c *Client) RemoveConnection(ctx context.Context, accountKey, provider string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RemoveConnection")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("provider", provider),
	)

	err := c.execute(ctx, func() error {
		row, err := c.fetchAccountRow(ctx, accountKey)
		if err != nil {
			return err
		}

		oauth := row.OAuthConnections[:0:0]
		for _, oc := range row.OAuthConnections {
			if oc.Provider != provider {
				oauth = append(oauth, oc)
			}
		}
		api := row.EspConnections[:0:0]
		for _, ec := range row.EspConnections {
			if ec.Provider != provider {
				api = append(api, ec)
			}
		}
		providers := row.ConnectedProviders[:0:0]
		for _, p := range row.ConnectedProviders {
			if p != provider {
				providers = append(providers, p)
			}
		}

		updates := map[string]any{
			"oauth_connections":   oauth,
			"esp_connections":     api,
			"connected_providers": providers,
			"updated_at":          time.Now().UTC().Format(time.RFC3339),
		}
		if row.ActiveConnection == provider {
			updates["active_connection"] = nil
		}
		return c.doPatch(ctx, fmt.Sprintf("accounts?key=eq.%s", url.QueryEscape(accountKey)), updates)
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return nil
}

// SaveLocationLink attaches an external GHL location to an account under
// the agency install. The link rides on the account's ghl OAuth entry.
func (c *Client) SaveLocationLink(ctx context.Context, accountKey, locationID, locationName string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveLocationLink")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("location.id", locationID),
	)

	err := c.execute(ctx, func() error {
		row, err := c.fetchAccountRow(ctx, accountKey)
		if err != nil {
			return err
		}

		linked := false
		conns := row.OAuthConnections
		for i := range conns {
			if conns[i].Provider == "ghl" {
				conns[i].LocationID = locationID
				conns[i].LocationName = locationName
				linked = true
				break
			}
		}
		if !linked {
			conns = append(conns, domain.OAuthConnection{
				Provider:     "ghl",
				LocationID:   locationID,
				LocationName: locationName,
				InstalledAt:  time.Now().UTC().Format(time.RFC3339),
			})
		}

		updates := map[string]any{
			"oauth_connections":   conns,
			"connected_providers": appendProvider(row.ConnectedProviders, "ghl"),
			"active_location_id":  locationID,
			"updated_at":          time.Now().UTC().Format(time.RFC3339),
		}
		if row.ActiveConnection == "" {
			updates["active_connection"] = "ghl"
		}
		return c.doPatch(ctx, fmt.Sprintf("accounts?key=eq.%s", url.QueryEscape(accountKey)), updates)
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}

	return nil
}

// --- internal fetch helpers ---

func (c *Client) fetchAccountRow(ctx context.Context, key string) (*accountRow, error) {
	path := fmt.Sprintf("accounts?key=eq.%s&limit=1", url.QueryEscape(key))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "account", ID: key}
	}

	var rows []accountRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "account", ID: key}
	}
	return &rows[0], nil
}

func (c *Client) fetchAccountKeys(ctx context.Context) ([]string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "accounts?select=key&order=key.asc")
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return []string{}, nil
	}

	var rows []struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode account keys: %w", err)
	}
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key)
	}
	return keys, nil
}

func upsertOAuthConnection(conns []domain.OAuthConnection, conn domain.OAuthConnection) []domain.OAuthConnection {
	for i := range conns {
		if conns[i].Provider == conn.Provider {
			conns[i] = conn
			return conns
		}
	}
	return append(conns, conn)
}

func appendProvider(providers []string, provider string) []string {
	for _, p := range providers {
		if p == provider {
			return providers
		}
	}
	return append(providers, provider)
}
