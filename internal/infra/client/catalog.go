package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// CatalogClient fetches provider capability catalogs and required-scope
// metadata from the platform catalog service.
type CatalogClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewCatalogClient creates a new CatalogClient.
func NewCatalogClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *CatalogClient {
	return &CatalogClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// FetchCatalog retrieves the provider catalog. An empty accountKey asks
// for the global catalog; otherwise the account-scoped one, which may
// carry per-account active flags.
func (c *CatalogClient) FetchCatalog(ctx context.Context, accountKey string) ([]domain.ProviderCatalogEntry, error) {
	ctx, span := tracer.Start(ctx, "CatalogClient.FetchCatalog")
	defer span.End()
	span.SetAttributes(attribute.String("account.key", accountKey))

	var entries []domain.ProviderCatalogEntry

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := "/v1/catalog/providers"
			if accountKey != "" {
				path = fmt.Sprintf("/v1/catalog/providers?account=%s", url.QueryEscape(accountKey))
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("catalog API returned status %d", resp.StatusCode)
			}

			var payload struct {
				Providers []domain.ProviderCatalogEntry `json:"providers"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}
			entries = payload.Providers
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return entries, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "catalog", Err: err}
	}

	return result.([]domain.ProviderCatalogEntry), nil
}

// FetchRequiredScopes retrieves required-OAuth-scope metadata for the
// given providers. Providers the service does not know come back with
// an empty scope list so callers can cache the negative answer too.
func (c *CatalogClient) FetchRequiredScopes(ctx context.Context, providerIDs []string) (map[string][]string, error) {
	ctx, span := tracer.Start(ctx, "CatalogClient.FetchRequiredScopes")
	defer span.End()
	span.SetAttributes(attribute.Int("providers", len(providerIDs)))

	if len(providerIDs) == 0 {
		return map[string][]string{}, nil
	}

	var scopes map[string][]string

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("/v1/catalog/scopes?providers=%s",
				url.QueryEscape(strings.Join(providerIDs, ",")))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("catalog scopes API returned status %d", resp.StatusCode)
			}

			var payload struct {
				Scopes map[string][]string `json:"scopes"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}

			scopes = make(map[string][]string, len(providerIDs))
			for _, id := range providerIDs {
				if s, ok := payload.Scopes[id]; ok && s != nil {
					scopes[id] = s
				} else {
					scopes[id] = []string{}
				}
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return scopes, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "catalog/scopes", Err: err}
	}

	return result.(map[string][]string), nil
}
