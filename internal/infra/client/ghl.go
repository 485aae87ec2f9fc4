// Package client holds HTTP clients for the external vendor APIs the
// console proxies: the GHL marketing platform and the capability
// catalog service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/dealerops/console-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

const ghlAPIVersion = "2021-07-28"

// GHLClient talks to the GHL platform API. The agency token is the
// platform-level OAuth install; location-scoped calls ride on it.
type GHLClient struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	agencyToken  string
	scopes       []string
	cb           *gobreaker.CircuitBreaker
	cfg          resilience.Config
}

// NewGHLClient creates a new GHLClient.
func NewGHLClient(httpClient *http.Client, baseURL, clientID, clientSecret, redirectURI, agencyToken string, scopes []string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *GHLClient {
	return &GHLClient{
		httpClient:   httpClient,
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		agencyToken:  agencyToken,
		scopes:       scopes,
		cb:           cb,
		cfg:          cfg,
	}
}

// AuthorizeURL builds the vendor authorization URL for the OAuth flow.
// State carries the account key back through the redirect.
func (c *GHLClient) AuthorizeURL(provider, accountKey, state string) (string, error) {
	if provider != "ghl" {
		return "", &domain.ErrProviderUnsupported{Provider: provider, Operation: "oauth"}
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", strings.Join(c.scopes, " "))
	q.Set("state", state)

	return fmt.Sprintf("%s/oauth/chooselocation?%s", c.baseURL, q.Encode()), nil
}

// ExchangeCode trades an authorization code for tokens and returns the
// resulting connection record.
func (c *GHLClient) ExchangeCode(ctx context.Context, provider, code string) (*domain.OAuthConnection, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.ExchangeCode")
	defer span.End()
	span.SetAttributes(attribute.String("provider", provider))

	if provider != "ghl" {
		return nil, &domain.ErrProviderUnsupported{Provider: provider, Operation: "oauth"}
	}

	var conn domain.OAuthConnection

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			form := url.Values{}
			form.Set("grant_type", "authorization_code")
			form.Set("client_id", c.clientID)
			form.Set("client_secret", c.clientSecret)
			form.Set("code", code)
			form.Set("redirect_uri", c.redirectURI)

			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				fmt.Sprintf("%s/oauth/token", c.baseURL),
				strings.NewReader(form.Encode()))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				return &domain.ErrUnauthorized{Message: "authorization code rejected"}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ghl token endpoint returned status %d", resp.StatusCode)
			}

			var payload struct {
				LocationID   string `json:"locationId"`
				LocationName string `json:"locationName"`
				CompanyID    string `json:"companyId"`
				CompanyName  string `json:"companyName"`
				Scope        string `json:"scope"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}

			conn = domain.OAuthConnection{
				Provider:     "ghl",
				AccountID:    payload.CompanyID,
				AccountName:  payload.CompanyName,
				LocationID:   payload.LocationID,
				LocationName: payload.LocationName,
				Scopes:       strings.Fields(payload.Scope),
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &conn, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ghl/oauth", Err: err}
	}

	return result.(*domain.OAuthConnection), nil
}

// ValidateCredential checks an API key against the vendor. A rejected
// key is a negative result, not an error.
func (c *GHLClient) ValidateCredential(ctx context.Context, provider, apiKey string) (*domain.ValidateResponse, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.ValidateCredential")
	defer span.End()
	span.SetAttributes(attribute.String("provider", provider))

	if provider != "ghl" {
		return nil, &domain.ErrProviderUnsupported{Provider: provider, Operation: "validate"}
	}

	var out domain.ValidateResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := c.newRequest(ctx, http.MethodGet, "/locations/search?limit=1", nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				out = domain.ValidateResponse{Valid: false, Reason: "credential rejected by vendor"}
				return nil
			case resp.StatusCode == http.StatusOK:
				out = domain.ValidateResponse{Valid: true}
				return nil
			default:
				return fmt.Errorf("ghl validation returned status %d", resp.StatusCode)
			}
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ghl/validate", Err: err}
	}

	return result.(*domain.ValidateResponse), nil
}

// AgencyInstallStatus reports the platform-level agency install and the
// locations it exposes.
func (c *GHLClient) AgencyInstallStatus(ctx context.Context) (*domain.AgencyInstallStatus, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.AgencyInstallStatus")
	defer span.End()

	if c.agencyToken == "" {
		return &domain.AgencyInstallStatus{Installed: false}, nil
	}

	var status domain.AgencyInstallStatus

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := c.newRequest(ctx, http.MethodGet, "/oauth/installedLocations", nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				status = domain.AgencyInstallStatus{Installed: false}
				return nil
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ghl installedLocations returned status %d", resp.StatusCode)
			}

			var payload struct {
				CompanyID   string   `json:"companyId"`
				Scopes      []string `json:"scopes"`
				InstalledAt string   `json:"installedAt"`
				Locations   []struct {
					ID   string `json:"_id"`
					Name string `json:"name"`
				} `json:"locations"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}

			status = domain.AgencyInstallStatus{
				Installed:   true,
				CompanyID:   payload.CompanyID,
				Scopes:      payload.Scopes,
				InstalledAt: payload.InstalledAt,
			}
			for _, loc := range payload.Locations {
				status.Locations = append(status.Locations, domain.AgencyLocation{ID: loc.ID, Name: loc.Name})
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &status, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ghl/agency", Err: err}
	}

	return result.(*domain.AgencyInstallStatus), nil
}

// CreateLocationLink verifies the location exists under the agency
// install before the link is persisted.
func (c *GHLClient) CreateLocationLink(ctx context.Context, accountKey, locationID, locationName string) error {
	ctx, span := tracer.Start(ctx, "GHLClient.CreateLocationLink")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.key", accountKey),
		attribute.String("location.id", locationID),
	)

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/locations/%s", url.PathEscape(locationID)), nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "location", ID: locationID}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ghl location lookup returned status %d", resp.StatusCode)
			}
			return nil
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "ghl/locations", Err: err}
	}

	return nil
}

// PushCustomValues writes each custom value to the location, updating
// entries that already exist by name. Returns the number pushed.
func (c *GHLClient) PushCustomValues(ctx context.Context, locationID string, values map[string]domain.CustomValue) (int, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.PushCustomValues")
	defer span.End()
	span.SetAttributes(
		attribute.String("location.id", locationID),
		attribute.Int("values", len(values)),
	)

	if len(values) == 0 {
		return 0, nil
	}

	pushed := 0

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			existing, err := c.listCustomValueIDs(ctx, locationID)
			if err != nil {
				return err
			}

			pushed = 0
			for _, v := range values {
				payload, err := json.Marshal(map[string]string{"name": v.Name, "value": v.Value})
				if err != nil {
					return err
				}

				method := http.MethodPost
				path := fmt.Sprintf("/locations/%s/customValues", url.PathEscape(locationID))
				if id, ok := existing[v.Name]; ok {
					method = http.MethodPut
					path = fmt.Sprintf("/locations/%s/customValues/%s", url.PathEscape(locationID), url.PathEscape(id))
				}

				req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
				if err != nil {
					return err
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := c.httpClient.Do(req)
				if err != nil {
					return err
				}
				resp.Body.Close()

				if resp.StatusCode < 200 || resp.StatusCode >= 300 {
					return fmt.Errorf("ghl custom value write returned status %d", resp.StatusCode)
				}
				pushed++
			}
			return nil
		})
	})

	if err != nil {
		return pushed, &domain.ErrExternalService{Service: "ghl/custom_values", Err: err}
	}

	return pushed, nil
}

// ListContacts pages contacts for a location.
func (c *GHLClient) ListContacts(ctx context.Context, locationID string, page, pageSize int) (*domain.ContactListResponse, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.ListContacts")
	defer span.End()
	span.SetAttributes(attribute.String("location.id", locationID))

	var out domain.ContactListResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("/contacts/?locationId=%s&limit=%d&skip=%d",
				url.QueryEscape(locationID), pageSize, (page-1)*pageSize)
			req, err := c.newRequest(ctx, http.MethodGet, path, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ghl contacts returned status %d", resp.StatusCode)
			}

			var payload struct {
				Contacts []ghlContact `json:"contacts"`
				Meta     struct {
					Total int `json:"total"`
				} `json:"meta"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}

			out = domain.ContactListResponse{
				Contacts: make([]domain.Contact, 0, len(payload.Contacts)),
				Total:    payload.Meta.Total,
				Page:     page,
				PageSize: pageSize,
			}
			for _, gc := range payload.Contacts {
				out.Contacts = append(out.Contacts, gc.toDomain())
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ghl/contacts", Err: err}
	}

	return result.(*domain.ContactListResponse), nil
}

// GetContact fetches one contact.
func (c *GHLClient) GetContact(ctx context.Context, locationID, contactID string) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.GetContact")
	defer span.End()
	span.SetAttributes(attribute.String("contact.id", contactID))

	var contact domain.Contact

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/contacts/%s", url.PathEscape(contactID)), nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "contact", ID: contactID}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ghl contact returned status %d", resp.StatusCode)
			}

			var payload struct {
				Contact ghlContact `json:"contact"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}
			contact = payload.Contact.toDomain()
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &contact, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ghl/contacts", Err: err}
	}

	return result.(*domain.Contact), nil
}

// UpdateContactDND toggles do-not-disturb on a contact.
func (c *GHLClient) UpdateContactDND(ctx context.Context, locationID, contactID string, dnd bool) error {
	ctx, span := tracer.Start(ctx, "GHLClient.UpdateContactDND")
	defer span.End()
	span.SetAttributes(
		attribute.String("contact.id", contactID),
		attribute.Bool("dnd", dnd),
	)

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			payload, err := json.Marshal(map[string]bool{"dnd": dnd})
			if err != nil {
				return err
			}

			req, err := c.newRequest(ctx, http.MethodPut, fmt.Sprintf("/contacts/%s", url.PathEscape(contactID)), bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "contact", ID: contactID}
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("ghl contact update returned status %d", resp.StatusCode)
			}
			return nil
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "ghl/contacts", Err: err}
	}

	return nil
}

// SendContactMessage sends an ad-hoc SMS or email to a contact.
func (c *GHLClient) SendContactMessage(ctx context.Context, locationID, contactID string, msg *domain.SendMessageRequest) (*domain.ContactMessage, error) {
	ctx, span := tracer.Start(ctx, "GHLClient.SendContactMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("contact.id", contactID),
		attribute.String("message.type", msg.Type),
	)

	var sent domain.ContactMessage

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body := map[string]string{
				"type":      strings.ToUpper(msg.Type),
				"contactId": contactID,
				"message":   msg.Body,
			}
			if msg.Subject != "" {
				body["subject"] = msg.Subject
			}
			payload, err := json.Marshal(body)
			if err != nil {
				return err
			}

			req, err := c.newRequest(ctx, http.MethodPost, "/conversations/messages", bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "contact", ID: contactID}
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("ghl send message returned status %d", resp.StatusCode)
			}

			var out struct {
				MessageID string `json:"messageId"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}

			sent = domain.ContactMessage{
				ID:        out.MessageID,
				Direction: "outbound",
				Type:      msg.Type,
				Body:      msg.Body,
				Subject:   msg.Subject,
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &sent, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ghl/messages", Err: err}
	}

	return result.(*domain.ContactMessage), nil
}

// --- helpers ---

// ghlContact maps the vendor contact shape.
type ghlContact struct {
	ID        string   `json:"id"`
	Name      string   `json:"contactName"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Tags      []string `json:"tags"`
	DND       bool     `json:"dnd"`
	Source    string   `json:"source"`
	DateAdded string   `json:"dateAdded"`
}

func (g ghlContact) toDomain() domain.Contact {
	return domain.Contact{
		ID:        g.ID,
		Name:      g.Name,
		FirstName: g.FirstName,
		LastName:  g.LastName,
		Email:     g.Email,
		Phone:     g.Phone,
		Tags:      g.Tags,
		DND:       g.DND,
		Source:    g.Source,
		CreatedAt: g.DateAdded,
	}
}

func (c *GHLClient) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.agencyToken))
	req.Header.Set("Version", ghlAPIVersion)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *GHLClient) listCustomValueIDs(ctx context.Context, locationID string) (map[string]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/locations/%s/customValues", url.PathEscape(locationID)), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.ErrNotFound{Resource: "location", ID: locationID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ghl custom values returned status %d", resp.StatusCode)
	}

	var payload struct {
		CustomValues []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"customValues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(payload.CustomValues))
	for _, cv := range payload.CustomValues {
		ids[cv.Name] = cv.ID
	}
	return ids, nil
}
