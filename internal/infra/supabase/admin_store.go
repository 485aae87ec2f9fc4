package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dealerops/console-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Admin users API (implements port.AdminStore) ---

type adminUserRow struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	PasswordHash string `json:"password_hash"`
}

// GetAdminByEmail fetches a console operator for login.
func (c *Client) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAdminByEmail")
	defer span.End()
	span.SetAttributes(attribute.String("admin.email", email))

	var user *domain.AdminUser

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("admin_users?email=eq.%s&limit=1", url.QueryEscape(email))
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "admin_user", ID: email}
		}

		var rows []adminUserRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode admin user: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "admin_user", ID: email}
		}

		r := rows[0]
		user = &domain.AdminUser{
			ID:           r.ID,
			Email:        r.Email,
			Name:         r.Name,
			Role:         r.Role,
			PasswordHash: r.PasswordHash,
		}
		return nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/admin_users", Err: err}
	}

	return user, nil
}
