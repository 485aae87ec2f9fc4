package domain

// ============================================================
// Admin authentication
// ============================================================

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued admin token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	UserID      string `json:"userId"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// AdminUser is a console operator record.
type AdminUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	PasswordHash string `json:"-"`
}

// TokenClaims are the JWT claims the API validates on protected routes.
type TokenClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
}

// ============================================================
// ESP connection lifecycle
// ============================================================

// AuthorizeRequest starts an OAuth flow for a provider.
type AuthorizeRequest struct {
	AccountKey string `json:"accountKey"`
	Provider   string `json:"provider"`
}

// AuthorizeResponse returns the vendor authorization URL the console
// redirects the operator to.
type AuthorizeResponse struct {
	AuthorizeURL string `json:"authorizeUrl"`
	State        string `json:"state"`
}

// ConnectRequest stores an API-key credential for a provider.
type ConnectRequest struct {
	AccountKey string `json:"accountKey"`
	Provider   string `json:"provider"`
	APIKey     string `json:"apiKey"`
	Label      string `json:"label,omitempty"`
}

// ValidateRequest checks a stored connection against the vendor.
type ValidateRequest struct {
	AccountKey string `json:"accountKey"`
	Provider   string `json:"provider"`
}

// ValidateResponse is the outcome of a connection validation.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
