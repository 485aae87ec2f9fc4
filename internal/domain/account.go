package domain

// Account is one sub-account (dealer/business) managed by the console.
// It owns branding, custom values and ESP linkage for that business.
type Account struct {
	Key    string `json:"key"`
	Dealer string `json:"dealer"`

	// Classification
	Category string   `json:"category,omitempty"`
	OEMs     []string `json:"oems,omitempty"`

	// Contact / business fields
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	SMSPhone     string `json:"smsPhone,omitempty"`
	Website      string `json:"website,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`
	Timezone     string `json:"timezone,omitempty"`

	Branding Branding `json:"branding,omitempty"`

	// Custom template values keyed by field key.
	CustomValues map[string]CustomValue `json:"customValues,omitempty"`

	// ESP linkage
	EspProvider        string            `json:"espProvider,omitempty"`
	ActiveEspProvider  string            `json:"activeEspProvider,omitempty"`
	ConnectedProviders []string          `json:"connectedProviders,omitempty"`
	OAuthConnections   []OAuthConnection `json:"oauthConnections,omitempty"`
	EspConnections     []EspConnection   `json:"espConnections,omitempty"`
	ActiveConnection   string            `json:"activeConnection,omitempty"`
	ActiveLocationID   string            `json:"activeLocationId,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Branding holds per-account presentation settings.
type Branding struct {
	LogoURL      string   `json:"logoUrl,omitempty"`
	LogoDarkURL  string   `json:"logoDarkUrl,omitempty"`
	LogoIconURL  string   `json:"logoIconUrl,omitempty"`
	PrimaryColor string   `json:"primaryColor,omitempty"`
	AccentColor  string   `json:"accentColor,omitempty"`
	FontStack    []string `json:"fontStack,omitempty"`
}

// CustomValue is one named template value.
type CustomValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AccountPatch carries partial updates for PATCH /v1/accounts/{key}.
// Nil pointers mean "leave unchanged".
type AccountPatch struct {
	Dealer   *string   `json:"dealer,omitempty"`
	Category *string   `json:"category,omitempty"`
	OEMs     *[]string `json:"oems,omitempty"`

	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	SMSPhone     *string `json:"smsPhone,omitempty"`
	Website      *string `json:"website,omitempty"`
	AddressLine1 *string `json:"addressLine1,omitempty"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	PostalCode   *string `json:"postalCode,omitempty"`
	Country      *string `json:"country,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`

	Branding     *Branding               `json:"branding,omitempty"`
	CustomValues *map[string]CustomValue `json:"customValues,omitempty"`

	EspProvider      *string `json:"espProvider,omitempty"`
	ActiveConnection *string `json:"activeConnection,omitempty"`
	ActiveLocationID *string `json:"activeLocationId,omitempty"`
}

// CreateAccountRequest is the body of POST /v1/accounts. Key is
// optional; when absent it is derived from the dealer name.
type CreateAccountRequest struct {
	Key      string   `json:"key,omitempty"`
	Dealer   string   `json:"dealer"`
	Category string   `json:"category,omitempty"`
	OEMs     []string `json:"oems,omitempty"`
	Email    string   `json:"email,omitempty"`
	Timezone string   `json:"timezone,omitempty"`
}
