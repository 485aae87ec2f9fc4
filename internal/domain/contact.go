package domain

// Contact is a contact record proxied from the account's active ESP.
type Contact struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	DND       bool     `json:"dnd"`
	Source    string   `json:"source,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// ContactMessage is one message in a contact's conversation history.
type ContactMessage struct {
	ID        string `json:"id"`
	Direction string `json:"direction"` // "inbound" | "outbound"
	Type      string `json:"type"`      // "sms" | "email" | "text"
	Body      string `json:"body"`
	Subject   string `json:"subject,omitempty"`
	SentAt    string `json:"sentAt,omitempty"`
}

// DNDUpdateRequest toggles do-not-disturb for a contact.
type DNDUpdateRequest struct {
	AccountKey string `json:"accountKey"`
	DND        bool   `json:"dnd"`
}

// SendMessageRequest sends an ad-hoc message to a contact through the
// account's active provider.
type SendMessageRequest struct {
	AccountKey string `json:"accountKey"`
	Type       string `json:"type"` // "sms" | "email"
	Body       string `json:"body"`
	Subject    string `json:"subject,omitempty"`
}

// ContactListResponse pages contacts from the provider.
type ContactListResponse struct {
	Contacts []Contact `json:"contacts"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}
