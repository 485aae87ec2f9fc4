package domain

// BulkLinkRow is one parsed line of bulk location-link input.
// Ephemeral: it lives only for the duration of a preview/apply cycle.
type BulkLinkRow struct {
	Line         int    `json:"line"`
	Raw          string `json:"raw"`
	AccountKey   string `json:"accountKey"`
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Valid reports whether the row passed validation.
func (r BulkLinkRow) Valid() bool { return r.Error == "" }

// BulkLinkRequest is the body of the bulk location-link endpoint.
// Apply=false runs a preview only.
type BulkLinkRequest struct {
	Input string `json:"input"`
	Apply bool   `json:"apply"`
}

// BulkLinkRowResult is the apply outcome for one row, matched back to
// the preview by line number.
type BulkLinkRowResult struct {
	Line       int    `json:"line"`
	AccountKey string `json:"accountKey"`
	LocationID string `json:"locationId"`
	Linked     bool   `json:"linked"`
	Error      string `json:"error,omitempty"`
}

// BulkLinkResponse is the payload of the bulk location-link endpoint.
type BulkLinkResponse struct {
	Rows     []BulkLinkRow       `json:"rows"`
	Applied  bool                `json:"applied"`
	Results  []BulkLinkRowResult `json:"results,omitempty"`
	RowCount int                 `json:"rowCount"`
	ErrCount int                 `json:"errorCount"`
}

// LocationLinkRequest links a single account to an external location.
type LocationLinkRequest struct {
	AccountKey   string `json:"accountKey"`
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName,omitempty"`
}
