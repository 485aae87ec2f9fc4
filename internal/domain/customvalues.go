package domain

import "time"

// CustomValueDefaults is the global set of template value definitions
// applied to every account unless overridden per account.
type CustomValueDefaults struct {
	Fields    map[string]CustomValue `json:"fields"`
	UpdatedAt string                 `json:"updatedAt,omitempty"`
}

// SyncRun records one custom-value push to a provider for one account.
type SyncRun struct {
	ID          string    `json:"id"`
	AccountKey  string    `json:"accountKey"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"` // "success" | "failed" | "skipped"
	PushedCount int       `json:"pushedCount"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// SyncResult is the outcome of a single-account sync request.
type SyncResult struct {
	AccountKey  string        `json:"accountKey"`
	Provider    string        `json:"provider"`
	Readiness   SyncReadiness `json:"readiness"`
	PushedCount int           `json:"pushedCount"`
	RunID       string        `json:"runId,omitempty"`
}

// SyncAllResult aggregates a sync-all fan-out across accounts.
type SyncAllResult struct {
	Total    int          `json:"total"`
	Synced   int          `json:"synced"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Accounts []SyncResult `json:"accounts"`
}
