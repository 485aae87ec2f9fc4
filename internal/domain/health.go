package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	LatencyMs     int64   `json:"latencyMs"`
	UptimePercent float64 `json:"uptimePercent"`
	LastChecked   string  `json:"lastChecked"`
}

// SyncMetrics is returned by GET /v1/metrics/sync.
type SyncMetrics struct {
	TotalSyncs        int64   `json:"totalSyncs"`
	SuccessfulSyncs   int64   `json:"successfulSyncs"`
	FailedSyncs       int64   `json:"failedSyncs"`
	SkippedSyncs      int64   `json:"skippedSyncs"`
	ErrorRate         float64 `json:"errorRate"`
	ScopeCacheHitRate float64 `json:"scopeCacheHitRate"`
	Period            string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
