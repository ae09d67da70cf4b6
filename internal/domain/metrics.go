package domain

// ConsoleMetrics is the operational snapshot served to admins at
// GET /v1/metrics/console.
type ConsoleMetrics struct {
	TotalRequests  int64   `json:"total_requests"`
	ErrorRate      float64 `json:"error_rate"`
	GateAllowed    int64   `json:"gate_allowed"`
	GateRedirected int64   `json:"gate_redirected"`
	GatePending    int64   `json:"gate_pending"`
	DenialRate     float64 `json:"denial_rate"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	StoreErrors    int64   `json:"store_errors"`
	Period         string  `json:"period"`
}
