package client

import "time"

// Sensitivity selects how strictly the server judges changes.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// CompareRequest is the body of POST /v1/compare.
type CompareRequest struct {
	OriginalText  string      `json:"original_text"`
	GeneratedText string      `json:"generated_text"`
	Sensitivity   Sensitivity `json:"sensitivity,omitempty"`
	UsePremium    bool        `json:"use_premium"`
}

// TextSpan locates a change in one of the two texts. Offsets count
// characters in the sanitized text and are nil when unknown.
type TextSpan struct {
	Text          string `json:"text"`
	Start         *int   `json:"start"`
	End           *int   `json:"end"`
	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`
}

// ChangeItem is one semantic difference.
type ChangeItem struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Severity      string   `json:"severity"`
	Description   string   `json:"description"`
	Reasoning     string   `json:"reasoning"`
	OriginalSpan  TextSpan `json:"original_span"`
	GeneratedSpan TextSpan `json:"generated_span"`
}

// DiffSummary is the aggregate verdict.
type DiffSummary struct {
	IsSafe              bool   `json:"is_safe"`
	RiskScore           int    `json:"risk_score"`
	SemanticChangeLevel string `json:"semantic_change_level"`
}

// DiffResult is the verdict returned by Compare.
type DiffResult struct {
	Summary DiffSummary  `json:"summary"`
	Changes []ChangeItem `json:"changes"`
}

// CompareResponse is a verdict plus the serving metadata the server reports
// in response headers.
type CompareResponse struct {
	Result         *DiffResult
	ComparisonID   string
	Cached         bool
	CacheSource    string
	Chunked        bool
	ProcessingTime time.Duration
}

// CacheStats describes the server's verdict cache.
type CacheStats struct {
	Size          int     `json:"size"`
	MaxSize       int     `json:"max_size"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	Evictions     int64   `json:"evictions"`
	TTLSeconds    int64   `json:"ttl_seconds"`
	SharedEnabled bool    `json:"shared_enabled"`
	SharedHits    int64   `json:"shared_hits"`
	SharedErrors  int64   `json:"shared_errors"`
}

// ComponentCheck is the health of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status           string                    `json:"status"`
	Version          string                    `json:"version"`
	Uptime           string                    `json:"uptime"`
	OracleConfigured bool                      `json:"oracle_configured"`
	CacheStats       CacheStats                `json:"cache_stats"`
	Components       map[string]ComponentCheck `json:"components,omitempty"`
}

// ComparisonRecord is one entry of the comparison history.
type ComparisonRecord struct {
	ID              string      `json:"id"`
	RequestHash     string      `json:"request_hash"`
	Sensitivity     string      `json:"sensitivity"`
	UsePremium      bool        `json:"use_premium"`
	Model           string      `json:"model"`
	OriginalLength  int         `json:"original_length"`
	GeneratedLength int         `json:"generated_length"`
	RiskScore       int         `json:"risk_score"`
	Level           string      `json:"semantic_change_level"`
	IsSafe          bool        `json:"is_safe"`
	ChangeCount     int         `json:"change_count"`
	Chunked         bool        `json:"chunked"`
	ChunkCount      int         `json:"chunk_count"`
	FailedChunks    int         `json:"failed_chunks"`
	Cached          bool        `json:"cached"`
	CacheSource     string      `json:"cache_source,omitempty"`
	DurationMs      int64       `json:"duration_ms"`
	CreatedAt       time.Time   `json:"created_at"`
	Result          *DiffResult `json:"result,omitempty"`
}

// HistoryFilter narrows ListComparisons. Zero fields are not sent.
type HistoryFilter struct {
	Since      time.Time
	Until      time.Time
	UnsafeOnly bool
	Limit      int
	Offset     int
}

// ComparisonPage is one page of history.
type ComparisonPage struct {
	Items  []ComparisonRecord `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
