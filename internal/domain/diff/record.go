package diff

import (
	"context"
	"time"
)

// ComparisonRecord is the audit trail of one finished comparison. Raw texts
// are never stored; RequestHash identifies the inputs.
type ComparisonRecord struct {
	ID              string      `json:"id"`
	RequestHash     string      `json:"request_hash"`
	Sensitivity     Sensitivity `json:"sensitivity"`
	UsePremium      bool        `json:"use_premium"`
	Model           string      `json:"model"`
	OriginalLength  int         `json:"original_length"`
	GeneratedLength int         `json:"generated_length"`
	RiskScore       int         `json:"risk_score"`
	Level           ChangeLevel `json:"semantic_change_level"`
	IsSafe          bool        `json:"is_safe"`
	ChangeCount     int         `json:"change_count"`
	Chunked         bool        `json:"chunked"`
	ChunkCount      int         `json:"chunk_count"`
	FailedChunks    int         `json:"failed_chunks"`
	Cached          bool        `json:"cached"`
	CacheSource     string      `json:"cache_source,omitempty"`
	DurationMs      int64       `json:"duration_ms"`
	CreatedAt       time.Time   `json:"created_at"`

	// Result is the verdict as returned to the caller. Sinks that only keep
	// the summary ignore it.
	Result *DiffResult `json:"result,omitempty"`
}

// RecordSink persists or publishes comparison records. Implementations must
// treat the record as read-only; it is shared between sinks.
type RecordSink interface {
	Name() string
	Record(ctx context.Context, rec *ComparisonRecord) error
}

// HistoryQuery filters comparison history.
type HistoryQuery struct {
	Since  time.Time
	Until  time.Time
	Unsafe bool
	Limit  int
	Offset int
}

// HistoryRepository stores comparison records for later inspection.
type HistoryRepository interface {
	RecordSink
	FindByID(ctx context.Context, id string) (*ComparisonRecord, error)
	List(ctx context.Context, q HistoryQuery) ([]*ComparisonRecord, error)
}

//Personal.AI order the ending
