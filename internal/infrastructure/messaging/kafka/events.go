package kafka

import (
	"context"
	"time"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
)

// ComparisonCompletedPayload is the body of a comparison.completed event.
// It carries the summary only; the full report lives in the archive.
type ComparisonCompletedPayload struct {
	ComparisonID string           `json:"comparison_id"`
	RequestHash  string           `json:"request_hash"`
	Sensitivity  diff.Sensitivity `json:"sensitivity"`
	Model        string           `json:"model"`
	RiskScore    int              `json:"risk_score"`
	Level        diff.ChangeLevel `json:"semantic_change_level"`
	IsSafe       bool             `json:"is_safe"`
	ChangeCount  int              `json:"change_count"`
	Critical     int              `json:"critical_changes"`
	Chunked      bool             `json:"chunked"`
	FailedChunks int              `json:"failed_chunks,omitempty"`
	Cached       bool             `json:"cached"`
	DurationMs   int64            `json:"duration_ms"`
	CompletedAt  time.Time        `json:"completed_at"`
}

// NewComparisonCompletedPayload summarises rec.
func NewComparisonCompletedPayload(rec *diff.ComparisonRecord) ComparisonCompletedPayload {
	p := ComparisonCompletedPayload{
		ComparisonID: rec.ID,
		RequestHash:  rec.RequestHash,
		Sensitivity:  rec.Sensitivity,
		Model:        rec.Model,
		RiskScore:    rec.RiskScore,
		Level:        rec.Level,
		IsSafe:       rec.IsSafe,
		ChangeCount:  rec.ChangeCount,
		Chunked:      rec.Chunked,
		FailedChunks: rec.FailedChunks,
		Cached:       rec.Cached,
		DurationMs:   rec.DurationMs,
		CompletedAt:  rec.CreatedAt,
	}
	if rec.Result != nil {
		for _, c := range rec.Result.Changes {
			if c.Severity == diff.SeverityCritical {
				p.Critical++
			}
		}
	}
	return p
}

type publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventSink publishes a comparison.completed event per record.
type EventSink struct {
	producer publisher
	topic    string
}

// NewEventSink returns a sink publishing to topic through producer.
func NewEventSink(producer *Producer) *EventSink {
	return &EventSink{producer: producer, topic: producer.Topic()}
}

func (s *EventSink) Name() string { return "kafka" }

// Record publishes rec keyed by comparison id.
func (s *EventSink) Record(ctx context.Context, rec *diff.ComparisonRecord) error {
	env, err := NewEventEnvelope(EventComparisonCompleted, NewComparisonCompletedPayload(rec))
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"request_hash": rec.RequestHash}
	msg, err := env.ToMessage(s.topic, rec.ID)
	if err != nil {
		return err
	}
	return s.producer.Publish(ctx, msg)
}

var _ diff.RecordSink = (*EventSink)(nil)
