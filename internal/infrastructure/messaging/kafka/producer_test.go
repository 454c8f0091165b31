package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/testutil"
	pkgerrors "github.com/turtacn/ContextDiff/pkg/errors"
)

type mockKafkaWriter struct {
	mu        sync.Mutex
	written   []kafka.Message
	writeErr  error
	closed    int
	statsFunc func() kafka.WriterStats
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats {
	if m.statsFunc != nil {
		return m.statsFunc()
	}
	return kafka.WriterStats{}
}

func (m *mockKafkaWriter) messages() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.written...)
}

func newTestProducer(w WriterInterface) *Producer {
	return &Producer{
		writer:  w,
		config:  applyProducerDefaults(ProducerConfig{Brokers: []string{"localhost:9092"}}),
		logger:  testutil.NewMockLogger(),
		metrics: &ProducerMetrics{},
	}
}

func TestValidateProducerConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     ProducerConfig
		wantErr bool
	}{
		{"valid", ProducerConfig{Brokers: []string{"b:9092"}}, false},
		{"no brokers", ProducerConfig{}, true},
		{"negative retries", ProducerConfig{Brokers: []string{"b:9092"}, MaxRetries: -1}, true},
		{"scram", ProducerConfig{Brokers: []string{"b:9092"}, SASLEnabled: true, SASLMechanism: "SCRAM-SHA-512"}, false},
		{"unknown sasl", ProducerConfig{Brokers: []string{"b:9092"}, SASLEnabled: true, SASLMechanism: "GSSAPI"}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateProducerConfig(tc.cfg)
			if tc.wantErr {
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProducer_Defaults(t *testing.T) {
	t.Parallel()
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, CompressionCodec: "snappy", Acks: "all"}, nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, TopicComparisonCompleted, p.Topic())
	assert.Equal(t, 1024*1024, p.config.MaxMessageBytes)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Snappy, w.Compression)
	assert.Equal(t, 4, w.MaxAttempts)
}

func TestPublish_Success(t *testing.T) {
	t.Parallel()
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "events",
		Key:     []byte("k"),
		Value:   []byte("v"),
		Headers: map[string]string{"event_type": "x"},
	})
	require.NoError(t, err)

	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "events", msgs[0].Topic)
	assert.Equal(t, "k", string(msgs[0].Key))
	assert.Equal(t, "v", string(msgs[0].Value))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("x")}}, msgs[0].Headers)
	assert.False(t, msgs[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_Rejects(t *testing.T) {
	t.Parallel()
	p := newTestProducer(&mockKafkaWriter{})
	p.config.MaxMessageBytes = 4

	assert.Error(t, p.Publish(context.Background(), &ProducerMessage{Value: []byte("v")}))
	assert.Error(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t"}))
	assert.Error(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("too large")}))
	assert.Zero(t, p.Sent())
}

func TestPublish_WriterFailure(t *testing.T) {
	t.Parallel()
	p := newTestProducer(&mockKafkaWriter{writeErr: errors.New("leader not available")})

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeExternalService))
	assert.Equal(t, int64(1), p.Failed())
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")}), ErrProducerClosed)
}

//Personal.AI order the ending
