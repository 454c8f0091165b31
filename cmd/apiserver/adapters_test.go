package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/ContextDiff/internal/config"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
)

type fakeTopics struct {
	exists bool
	err    error
}

func (f fakeTopics) TopicExists(context.Context, string) (bool, error) { return f.exists, f.err }

func TestKafkaChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topics  fakeTopics
		wantErr string
	}{
		{"present", fakeTopics{exists: true}, ""},
		{"missing", fakeTopics{}, `topic "contextdiff.comparisons" not found`},
		{"broker down", fakeTopics{err: errors.New("dial tcp: refused")}, "dial tcp: refused"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := kafkaChecker(tc.topics, "contextdiff.comparisons")
			assert.Equal(t, "kafka", c.Name())
			err := c.Check(context.Background())
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestNewOracle(t *testing.T) {
	t.Parallel()
	metrics := prometheus.NewNoopAppMetrics()

	o, err := newOracle(context.Background(), config.OracleConfig{Provider: "openai"}, logging.NewNopLogger(), metrics)
	assert.NoError(t, err)
	assert.IsType(t, oracle.Unconfigured{}, o)

	o, err = newOracle(context.Background(), config.OracleConfig{Provider: "openai", APIKey: "sk-test"}, logging.NewNopLogger(), metrics)
	assert.NoError(t, err)
	assert.IsType(t, &oracle.Breaker{}, o)
	assert.True(t, oracle.Configured(o))
	assert.Equal(t, "openai", o.Name())

	_, err = newOracle(context.Background(), config.OracleConfig{Provider: "llama", APIKey: "k"}, logging.NewNopLogger(), metrics)
	assert.Error(t, err)
}
