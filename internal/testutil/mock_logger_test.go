package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	t.Parallel()
	root := testutil.NewMockLogger()
	child := root.Named("oracle").With(logging.String("model", "m1")).Named("retry")

	child.Warn("retrying", logging.Int("attempt", 2))

	msg, ok := root.Find("warn", "retrying")
	require.True(t, ok)
	assert.Equal(t, "oracle.retry", msg.Logger)
	v, ok := msg.Field("model")
	assert.True(t, ok)
	assert.Equal(t, "m1", v)
	v, _ = msg.Field("attempt")
	assert.Equal(t, 2, v)
}
