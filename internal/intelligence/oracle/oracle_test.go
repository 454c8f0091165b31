package oracle_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"nil", nil, errors.CodeOK},
		{"timeout", fmt.Errorf("call: %w", oracle.ErrOracleTimeout), errors.ErrCodeOracleTimeout},
		{"rate limited", oracle.ErrOracleRateLimited, errors.ErrCodeOracleRateLimited},
		{"api", oracle.ErrOracleAPI, errors.ErrCodeOracleAPIError},
		{"invalid", oracle.ErrOracleResponseInvalid, errors.ErrCodeResponseInvalid},
		{"not configured", oracle.ErrOracleNotConfigured, errors.ErrCodeOracleNotConfigured},
		{"exhausted", fmt.Errorf("%w: %w", oracle.ErrOracleUnavailable, oracle.ErrOracleRateLimited), errors.ErrCodeOracleUnavailable},
		{"other", fmt.Errorf("boom"), errors.CodeInternal},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, oracle.Code(tc.err))
		})
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	o, err := oracle.NewProvider(context.Background(), oracle.ProviderConfig{Provider: "openai"}, nil)
	require.NoError(t, err)
	assert.False(t, oracle.Configured(o))
	_, err = o.Analyze(context.Background(), oracle.Request{})
	assert.ErrorIs(t, err, oracle.ErrOracleNotConfigured)

	o, err = oracle.NewProvider(context.Background(), oracle.ProviderConfig{Provider: "openai", APIKey: "sk-test"}, nil)
	require.NoError(t, err)
	assert.True(t, oracle.Configured(o))
	assert.Equal(t, "openai", o.Name())

	_, err = oracle.NewProvider(context.Background(), oracle.ProviderConfig{Provider: "llama", APIKey: "k"}, nil)
	assert.Error(t, err)
}

func TestConfigured_LooksThroughWrappers(t *testing.T) {
	t.Parallel()

	wrapped := oracle.NewBreaker(oracle.Retrying(oracle.Unconfigured{}, oracle.RetryPolicy{}), oracle.BreakerConfig{})
	assert.False(t, oracle.Configured(wrapped))

	live := oracle.Func(func(context.Context, oracle.Request) (string, error) { return "{}", nil })
	assert.True(t, oracle.Configured(oracle.NewBreaker(oracle.Retrying(live, oracle.RetryPolicy{}), oracle.BreakerConfig{})))
	assert.False(t, oracle.Configured(nil))
}
