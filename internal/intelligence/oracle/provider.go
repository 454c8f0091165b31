package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ProviderConfig selects and configures a backend.
type ProviderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// NewProvider builds the configured backend. Without an API key it returns
// Unconfigured so that the service can still start and report the problem
// on /health.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger logging.Logger) (Oracle, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("oracle api key not set, comparisons needing the oracle will fail",
			logging.String("provider", cfg.Provider))
		return Unconfigured{}, nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIOracle(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case ProviderGemini:
		return NewGeminiOracle(ctx, GeminiConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}

// Configured reports whether o can actually reach a provider. Wrappers that
// expose Unwrap are looked through.
func Configured(o Oracle) bool {
	for o != nil {
		if _, unconfigured := o.(Unconfigured); unconfigured {
			return false
		}
		w, ok := o.(interface{ Unwrap() Oracle })
		if !ok {
			return true
		}
		o = w.Unwrap()
	}
	return false
}
