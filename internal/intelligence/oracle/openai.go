package oracle

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenAIOracle calls a chat-completions endpoint in JSON-object mode.
type OpenAIOracle struct {
	client openai.Client
}

// NewOpenAIOracle builds the backend. The SDK's own retries are disabled;
// wrap the oracle with Retrying instead.
func NewOpenAIOracle(cfg OpenAIConfig) (*OpenAIOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key missing", ErrOracleNotConfigured)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIOracle{client: openai.NewClient(opts...)}, nil
}

// Name implements Oracle.
func (o *OpenAIOracle) Name() string { return "openai" }

// Analyze implements Oracle.
func (o *OpenAIOracle) Analyze(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", ErrOracleResponseInvalid)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: openai returned empty content", ErrOracleResponseInvalid)
	}
	return content, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if stdliberrors.Is(err, context.DeadlineExceeded) || stdliberrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrOracleTimeout, err)
	}
	var apiErr *openai.Error
	if stdliberrors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: %w", ErrOracleAPI, err)
}

// classifyStatus maps a provider HTTP status to an oracle sentinel.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrOracleRateLimited, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", ErrOracleTimeout, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrOracleNotConfigured, err)
	default:
		return fmt.Errorf("%w: status %d: %w", ErrOracleAPI, status, err)
	}
}
