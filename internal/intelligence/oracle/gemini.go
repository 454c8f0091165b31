package oracle

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
}

// GeminiOracle calls the Gemini API with a JSON response MIME type.
type GeminiOracle struct {
	client *genai.Client
}

// NewGeminiOracle builds the backend.
func NewGeminiOracle(ctx context.Context, cfg GeminiConfig) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key missing", ErrOracleNotConfigured)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiOracle{client: client}, nil
}

// Name implements Oracle.
func (g *GeminiOracle) Name() string { return "gemini" }

// Analyze implements Oracle.
func (g *GeminiOracle) Analyze(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		ResponseMIMEType:  "application/json",
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	contents := []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", classifyGeminiError(ctx, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: gemini returned empty content", ErrOracleResponseInvalid)
	}
	return text, nil
}

func classifyGeminiError(ctx context.Context, err error) error {
	if stdliberrors.Is(err, context.DeadlineExceeded) || stdliberrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrOracleTimeout, err)
	}
	var apiErr genai.APIError
	if stdliberrors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if stdliberrors.As(err, &apiErrPtr) {
		return classifyStatus(apiErrPtr.Code, err)
	}
	return fmt.Errorf("%w: %w", ErrOracleAPI, err)
}
