package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// ClaudeConfig holds configuration for the Claude adapter.
type ClaudeConfig struct {
	APIKey  string
	BaseURL string // Optional override, mainly for tests
	Timeout time.Duration
}

type claudeBackend struct {
	client *anthropic.Client
	logger *zap.Logger
}

// NewClaudeProvider creates a Claude adapter backed by the Anthropic SDK.
// SDK retries are disabled: the manager owns fallback and never retries the
// same model.
func NewClaudeProvider(cfg ClaudeConfig, opts AdapterOptions) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Claude provider")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(reqOpts...)

	logger := opts.apiLogger()
	return newAdapter(ProviderClaude, &claudeBackend{client: &client, logger: logger}, opts), nil
}

func (b *claudeBackend) generate(ctx context.Context, call generateCall) (*generation, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(call.Model),
		MaxTokens: int64(call.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.Prompt)),
		},
	}
	if !call.FixedTemperature {
		params.Temperature = anthropic.Float(min(call.Temperature, 1.0))
	}

	b.logger.Debug("[Claude] messages.new", zap.String("model", call.Model), zap.Int("prompt_len", len(call.Prompt)))

	response, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyClaudeError(err)
	}

	if response.StopReason == "refusal" {
		return nil, &SafetyBlockError{Category: "refusal", Reason: string(response.StopReason)}
	}

	var text, thinking strings.Builder
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			thinking.WriteString(block.Thinking)
		}
	}

	return &generation{
		Text:         text.String(),
		Reasoning:    thinking.String(),
		Model:        string(response.Model),
		InputTokens:  int(response.Usage.InputTokens),
		OutputTokens: int(response.Usage.OutputTokens),
		FinishReason: string(response.StopReason),
	}, nil
}

func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if isModelUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return fmt.Errorf("anthropic API call failed: %w", err)
}
