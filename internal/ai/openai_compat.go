package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default base URLs for the OpenAI-compatible vendors.
const (
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultKimiBaseURL    = "https://api.moonshot.ai/v1"
	DefaultMinimaxBaseURL = "https://api.minimax.io/v1"
)

// CompatConfig holds configuration for an OpenAI-compatible vendor.
type CompatConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// chatMessage is a chat-completions message.
type chatMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

// chatRequest is the /chat/completions request body.
type chatRequest struct {
	Model               string              `json:"model"`
	Messages            []chatMessage       `json:"messages"`
	MaxTokens           int                 `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                 `json:"max_completion_tokens,omitempty"`
	Temperature         *float64            `json:"temperature,omitempty"`
	ResponseFormat      *chatResponseFormat `json:"response_format,omitempty"`
}

// chatResponse is the /chat/completions reply, including the MiniMax
// base_resp envelope.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
	BaseResp *struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// chatCompletionsBackend talks to any OpenAI-compatible endpoint.
type chatCompletionsBackend struct {
	provider   ProviderName
	label      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	// stripThink removes <think> blocks from content (MiniMax).
	stripThink bool
	// jsonResponseFormat sends response_format=json_object in JSON mode.
	jsonResponseFormat bool
}

// NewOpenAIProvider creates an OpenAI adapter.
func NewOpenAIProvider(cfg CompatConfig, opts AdapterOptions) (Provider, error) {
	b, err := newChatCompletionsBackend(ProviderOpenAI, "OpenAI", DefaultOpenAIBaseURL, cfg, opts.apiLogger())
	if err != nil {
		return nil, err
	}
	b.jsonResponseFormat = true
	return newAdapter(ProviderOpenAI, b, opts), nil
}

// NewKimiProvider creates a Kimi (Moonshot) adapter. Thinking models put
// their answer in reasoning_content; the adapter recovers JSON from it.
func NewKimiProvider(cfg CompatConfig, opts AdapterOptions) (Provider, error) {
	b, err := newChatCompletionsBackend(ProviderKimi, "Kimi", DefaultKimiBaseURL, cfg, opts.apiLogger())
	if err != nil {
		return nil, err
	}
	return newAdapter(ProviderKimi, b, opts), nil
}

// NewMinimaxProvider creates a MiniMax adapter.
func NewMinimaxProvider(cfg CompatConfig, opts AdapterOptions) (Provider, error) {
	b, err := newChatCompletionsBackend(ProviderMinimax, "MiniMax", DefaultMinimaxBaseURL, cfg, opts.apiLogger())
	if err != nil {
		return nil, err
	}
	b.stripThink = true
	return newAdapter(ProviderMinimax, b, opts), nil
}

func newChatCompletionsBackend(provider ProviderName, label, defaultURL string, cfg CompatConfig, logger *zap.Logger) (*chatCompletionsBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", label)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatCompletionsBackend{
		provider:   provider,
		label:      label,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (b *chatCompletionsBackend) generate(ctx context.Context, call generateCall) (*generation, error) {
	startTime := time.Now()
	b.logger.Debug(fmt.Sprintf("[%s] chat completion", b.label),
		zap.String("model", call.Model),
		zap.Int("prompt_len", len(call.Prompt)))

	reqBody := chatRequest{
		Model:    call.Model,
		Messages: []chatMessage{{Role: "user", Content: call.Prompt}},
	}
	limits := LookupModelLimits(b.provider, call.Model)
	if limits.UsesMaxCompletionTokens {
		reqBody.MaxCompletionTokens = call.MaxTokens
	} else {
		reqBody.MaxTokens = call.MaxTokens
	}
	if !call.FixedTemperature {
		t := call.Temperature
		reqBody.Temperature = &t
	}
	// json_object mode is rejected unless the prompt mentions JSON.
	if call.JSONMode && b.jsonResponseFormat && strings.Contains(strings.ToLower(call.Prompt), "json") {
		reqBody.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusNotFound || isModelUnavailable(apiErr) {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, apiErr)
		}
		return nil, apiErr
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil && chatResp.Error.Message != "" {
		apiErr := fmt.Errorf("API error: %s", chatResp.Error.Message)
		if isModelUnavailable(apiErr) {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, apiErr)
		}
		return nil, apiErr
	}

	if br := chatResp.BaseResp; br != nil && br.StatusCode != 0 {
		apiErr := fmt.Errorf("API error %d: %s", br.StatusCode, br.StatusMsg)
		if isModelUnavailable(apiErr) {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, apiErr)
		}
		return nil, apiErr
	}

	if len(chatResp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := chatResp.Choices[0]
	content := choice.Message.Content
	reasoning := choice.Message.ReasoningContent
	if b.stripThink {
		var thought string
		content, thought = stripThinkBlocks(content)
		if reasoning == "" {
			reasoning = thought
		}
	}
	if choice.FinishReason == "content_filter" && strings.TrimSpace(content) == "" {
		return nil, &SafetyBlockError{Category: "content_filter", Reason: choice.FinishReason}
	}

	gen := &generation{
		Text:         strings.TrimSpace(content),
		Reasoning:    reasoning,
		Model:        chatResp.Model,
		FinishReason: choice.FinishReason,
	}
	if gen.Model == "" {
		gen.Model = call.Model
	}
	if chatResp.Usage != nil {
		gen.InputTokens = chatResp.Usage.PromptTokens
		gen.OutputTokens = chatResp.Usage.CompletionTokens
	}

	b.logger.Debug(fmt.Sprintf("[%s] chat completion done", b.label),
		zap.String("model", gen.Model),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("response_len", len(gen.Text)))
	return gen, nil
}

var thinkBlockPattern = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// stripThinkBlocks removes <think>...</think> sections and returns the
// remaining content plus the concatenated reasoning. An unterminated
// <think> swallows the rest of the text.
func stripThinkBlocks(content string) (string, string) {
	var thoughts []string
	for _, m := range thinkBlockPattern.FindAllStringSubmatch(content, -1) {
		thoughts = append(thoughts, strings.TrimSpace(m[1]))
	}
	out := thinkBlockPattern.ReplaceAllString(content, "")

	if idx := strings.Index(out, "<think>"); idx >= 0 {
		thoughts = append(thoughts, strings.TrimSpace(out[idx+len("<think>"):]))
		out = out[:idx]
	}
	return strings.TrimSpace(out), strings.Join(thoughts, "\n")
}
