package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini adapter.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // Optional override, mainly for tests
	Timeout time.Duration
}

// geminiModels is the slice of *genai.Models the adapter uses.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiBackend struct {
	models geminiModels
	logger *zap.Logger
}

// NewGeminiProvider creates a Gemini adapter backed by the genai SDK.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, opts AdapterOptions) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGeminiProvider(client.Models, opts), nil
}

func newGeminiProvider(models geminiModels, opts AdapterOptions) *adapter {
	logger := opts.apiLogger()
	return newAdapter(ProviderGemini, &geminiBackend{models: models, logger: logger}, opts)
}

func (b *geminiBackend) generate(ctx context.Context, call generateCall) (*generation, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(call.MaxTokens),
	}
	if !call.FixedTemperature {
		config.Temperature = genai.Ptr(float32(call.Temperature))
	}
	if call.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(call.Prompt, genai.RoleUser),
	}

	b.logger.Debug("[Gemini] generate", zap.String("model", call.Model), zap.Int("prompt_len", len(call.Prompt)))

	resp, err := b.models.GenerateContent(ctx, call.Model, contents, config)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}

	if fb := resp.PromptFeedback; fb != nil && isGeminiBlockReason(string(fb.BlockReason)) {
		return nil, &SafetyBlockError{
			Category: geminiSafetyCategory(fb.SafetyRatings, string(fb.BlockReason)),
			Reason:   strings.TrimSpace(string(fb.BlockReason) + " " + fb.BlockReasonMessage),
		}
	}

	if len(resp.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	finish := string(cand.FinishReason)
	if isGeminiSafetyFinish(finish) {
		return nil, &SafetyBlockError{
			Category: geminiSafetyCategory(cand.SafetyRatings, finish),
			Reason:   finish,
		}
	}

	var text, thoughts strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if part.Thought {
				thoughts.WriteString(part.Text)
				continue
			}
			text.WriteString(part.Text)
		}
	}

	gen := &generation{
		Text:         text.String(),
		Reasoning:    thoughts.String(),
		Model:        call.Model,
		FinishReason: finish,
	}
	if u := resp.UsageMetadata; u != nil {
		gen.InputTokens = int(u.PromptTokenCount)
		gen.OutputTokens = int(u.CandidatesTokenCount + u.ThoughtsTokenCount)
	}
	return gen, nil
}

func isGeminiBlockReason(reason string) bool {
	return reason != "" && reason != "BLOCKED_REASON_UNSPECIFIED"
}

func isGeminiSafetyFinish(reason string) bool {
	switch reason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII", "IMAGE_SAFETY":
		return true
	}
	return false
}

// geminiSafetyCategory names the harm category that triggered a block:
// a rating flagged Blocked wins, then the highest-probability rating, then
// the raw reason.
func geminiSafetyCategory(ratings []*genai.SafetyRating, fallback string) string {
	var high string
	for _, r := range ratings {
		if r == nil {
			continue
		}
		if r.Blocked {
			return string(r.Category)
		}
		if high == "" && (r.Probability == genai.HarmProbabilityHigh || r.Probability == genai.HarmProbabilityMedium) {
			high = string(r.Category)
		}
	}
	if high != "" {
		return high
	}
	return fallback
}

func classifyGeminiError(err error) error {
	msg := strings.ToLower(err.Error())
	if isModelUnavailable(err) || strings.Contains(msg, "not_found") {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
