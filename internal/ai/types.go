// Package ai routes CV-analysis prompts across AI vendors.
//
// Each vendor sits behind a Provider adapter that renders the prompt,
// calls the vendor, recovers JSON from free-form replies and prices the
// call. The Manager walks a persisted fallback chain of (provider, model)
// pairs and returns the first success.
package ai

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rpad300/shortlistAI-sub000/internal/config"
)

// ProviderName identifies an AI vendor.
type ProviderName string

const (
	ProviderGemini  ProviderName = "gemini"
	ProviderOpenAI  ProviderName = "openai"
	ProviderClaude  ProviderName = "claude"
	ProviderKimi    ProviderName = "kimi"
	ProviderMinimax ProviderName = "minimax"

	// ProviderNone marks synthetic failures produced by the manager.
	ProviderNone ProviderName = "none"
)

// DefaultProviderOrder is the fixed initialization order, taken from
// config.ProviderOrder. The first initialized provider becomes the default.
var DefaultProviderOrder = providerOrder()

func providerOrder() []ProviderName {
	out := make([]ProviderName, 0, len(config.ProviderOrder))
	for _, name := range config.ProviderOrder {
		out = append(out, ProviderName(name))
	}
	return out
}

// ParseProviderName normalizes a provider string, accepting vendor aliases.
func ParseProviderName(s string) (ProviderName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	case "kimi", "moonshot":
		return ProviderKimi, nil
	case "minimax":
		return ProviderMinimax, nil
	default:
		return "", fmt.Errorf("unknown AI provider %q", s)
	}
}

// PromptType selects the template family and whether a JSON reply is expected.
type PromptType string

const (
	PromptCVExtraction            PromptType = "cv_extraction"
	PromptJobPostingNormalization PromptType = "job_posting_normalization"
	PromptInterviewerAnalysis     PromptType = "interviewer_analysis"
	PromptCandidateAnalysis       PromptType = "candidate_analysis"
	PromptWeightingRecommendation PromptType = "weighting_recommendation"
	PromptSummary                 PromptType = "summary"
	PromptExecutiveRecommendation PromptType = "executive_recommendation"
	PromptTranslation             PromptType = "translation"
	PromptChatbotWelcome          PromptType = "chatbot_welcome"
	PromptChatbotExtraction       PromptType = "chatbot_extraction"
	PromptChatbotResponse         PromptType = "chatbot_response"
)

// AllPromptTypes lists every prompt type in declaration order.
func AllPromptTypes() []PromptType {
	return []PromptType{
		PromptCVExtraction,
		PromptJobPostingNormalization,
		PromptInterviewerAnalysis,
		PromptCandidateAnalysis,
		PromptWeightingRecommendation,
		PromptSummary,
		PromptExecutiveRecommendation,
		PromptTranslation,
		PromptChatbotWelcome,
		PromptChatbotExtraction,
		PromptChatbotResponse,
	}
}

// ParsePromptType validates a prompt type string.
func ParsePromptType(s string) (PromptType, error) {
	pt := PromptType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPromptTypes() {
		if pt == known {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown prompt type %q", s)
}

// IsJSON reports whether replies for this prompt type are parsed as JSON.
func (p PromptType) IsJSON() bool {
	switch p {
	case PromptCVExtraction,
		PromptJobPostingNormalization,
		PromptInterviewerAnalysis,
		PromptCandidateAnalysis,
		PromptWeightingRecommendation,
		PromptExecutiveRecommendation,
		PromptChatbotExtraction:
		return true
	default:
		return false
	}
}

// Request is one prompt invocation. Adapters never mutate it.
type Request struct {
	PromptType  PromptType
	Template    string
	Variables   map[string]any
	Language    string
	MaxTokens   *int
	Temperature *float64
}

// Response is the outcome of one adapter invocation, or the manager's
// synthetic failure when every candidate failed.
type Response struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	RawText      string         `json:"raw_text,omitempty"`
	Error        string         `json:"error,omitempty"`
	Provider     ProviderName   `json:"provider"`
	Model        string         `json:"model,omitempty"`
	InputTokens  int            `json:"input_tokens"`
	OutputTokens int            `json:"output_tokens"`
	LatencyMS    int64          `json:"latency_ms"`
	CostUSD      float64        `json:"cost_usd"`
}

// Latency returns LatencyMS as a duration.
func (r Response) Latency() time.Duration {
	return time.Duration(r.LatencyMS) * time.Millisecond
}

func failure(provider ProviderName, model, msg string) Response {
	return Response{
		Success:  false,
		Error:    msg,
		Provider: provider,
		Model:    model,
	}
}

// Int returns a pointer to v, for Request.MaxTokens.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }

var languageNames = map[string]string{
	"en": "English",
	"pt": "Portuguese",
	"fr": "French",
	"es": "Spanish",
}

// LanguageName maps a language code to the name used in prompts. Unknown
// codes pass through; empty means English.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return languageNames["en"]
	}
	if base, _, ok := strings.Cut(code, "-"); ok {
		code = base
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// SupportedLanguages returns the language codes with a known name.
func SupportedLanguages() []string {
	out := make([]string, 0, len(languageNames))
	for code := range languageNames {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}
