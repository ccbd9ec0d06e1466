package ai

import "strings"

// ModelLimits describes the output and context budget of a model.
type ModelLimits struct {
	MaxOutputTokens int
	ContextWindow   int

	// UsesMaxCompletionTokens marks OpenAI reasoning models that reject
	// max_tokens in favour of max_completion_tokens.
	UsesMaxCompletionTokens bool
	// FixedTemperature marks models that only accept the default temperature.
	FixedTemperature bool
}

// exactModelLimits wins over any prefix match.
var exactModelLimits = map[string]ModelLimits{
	"gpt-4-turbo":             {MaxOutputTokens: 4096, ContextWindow: 128000},
	"moonshot-v1-8k":          {MaxOutputTokens: 4096, ContextWindow: 8192},
	"moonshot-v1-32k":         {MaxOutputTokens: 8192, ContextWindow: 32768},
	"moonshot-v1-128k":        {MaxOutputTokens: 8192, ContextWindow: 131072},
	"gemini-2.0-flash":        {MaxOutputTokens: 8192, ContextWindow: 1048576},
	"claude-3-haiku-20240307": {MaxOutputTokens: 4096, ContextWindow: 200000},
}

// prefixModelLimits is matched longest prefix first.
var prefixModelLimits = map[string]ModelLimits{
	// Gemini
	"gemini-2.5-pro":        {MaxOutputTokens: 65536, ContextWindow: 1048576},
	"gemini-2.5-flash":      {MaxOutputTokens: 65536, ContextWindow: 1048576},
	"gemini-2.5-flash-lite": {MaxOutputTokens: 65536, ContextWindow: 1048576},
	"gemini-2.0":            {MaxOutputTokens: 8192, ContextWindow: 1048576},
	"gemini-1.5-pro":        {MaxOutputTokens: 8192, ContextWindow: 2097152},
	"gemini-1.5":            {MaxOutputTokens: 8192, ContextWindow: 1048576},

	// OpenAI
	"gpt-4o":  {MaxOutputTokens: 16384, ContextWindow: 128000},
	"gpt-4.1": {MaxOutputTokens: 32768, ContextWindow: 1047576},
	"gpt-4":   {MaxOutputTokens: 8192, ContextWindow: 8192},
	"gpt-5":   {MaxOutputTokens: 128000, ContextWindow: 400000, UsesMaxCompletionTokens: true},
	"o1":      {MaxOutputTokens: 100000, ContextWindow: 200000, UsesMaxCompletionTokens: true, FixedTemperature: true},
	"o3":      {MaxOutputTokens: 100000, ContextWindow: 200000, UsesMaxCompletionTokens: true, FixedTemperature: true},
	"o4":      {MaxOutputTokens: 100000, ContextWindow: 200000, UsesMaxCompletionTokens: true, FixedTemperature: true},

	// Claude
	"claude-opus-4":     {MaxOutputTokens: 32000, ContextWindow: 200000},
	"claude-sonnet-4":   {MaxOutputTokens: 64000, ContextWindow: 200000},
	"claude-3-7-sonnet": {MaxOutputTokens: 64000, ContextWindow: 200000},
	"claude-3-5":        {MaxOutputTokens: 8192, ContextWindow: 200000},
	"claude-3":          {MaxOutputTokens: 4096, ContextWindow: 200000},

	// Kimi
	"kimi-k2":          {MaxOutputTokens: 32768, ContextWindow: 262144},
	"kimi-k2-thinking": {MaxOutputTokens: 65536, ContextWindow: 262144},
	"moonshot-v1":      {MaxOutputTokens: 4096, ContextWindow: 8192},

	// Minimax
	"MiniMax-M2": {MaxOutputTokens: 131072, ContextWindow: 204800},
	"MiniMax-M1": {MaxOutputTokens: 40000, ContextWindow: 1000000},
	"abab6.5":    {MaxOutputTokens: 8192, ContextWindow: 245760},
}

// providerDefaultLimits applies when a model is unknown.
var providerDefaultLimits = map[ProviderName]ModelLimits{
	ProviderGemini:  {MaxOutputTokens: 8192, ContextWindow: 1048576},
	ProviderOpenAI:  {MaxOutputTokens: 4096, ContextWindow: 128000},
	ProviderClaude:  {MaxOutputTokens: 4096, ContextWindow: 200000},
	ProviderKimi:    {MaxOutputTokens: 8192, ContextWindow: 131072},
	ProviderMinimax: {MaxOutputTokens: 8192, ContextWindow: 204800},
}

// fallbackLimits is used for providers missing from providerDefaultLimits.
var fallbackLimits = ModelLimits{MaxOutputTokens: 4096, ContextWindow: 32768}

// defaultRequestTokens caps requests that do not specify MaxTokens. Most
// analyses fit comfortably; asking for a model's full output budget slows
// some vendors down considerably.
const defaultRequestTokens = 8192

// LookupModelLimits resolves limits by exact model name, then by longest
// matching prefix, then by provider default.
func LookupModelLimits(provider ProviderName, model string) ModelLimits {
	if l, ok := exactModelLimits[model]; ok {
		return l
	}

	best := ""
	for prefix := range prefixModelLimits {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return prefixModelLimits[best]
	}

	if l, ok := providerDefaultLimits[provider]; ok {
		return l
	}
	return fallbackLimits
}

// ResolveMaxTokens returns the max output tokens to send for a call.
// A requested value is capped at the model's limit; a missing or
// non-positive one defaults to min(limit, defaultRequestTokens).
func ResolveMaxTokens(provider ProviderName, model string, requested *int) int {
	limit := LookupModelLimits(provider, model).MaxOutputTokens
	if requested != nil && *requested > 0 {
		return min(*requested, limit)
	}
	return min(limit, defaultRequestTokens)
}
