package ai

import "sync"

// defaultModels is the compiled-in candidate list per provider, best first.
var defaultModels = map[ProviderName][]string{
	ProviderGemini:  {"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"},
	ProviderOpenAI:  {"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"},
	ProviderClaude:  {"claude-sonnet-4-20250514", "claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"},
	ProviderKimi:    {"kimi-k2-turbo-preview", "kimi-k2-thinking", "moonshot-v1-128k"},
	ProviderMinimax: {"MiniMax-M2", "abab6.5s-chat"},
}

// DefaultModels returns a copy of the compiled-in candidate list.
func DefaultModels(provider ProviderName) []string {
	return append([]string(nil), defaultModels[provider]...)
}

// modelCandidates is an adapter's ranked model list plus the index of the
// model currently believed to work. The index only moves forward when a
// model proves unavailable, so later calls skip known-dead models.
type modelCandidates struct {
	mu      sync.Mutex
	models  []string
	current int
}

// newModelCandidates builds the list: pinned model first if given, then the
// configured list, else the compiled-in defaults. Duplicates are dropped.
func newModelCandidates(provider ProviderName, pinned string, configured []string) *modelCandidates {
	base := configured
	if len(base) == 0 {
		base = defaultModels[provider]
	}

	seen := make(map[string]bool, len(base)+1)
	var models []string
	add := func(m string) {
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		models = append(models, m)
	}
	add(pinned)
	for _, m := range base {
		add(m)
	}
	return &modelCandidates{models: models}
}

// attemptOrder returns the models to try for one call, starting at the
// current index. A fully exhausted list starts over from the top.
func (c *modelCandidates) attemptOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current >= len(c.models) {
		c.current = 0
	}
	return append([]string(nil), c.models[c.current:]...)
}

// markUnavailable advances past model if it is still the current one.
func (c *modelCandidates) markUnavailable(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < len(c.models) && c.models[c.current] == model {
		c.current++
	}
}

// primary returns the model the next call will try first.
func (c *modelCandidates) primary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.models) == 0 {
		return ""
	}
	if c.current >= len(c.models) {
		return c.models[0]
	}
	return c.models[c.current]
}

// all returns every candidate regardless of the current index.
func (c *modelCandidates) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.models...)
}
