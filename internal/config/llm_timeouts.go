package config

import "time"

// In Go the SHORTEST timeout in the chain wins: a long HTTP client timeout
// wrapped in a short context fails at the context deadline. The manager
// never adds its own deadline, so the vendor HTTP client timeout is the
// effective per-call limit unless the caller's context is shorter.
const (
	// DefaultProviderTimeout bounds one vendor HTTP call. CV analysis
	// prompts routinely take over a minute on the larger models.
	DefaultProviderTimeout = 3 * time.Minute

	// ReasoningProviderTimeout is used for vendors whose default models
	// emit long reasoning traces before answering (Kimi thinking, MiniMax M2).
	ReasoningProviderTimeout = 5 * time.Minute
)

// DefaultTimeoutFor returns the timeout a vendor gets when its config
// block sets none.
func DefaultTimeoutFor(name string) time.Duration {
	switch name {
	case "kimi", "minimax":
		return ReasoningProviderTimeout
	default:
		return DefaultProviderTimeout
	}
}

// ProviderTimeouts returns the effective per-call timeout for every vendor.
func (c *Config) ProviderTimeouts() map[string]time.Duration {
	out := make(map[string]time.Duration, len(ProviderOrder))
	for name, p := range c.AI.byName() {
		out[name] = p.GetTimeout(DefaultTimeoutFor(name))
	}
	return out
}
