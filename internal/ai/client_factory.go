package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rpad300/shortlistAI-sub000/internal/config"
)

// SharedDeps are the collaborators every adapter receives.
type SharedDeps struct {
	Pricer *Pricer
	Tokens *TokenEstimator
	Logger *zap.Logger
	// APILogger receives vendor request logs.
	APILogger *zap.Logger
}

// NewProvidersFromConfig initializes an adapter for every vendor with a
// credential, in DefaultProviderOrder. A vendor without a key is silently
// omitted; one that fails to initialize is logged and omitted.
func NewProvidersFromConfig(ctx context.Context, cfg config.AIConfig, deps SharedDeps) []Provider {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var providers []Provider
	for _, name := range DefaultProviderOrder {
		pc, ok := cfg.Provider(string(name))
		if !ok || !pc.Enabled() {
			logger.Debug("provider not configured", zap.String("provider", string(name)))
			continue
		}

		opts := AdapterOptions{
			Models:      pc.Models,
			Temperature: cfg.Temperature,
			Pricer:      deps.Pricer,
			Tokens:      deps.Tokens,
			Logger:      logger,
			APILogger:   deps.APILogger,
		}
		timeout := pc.GetTimeout(config.DefaultTimeoutFor(string(name)))

		p, err := newProvider(ctx, name, pc, timeout, opts)
		if err != nil {
			logger.Warn("provider initialization failed",
				zap.String("provider", string(name)),
				zap.Error(err))
			continue
		}
		logger.Info("provider initialized",
			zap.String("provider", string(name)),
			zap.Strings("models", p.Models()),
			zap.Duration("timeout", timeout))
		providers = append(providers, p)
	}
	return providers
}

func newProvider(ctx context.Context, name ProviderName, pc config.ProviderConfig, timeout time.Duration, opts AdapterOptions) (Provider, error) {
	switch name {
	case ProviderGemini:
		return NewGeminiProvider(ctx, GeminiConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Timeout: timeout}, opts)
	case ProviderClaude:
		return NewClaudeProvider(ClaudeConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Timeout: timeout}, opts)
	case ProviderOpenAI:
		return NewOpenAIProvider(CompatConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Timeout: timeout}, opts)
	case ProviderKimi:
		return NewKimiProvider(CompatConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Timeout: timeout}, opts)
	case ProviderMinimax:
		return NewMinimaxProvider(CompatConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Timeout: timeout}, opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
