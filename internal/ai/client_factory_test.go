package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rpad300/shortlistAI-sub000/internal/config"
)

func TestNewProvidersFromConfig_SkipsMissingKeys(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := config.AIConfig{
		Temperature: 0.3,
		OpenAI:      config.ProviderConfig{APIKey: "sk-test", Models: []string{"gpt-4o"}},
		Kimi:        config.ProviderConfig{APIKey: "mk-test", Timeout: "90s"},
	}

	providers := NewProvidersFromConfig(context.Background(), cfg, SharedDeps{Logger: zap.New(core)})

	require.Len(t, providers, 2)
	assert.Equal(t, ProviderOpenAI, providers[0].Name())
	assert.Equal(t, []string{"gpt-4o"}, providers[0].Models())
	assert.Equal(t, ProviderKimi, providers[1].Name())
	assert.Equal(t, DefaultModels(ProviderKimi), providers[1].Models())

	initialized := logs.FilterMessage("provider initialized").All()
	require.Len(t, initialized, 2)
	assert.Equal(t, "kimi", initialized[1].ContextMap()["provider"])
}

func TestNewProvidersFromConfig_None(t *testing.T) {
	assert.Empty(t, NewProvidersFromConfig(context.Background(), config.AIConfig{}, SharedDeps{}))
}

func TestDefaultProviderOrderMatchesConfig(t *testing.T) {
	assert.Equal(t, []ProviderName{ProviderGemini, ProviderOpenAI, ProviderClaude, ProviderKimi, ProviderMinimax}, DefaultProviderOrder)
	for i, name := range DefaultProviderOrder {
		assert.Equal(t, config.ProviderOrder[i], string(name))
	}
}

func TestNewProvidersFromConfig_ReasoningVendorTimeout(t *testing.T) {
	providers := NewProvidersFromConfig(context.Background(), config.AIConfig{
		Minimax: config.ProviderConfig{APIKey: "mm-key"},
	}, SharedDeps{})
	require.Len(t, providers, 1)
	assert.Equal(t, config.ReasoningProviderTimeout, config.DefaultTimeoutFor(string(providers[0].Name())))
	assert.Equal(t, config.DefaultProviderTimeout, config.DefaultTimeoutFor(string(ProviderGemini)))
}
