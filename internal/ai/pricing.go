package ai

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Price is a per-million-token rate in USD.
type Price struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost returns the USD cost of a call with the given token counts.
func (p Price) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerMillion/1e6 +
		float64(outputTokens)*p.OutputPerMillion/1e6
}

// ModelPrice is a database-sourced price row.
type ModelPrice struct {
	Provider ProviderName
	Model    string
	Price    Price
}

// PricingSource supplies active price overrides, typically the
// ai_model_pricing table.
type PricingSource interface {
	ListModelPricing(ctx context.Context) ([]ModelPrice, error)
}

// priceTier matches a model name by substring. Tiers are checked in order,
// so more specific names come first ("gpt-4o-mini" before "gpt-4o").
type priceTier struct {
	contains string
	price    Price
}

var compiledPriceTiers = map[ProviderName][]priceTier{
	ProviderClaude: {
		{"opus", Price{15, 75}},
		{"3-haiku", Price{0.25, 1.25}},
		{"haiku", Price{0.8, 4}},
		{"sonnet", Price{3, 15}},
	},
	ProviderGemini: {
		{"flash-lite", Price{0.1, 0.4}},
		{"2.0-flash", Price{0.1, 0.4}},
		{"flash", Price{0.3, 2.5}},
		{"pro", Price{1.25, 10}},
	},
	ProviderOpenAI: {
		{"gpt-4o-mini", Price{0.15, 0.6}},
		{"gpt-4.1-nano", Price{0.1, 0.4}},
		{"gpt-4.1-mini", Price{0.4, 1.6}},
		{"gpt-4.1", Price{2, 8}},
		{"gpt-4o", Price{2.5, 10}},
		{"o3-mini", Price{1.1, 4.4}},
		{"o4-mini", Price{1.1, 4.4}},
		{"gpt-4-turbo", Price{10, 30}},
	},
	ProviderKimi: {
		{"thinking", Price{0.6, 2.5}},
		{"turbo", Price{1.15, 8}},
		{"moonshot-v1-128k", Price{2, 5}},
	},
	ProviderMinimax: {
		{"m2", Price{0.3, 1.2}},
	},
}

// Unmatched models fall back to the provider's default rate.
var compiledDefaultPrices = map[ProviderName]Price{
	ProviderClaude:  {3, 15},
	ProviderGemini:  {0.3, 2.5},
	ProviderOpenAI:  {2.5, 10},
	ProviderKimi:    {0.6, 2.5},
	ProviderMinimax: {0.2, 1.1},
}

// Pricer resolves prices: database overrides first, compiled-in tiers
// second. Overrides are loaded once per process.
type Pricer struct {
	source PricingSource
	logger *zap.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	loaded    bool
	overrides map[string]Price
}

// NewPricer returns a Pricer. source may be nil.
func NewPricer(source PricingSource, logger *zap.Logger) *Pricer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pricer{source: source, logger: logger}
}

func priceKey(provider ProviderName, model string) string {
	return string(provider) + "/" + strings.ToLower(model)
}

// Lookup returns the price for a provider/model. The boolean reports
// whether the price came from the database.
func (p *Pricer) Lookup(ctx context.Context, provider ProviderName, model string) (Price, bool) {
	if p != nil {
		if price, ok := p.override(ctx, provider, model); ok {
			return price, true
		}
	}
	return CompiledPrice(provider, model), false
}

// Cost prices a call. A nil Pricer uses compiled-in tiers only.
func (p *Pricer) Cost(ctx context.Context, provider ProviderName, model string, inputTokens, outputTokens int) float64 {
	price, _ := p.Lookup(ctx, provider, model)
	return price.Cost(inputTokens, outputTokens)
}

func (p *Pricer) override(ctx context.Context, provider ProviderName, model string) (Price, bool) {
	if p.source == nil {
		return Price{}, false
	}
	p.ensureLoaded(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.overrides[priceKey(provider, model)]
	return price, ok
}

// ensureLoaded reads the source once. A failed read is logged and retried
// on the next lookup.
func (p *Pricer) ensureLoaded(ctx context.Context) {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if loaded {
		return
	}

	_, _, _ = p.group.Do("pricing", func() (any, error) {
		p.mu.RLock()
		done := p.loaded
		p.mu.RUnlock()
		if done {
			return nil, nil
		}

		rows, err := p.source.ListModelPricing(ctx)
		if err != nil {
			p.logger.Warn("failed to load model pricing, using compiled-in tiers", zap.Error(err))
			return nil, err
		}

		overrides := make(map[string]Price, len(rows))
		for _, row := range rows {
			overrides[priceKey(row.Provider, row.Model)] = row.Price
		}

		p.mu.Lock()
		p.overrides = overrides
		p.loaded = true
		p.mu.Unlock()

		p.logger.Debug("loaded model pricing", zap.Int("rows", len(rows)))
		return nil, nil
	})
}

// CompiledPrice returns the built-in rate for a provider/model using
// case-insensitive substring tiers.
func CompiledPrice(provider ProviderName, model string) Price {
	name := strings.ToLower(model)
	for _, tier := range compiledPriceTiers[provider] {
		if strings.Contains(name, tier.contains) {
			return tier.price
		}
	}
	return compiledDefaultPrices[provider]
}
