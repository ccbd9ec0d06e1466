package ai

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpad300/shortlistAI-sub000/internal/usage"
)

// ExecuteOptions steers one Execute call.
type ExecuteOptions struct {
	// Provider is tried first when set.
	Provider ProviderName
	// Model pins a model on Provider. Chain entries are unaffected.
	Model string
	// DisableFallback stops after the explicit provider attempt.
	DisableFallback bool
}

// Manager holds the initialized providers and routes requests across them.
// It is safe for concurrent use; each Execute walks its candidates
// strictly sequentially.
type Manager struct {
	providers       map[ProviderName]Provider
	order           []ProviderName
	defaultProvider ProviderName
	chain           *ChainResolver
	usage           *usage.Tracker
	logger          *zap.Logger

	pinnedMu sync.Mutex
	pinned   map[string]Provider
}

// NewManager builds a manager over the given providers. settings supplies
// the persisted fallback chain and may be nil. The default provider is the
// first present in DefaultProviderOrder.
func NewManager(providers []Provider, settings SettingsSource, tracker *usage.Tracker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		providers: make(map[ProviderName]Provider, len(providers)),
		usage:     tracker,
		logger:    logger,
		pinned:    make(map[string]Provider),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := m.providers[p.Name()]; dup {
			logger.Warn("duplicate provider ignored", zap.String("provider", string(p.Name())))
			continue
		}
		m.providers[p.Name()] = p
	}

	for _, name := range DefaultProviderOrder {
		if _, ok := m.providers[name]; ok {
			m.order = append(m.order, name)
		}
	}
	if len(m.order) > 0 {
		m.defaultProvider = m.order[0]
	}

	m.chain = NewChainResolver(settings, m.isLive, logger)

	logger.Info("AI manager initialized",
		zap.Int("providers", len(m.order)),
		zap.String("default_provider", string(m.defaultProvider)))
	return m
}

func (m *Manager) isLive(name ProviderName) bool {
	_, ok := m.providers[name]
	return ok
}

// Providers returns the live provider names in default order.
func (m *Manager) Providers() []ProviderName {
	return slices.Clone(m.order)
}

// Provider returns the live provider with the given name.
func (m *Manager) Provider(name ProviderName) (Provider, bool) {
	p, ok := m.providers[name]
	return p, ok
}

// DefaultProvider returns the provider used when the chain is empty, or
// "" when none is configured.
func (m *Manager) DefaultProvider() ProviderName {
	return m.defaultProvider
}

// FallbackChain returns the resolved (filtered, ordered) chain.
func (m *Manager) FallbackChain(ctx context.Context) []ChainEntry {
	return m.chain.Load(ctx)
}

// Usage returns aggregated usage since process start.
func (m *Manager) Usage() usage.AggregatedStats {
	return m.usage.Stats()
}

// Execute runs req and always returns a Response; it never panics.
//
// An explicit provider is tried first. Unless that succeeds or fallback is
// disabled, the persisted chain is walked in order (the default provider
// alone when the chain is empty). When everything fails the result is a
// synthetic failure with Provider "none".
func (m *Manager) Execute(ctx context.Context, req Request, opts ExecuteOptions) (resp Response) {
	requestID := uuid.NewString()
	log := m.logger.With(
		zap.String("request_id", requestID),
		zap.String("prompt_type", string(req.PromptType)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("execute panic recovered", zap.Any("panic", r))
			resp = failure(ProviderNone, "", fmt.Sprintf("internal error: %v", r))
		}
	}()

	lastErr := ""

	if opts.Provider != "" {
		p, ok := m.resolve(opts.Provider, opts.Model)
		if !ok {
			lastErr = fmt.Sprintf("provider %s is not available", opts.Provider)
			log.Warn("requested provider not available", zap.String("provider", string(opts.Provider)))
			if opts.DisableFallback {
				return failure(opts.Provider, opts.Model, lastErr)
			}
		} else {
			resp = m.attempt(ctx, requestID, p, req)
			if resp.Success || opts.DisableFallback {
				return resp
			}
			lastErr = resp.Error
		}
	}

	chain := m.chain.Load(ctx)
	if len(chain) == 0 {
		if m.defaultProvider == "" {
			log.Error("no AI providers configured")
			return failure(ProviderNone, "", ErrNoProviders.Error())
		}
		chain = []ChainEntry{{Provider: m.defaultProvider, Order: 1}}
	}

	for _, entry := range chain {
		if err := ctx.Err(); err != nil {
			lastErr = err.Error()
			break
		}
		if entry.Provider == opts.Provider && entry.Model == opts.Model {
			continue // already attempted explicitly
		}
		p, ok := m.resolve(entry.Provider, entry.Model)
		if !ok {
			continue
		}

		log.Debug("trying fallback candidate", zap.Stringer("entry", entry))
		resp = m.attempt(ctx, requestID, p, req)
		if resp.Success {
			return resp
		}
		lastErr = resp.Error
	}

	if lastErr == "" {
		lastErr = "no provider attempted"
	}
	log.Error("all AI providers failed", zap.String("last_error", lastErr))
	return failure(ProviderNone, "", "all AI providers failed: "+lastErr)
}

// resolve returns the provider, pinned to model when given. Pinned
// adapters are cached so their candidate index survives across calls.
func (m *Manager) resolve(name ProviderName, model string) (Provider, bool) {
	p, ok := m.providers[name]
	if !ok {
		return nil, false
	}
	if model == "" {
		return p, true
	}

	key := string(name) + "/" + model
	m.pinnedMu.Lock()
	defer m.pinnedMu.Unlock()
	if cached, ok := m.pinned[key]; ok {
		return cached, true
	}
	pinned := p.WithModel(model)
	m.pinned[key] = pinned
	return pinned, true
}

// attempt calls one provider, converting panics into failures, and
// records usage.
func (m *Manager) attempt(ctx context.Context, requestID string, p Provider, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("provider panic recovered",
				zap.String("request_id", requestID),
				zap.String("provider", string(p.Name())),
				zap.Any("panic", r))
			resp = failure(p.Name(), "", fmt.Sprintf("%s provider panic: %v", p.Name(), r))
		}
		if resp.LatencyMS == 0 {
			resp.LatencyMS = time.Since(start).Milliseconds()
		}
		m.record(ctx, requestID, req, resp)
	}()

	return p.Complete(ctx, req)
}

func (m *Manager) record(ctx context.Context, requestID string, req Request, resp Response) {
	status := usage.StatusSuccess
	if !resp.Success {
		status = usage.StatusError
	}
	m.usage.Track(ctx, usage.Event{
		RequestID:    requestID,
		Provider:     string(resp.Provider),
		Model:        resp.Model,
		PromptType:   string(req.PromptType),
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.CostUSD,
		Latency:      resp.Latency(),
		Status:       status,
		Error:        resp.Error,
	})
}
