// Package usage records AI call outcomes: every attempt is logged and
// folded into in-memory aggregates.
package usage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker logs usage events and aggregates them in memory. A nil *Tracker
// is valid and discards everything.
//
// TODO: persist events into the ai_usage_logs table once its schema is
// settled with the product database owners.
type Tracker struct {
	mu     sync.Mutex
	stats  AggregatedStats
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates a tracker that logs through logger.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		logger: logger,
		now:    time.Now,
		stats: AggregatedStats{
			ByProvider:   make(map[string]TokenCounts),
			ByModel:      make(map[string]TokenCounts),
			ByPromptType: make(map[string]TokenCounts),
			BySession:    make(map[string]TokenCounts),
		},
	}
}

// Track records one event. The session id comes from ctx (see
// WithSession) unless the event already carries one.
func (t *Tracker) Track(ctx context.Context, e Event) {
	if t == nil {
		return
	}
	if e.SessionID == "" {
		e.SessionID = SessionFrom(ctx)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}

	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("session_id", e.SessionID),
		zap.String("provider", e.Provider),
		zap.String("model", e.Model),
		zap.String("prompt_type", e.PromptType),
		zap.Int("input_tokens", e.InputTokens),
		zap.Int("output_tokens", e.OutputTokens),
		zap.Float64("cost_usd", e.CostUSD),
		zap.Duration("latency", e.Latency),
		zap.String("status", e.Status),
	}
	if e.Status == StatusSuccess {
		t.logger.Info("ai usage", fields...)
	} else {
		t.logger.Warn("ai usage", append(fields, zap.String("error", e.Error))...)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Total.Add(e)
	addToMap(t.stats.ByProvider, e.Provider, e)
	addToMap(t.stats.ByModel, e.Model, e)
	addToMap(t.stats.ByPromptType, e.PromptType, e)
	addToMap(t.stats.BySession, e.SessionID, e)
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	if t == nil {
		return AggregatedStats{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByPromptType = copyTokenCountsMap(stats.ByPromptType)
	stats.BySession = copyTokenCountsMap(stats.BySession)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, e Event) {
	if key == "" {
		key = "unknown"
	}
	entry := m[key]
	entry.Add(e)
	m[key] = entry
}
