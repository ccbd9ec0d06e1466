package usage

import (
	"context"
	"time"
)

// Status of a recorded call.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type sessionKey struct{}

// WithSession tags ctx so every event tracked under it is attributed to id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session id carried by ctx, or "".
func SessionFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Event represents a single AI call attempt.
type Event struct {
	Timestamp    time.Time     `json:"timestamp"`
	RequestID    string        `json:"request_id"`
	SessionID    string        `json:"session_id,omitempty"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	PromptType   string        `json:"prompt_type"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	CostUSD      float64       `json:"cost_usd"`
	Latency      time.Duration `json:"latency"`
	Status       string        `json:"status"` // success, error
	Error        string        `json:"error,omitempty"`
}

// AggregatedStats holds counters broken down by various dimensions.
type AggregatedStats struct {
	Total        TokenCounts            `json:"total"`
	ByProvider   map[string]TokenCounts `json:"by_provider"`
	ByModel      map[string]TokenCounts `json:"by_model"`
	ByPromptType map[string]TokenCounts `json:"by_prompt_type"`
	BySession    map[string]TokenCounts `json:"by_session"`
}

// TokenCounts holds call counts, token sums and cost.
type TokenCounts struct {
	Requests int64   `json:"requests"`
	Failures int64   `json:"failures"`
	Input    int64   `json:"input"`
	Output   int64   `json:"output"`
	Total    int64   `json:"total"`
	Cost     float64 `json:"cost_est_usd"`
}

// Add folds one event into the counters.
func (tc *TokenCounts) Add(e Event) {
	tc.Requests++
	if e.Status != StatusSuccess {
		tc.Failures++
	}
	tc.Input += int64(e.InputTokens)
	tc.Output += int64(e.OutputTokens)
	tc.Total += int64(e.InputTokens + e.OutputTokens)
	tc.Cost += e.CostUSD
}
