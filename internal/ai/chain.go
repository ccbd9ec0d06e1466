package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SettingDefaultAIProvider is the app_settings key holding the fallback chain.
const SettingDefaultAIProvider = "default_ai_provider"

// SettingsSource reads persisted application settings.
type SettingsSource interface {
	// GetSetting returns the value for key; found is false when the key is absent.
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
}

// ChainEntry is one step of the fallback chain. An empty Model means the
// provider's own candidate list.
type ChainEntry struct {
	Provider ProviderName `json:"provider"`
	Model    string       `json:"model,omitempty"`
	Order    int          `json:"order"`
}

func (e ChainEntry) String() string {
	if e.Model == "" {
		return string(e.Provider)
	}
	return string(e.Provider) + ":" + e.Model
}

// rawChainEntry tolerates unknown provider spellings until normalization.
type rawChainEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Order    *int   `json:"order"`
}

// ParseChain decodes the persisted setting. Accepted shapes:
//
//	gemini                                 bare provider name
//	"gemini"                               JSON string
//	[{"provider":"gemini","order":1}, ...] JSON list
//	{"provider":"gemini","model":"..."}    single JSON object
//
// Entries are sorted by order (stable; entries without order keep their
// list position). Provider aliases are normalized; unknown or empty
// providers are dropped.
func ParseChain(value string) ([]ChainEntry, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var raws []rawChainEntry
	switch value[0] {
	case '[':
		if err := json.Unmarshal([]byte(value), &raws); err != nil {
			return nil, fmt.Errorf("invalid fallback chain list: %w", err)
		}
	case '{':
		var one rawChainEntry
		if err := json.Unmarshal([]byte(value), &one); err != nil {
			return nil, fmt.Errorf("invalid fallback chain entry: %w", err)
		}
		raws = []rawChainEntry{one}
	case '"':
		var name string
		if err := json.Unmarshal([]byte(value), &name); err != nil {
			return nil, fmt.Errorf("invalid fallback chain string: %w", err)
		}
		raws = []rawChainEntry{{Provider: name}}
	default:
		raws = []rawChainEntry{{Provider: value}}
	}

	entries := make([]ChainEntry, 0, len(raws))
	for i, raw := range raws {
		if strings.TrimSpace(raw.Provider) == "" {
			continue
		}
		name, err := ParseProviderName(raw.Provider)
		if err != nil {
			continue
		}
		order := i + 1
		if raw.Order != nil {
			order = *raw.Order
		}
		entries = append(entries, ChainEntry{
			Provider: name,
			Model:    strings.TrimSpace(raw.Model),
			Order:    order,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order < entries[j].Order
	})
	return entries, nil
}

// EncodeChain renders entries in the JSON list form, renumbering order
// from 1 in slice order.
func EncodeChain(entries []ChainEntry) (string, error) {
	out := make([]ChainEntry, len(entries))
	for i, e := range entries {
		out[i] = ChainEntry{Provider: e.Provider, Model: e.Model, Order: i + 1}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode fallback chain: %w", err)
	}
	return string(b), nil
}

// FilterChain keeps entries whose provider is live, preserving order.
func FilterChain(entries []ChainEntry, live func(ProviderName) bool) []ChainEntry {
	out := make([]ChainEntry, 0, len(entries))
	for _, e := range entries {
		if live(e.Provider) {
			out = append(out, e)
		}
	}
	return out
}

// ChainResolver loads the fallback chain once and serves it from memory
// for the process lifetime. There is no refresh: restart to pick up edits.
type ChainResolver struct {
	source SettingsSource
	live   func(ProviderName) bool
	logger *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded bool
	chain  []ChainEntry
}

// NewChainResolver returns a resolver. source may be nil (empty chain).
func NewChainResolver(source SettingsSource, live func(ProviderName) bool, logger *zap.Logger) *ChainResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if live == nil {
		live = func(ProviderName) bool { return true }
	}
	return &ChainResolver{source: source, live: live, logger: logger}
}

// Load returns a copy of the filtered chain. Concurrent first calls share
// one read of the source. A read or decode error is logged and yields an
// empty chain that is not cached.
func (r *ChainResolver) Load(ctx context.Context) []ChainEntry {
	r.mu.RLock()
	if r.loaded {
		chain := slices.Clone(r.chain)
		r.mu.RUnlock()
		return chain
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do("chain", func() (any, error) {
		r.mu.RLock()
		if r.loaded {
			chain := r.chain
			r.mu.RUnlock()
			return chain, nil
		}
		r.mu.RUnlock()

		chain, err := r.read(ctx)
		if err != nil {
			r.logger.Error("failed to load fallback chain", zap.Error(err))
			return []ChainEntry(nil), err
		}

		r.mu.Lock()
		r.chain = chain
		r.loaded = true
		r.mu.Unlock()

		r.logger.Info("fallback chain loaded", zap.Stringers("chain", chainStringers(chain)))
		return chain, nil
	})

	chain, _ := v.([]ChainEntry)
	return slices.Clone(chain)
}

func (r *ChainResolver) read(ctx context.Context) ([]ChainEntry, error) {
	if r.source == nil {
		return nil, nil
	}
	value, found, err := r.source.GetSetting(ctx, SettingDefaultAIProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SettingDefaultAIProvider, err)
	}
	if !found {
		return nil, nil
	}
	entries, err := ParseChain(value)
	if err != nil {
		return nil, err
	}
	return FilterChain(entries, r.live), nil
}

func chainStringers(chain []ChainEntry) []fmt.Stringer {
	out := make([]fmt.Stringer, len(chain))
	for i, e := range chain {
		out[i] = e
	}
	return out
}
