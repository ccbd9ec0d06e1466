package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpad300/shortlistAI-sub000/internal/logging"
)

// Config holds all ShortlistAI orchestration configuration.
type Config struct {
	// AI vendors and generation defaults
	AI AIConfig `yaml:"ai"`

	// Settings/pricing database
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging logging.Config `yaml:"logging"`
}

// AIConfig configures the provider adapters.
type AIConfig struct {
	// Temperature used when a request does not carry one.
	Temperature float64 `yaml:"temperature"`

	Gemini  ProviderConfig `yaml:"gemini"`
	OpenAI  ProviderConfig `yaml:"openai"`
	Claude  ProviderConfig `yaml:"claude"`
	Kimi    ProviderConfig `yaml:"kimi"`
	Minimax ProviderConfig `yaml:"minimax"`
}

// ProviderConfig configures a single vendor.
type ProviderConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"`  // Ordered candidates; empty uses compiled-in defaults
	Timeout string   `yaml:"timeout"` // Per HTTP call, e.g. "5m"
}

// Enabled reports whether the vendor has a credential.
func (p ProviderConfig) Enabled() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// GetTimeout returns the per-call HTTP timeout, falling back to def when
// unset or unparseable.
func (p ProviderConfig) GetTimeout(def time.Duration) time.Duration {
	if p.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// StoreConfig configures the settings/pricing database.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
	Path   string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Temperature: 0.3,
			Gemini:      ProviderConfig{Timeout: DefaultTimeoutFor("gemini").String()},
			OpenAI:      ProviderConfig{Timeout: DefaultTimeoutFor("openai").String()},
			Claude:      ProviderConfig{Timeout: DefaultTimeoutFor("claude").String()},
			Kimi:        ProviderConfig{Timeout: DefaultTimeoutFor("kimi").String()},
			Minimax:     ProviderConfig{Timeout: DefaultTimeoutFor("minimax").String()},
		},
		Store: StoreConfig{
			Driver: "sqlite3",
			Path:   "data/shortlist.db",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// The first non-empty variable of each group wins.
func (c *Config) applyEnvOverrides() {
	if key := firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"); key != "" {
		c.AI.Gemini.APIKey = key
	}
	if key := firstEnv("OPENAI_API_KEY"); key != "" {
		c.AI.OpenAI.APIKey = key
	}
	if key := firstEnv("ANTHROPIC_API_KEY", "CLAUDE_API_KEY"); key != "" {
		c.AI.Claude.APIKey = key
	}
	if key := firstEnv("KIMI_API_KEY", "MOONSHOT_API_KEY"); key != "" {
		c.AI.Kimi.APIKey = key
	}
	if key := firstEnv("MINIMAX_API_KEY"); key != "" {
		c.AI.Minimax.APIKey = key
	}

	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.AI.OpenAI.BaseURL = url
	}
	if url := os.Getenv("KIMI_BASE_URL"); url != "" {
		c.AI.Kimi.BaseURL = url
	}
	if url := os.Getenv("MINIMAX_BASE_URL"); url != "" {
		c.AI.Minimax.BaseURL = url
	}

	if path := os.Getenv("SHORTLIST_DB"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("SHORTLIST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// ValidStoreDrivers lists the database/sql drivers the store can open.
var ValidStoreDrivers = []string{"sqlite3", "sqlite"}

// Validate validates the configuration. Missing credentials are not an
// error: the manager simply runs without that vendor.
func (c *Config) Validate() error {
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %v (must be between 0 and 2)", c.AI.Temperature)
	}

	validDriver := false
	for _, d := range ValidStoreDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidStoreDrivers)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	for name, p := range c.AI.byName() {
		if p.Timeout == "" {
			continue
		}
		if _, err := time.ParseDuration(p.Timeout); err != nil {
			return fmt.Errorf("invalid %s timeout %q: %w", name, p.Timeout, err)
		}
	}

	return nil
}

// EnabledProviders returns the names of vendors that have credentials, in
// the fixed default order.
func (a AIConfig) EnabledProviders() []string {
	var out []string
	for _, name := range ProviderOrder {
		if a.byName()[name].Enabled() {
			out = append(out, name)
		}
	}
	return out
}

// Provider returns the configuration block for a vendor name.
func (a AIConfig) Provider(name string) (ProviderConfig, bool) {
	p, ok := a.byName()[name]
	return p, ok
}

// ProviderOrder is the fixed initialization order; the first enabled vendor
// becomes the default provider.
var ProviderOrder = []string{"gemini", "openai", "claude", "kimi", "minimax"}

func (a AIConfig) byName() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"gemini":  a.Gemini,
		"openai":  a.OpenAI,
		"claude":  a.Claude,
		"kimi":    a.Kimi,
		"minimax": a.Minimax,
	}
}
