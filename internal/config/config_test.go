package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearProviderEnv blanks every variable applyEnvOverrides reads so the
// host environment cannot leak into assertions.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY",
		"ANTHROPIC_API_KEY", "CLAUDE_API_KEY", "KIMI_API_KEY",
		"MOONSHOT_API_KEY", "MINIMAX_API_KEY", "OPENAI_BASE_URL",
		"KIMI_BASE_URL", "MINIMAX_BASE_URL", "SHORTLIST_DB",
		"SHORTLIST_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Store.Driver != "sqlite3" {
		t.Errorf("expected Driver=sqlite3, got %s", cfg.Store.Driver)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Errorf("expected Temperature=0.3, got %v", cfg.AI.Temperature)
	}
	if got := cfg.AI.EnabledProviders(); len(got) != 0 {
		t.Errorf("expected no enabled providers by default, got %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "shortlist.yaml")

	cfg := DefaultConfig()
	cfg.AI.Claude.APIKey = "sk-ant-test"
	cfg.AI.Claude.Models = []string{"claude-3-5-haiku-20241022"}
	cfg.AI.Kimi.Timeout = "90s"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.AI.Claude.APIKey != "sk-ant-test" {
		t.Errorf("expected Claude APIKey=sk-ant-test, got %s", loaded.AI.Claude.APIKey)
	}
	if len(loaded.AI.Claude.Models) != 1 || loaded.AI.Claude.Models[0] != "claude-3-5-haiku-20241022" {
		t.Errorf("unexpected Claude models: %v", loaded.AI.Claude.Models)
	}
	if got := loaded.ProviderTimeouts()["kimi"]; got != 90*time.Second {
		t.Errorf("expected kimi timeout 90s, got %v", got)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Path != "data/shortlist.db" {
		t.Errorf("expected default store path, got %s", cfg.Store.Path)
	}
}

func TestLoad_MissingFileStillAppliesEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.OpenAI.APIKey != "sk-env" {
		t.Errorf("expected env key to apply without a config file, got %q", cfg.AI.OpenAI.APIKey)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ai: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"pure go driver", func(c *Config) { c.Store.Driver = "sqlite" }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"temperature too high", func(c *Config) { c.AI.Temperature = 2.5 }, true},
		{"bad timeout", func(c *Config) { c.AI.Gemini.Timeout = "soon" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderConfig_GetTimeout(t *testing.T) {
	def := 2 * time.Minute
	cases := map[string]time.Duration{
		"":     def,
		"45s":  45 * time.Second,
		"nope": def,
		"-1s":  def,
	}
	for in, want := range cases {
		if got := (ProviderConfig{Timeout: in}).GetTimeout(def); got != want {
			t.Errorf("GetTimeout(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultTimeoutFor(t *testing.T) {
	cfg := DefaultConfig()
	for name, got := range cfg.ProviderTimeouts() {
		if want := DefaultTimeoutFor(name); got != want {
			t.Errorf("ProviderTimeouts()[%s] = %v, want %v", name, got, want)
		}
	}
	if DefaultTimeoutFor("kimi") != ReasoningProviderTimeout || DefaultTimeoutFor("claude") != DefaultProviderTimeout {
		t.Error("reasoning vendors must get the longer timeout")
	}
}
