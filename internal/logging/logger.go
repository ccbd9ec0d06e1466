// Package logging provides config-driven categorized logging on top of zap.
// Every subsystem asks for a logger by category; disabled categories get a
// no-op logger so call sites never need to check.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and wiring
	CategoryAPI      Category = "api"      // Raw vendor HTTP traffic
	CategoryProvider Category = "provider" // Provider adapters
	CategoryManager  Category = "manager"  // Fallback routing decisions
	CategoryUsage    Category = "usage"    // Token/cost usage records
	CategoryStore    Category = "store"    // Settings and pricing store
	CategoryCLI      Category = "cli"      // Command line front end
)

// AllCategories lists every category known to the logging system.
func AllCategories() []Category {
	return []Category{
		CategoryBoot,
		CategoryAPI,
		CategoryProvider,
		CategoryManager,
		CategoryUsage,
		CategoryStore,
		CategoryCLI,
	}
}

// Config controls log level, encoding and per-category toggles.
type Config struct {
	Level      string          `yaml:"level" json:"level,omitempty"`           // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty"`         // json, console
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"` // Forces debug level and caller info
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c Config) IsCategoryEnabled(category Category) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Loggers hands out category loggers derived from one zap root.
type Loggers struct {
	root   *zap.Logger
	config Config

	mu    sync.Mutex
	cache map[Category]*zap.Logger
}

// New builds the root zap logger described by cfg.
func New(cfg Config) (*Loggers, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.DebugMode {
		level = zapcore.DebugLevel
	}

	var zcfg zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		zcfg = zap.NewProductionConfig()
	case "console", "text":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q (valid: json, console)", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableCaller = !cfg.DebugMode
	zcfg.Sampling = nil

	root, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return NewWithRoot(root, cfg), nil
}

// NewWithRoot wraps an existing zap logger, used by tests and embedders.
func NewWithRoot(root *zap.Logger, cfg Config) *Loggers {
	if root == nil {
		root = zap.NewNop()
	}
	return &Loggers{
		root:   root,
		config: cfg,
		cache:  make(map[Category]*zap.Logger),
	}
}

// NewNop returns Loggers that discard everything.
func NewNop() *Loggers {
	return NewWithRoot(zap.NewNop(), Config{})
}

// Root returns the uncategorized logger.
func (l *Loggers) Root() *zap.Logger {
	return l.root
}

// Get returns (or creates) the logger for a category.
// Returns a no-op logger if the category is disabled.
func (l *Loggers) Get(category Category) *zap.Logger {
	if !l.config.IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if logger, ok := l.cache[category]; ok {
		return logger
	}
	logger := l.root.Named(string(category))
	l.cache[category] = logger
	return logger
}

// Sync flushes buffered entries. Errors from syncing stderr/stdout are
// ignored since most platforms reject fsync on them.
func (l *Loggers) Sync() error {
	err := l.root.Sync()
	if err != nil && isStdSyncError(err) {
		return nil
	}
	return err
}

func isStdSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "/dev/stderr") || strings.Contains(msg, "/dev/stdout") ||
		strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}

// ParseLevel maps a config level string to a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
