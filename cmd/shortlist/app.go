package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rpad300/shortlistAI-sub000/internal/ai"
	"github.com/rpad300/shortlistAI-sub000/internal/logging"
	"github.com/rpad300/shortlistAI-sub000/internal/prompts"
	"github.com/rpad300/shortlistAI-sub000/internal/store"
	"github.com/rpad300/shortlistAI-sub000/internal/usage"
)

// app is the wired object graph behind every command.
type app struct {
	store   *store.Store
	pricer  *ai.Pricer
	usage   *usage.Tracker
	manager *ai.Manager
	catalog *prompts.Catalog
}

// newApp wires config -> store -> pricer -> providers -> manager from the
// package-level cfg and loggers.
func newApp(ctx context.Context) (*app, error) {
	if cfg == nil || loggers == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	boot := loggers.Get(logging.CategoryBoot)

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path, loggers.Get(logging.CategoryStore))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	catalog, err := prompts.LoadEmbedded(boot)
	if err != nil {
		st.Close()
		return nil, err
	}
	if templatesDir != "" {
		if _, err := catalog.LoadOverrides(templatesDir); err != nil {
			st.Close()
			return nil, err
		}
	}

	pricer := ai.NewPricer(st, loggers.Get(logging.CategoryUsage))
	providers := ai.NewProvidersFromConfig(ctx, cfg.AI, ai.SharedDeps{
		Pricer:    pricer,
		Tokens:    ai.NewTokenEstimator(),
		Logger:    loggers.Get(logging.CategoryProvider),
		APILogger: loggers.Get(logging.CategoryAPI),
	})
	tracker := usage.NewTracker(loggers.Get(logging.CategoryUsage))
	manager := ai.NewManager(providers, st, tracker, loggers.Get(logging.CategoryManager))

	boot.Info("application wired",
		zap.Int("providers", len(providers)),
		zap.String("store", st.Path()))

	return &app{
		store:   st,
		pricer:  pricer,
		usage:   tracker,
		manager: manager,
		catalog: catalog,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}
