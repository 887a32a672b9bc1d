package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/classify"
	"github.com/Veraticus/tradewinds/internal/config"
	"github.com/Veraticus/tradewinds/internal/intel"
	"github.com/Veraticus/tradewinds/internal/llm"
	"github.com/Veraticus/tradewinds/internal/reference"
	"github.com/Veraticus/tradewinds/internal/risk"
	"github.com/Veraticus/tradewinds/internal/tariff"
)

// engine holds the deterministic calculators built from reference data.
type engine struct {
	tables   *reference.Tables
	resolver *tariff.Resolver
	scorer   *risk.Scorer
}

func newEngine(cfg *config.Config, logger *slog.Logger) (*engine, error) {
	tables, err := reference.Load(cfg.ReferencePaths())
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	logger.Debug("Reference data loaded",
		"tariffs", len(tables.Tariffs.SortedCodes()),
		"agreements", len(tables.Agreements),
		"country_risk", len(tables.CountryRisk))

	return &engine{
		tables:   tables,
		resolver: tariff.NewResolver(tables.Tariffs, tables.Agreements, logger),
		scorer:   risk.NewScorer(tables.CountryRisk),
	}, nil
}

// application is the fully wired analysis stack.
type application struct {
	*engine
	service  *analysis.Service
	sessions analysis.SessionStore
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	eng, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Classification and intel calls share one transport and one rate limit.
	pool := llm.NewPool(cfg.LLMClientConfig())

	deps := analysis.Deps{
		Classifier: classify.New(cfg.ClassifierConfig(), eng.tables.Tariffs.SortedCodes(), pool.NewClient, logger),
		Tariffs:    eng.resolver,
		Risk:       eng.scorer,
		Intel:      intel.NewGenerator(cfg.IntelConfig(), pool.NewClient, logger),
		Sessions:   sessions,
		Logger:     logger,
	}
	if cfg.Globe.Path != "" {
		deps.Globe = analysis.NewGlobeWriter(cfg.Globe.Path)
	}

	service, err := analysis.NewService(deps)
	if err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	return &application{service: service, sessions: sessions, engine: eng}, nil
}

func openSessionStore(ctx context.Context, cfg *config.Config) (analysis.SessionStore, error) {
	switch cfg.Sessions.Backend {
	case config.SessionBackendSQLite:
		store, err := analysis.NewSQLiteSessionStore(ctx, cfg.Sessions.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return store, nil
	default:
		return analysis.NewMemorySessionStore(), nil
	}
}

func (a *application) Close() error {
	return a.sessions.Close()
}
