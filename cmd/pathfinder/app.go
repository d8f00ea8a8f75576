package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pathfinder/internal/anthropic"
	"github.com/MikeSquared-Agency/pathfinder/internal/config"
	"github.com/MikeSquared-Agency/pathfinder/internal/conversation"
	"github.com/MikeSquared-Agency/pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
	"github.com/MikeSquared-Agency/pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/pathfinder/internal/store"
)

// app holds the wired core shared by serve and chat.
type app struct {
	cfg    config.Config
	scores store.ScoreStore
	ctrl   *conversation.Controller
	events *hermes.Client

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	questions, err := config.LoadQuestions(cfg.QuestionsFile)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	logger.Info("question bank loaded", "questions", len(questions), "file", cfg.QuestionsFile)

	if err := a.openStore(ctx, logger); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.AnthropicAPIKey == "" {
		a.Close()
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	logger.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// Events are optional; a nil Publisher disables them.
	var publisher conversation.Publisher
	if cfg.NatsURL != "" {
		a.events, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.closers = append(a.closers, a.events.Close)
		publisher = a.events
		logger.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		logger.Warn("NATS not configured, interview events disabled")
	}

	agg := scoring.NewAggregator(a.scores, questions, logger)
	engine, err := interview.NewEngine(questions, a.scores, agg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create interview engine: %w", err)
	}

	a.ctrl = conversation.New(engine, llm, publisher, cfg.MaxTokens, logger)
	return a, nil
}

func (a *app) openStore(ctx context.Context, logger *slog.Logger) error {
	switch a.cfg.StoreBackend {
	case "memory", "":
		a.scores = store.NewMemory()
	case "postgres":
		if a.cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		pg, err := store.NewPostgres(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		a.scores = pg
	case "sqlite":
		lite, err := store.NewSQLite(a.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := lite.Close(); err != nil {
				logger.Warn("sqlite close failed", "error", err)
			}
		})
		a.scores = lite
	default:
		return fmt.Errorf("unknown PATHFINDER_STORE %q (want memory, postgres or sqlite)", a.cfg.StoreBackend)
	}
	logger.Info("score store ready", "backend", a.cfg.StoreBackend)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
