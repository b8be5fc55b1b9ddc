package cli

import (
	"context"
	"fmt"
	"time"

	"vidya-quiz-service/internal/app"
	"vidya-quiz-service/internal/config"
	"vidya-quiz-service/internal/infra/memory"
	pgstore "vidya-quiz-service/internal/infra/postgres"
	redisstore "vidya-quiz-service/internal/infra/redis"
	"vidya-quiz-service/internal/infra/sqlite"
	"vidya-quiz-service/internal/quizgen"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// components is everything a command needs to talk to the engine.
type components struct {
	engine  *app.QuizEngine
	pool    *pgxpool.Pool
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildComponents wires the configured store backend and quiz sources into an engine.
func buildComponents(ctx context.Context, cfg config.Config, log *zap.Logger) (*components, error) {
	c := &components{}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.pool = pool
		c.closers = append(c.closers, pool.Close)
	}

	store, err := openStore(ctx, cfg, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	sources, err := quizSources(cfg, c.pool, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	provider := app.NewQuizProvider(store, sources,
		app.WithProviderLogger(log.Named("quizzes")),
		app.WithCreator(cfg.Quiz.CreatedBy))
	c.engine = app.NewQuizEngine(store, provider,
		app.WithLogger(log.Named("engine")),
		app.WithLeaderboardTop(cfg.Quiz.LeaderboardTop))
	log.Info("engine ready",
		zap.String("store", cfg.Store.Backend),
		zap.Int("quiz_sources", len(sources)))
	return c, nil
}

func openStore(ctx context.Context, cfg config.Config, c *components) (app.KVStore, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func() { _ = client.Close() })
		store := redisstore.NewKVStore(client, config.TTLDuration(cfg.Redis.Retention, 0))
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store := pgstore.NewKVStore(pgstore.OpenDB(cfg.Postgres.URL))
		c.closers = append(c.closers, func() { _ = store.Close() })
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return memory.NewKVStore(0), nil
	}
}

// quizSources orders the sources: authored quizzes, then the AI generator, then the offline bank.
func quizSources(cfg config.Config, pool *pgxpool.Pool, log *zap.Logger) ([]app.QuizSource, error) {
	var sources []app.QuizSource
	if pool != nil {
		sources = append(sources, pgstore.NewQuizLoader(pool))
	}
	if cfg.Quiz.AIEnabled {
		model, err := ollama.New(
			ollama.WithServerURL(cfg.LLM.Server),
			ollama.WithModel(cfg.LLM.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
		sources = append(sources, quizgen.NewLLMGenerator(model,
			quizgen.WithSubject(cfg.Quiz.Subject),
			quizgen.WithQuestions(cfg.Quiz.Questions),
			quizgen.WithTemperature(cfg.LLM.Temperature),
			quizgen.WithTimeout(config.TTLDuration(cfg.LLM.Timeout, 60*time.Second)),
			quizgen.WithLogger(log.Named("quizgen")),
		))
	}
	sources = append(sources, memory.NewBankQuizSource(memory.SampleBank()))
	return sources, nil
}
