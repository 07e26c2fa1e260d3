package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/platform/gemini"
	"github.com/choishiam0906/govhelper/internal/platform/groq"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/platform/metrics"
	"github.com/choishiam0906/govhelper/internal/platform/postgres"
	"github.com/choishiam0906/govhelper/internal/platform/redis"
	"github.com/choishiam0906/govhelper/internal/platform/voyage"
	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/choishiam0906/govhelper/internal/service/calibration"
	"github.com/choishiam0906/govhelper/internal/service/embedding"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/service/promptversion"
	"github.com/choishiam0906/govhelper/internal/task"
)

// vendorTimeout bounds one HTTP call to Groq or Voyage.
const vendorTimeout = 60 * time.Second

// application holds the shared dependencies of every command and releases
// them on close.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	cache   *redis.Cache

	announcements *postgres.PostgresAnnouncementStore
	companies     *postgres.PostgresCompanyStore
	matches       *postgres.PostgresMatchStore
	feedback      *postgres.PostgresFeedbackStore
	embeddings    *postgres.PostgresEmbeddingStore
	versions      *postgres.PostgresPromptVersionStore
	usageLogs     *postgres.PostgresUsageLogStore
	tasks         *postgres.PostgresTaskStore

	usageSink *promptversion.AsyncSink
	queue     task.Queue
}

// newApplication loads configuration, sets up logging and opens the
// database. Redis is connected when configured; a failure there only
// disables caching.
func newApplication(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &application{
		config:  cfg,
		logger:  log,
		db:      db,
		metrics: metrics.Default(),

		announcements: postgres.NewPostgresAnnouncementStore(db, log),
		companies:     postgres.NewPostgresCompanyStore(db, log),
		matches:       postgres.NewPostgresMatchStore(db, log),
		feedback:      postgres.NewPostgresFeedbackStore(db, log),
		embeddings:    postgres.NewPostgresEmbeddingStore(db, log),
		versions:      postgres.NewPostgresPromptVersionStore(db, log),
		usageLogs:     postgres.NewPostgresUsageLogStore(db, log),
		tasks:         postgres.NewPostgresTaskStore(db, log),
	}
	app.usageSink = promptversion.NewAsyncSink(promptversion.NewStoreSink(app.usageLogs), log)

	if cfg.Redis.URL != "" {
		cache, err := redis.Open(ctx, cfg.Redis.URL, log, app.metrics)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", slog.String("error", err.Error()))
		} else {
			app.cache = cache
		}
	}

	log.Info("application initialized",
		slog.String("ai_provider", cfg.AI.Provider),
		slog.String("queue_backend", cfg.Queue.Backend),
		slog.Bool("cache_enabled", app.cache != nil))
	return app, nil
}

// close waits for pending usage writes and releases connections.
func (app *application) close() {
	if app.usageSink != nil {
		app.usageSink.Wait()
	}
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Error("failed to close task queue", slog.String("error", err.Error()))
		}
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("failed to close redis", slog.String("error", err.Error()))
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}

// orchestrator builds the provider orchestrator from configuration. Missing
// credentials leave the matching slot empty; calls that need it then fail
// with generation.ErrInvalidConfig instead of the process refusing to start.
func (app *application) orchestrator(ctx context.Context) *generation.Orchestrator {
	cfg := app.config.AI
	httpClient := &http.Client{Timeout: vendorTimeout}
	opts := generation.Options{
		Retry: generation.RetryPolicy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: time.Duration(cfg.Retry.InitialDelayMS) * time.Millisecond,
		},
		Observer: app.metrics,
	}

	geminiClient, err := gemini.NewClient(ctx, app.logger, cfg.Gemini)
	if err != nil {
		app.logProviderUnavailable("gemini", err)
	} else {
		opts.Embedder = geminiClient
	}

	switch cfg.Provider {
	case groq.ProviderName:
		groqClient, err := groq.NewClient(cfg.Groq, httpClient, app.logger)
		if err != nil {
			app.logProviderUnavailable("groq", err)
		} else {
			opts.Generator = groqClient
		}
	default:
		if geminiClient != nil {
			opts.Generator = geminiClient
		}
	}

	voyageClient, err := voyage.NewClient(cfg.Voyage, httpClient)
	if err != nil {
		app.logProviderUnavailable("voyage", err)
	} else {
		opts.FallbackEmbedder = voyageClient
	}

	return generation.NewOrchestrator(opts, app.logger)
}

func (app *application) logProviderUnavailable(provider string, err error) {
	level := slog.LevelError
	if errors.Is(err, generation.ErrInvalidConfig) {
		level = slog.LevelWarn
	}
	app.logger.Log(context.Background(), level, "AI provider unavailable",
		slog.String("provider", provider),
		slog.String("error", err.Error()))
}

// selector builds the prompt version selector with usage recording.
func (app *application) selector() *promptversion.Selector {
	return promptversion.NewSelector(app.versions, app.usageSink, app.logger,
		promptversion.WithUsageObserver(app.metrics))
}

// promptManager builds the prompt version manager.
func (app *application) promptManager() *promptversion.Manager {
	return promptversion.NewManager(app.db, app.versions, app.usageLogs, app.logger)
}

// extraction builds the extraction service on orch.
func (app *application) extraction(orch *generation.Orchestrator) *extraction.Service {
	return extraction.NewService(orch, app.selector(), app.logger,
		extraction.WithABTest(app.config.AI.ABTest))
}

// calibrator builds the match score calibrator.
func (app *application) calibrator() *calibration.Calibrator {
	return calibration.NewCalibrator(app.feedback, calibration.DefaultConfig(), app.logger)
}

// batchRunner builds the batch runner. progress may be nil.
func (app *application) batchRunner(orch *generation.Orchestrator, progress func(batch.ItemResult)) *batch.Runner {
	embedOpts := []embedding.Option{}
	if app.cache != nil {
		embedOpts = append(embedOpts, embedding.WithCache(app.cache))
	}
	embedder := embedding.NewService(orch, app.embeddings, app.logger, embedOpts...)

	opts := []batch.Option{
		batch.WithEmbedder(embedder),
		batch.WithObserver(app.metrics),
	}
	if progress != nil {
		opts = append(opts, batch.WithProgress(progress))
	}
	return batch.NewRunner(app.announcements, app.extraction(orch), app.logger, opts...)
}

// batchOptions returns the configured pacing for kind.
func (app *application) batchOptions(kind batch.Kind) batch.Options {
	return batch.OptionsFromConfig(app.config.Batch, kind)
}

// openQueue connects the configured task queue.
func (app *application) openQueue() (task.Queue, error) {
	cfg := app.config.Queue
	switch cfg.Backend {
	case "rabbitmq":
		q, err := task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:      cfg.URL,
			Queue:    cfg.Name,
			Prefetch: cfg.WorkerCount,
		}, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect task queue: %w", err)
		}
		app.queue = q
	default:
		app.queue = task.NewMemoryQueue(cfg.Size, app.logger)
	}
	return app.queue, nil
}

// taskRunner builds a runner for extraction tasks. consume controls whether
// this process also executes tasks.
func (app *application) taskRunner(
	orch *generation.Orchestrator,
	consume bool,
) (*task.TaskRunner, *task.ExtractionTaskFactory, error) {
	queue, err := app.openQueue()
	if err != nil {
		return nil, nil, err
	}

	var consumer task.Consumer
	if consume {
		consumer = queue
	}
	runnerCfg := task.DefaultTaskRunnerConfig()
	runnerCfg.WorkerCount = app.config.Queue.WorkerCount

	factory := task.NewExtractionTaskFactory(app.batchRunner(orch, nil), app.batchOptions, app.logger)
	runner := task.NewTaskRunner(app.tasks, queue, consumer, runnerCfg, app.logger)
	runner.Register(task.TaskTypeExtraction, factory.Rebuild)
	return runner, factory, nil
}
