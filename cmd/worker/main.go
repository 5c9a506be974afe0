package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/arthapos/ledger/internal/app"
	"github.com/arthapos/ledger/internal/integration"
	"github.com/arthapos/ledger/internal/integration/outbox"
	"github.com/arthapos/ledger/internal/ledger/journals"
	"github.com/arthapos/ledger/internal/ledger/mappings"
	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/platform/cache"
	"github.com/arthapos/ledger/internal/platform/db"
	"github.com/arthapos/ledger/internal/shared"
	"github.com/arthapos/ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	audit := shared.NewAuditLogger(pool)
	journalRepo := journals.NewRepository(pool)
	journalService := journals.NewService(journalRepo, audit)
	periodRepo := periods.NewRepository(pool)
	periodService := periods.NewService(periodRepo)
	mappingRepo := mappings.NewRepository(pool)

	hooks := integration.NewHooks(journalService, mappingRepo, periodService)
	store := outbox.NewStore(pool)

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	channel := outbox.NewSideChannel(hooks, store, client, logger)
	outboxJob := jobs.NewOutboxJob(store, channel, logger, cfg.OutboxSweepBatch)
	integrityJob := jobs.NewGLIntegrityJob(pool, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOutboxDispatch, Handler: outboxJob.HandleDispatch},
			{Type: jobs.TaskOutboxSweep, Handler: outboxJob.HandleSweep},
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 1m", Task: jobs.NewOutboxSweepTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "45 1 * * *", Task: jobs.NewGLIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("ledger worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
