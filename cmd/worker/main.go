package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

const inboxSettle = 2 * time.Second

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

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, "odyssey-ledger-worker")
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache bumps disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("asynq redis options", slog.Any("error", err))
		os.Exit(1)
	}

	tolerance, err := cfg.Tolerance()
	if err != nil {
		logger.Error("reconcile tolerance", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	accountService := accounts.NewService(accounts.NewRepository(pool), cfg.LedgerCurrency, logger)
	journalService := journals.NewService(journals.NewRepository(pool),
		journals.WithAudit(shared.NewAuditLogger(pool)),
		journals.WithCacheBumper(reportCache),
		journals.WithMetrics(metrics),
		journals.WithLogger(logger),
	)
	hooks := integration.NewHooks(journalService, accountService)
	arService := ar.NewService(ar.NewRepository(pool), hooks, cfg.LedgerCurrency, logger)
	bankingService := banking.NewService(banking.NewRepository(pool), arService, hooks, metrics, banking.Config{
		MaxStatementBytes: cfg.StatementMaxBytes,
		Tolerance:         tolerance,
	}, logger)

	importJob := jobs.NewStatementImportJob(bankingService, logger, jobMetrics)
	integrityJob := jobs.NewGLIntegrityJob(jobs.NewIntegrityStore(pool), logger, jobMetrics)

	integrityTask, err := jobs.NewGLIntegrityTask(jobs.GLIntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStatementImport, Handler: importJob.Handle},
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 2 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })

	if cfg.StatementInboxDir != "" {
		client, err := jobs.NewClient(redisOpt)
		if err != nil {
			logger.Error("init asynq client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		watcher := jobs.NewInboxWatcher(cfg.StatementInboxDir, client, logger, inboxSettle, cfg.StatementMaxBytes)
		g.Go(func() error { return watcher.Run(gctx) })
		logger.Info("watching statement inbox", slog.String("dir", cfg.StatementInboxDir))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
