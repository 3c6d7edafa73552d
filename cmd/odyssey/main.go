package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, "odyssey-ledger")
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("migrate schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("schema migrated")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Reports still build without redis, only uncached.
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tolerance, err := cfg.Tolerance()
	if err != nil {
		logger.Error("reconcile tolerance", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.Subscribe(ctx, func(tenant shared.TenantID, version int64) {
		logger.Debug("report cache bumped", slog.Int64("tenant_id", int64(tenant)), slog.Int64("version", version))
	}); err != nil {
		logger.Warn("subscribe report cache", slog.Any("error", err))
	}
	reportService := reports.NewService(reports.NewRepository(dbpool), reportCache)

	accountService := accounts.NewService(accounts.NewRepository(dbpool), cfg.LedgerCurrency, logger)
	journalService := journals.NewService(journals.NewRepository(dbpool),
		journals.WithAudit(auditLogger),
		journals.WithCacheBumper(reportCache),
		journals.WithMetrics(metrics),
		journals.WithLogger(logger),
	)
	hooks := integration.NewHooks(journalService, accountService)

	arService := ar.NewService(ar.NewRepository(dbpool), hooks, cfg.LedgerCurrency, logger)
	bankingService := banking.NewService(banking.NewRepository(dbpool), arService, hooks, metrics, banking.Config{
		MaxStatementBytes: cfg.StatementMaxBytes,
		Tolerance:         tolerance,
	}, logger)

	var inspector jobs.QueueInspector
	if redisOpt, err := jobs.RedisOpt(cfg.RedisAddr); err != nil {
		logger.Warn("asynq redis options", slog.Any("error", err))
	} else {
		asynqInspector := asynq.NewInspector(redisOpt)
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("asynq inspector close", slog.Any("error", err))
			}
		}()
		inspector = asynqInspector
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		LedgerHandler:      accounting.NewHandler(logger, accountService, journalService, reportService),
		BankingHandler:     banking.NewHandler(logger, bankingService),
		ARHandler:          ar.NewHandler(logger, arService),
		IntegrationHandler: integration.NewHandler(logger, hooks),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Idempotency:        idempotencyStore,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
