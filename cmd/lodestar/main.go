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

	"github.com/lodestar-freight/lodestar/internal/allocation"
	"github.com/lodestar-freight/lodestar/internal/app"
	"github.com/lodestar-freight/lodestar/internal/masterdata"
	"github.com/lodestar-freight/lodestar/internal/observability"
	"github.com/lodestar-freight/lodestar/internal/platform/cache"
	"github.com/lodestar-freight/lodestar/internal/platform/db"
	"github.com/lodestar-freight/lodestar/internal/receipt"
	"github.com/lodestar-freight/lodestar/internal/shared"
	"github.com/lodestar-freight/lodestar/jobs"
)

func main() {
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
		logger.Warn("redis unavailable, stats cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	masterdataService := masterdata.NewService(masterdata.NewRepository(pool))

	allocationRepo := allocation.NewRepository(pool)
	allocationService := allocation.NewService(allocationRepo, masterdataService, auditLogger, jobs.NewShippedEnqueuer(jobClient))

	receiptRepo := receipt.NewRepository(pool)
	receiptCache := receipt.NewCache(redisClient, cfg.StatsCacheTTL)
	receiptService := receipt.NewService(receiptRepo, receiptCache)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AllocationHandler: allocation.NewHandler(logger, allocationService, idempotency, metrics),
		ReceiptHandler:    receipt.NewHandler(logger, receiptService),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
