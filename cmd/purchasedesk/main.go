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
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/purchasedesk/internal/app"
	"github.com/odyssey-erp/purchasedesk/internal/export"
	"github.com/odyssey-erp/purchasedesk/internal/keymap"
	"github.com/odyssey-erp/purchasedesk/internal/masterdata"
	"github.com/odyssey-erp/purchasedesk/internal/observability"
	"github.com/odyssey-erp/purchasedesk/internal/platform/cache"
	"github.com/odyssey-erp/purchasedesk/internal/platform/db"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
	"github.com/odyssey-erp/purchasedesk/internal/workspace"
	"github.com/odyssey-erp/purchasedesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// The desk keeps working without Redis; candidate lists are then read straight
	// from Postgres.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	keys, err := loadKeymap(cfg.KeymapFile)
	if err != nil {
		logger.Error("load keymap", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	catalogRepo := masterdata.NewRepository(dbpool)
	catalog := masterdata.NewService(catalogRepo, cache.NewVersioned(redisClient, cfg.CatalogCacheTTL))
	masterDataHandler := masterdata.NewHandler(logger, catalog)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	purchaseRepo := purchase.NewRepository(dbpool)
	purchases := purchase.NewService(purchaseRepo, catalog, jobClient, metrics, logger)

	exporter, err := export.NewExporter(purchases, export.NewGotenberg(cfg.GotenbergURL, nil))
	if err != nil {
		logger.Error("init exporter", slog.Any("error", err))
		os.Exit(1)
	}

	registry := workspace.NewRegistry(workspace.Config{
		Data:    purchases,
		Keymap:  keys,
		Logger:  logger,
		Metrics: metrics,
		IdleTTL: cfg.WorkspaceIdleTTL,
	})
	go registry.Run(ctx)
	workspaceHandler := workspace.NewHandler(logger, registry, purchases, exporter)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		MasterDataHandler: masterDataHandler,
		WorkspaceHandler:  workspaceHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func loadKeymap(path string) (*keymap.Keymap, error) {
	if path == "" {
		return keymap.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return keymap.Load(f)
}
