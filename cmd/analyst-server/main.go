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

	"github.com/motilal0/plcc-cortex-analyst/internal/api"
	"github.com/motilal0/plcc-cortex-analyst/internal/api/uistatic"
	"github.com/motilal0/plcc-cortex-analyst/internal/archive"
	"github.com/motilal0/plcc-cortex-analyst/internal/auth"
	"github.com/motilal0/plcc-cortex-analyst/internal/chat"
	"github.com/motilal0/plcc-cortex-analyst/internal/config"
	"github.com/motilal0/plcc-cortex-analyst/internal/observability"
	"github.com/motilal0/plcc-cortex-analyst/internal/oracle"
	"github.com/motilal0/plcc-cortex-analyst/internal/render"
	s3store "github.com/motilal0/plcc-cortex-analyst/internal/storage/s3"
	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("analyst-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	credentials := warehouse.StaticCredentials{
		Driver:          cfg.Warehouse.Driver,
		DSN:             cfg.Warehouse.DSN,
		MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
		MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
		ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		QueryTimeout:    cfg.Warehouse.QueryTimeout,
	}
	pool, err := warehouse.Open(context.Background(), credentials)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = pool.Close() }()

	sessions := chat.NewStore(func(ctx context.Context) (chat.SessionConn, error) {
		return pool.Acquire(ctx)
	}, cfg.Chat.MaxSessions)
	defer func() { _ = sessions.Close() }()

	analyst, err := oracle.NewAnalystClient(oracle.AnalystConfig{
		BaseURL:   cfg.Oracle.BaseURL,
		Database:  cfg.Oracle.Database,
		Schema:    cfg.Oracle.Schema,
		Stage:     cfg.Oracle.Stage,
		ModelFile: cfg.Oracle.ModelFile,
		Timeout:   cfg.Oracle.Timeout,
	}, oracle.StaticToken(cfg.Oracle.Token))
	if err != nil {
		logger.Error("failed to initialize analyst client", slog.Any("error", err))
		os.Exit(1)
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = archive.New(objectStore, logger)
	}

	deps := api.Dependencies{
		Logger:   logger,
		Sessions: sessions,
		Dispatcher: &chat.Dispatcher{
			Oracle:         analyst,
			Logger:         logger,
			FailureNotices: cfg.Chat.FailureNotices,
		},
		Renderer: render.New(cfg.Chat.RenderRowLimit, archiver, logger),
		Archiver: archiver,
		UI:       uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			pool.HealthCheck,
			api.CheckOracleConfig(cfg),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting analyst server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("analyst server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down analyst server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
