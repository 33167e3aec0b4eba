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

	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/sagastore/internal/config"
	"github.com/jcmexdev/sagastore/internal/inspector"
	"github.com/jcmexdev/sagastore/internal/pkg/cache"
	"github.com/jcmexdev/sagastore/internal/pkg/telemetry"
	"github.com/jcmexdev/sagastore/internal/saga"
	"github.com/jcmexdev/sagastore/internal/saga/cachedstore"
	"github.com/jcmexdev/sagastore/internal/saga/codec"
	"github.com/jcmexdev/sagastore/internal/saga/sqlstore"
	"github.com/jcmexdev/sagastore/internal/saga/tracedstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, err := telemetry.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("saga inspector stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Endpoint:    cfg.OTel.Endpoint,
		Environment: cfg.OTel.Environment,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	sqlStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer sqlStore.Close()

	var store saga.Store = sqlStore
	if cfg.Cache.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.OTel.ServiceName)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return err
		}
		store = cachedstore.New(store, redisCache, cfg.Store.BlobTable, cfg.Cache.TTL, slog.Default())
		slog.Info("saga cache enabled", "redis_addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	}
	store = tracedstore.New(store, nil,
		attribute.String("db.system", cfg.Store.Driver),
		attribute.String("saga.table", cfg.Store.BlobTable),
	)

	repo := saga.NewRepository[string](store, codec.Raw{}, saga.NewFactory[string](saga.Type(cfg.Store.BlobTable), nil))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           inspector.NewRouter(inspector.NewHandler(repo, sqlStore)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("saga inspector running", "addr", cfg.HTTPAddr, "driver", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down saga inspector")
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*sqlstore.Store, error) {
	tables := sqlstore.Tables{Blob: cfg.BlobTable, Header: cfg.HeaderTable}

	if cfg.Driver == config.DriverSQLite {
		return sqlstore.OpenSQLite(ctx, cfg.SQLitePath, tables)
	}

	store, err := sqlstore.OpenPostgres(ctx, cfg.PostgresDSN, sqlstore.PostgresOptions{
		Tables:       tables,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}
