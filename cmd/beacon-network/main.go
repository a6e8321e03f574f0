// cmd/beacon-network/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"beacon-network/internal/audit"
	"beacon-network/internal/backends"
	"beacon-network/internal/common/config"
	"beacon-network/internal/common/database"
	"beacon-network/internal/common/events"
	commonhttp "beacon-network/internal/common/http"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/common/observability"
	"beacon-network/internal/common/validation"
	"beacon-network/internal/network/dispatch"
	"beacon-network/internal/network/endpoints"
	"beacon-network/internal/network/engine"
	"beacon-network/internal/network/merge"
	"beacon-network/internal/network/metadata"
	"beacon-network/internal/network/router"
	"beacon-network/internal/network/tokens"
	"beacon-network/internal/network/views"
	"beacon-network/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.ForNetwork(zapLog, cfg.Network.BeaconID, cfg.App.Environment)

	zapLog.Info("Starting beacon network...",
		zap.String("beaconId", cfg.Network.BeaconID),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		TracingEnabled: cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Audit log ---
	auditLog, closeStores := openAuditLog(ctx, cfg, log, zapLog)
	defer closeStores()

	// --- Metadata ---
	validator, err := validation.NewSchemaValidator()
	if err != nil {
		zapLog.Fatal("schema validator init failed", zap.Error(err))
	}
	dispatchCfg := dispatch.LoadConfig(cfg.Dispatch)
	client := commonhttp.NewClient(0, dispatchCfg.UserAgent)

	notifier := events.NewNotifier()
	metadataCfg := metadata.LoadConfig(cfg.Metadata)
	fetcher := metadata.NewHTTPFetcher(client, metadataCfg.FetchTimeout)
	registry := metadata.NewRegistry(metadataCfg, fetcher, validator, auditLog, notifier, log)

	index := endpoints.NewIndex(registry, log)
	notifier.Subscribe(index)

	viewsCfg, err := views.LoadConfig(cfg.App, cfg.Network)
	if err != nil {
		zapLog.Fatal("network views config failed", zap.Error(err))
	}
	networkViews := views.New(viewsCfg, registry, log)
	notifier.Subscribe(networkViews)

	// --- Query path ---
	exchanger := tokens.NewExchanger(tokens.LoadConfig(cfg.Auth), client, registry, log)
	dispatcher := dispatch.NewDispatcher(dispatchCfg, client, validator, exchanger, auditLog, obs.Tracer(), log)
	aggregator := engine.NewAggregator(
		router.NewRouter(networkViews, index, viewsCfg.BaseURL),
		dispatcher,
		merge.NewMerger(merge.Identity{BeaconID: cfg.Network.BeaconID, APIVersion: cfg.Network.APIVersion}),
		index, obs, log,
	)

	// --- Backend list ---
	source := backends.NewSource(backends.LoadConfig(cfg.Network, cfg.Metadata), registry, log)
	if err := source.Start(ctx); err != nil {
		zapLog.Fatal("backend list watch failed", zap.Error(err))
	}
	defer source.Stop()

	var ready atomic.Bool
	go func() {
		if err := source.Load(ctx); err != nil {
			zapLog.Error("backend list load failed", zap.Error(err))
		}
		ready.Store(true)
		zapLog.Info("Initial metadata load finished", zap.Int("backends", len(source.Backends())))
	}()

	// --- HTTP ---
	srv := server.New(server.LoadConfig(cfg.Server, cfg.Network), server.Options{
		Views:      networkViews,
		Refresher:  registry,
		Aggregator: aggregator,
		Inspector:  metadata.NewInspector(fetcher, validator, log),
		Ready:      ready.Load,
		Logger:     log,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping...")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	stop()

	zapLog.Info("Beacon network stopped gracefully")
}

// openAuditLog connects the enabled audit stores. The returned func closes them.
func openAuditLog(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) (*audit.Log, func()) {
	level, err := audit.ParseLevel(cfg.Audit.Level)
	if err != nil {
		zapLog.Fatal("invalid audit level", zap.Error(err))
	}

	var (
		stores  []audit.Store
		closers []func() error
	)

	if cfg.Audit.PostgresEnabled {
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		store := audit.NewPostgresStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres audit schema failed", zap.Error(err))
		}
		stores = append(stores, store)
		closers = append(closers, pg.Close)
		log.Info("PostgreSQL connected successfully", pg.PoolFields())
	}

	if cfg.Audit.RedisEnabled {
		var rdb *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		stores = append(stores, audit.NewRedisStore(rdb.Client, time.Duration(cfg.Audit.RedisTTL)*time.Second))
		closers = append(closers, rdb.Close)
		log.Info("Redis connected successfully", rdb.PoolFields())
	}

	if cfg.Audit.ElasticEnabled {
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		stores = append(stores, audit.NewElasticsearchStore(es.Client, cfg.Audit.ElasticsearchIndex))
		zapLog.Info("Elasticsearch connected successfully")
	}

	zapLog.Info("Audit log configured", zap.String("level", level.String()), zap.Int("stores", len(stores)))
	return audit.NewLog(level, log, stores...), func() {
		for _, c := range closers {
			_ = c()
		}
	}
}
