package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"catalog_sync/internal/cache"
	"catalog_sync/internal/config"
	"catalog_sync/internal/messaging"
	"catalog_sync/internal/metrics"
	"catalog_sync/internal/scheduler"
	"catalog_sync/internal/service"
	"catalog_sync/internal/source/destinationone"
	"catalog_sync/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           metricsMux(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	opts := []destinationone.Option{destinationone.WithMetrics(m)}
	if cfg.Redis.Enabled() {
		redisClient, err := cache.Connect(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		opts = append(opts, destinationone.WithFacetCache(
			cache.NewFacetCache(redisClient, cfg.Redis.FacetTTL, cfg.Redis.KeyPrefix),
		))
		logger.Info("facet cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.FacetTTL)
	}

	doClient := destinationone.New(destinationone.Config{
		BaseURL:          cfg.Provider.BaseURL,
		Timeout:          cfg.Provider.Timeout,
		PageSize:         cfg.Provider.PageSize,
		RateLimit:        cfg.Provider.RateLimit,
		RateBurst:        cfg.Provider.RateBurst,
		BreakerFailures:  cfg.Provider.Breaker.MaxFailures,
		BreakerOpenDelay: cfg.Provider.Breaker.OpenTimeout,
	}, logger, opts...)

	registry := service.NewRegistry(destinationone.NewProvider(doClient, logger))

	ingestion, err := messaging.NewRPCClient(messaging.ClientConfig{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.IngestionRoutingKey,
		Timeout:    cfg.RabbitMQ.RPCTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer ingestion.Close()

	syncService := service.NewSyncService(
		registry,
		postgres.NewIntegrationStore(db),
		postgres.NewSyncLogStore(db),
		postgres.NewTransactionManager(db),
		ingestion,
		m,
		logger,
		cfg.Sync,
	)

	triggers, err := messaging.NewTriggerServer(messaging.ServerConfig{
		URL:   cfg.RabbitMQ.URL,
		Queue: cfg.RabbitMQ.TriggerQueue,
	}, syncService, logger)
	if err != nil {
		logger.Error("failed to start trigger server", "error", err)
		os.Exit(1)
	}
	defer triggers.Close()

	go func() {
		if err := triggers.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("trigger server stopped", "error", err)
			cancel()
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting catalog syncer",
		"providers", registry.IDs(),
		"interval", cfg.Sync.Interval,
		"trigger_queue", cfg.RabbitMQ.TriggerQueue,
		"metrics_addr", cfg.Metrics.ListenAddr,
	)

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, logger)
	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
