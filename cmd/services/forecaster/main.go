package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lavapop/cashcast/internal/calendar"
	"github.com/lavapop/cashcast/internal/config"
	"github.com/lavapop/cashcast/internal/handlers"
	"github.com/lavapop/cashcast/internal/logging"
	"github.com/lavapop/cashcast/internal/metrics"
	"github.com/lavapop/cashcast/internal/modelcache"
	"github.com/lavapop/cashcast/internal/queue"
	"github.com/lavapop/cashcast/internal/router"
	"github.com/lavapop/cashcast/internal/services"
	"github.com/lavapop/cashcast/internal/store/postgres"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Forecaster starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres is the system of record
	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", "error", err)
	}
	defer pool.Close()
	data := postgres.New(pool)
	if cfg.Postgres.EnsureSchema {
		if err := data.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to create schema", "error", err)
		}
	}

	logger.Info("Opening model cache", "backend", cfg.ModelCache.Backend, "max_age", cfg.ModelCache.MaxAge)
	models, err := modelcache.Open(ctx, cfg.ModelCache, cfg.Redis, pool)
	if err != nil {
		logger.Fatal("Failed to open model cache", "error", err)
	}
	defer func() { _ = models.Close() }()

	cal, err := calendar.Load(cfg.Calendar.File)
	if err != nil {
		logger.Fatal("Failed to load calendar", "file", cfg.Calendar.File, "error", err)
	}

	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	q, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	events := queue.NewEventPublisher(q)
	defer func() { _ = events.Close() }()

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	m := metrics.New()
	svc := services.NewForecastService(logger, cfg.Forecast, services.Dependencies{
		Revenue:  data,
		Weather:  data,
		Tracker:  data,
		Models:   models,
		Calendar: cal,
		Events:   events,
		Metrics:  m,
	})

	if err := svc.WatchRetrains(q); err != nil {
		logger.Fatal("Failed to subscribe to retrain events", "error", err)
	}
	defer func() { _ = q.Unsubscribe(queue.SubjectModelRetrained) }()

	h := handlers.New(logger, svc, map[string]handlers.HealthCheck{
		"postgres":    pool.Ping,
		"model_cache": models.Ping,
	})
	app := router.New(logger, h, m, *cfg)

	go func() {
		addr := cfg.ServerAddress()
		logger.Info("Server listening", "address", addr, "timezone", cfg.Forecast.Timezone)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
