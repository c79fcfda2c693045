package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/app"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	_ = godotenv.Load()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	appLogger := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	appLogger.SetGlobal()
	workerLogger := appLogger.WithFields(map[string]interface{}{"component": "worker"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, workerLogger)
	if err != nil {
		workerLogger.Fatal(err, "Failed to initialize application")
	}
	defer a.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, workerLogger.Zerolog())
	if err != nil {
		workerLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(
		a.Tx,
		a.Repos.Outbox,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
		},
		workerLogger,
		a.Metrics,
	)
	if err != nil {
		workerLogger.Fatal(err, "Failed to create outbox processor")
	}

	cleaner := worker.NewExpiryCleaner(
		a.Repos.Sessions,
		a.Repos.Verifications,
		a.Repos.Outbox,
		worker.ExpiryCleanerConfig{
			Interval:        cfg.Cleanup.Interval,
			OutboxRetention: cfg.Cleanup.OutboxRetention,
		},
		workerLogger,
		a.Metrics,
	)

	// Setup health check endpoints
	gin.SetMode(cfg.Server.Mode)
	srv := healthServer(cfg.Server.WorkerPort, a, broker)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			workerLogger.Error(err, "Health check server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleaner.Start(ctx)
	}()
	workerLogger.Info("Worker started", "health_port", cfg.Server.WorkerPort)

	<-ctx.Done()
	workerLogger.Info("Shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		workerLogger.Error(err, "Health check server forced to shutdown")
	}
}

func healthServer(port int, a *app.App, broker *redis.RedisBroker) *http.Server {
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Recovery())

	health.NewHandler(map[string]health.Pinger{
		"database": a.DB,
		"redis":    health.PingFunc(broker.Ping),
	}).RegisterRoutes(engine)
	prometheus.New(a.Registry).RegisterRoutes(engine)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
}
