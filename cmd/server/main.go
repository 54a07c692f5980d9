/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift resolution engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration (file, env, .env)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Register Prometheus metrics (when enabled)
  5. Create API handler and router
  6. Start the materialization scheduler (when enabled)
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: ./config/config.yaml or ./config.yaml)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides db.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for a running job
  4. Close database connection

ENVIRONMENT:
  Every key can be set as ROTA_<SECTION>_<KEY>, e.g. ROTA_DB_PATH,
  ROTA_LOG_LEVEL, ROTA_SCHEDULER_ENABLED.

SEE ALSO:
  - config/config.go: Keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/warp/rota-engine/api"
	"github.com/warp/rota-engine/config"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
	"github.com/warp/rota-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Metrics
	var (
		rec         metrics.Recorder = metrics.NewNop()
		metricsHTTP http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := metrics.NewPrometheus(reg, cfg.Metrics.Namespace)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		rec = prom
		metricsHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	handler := api.NewHandler(store, zlog, rec)
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:       zlog.Named("http"),
		AllowOrigins: cfg.Server.CORS.AllowOrigins,
		Metrics:      metricsHTTP,
	})

	var scheduler *api.MaterializationScheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = api.NewMaterializationScheduler(handler.Resolver, store, cfg.Scheduler, zlog)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Database.Path),
			zap.Bool("scheduler", cfg.Scheduler.Enabled),
			zap.Bool("metrics", cfg.Metrics.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}

	zlog.Info("server stopped")
	return nil
}
