package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"kmtracker/internal/config"
	"kmtracker/internal/database"
	"kmtracker/internal/handlers"
	"kmtracker/internal/logging"
	"kmtracker/internal/metrics"
	"kmtracker/internal/tracker"
)

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", os.Getenv("KMTRACKER_CONFIG"), "Path to the TOML config file")
	flag.Parse()

	if err := runServer(*configPath); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser, err := logging.NewServerLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("Starting kmtracker server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.DatabasePath,
		"log_level", cfg.Logging.Level)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate()
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database ready", "migrations_applied", len(applied))

	t := tracker.New(db)
	router := handlers.NewRouter(handlers.RouterConfig{
		Tracker:       t,
		DB:            db,
		StatsCacheTTL: cfg.Server.StatsCacheTTL,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	servers := []*http.Server{server}
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		return listen(server)
	})

	if cfg.Server.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())

		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.MetricsHost, cfg.Server.MetricsPort)
		metricsServer := &http.Server{
			Addr:    metricsAddr,
			Handler: metricsMux,
		}
		servers = append(servers, metricsServer)

		g.Go(func() error {
			logger.Info("Metrics server listening", "addr", metricsAddr)
			return listen(metricsServer)
		})
		g.Go(func() error {
			logger.Info("Starting ride stats collector")
			metrics.StartRideStatsCollector(ctx, t, collectInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shut down %s: %w", s.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func listen(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", s.Addr, err)
	}
	return nil
}
