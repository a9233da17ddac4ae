package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
	"github.com/raaihank/pii-anonymizer/internal/config"
	"github.com/raaihank/pii-anonymizer/internal/history"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"github.com/raaihank/pii-anonymizer/internal/sentiment"
	"github.com/raaihank/pii-anonymizer/internal/server"
	"github.com/raaihank/pii-anonymizer/internal/telemetry"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pii-anonymizer %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// .env is optional
	_ = godotenv.Load()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	log, err := logger.New(loggerConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting PII anonymizer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.String("config_file", loader.ConfigFile()),
		zap.Int("port", cfg.Server.Port),
	)

	if err := run(cfg, loader, log); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, loader *config.Loader, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(cfg.Telemetry.ServiceName, version, cfg.Telemetry.Enabled)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	recorder, err := telemetry.NewRecorder()
	if err != nil {
		return err
	}

	registry, err := anonymizer.NewRegistry(
		anonymizer.WithFirstNames(cfg.Anonymizer.ExtraFirstNames),
		anonymizer.WithExclusions(cfg.Anonymizer.ExtraExclusions),
	)
	if err != nil {
		return fmt.Errorf("failed to build pattern registry: %w", err)
	}

	store, err := history.Open(ctx, &cfg.History, log.WithComponent("history"))
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	if cfg.History.Retention > 0 {
		pruner, err := history.NewPruner(store, cfg.History.Retention, cfg.History.PruneSchedule, log)
		if err != nil {
			return err
		}
		pruner.Start()
		defer pruner.Stop()
	}

	scorer, closeScorer, err := buildScorer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeScorer()

	srv, err := server.New(cfg, log, server.Dependencies{
		Anonymizer: anonymizer.New(registry, log.WithComponent("anonymizer")),
		Scorer:     scorer,
		History:    store,
		Recorder:   recorder,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	loader.Watch(func(newCfg *config.Config) {
		if err := srv.ApplyConfig(newCfg); err != nil {
			log.Error("Failed to apply reloaded configuration", zap.Error(err))
		}
	}, func(err error) {
		log.Warn("Ignoring configuration change", zap.Error(err))
	})

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start(ctx)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server gracefully: %w", err)
		}

		log.Info("Server shutdown complete")
		return nil
	}
}

// buildScorer returns a nil scorer when sentiment analysis is disabled
func buildScorer(ctx context.Context, cfg *config.Config, log *logger.Logger) (sentiment.Scorer, func(), error) {
	noop := func() {}
	if !cfg.Sentiment.Enabled {
		return nil, noop, nil
	}

	client := sentiment.NewHTTPClient(cfg.Sentiment.URL, cfg.Sentiment.Timeout, log)
	if !cfg.Sentiment.Cache.Enabled {
		return client, noop, nil
	}

	rdb, err := sentiment.NewRedisClient(ctx, &cfg.Sentiment.Cache)
	if err != nil {
		log.Warn("Sentiment cache unavailable, scoring without cache", zap.Error(err))
		return client, noop, nil
	}

	closeCache := func() {
		if err := rdb.Close(); err != nil {
			log.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	return sentiment.NewCachedScorer(client, rdb, &cfg.Sentiment.Cache, log), closeCache, nil
}

func loggerConfig(cfg *config.Config) logger.Config {
	lc := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		lc.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}
	return lc
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
}
