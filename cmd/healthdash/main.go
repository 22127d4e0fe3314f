package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vjranagit/healthdash/internal/config"
	"github.com/vjranagit/healthdash/internal/logging"
	"github.com/vjranagit/healthdash/pkg/api"
	"github.com/vjranagit/healthdash/pkg/health"
	"github.com/vjranagit/healthdash/pkg/metrics"
	"github.com/vjranagit/healthdash/pkg/render"
	"github.com/vjranagit/healthdash/pkg/storage"
)

const (
	version = "0.1.0"
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitNoSource  = 2
	exitBadConfig = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("HEALTHDASH_CONFIG"), "path to a YAML config file")
	exportPath := flag.String("file", "", "health export to load (overrides source.path)")
	format := flag.String("format", "text", "output format: text or json")
	serve := flag.Bool("serve", false, "serve the dashboard API instead of printing it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return exitBadConfig
	}
	if *exportPath != "" {
		cfg.Source.Path = *exportPath
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Unknown format %q (want text or json)\n", *format)
		return exitBadConfig
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return exitBadConfig
	}
	defer logger.Sync()

	logger.Info("Health dashboard starting",
		zap.String("version", version),
		zap.String("export", cfg.Source.Path),
		zap.String("record_policy", cfg.Extract.RecordPolicy),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("snapshots", cfg.Cache.SnapshotEnabled),
	)

	collector := metrics.NewCollector("healthdash")
	opts := []health.Option{
		health.WithPolicy(cfg.RecordPolicy()),
		health.WithLogger(logger),
		health.WithMetrics(collector),
	}

	if cfg.Cache.Enabled {
		var snapshots *storage.SnapshotStore
		if cfg.Cache.SnapshotEnabled {
			snapshots, err = storage.NewSnapshotStore(cfg.ToStorageConfig(), logger)
			if err != nil {
				logger.Error("Failed to open snapshot store", zap.Error(err))
				return exitFailure
			}
			defer snapshots.Close()
		}
		cache := storage.NewResultCache(cfg.Cache.Capacity, cfg.Cache.TTL)
		opts = append(opts, health.WithCache(storage.NewTiered(cache, snapshots)))
	}

	pipeline := health.NewPipeline(opts...)

	if *serve {
		return serveAPI(cfg, pipeline, collector, logger)
	}
	return printDashboard(cfg.Source.Path, *format, pipeline, os.Stdout, os.Stderr)
}

// printDashboard loads the export at path and writes it to stdout, reporting
// failures on stderr. It returns the process exit code.
func printDashboard(path, format string, pipeline *health.Pipeline, stdout, stderr io.Writer) int {
	dash, err := pipeline.Load(health.NewFileSource(path))
	if err != nil {
		var notFound *health.SourceNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(stderr, "Please place your health export at %s or pass -file. File not found: %s\n",
				path, notFound.Path)
			return exitNoSource
		}
		fmt.Fprintf(stderr, "Failed to load health export: %v\n", err)
		return exitFailure
	}

	if format == "json" {
		err = render.JSON(stdout, dash)
	} else {
		err = render.Text(stdout, dash)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to write dashboard: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func serveAPI(cfg *config.Config, pipeline *health.Pipeline, collector *metrics.Collector, logger *zap.Logger) int {
	server := api.NewServer(api.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ExportPath:     cfg.Source.Path,
	}, pipeline, collector, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.ListenAddr))
		errCh <- server.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
			return exitFailure
		}
		return exitOK
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
		return exitFailure
	}

	logger.Info("Server stopped successfully")
	return exitOK
}
