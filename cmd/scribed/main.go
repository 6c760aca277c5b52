// Command scribed runs the media processing engine as a long-lived process:
// it watches the configured inbox directory and drives every dropped file
// through the extraction pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openscribe/media-engine/internal/ffmpeg"
	"github.com/openscribe/media-engine/internal/watcher"
	"github.com/openscribe/media-engine/pkg/mediaengine"
	"github.com/openscribe/media-engine/pkg/mediaengine/config"
	"github.com/openscribe/media-engine/pkg/mediaengine/repo/memory"
	"github.com/openscribe/media-engine/pkg/mediaengine/repo/postgres"
	"github.com/openscribe/media-engine/pkg/mediaengine/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "scribed:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config (environment-only when empty)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	repo, cleanup, err := buildRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	registry, err := storage.NewRegistry(cfg.StorageLocations(), storage.WithLogger(logger))
	if err != nil {
		return err
	}

	toolchain := ffmpeg.New(
		ffmpeg.WithBinaries(cfg.FFmpegBin, cfg.FFprobeBin),
		ffmpeg.WithLogger(logger),
	)

	opts := []mediaengine.Option{
		mediaengine.WithRepository(repo),
		mediaengine.WithRegistry(registry),
		mediaengine.WithToolchain(toolchain),
		mediaengine.WithLogger(logger),
	}
	if cfg.SpoolDir != "" {
		opts = append(opts, mediaengine.WithSpoolDir(cfg.SpoolDir))
	}
	engine, err := mediaengine.New(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.InboxDir == "" {
		logger.Info("no inbox configured, engine idle until stopped")
		<-ctx.Done()
	} else {
		w, err := watcher.New(cfg.InboxDir, engine, cfg.MaxConcurrent, logger)
		if err != nil {
			return err
		}
		defer w.Stop()

		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	}

	logger.Info("waiting for pipeline stages to finish")
	engine.WaitIdle()
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func buildRepository(cfg *config.Config) (mediaengine.Repository, func(), error) {
	switch cfg.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return postgres.NewWithPool(pool), pool.Close, nil
	default:
		return memory.New(), func() {}, nil
	}
}
