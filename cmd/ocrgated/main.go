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

	"github.com/joho/godotenv"

	"github.com/jaehyun-song/ocr-gateway/internal/archive"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/logship"
	"github.com/jaehyun-song/ocr-gateway/internal/model"
	"github.com/jaehyun-song/ocr-gateway/internal/pipeline"
	"github.com/jaehyun-song/ocr-gateway/internal/server"
	"github.com/jaehyun-song/ocr-gateway/internal/storage"
	"github.com/jaehyun-song/ocr-gateway/internal/task"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; the environment wins either way.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.Paths.TempDir, cfg.Paths.ArchiveDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	var m model.Model
	switch cfg.Model.Backend {
	case "tesseract":
		m = model.NewTesseractModel(logger)
	default:
		m = model.NewCLIModel(model.CLIConfig{
			Bin:        cfg.Model.Bin,
			ConfigPath: cfg.Model.ConfigPath,
		}, nil, logger)
	}
	if !m.Loaded() {
		logger.Error("model failed to initialize", "backend", cfg.Model.Backend)
		os.Exit(1)
	}
	logger.Info("model initialized", "backend", cfg.Model.Backend, "config", cfg.Model.ConfigPath)

	gateway, err := storage.NewGateway(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to build storage gateway", "error", err)
		os.Exit(1)
	}

	runner := task.NewRunner(m, logger,
		task.WithWorkers(cfg.Tasks.Workers),
		task.WithQueueSize(cfg.Tasks.QueueSize),
		task.WithJobTimeout(cfg.Tasks.Timeout),
	)

	var builderOpts []archive.Option
	if cfg.Tasks.UniqueSuffix {
		builderOpts = append(builderOpts, archive.WithUniqueSuffix())
	}
	builder := archive.NewBuilder(cfg.Paths.ArchiveDir, builderOpts...)

	pipe := pipeline.NewPipeline(m, runner, builder, gateway, cfg.Paths.TempDir, cfg.Model.ConfigPath, logger)
	shipper := logship.NewShipper(cfg.Paths.LogDir, cfg.Paths.LogArchive, gateway, logger)

	handler := server.NewHandler(pipe, shipper, cfg.Paths.ArchiveDir, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewRouter(handler),
	}

	logger.Info("ocr-gateway listening", "addr", cfg.Server.Addr, "workers", cfg.Tasks.Workers)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	runner.Shutdown(shutdownCtx)
}
