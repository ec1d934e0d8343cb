// Command logship zips the log directory, ships it to object storage, and
// drains the directory. One shot; meant for cron.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/logship"
	"github.com/jaehyun-song/ocr-gateway/internal/storage"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if cfg.Storage.Bucket == "" {
		log.Fatal("AWS_S3_BUCKET_NAME env var is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	gateway, err := storage.NewGateway(ctx, cfg.Storage, slogger)
	if err != nil {
		log.Fatalf("building storage gateway: %v", err)
	}

	shipper := logship.NewShipper(cfg.Paths.LogDir, cfg.Paths.LogArchive, gateway, slogger)
	if err := shipper.Ship(ctx); err != nil {
		log.Fatalf("shipping logs: %v", err)
	}
	log.Infow("log bundle shipped", "log_dir", cfg.Paths.LogDir, "archive", cfg.Paths.LogArchive)
}
