// Package logship bundles the operational log directory into one zip, ships
// it to object storage, and drains the directory for the next cycle.
package logship

import (
	"context"
	"log/slog"
	"os"

	"github.com/jaehyun-song/ocr-gateway/internal/archive"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/storage"
)

type Shipper struct {
	logDir      string
	archivePath string
	uploader    storage.Uploader
	logger      *slog.Logger
}

func NewShipper(logDir, archivePath string, uploader storage.Uploader, logger *slog.Logger) *Shipper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shipper{
		logDir:      logDir,
		archivePath: archivePath,
		uploader:    uploader,
		logger:      logger,
	}
}

// Ship zips the log directory, uploads the bundle, then drains the directory.
// The directory is only drained after a successful upload, so a failed ship
// leaves the logs in place for the next attempt.
func (s *Shipper) Ship(ctx context.Context) error {
	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		return common.WrapError(err, "ensure log dir")
	}
	if err := archive.ZipDir(s.logDir, s.archivePath); err != nil {
		return common.WrapError(err, "bundle logs")
	}
	key, err := s.uploader.Upload(ctx, s.archivePath)
	if err != nil {
		return err
	}
	if err := storage.DrainDirectory(s.logDir); err != nil {
		return err
	}
	s.logger.Info("logship.ok", "key", key, "log_dir", s.logDir)
	return nil
}
