// Package storage is the object-storage gateway: file uploads under generated
// keys, locator-addressed downloads, and log directory draining.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/jaehyun-song/ocr-gateway/internal/common"
)

// Uploader puts a local file into the bucket and returns the object key.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Downloader fetches an object's full content given an s3://bucket/key locator.
type Downloader interface {
	Download(ctx context.Context, locator string) ([]byte, error)
}

// Gateway talks to S3 for a single configured bucket.
type Gateway struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	logger   *slog.Logger
}

func NewGateway(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, common.WrapError(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg)
	return &Gateway{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		logger:   logger,
	}, nil
}

// ObjectKey generates the remote key for a local file:
// {UTC timestamp}_{basename-without-extension}_{unique id}{extension}.
func ObjectKey(localPath string, now time.Time) string {
	base := filepath.Base(localPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ts := now.UTC().Format("2006-01-02T15-04-05Z")
	return fmt.Sprintf("%s_%s_%s%s", ts, stem, uuid.NewString(), ext)
}

// Upload puts localPath into the bucket under a generated key. Not retried.
func (g *Gateway) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", common.WrapError(err, "open upload source")
	}
	defer f.Close()

	key := ObjectKey(localPath, time.Now())
	_, err = g.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", common.NewAppError("STORAGE", "upload failed", fmt.Errorf("%w: %v", common.ErrStorage, err))
	}
	g.logger.Info("storage.upload.ok", "bucket", g.bucket, "key", key, "path", localPath)
	return key, nil
}

// ParseLocator splits an s3://bucket/key locator. No network involved.
func ParseLocator(locator string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(locator, "s3://")
	if !ok {
		return "", "", common.ErrInvalidLocator
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", common.ErrInvalidLocator
	}
	return bucket, key, nil
}

// Download fetches the whole object into memory. The caller must have room
// for the full content.
func (g *Gateway) Download(ctx context.Context, locator string) ([]byte, error) {
	bucket, key, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, common.NewAppError("STORAGE", "download failed", fmt.Errorf("%w: %v", common.ErrStorage, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, common.NewAppError("STORAGE", "read object body", fmt.Errorf("%w: %v", common.ErrStorage, err))
	}
	g.logger.Info("storage.download.ok", "bucket", bucket, "key", key, "bytes", len(data))
	return data, nil
}

// DrainDirectory deletes path and all contents, then recreates it empty.
func DrainDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", common.ErrInvalidDirectory, path)
	}
	if err := os.RemoveAll(path); err != nil {
		return common.WrapError(err, "remove directory")
	}
	return os.MkdirAll(path, 0o755)
}
