// Package pipeline composes one request's lifecycle: validate the upload,
// stage it to temp storage, run the model off the request path, collect the
// outputs, and package them when a downloadable bundle is wanted.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/archive"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/model"
	"github.com/jaehyun-song/ocr-gateway/internal/storage"
	"github.com/jaehyun-song/ocr-gateway/internal/task"
)

// Upload is an inbound file: raw content plus the declared filename.
type Upload struct {
	Filename string
	Content  io.Reader
}

// TaskResult is the single-task response shape. Failures are data here, not
// transport errors: callers check Success.
type TaskResult struct {
	Success  bool   `json:"success"`
	TaskType string `json:"task_type"`
	Content  string `json:"content"`
	Message  string `json:"message,omitempty"`
	Config   string `json:"config,omitempty"`
}

// ParseResult is the full-parse response shape.
type ParseResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	OutputDir   string   `json:"output_dir,omitempty"`
	Files       []string `json:"files,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
}

// Pipeline coordinates staging, the task runner and the archive builder.
type Pipeline struct {
	model      model.Model
	runner     *task.Runner
	builder    *archive.Builder
	downloader storage.Downloader
	tempDir    string
	configPath string
	logger     *slog.Logger
}

func NewPipeline(m model.Model, runner *task.Runner, builder *archive.Builder, downloader storage.Downloader, tempDir, configPath string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		model:      m,
		runner:     runner,
		builder:    builder,
		downloader: downloader,
		tempDir:    tempDir,
		configPath: configPath,
		logger:     logger,
	}
}

// ModelLoaded reports model readiness for the health endpoint.
func (p *Pipeline) ModelLoaded() bool { return p.model.Loaded() }

// RunSingleTask validates, stages and runs one recognition task. Every
// failure comes back in-band as Success=false.
func (p *Pipeline) RunSingleTask(ctx context.Context, up Upload, kind constants.TaskKind) TaskResult {
	content, err := p.runSingle(ctx, up, kind)
	if err != nil {
		p.logger.Error("pipeline.task.failed", "kind", kind, "filename", up.Filename, "error", err)
		return TaskResult{
			Success:  false,
			TaskType: kind.String(),
			Message:  fmt.Sprintf("OCR task failed: %v", err),
		}
	}
	p.logger.Info("pipeline.task.ok", "kind", kind, "filename", up.Filename, "bytes", len(content))
	return TaskResult{
		Success:  true,
		TaskType: kind.String(),
		Content:  content,
		Message:  fmt.Sprintf("%s extraction completed successfully", capitalize(kind.String())),
		Config:   filepath.Base(p.configPath),
	}
}

func (p *Pipeline) runSingle(ctx context.Context, up Upload, kind constants.TaskKind) (string, error) {
	if !p.model.Loaded() {
		return "", common.ErrModelNotInitialized
	}
	ext := constants.NormalizeExt(filepath.Ext(up.Filename))
	if !constants.AllowedExt(ext) {
		return "", fmt.Errorf("%w: .%s (allowed: pdf, jpg, jpeg, png)", common.ErrUnsupportedFileType, ext)
	}

	stagedPath, err := p.stage(up, ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(stagedPath)

	outDir, err := os.MkdirTemp(p.tempDir, string(kind)+"_")
	if err != nil {
		return "", common.WrapError(err, "create output dir")
	}

	resultDir, err := p.run(ctx, task.NewJob(kind, stagedPath, outDir))
	if err != nil {
		return "", err
	}

	return readSingleResult(resultDir, kind)
}

// RunFullParse runs a full document parse and packages the bundle. Unlike the
// single-task family, validation and catastrophic failures surface as errors
// for the transport layer to map onto status codes.
func (p *Pipeline) RunFullParse(ctx context.Context, up Upload) (ParseResult, error) {
	if !p.model.Loaded() {
		return ParseResult{}, common.ErrModelNotInitialized
	}
	if constants.NormalizeExt(filepath.Ext(up.Filename)) != "pdf" {
		return ParseResult{}, fmt.Errorf("%w: only PDF files are supported for document parsing", common.ErrUnsupportedFileType)
	}
	seed := strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename))

	stagedPath, err := p.stage(up, "pdf")
	if err != nil {
		return ParseResult{}, err
	}
	defer os.Remove(stagedPath)

	outDir, err := os.MkdirTemp(p.tempDir, "parse_")
	if err != nil {
		return ParseResult{}, common.WrapError(err, "create output dir")
	}

	resultDir, err := p.run(ctx, task.NewJob(constants.TaskParse, stagedPath, outDir))
	if err != nil {
		return ParseResult{}, err
	}

	files, err := listFiles(resultDir)
	if err != nil {
		return ParseResult{}, common.WrapError(err, "list result files")
	}
	p.checkContentList(resultDir)

	zipPath, err := p.builder.Build(resultDir, seed)
	if err != nil {
		return ParseResult{}, err
	}
	p.logger.Info("pipeline.parse.ok", "filename", up.Filename, "result_dir", resultDir, "archive", zipPath, "files", len(files))

	return ParseResult{
		Success:     true,
		Message:     "Document parsing completed successfully",
		OutputDir:   resultDir,
		Files:       files,
		DownloadURL: "/static/" + filepath.Base(zipPath),
	}, nil
}

// RunFromS3 downloads the object and reuses the single-task flow with a
// synthetic upload. Download failures come back in-band like task failures.
func (p *Pipeline) RunFromS3(ctx context.Context, locator string, kind constants.TaskKind) TaskResult {
	data, err := p.downloader.Download(ctx, locator)
	if err != nil {
		p.logger.Error("pipeline.s3.download.failed", "locator", locator, "error", err)
		return TaskResult{
			Success:  false,
			TaskType: kind.String(),
			Message:  fmt.Sprintf("Error occurred: %v", err),
		}
	}
	return p.RunSingleTask(ctx, Upload{Filename: "from_s3.pdf", Content: bytes.NewReader(data)}, kind)
}

// ListResults returns the relative file listing of a finished parse job's
// result directory, addressed by the random task id suffix.
func (p *Pipeline) ListResults(taskID string) ([]string, string, error) {
	dir := filepath.Join(p.tempDir, "parse_"+taskID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, "", os.ErrNotExist
	}
	files, err := listFiles(dir)
	if err != nil {
		return nil, "", err
	}
	return files, dir, nil
}

// stage copies the upload's bytes to a private temp file preserving the
// extension. The caller owns removal.
func (p *Pipeline) stage(up Upload, ext string) (string, error) {
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", common.WrapError(err, "create temp dir")
	}
	stem := strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename))
	f, err := os.CreateTemp(p.tempDir, stem+"-*."+ext)
	if err != nil {
		return "", common.WrapError(err, "create staged file")
	}
	if _, err := io.Copy(f, up.Content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", common.WrapError(err, "stage upload")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", common.WrapError(err, "close staged file")
	}
	return f.Name(), nil
}

func (p *Pipeline) run(ctx context.Context, job task.Job) (string, error) {
	fut, err := p.runner.Submit(ctx, job)
	if err != nil {
		return "", err
	}
	return fut.Wait(ctx)
}

// readSingleResult locates the one result file the task naming pattern
// promises and reads it fully.
func readSingleResult(resultDir string, kind constants.TaskKind) (string, error) {
	entries, err := os.ReadDir(resultDir)
	if err != nil {
		return "", common.WrapError(err, "read result dir")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), kind.ResultSuffix()) {
			data, err := os.ReadFile(filepath.Join(resultDir, e.Name()))
			if err != nil {
				return "", common.WrapError(err, "read result file")
			}
			return string(data), nil
		}
	}
	return "", common.ErrMissingResult
}

func listFiles(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
