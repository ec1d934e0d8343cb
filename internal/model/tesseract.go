package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
)

// TesseractModel is a minimal embedded backend for deployments without the
// external model binary. It handles text recognition on images only; formula,
// table and full-parse tasks need the cli backend.
type TesseractModel struct {
	logger *slog.Logger
}

func NewTesseractModel(logger *slog.Logger) *TesseractModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractModel{logger: logger}
}

func (m *TesseractModel) Loaded() bool { return true }

func (m *TesseractModel) Recognize(ctx context.Context, inputPath, outputDir string, kind constants.TaskKind) (string, error) {
	if kind != constants.TaskText {
		return "", fmt.Errorf("tesseract backend supports text tasks only, got %q", kind)
	}
	if constants.NormalizeExt(filepath.Ext(inputPath)) == "pdf" {
		return "", fmt.Errorf("tesseract backend does not take PDF input")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(inputPath); err != nil {
		return "", common.WrapError(err, "set image")
	}
	text, err := client.Text()
	if err != nil {
		return "", common.WrapError(err, "tesseract recognize")
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	resultPath := filepath.Join(outputDir, stem+kind.ResultSuffix())
	if err := os.WriteFile(resultPath, []byte(text), 0o644); err != nil {
		return "", common.WrapError(err, "write result")
	}
	m.logger.Debug("tesseract.recognize.ok", "input", inputPath, "result", resultPath, "bytes", len(text))
	return outputDir, nil
}

func (m *TesseractModel) Parse(ctx context.Context, inputPath, outputDir string) (string, error) {
	return "", fmt.Errorf("tesseract backend does not support document parsing")
}
