// Package model is the boundary to the external OCR/document-parsing model.
// Everything about how recognition works lives on the far side of this
// interface; callers only hand over paths and collect an output directory.
package model

import (
	"context"

	"github.com/jaehyun-song/ocr-gateway/constants"
)

// Model runs OCR and document-parsing work. Implementations are expected to
// write their outputs under outputDir and return the directory that holds the
// results, which may be outputDir itself or a subdirectory of it.
type Model interface {
	// Recognize runs a single-task recognition (text, formula or table) on
	// inputPath and returns the result directory.
	Recognize(ctx context.Context, inputPath, outputDir string, kind constants.TaskKind) (string, error)

	// Parse runs full document parsing on a PDF and returns the result directory.
	Parse(ctx context.Context, inputPath, outputDir string) (string, error)

	// Loaded reports whether the model is ready to take work.
	Loaded() bool
}
