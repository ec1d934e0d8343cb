package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/jaehyun-song/ocr-gateway/constants"
)

// Job is one unit of model work. Immutable once submitted.
type Job struct {
	ID          uuid.UUID
	Kind        constants.TaskKind
	InputPath   string
	OutputDir   string
	SubmittedAt time.Time
}

// NewJob stamps a job with an id and submission time.
func NewJob(kind constants.TaskKind, inputPath, outputDir string) Job {
	return Job{
		ID:          uuid.New(),
		Kind:        kind,
		InputPath:   inputPath,
		OutputDir:   outputDir,
		SubmittedAt: time.Now().UTC(),
	}
}
