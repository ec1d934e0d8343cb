package model

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// stderrTailCap bounds how much model stderr is kept for logs and errors.
const stderrTailCap = 4 << 10

// Runner shells out to the model binary; tests substitute their own.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct {
	logger *slog.Logger
}

// NewExecRunner returns a Runner backed by exec.CommandContext. Command
// failures come back annotated with the tail of stderr, since the model
// binary reports its diagnostics there.
func NewExecRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return execRunner{logger: logger}
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if err != nil {
		tail := stderrTail(stderr.Bytes())
		r.logger.Error("model.exec.failed",
			"bin", name,
			"args", args,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
			"stderr", tail,
		)
		if tail != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, tail)
		}
		return stdout.Bytes(), err
	}

	r.logger.Debug("model.exec.ok",
		"bin", name,
		"args", args,
		"duration_ms", elapsed.Milliseconds(),
		"stdout_bytes", stdout.Len(),
	)
	return stdout.Bytes(), nil
}

// stderrTail keeps the last stderrTailCap bytes, where the actionable part of
// a long traceback lives.
func stderrTail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > stderrTailCap {
		b = b[len(b)-stderrTailCap:]
	}
	return string(b)
}
