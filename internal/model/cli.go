package model

import (
	"context"
	"log/slog"
	"os"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
)

// CLIConfig configures the exec-backed model.
type CLIConfig struct {
	Bin        string // model binary name or path
	ConfigPath string // model config file passed on every invocation
}

// CLIModel invokes the external model binary for each task. The binary owns
// all recognition logic; this type only shells out and reports the output
// directory back.
type CLIModel struct {
	cfg    CLIConfig
	runner Runner
	logger *slog.Logger
	loaded bool
}

func NewCLIModel(cfg CLIConfig, runner Runner, logger *slog.Logger) *CLIModel {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	loaded := false
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err == nil {
			loaded = true
		} else {
			logger.Error("model config not readable", "path", cfg.ConfigPath, "error", err)
		}
	}
	return &CLIModel{cfg: cfg, runner: runner, logger: logger, loaded: loaded}
}

func (m *CLIModel) Loaded() bool { return m.loaded }

func (m *CLIModel) Recognize(ctx context.Context, inputPath, outputDir string, kind constants.TaskKind) (string, error) {
	if !m.loaded {
		return "", common.ErrModelNotInitialized
	}
	_, err := m.runner.Run(ctx, m.cfg.Bin,
		"recognize",
		"--config", m.cfg.ConfigPath,
		"--task", kind.String(),
		"--input", inputPath,
		"--output", outputDir,
	)
	if err != nil {
		return "", common.WrapError(err, "model recognize")
	}
	return outputDir, nil
}

func (m *CLIModel) Parse(ctx context.Context, inputPath, outputDir string) (string, error) {
	if !m.loaded {
		return "", common.ErrModelNotInitialized
	}
	_, err := m.runner.Run(ctx, m.cfg.Bin,
		"parse",
		"--config", m.cfg.ConfigPath,
		"--input", inputPath,
		"--output", outputDir,
	)
	if err != nil {
		return "", common.WrapError(err, "model parse")
	}
	return outputDir, nil
}
