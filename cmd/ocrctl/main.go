// Command ocrctl runs recognition and parsing locally through the configured
// model backend, without going through the HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "ocrctl",
	Short: "Run OCR and document parsing locally against the configured model",
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize [file]",
	Short: "Run a single recognition task and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

var parseCmd = &cobra.Command{
	Use:   "parse [pdf-file]",
	Short: "Run a full document parse and print the result directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	recognizeCmd.Flags().StringP("task", "t", "text", "task kind: text, formula or table")
	recognizeCmd.Flags().StringP("output", "o", "", "output directory (default: temp)")
	parseCmd.Flags().StringP("output", "o", "", "output directory (default: temp)")
	rootCmd.AddCommand(recognizeCmd, parseCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	kind := constants.TaskKind(cmd.Flag("task").Value.String())
	if !constants.IsSingleTask(kind) {
		return fmt.Errorf("unknown task kind %q", kind)
	}
	ext := constants.NormalizeExt(filepath.Ext(args[0]))
	if !constants.AllowedExt(ext) {
		return fmt.Errorf("%w: .%s", common.ErrUnsupportedFileType, ext)
	}

	m, cfg := buildModel()
	outDir, err := outputDir(cmd, string(kind))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Tasks.Timeout)
	defer cancel()

	resultDir, err := m.Recognize(ctx, args[0], outDir, kind)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(resultDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), kind.ResultSuffix()) {
			data, err := os.ReadFile(filepath.Join(resultDir, e.Name()))
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		}
	}
	return common.ErrMissingResult
}

func runParse(cmd *cobra.Command, args []string) error {
	if constants.NormalizeExt(filepath.Ext(args[0])) != "pdf" {
		return fmt.Errorf("%w: only PDF files are supported for document parsing", common.ErrUnsupportedFileType)
	}
	m, cfg := buildModel()
	outDir, err := outputDir(cmd, "parse")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Tasks.Timeout)
	defer cancel()

	start := time.Now()
	resultDir, err := m.Parse(ctx, args[0], outDir)
	if err != nil {
		return err
	}
	fmt.Printf("result directory: %s (%.1fs)\n", resultDir, time.Since(start).Seconds())
	return nil
}

func buildModel() (model.Model, *common.Config) {
	cfg := common.LoadConfig()
	if cfg.Model.Backend == "tesseract" {
		return model.NewTesseractModel(slog.Default()), cfg
	}
	return model.NewCLIModel(model.CLIConfig{
		Bin:        cfg.Model.Bin,
		ConfigPath: cfg.Model.ConfigPath,
	}, nil, slog.Default()), cfg
}

func outputDir(cmd *cobra.Command, kind string) (string, error) {
	if dir := cmd.Flag("output").Value.String(); dir != "" {
		return dir, os.MkdirAll(dir, 0o755)
	}
	return os.MkdirTemp("", kind+"_")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
