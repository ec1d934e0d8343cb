package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/logship"
	"github.com/jaehyun-song/ocr-gateway/internal/pipeline"
)

const version = "1.0.0"

type Handler struct {
	MaxUploadBytes int64
	Pipeline       *pipeline.Pipeline
	Shipper        *logship.Shipper
	ArchiveDir     string
	Logger         *slog.Logger
}

func NewHandler(p *pipeline.Pipeline, shipper *logship.Shipper, archiveDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		MaxUploadBytes: 100 << 20,
		Pipeline:       p,
		Shipper:        shipper,
		ArchiveDir:     archiveDir,
		Logger:         logger,
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OCR gateway is running",
		"version": version,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"model_loaded": h.Pipeline.ModelLoaded(),
	})
}

// OCRTask serves POST /ocr/{task}. Task failures are answered in-band with
// success=false; callers check the body, not the status code.
func (h *Handler) OCRTask(w http.ResponseWriter, r *http.Request) {
	kind := constants.TaskKind(r.PathValue("task"))
	if !constants.IsSingleTask(kind) {
		writeDetail(w, http.StatusNotFound, "unknown task type")
		return
	}
	up, closeUpload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer closeUpload()

	writeJSON(w, http.StatusOK, h.Pipeline.RunSingleTask(r.Context(), up, kind))
}

type s3Request struct {
	S3URL string `json:"s3_url"`
}

func (h *Handler) OCRTextFromS3(w http.ResponseWriter, r *http.Request) {
	var req s3Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.S3URL == "" {
		writeDetail(w, http.StatusBadRequest, "s3_url is required")
		return
	}
	writeJSON(w, http.StatusOK, h.Pipeline.RunFromS3(r.Context(), req.S3URL, constants.TaskText))
}

// Parse serves POST /parse. Unlike the single-task family, validation and
// catastrophic failures map onto status codes here.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	up, closeUpload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer closeUpload()

	res, err := h.Pipeline.RunFullParse(r.Context(), up)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnsupportedFileType):
			writeDetail(w, http.StatusBadRequest, "Only PDF files are supported for document parsing")
		case errors.Is(err, common.ErrModelNotInitialized):
			writeDetail(w, http.StatusInternalServerError, "Model not initialized")
		default:
			writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Parsing failed: %v", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if !safeName(filename) {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	path := filepath.Join(h.ArchiveDir, filename)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	if !safeName(taskID) {
		writeDetail(w, http.StatusNotFound, "Results not found")
		return
	}
	files, dir, err := h.Pipeline.ListResults(taskID)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Results not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":      files,
		"result_dir": dir,
	})
}

// UploadLogs ships the log bundle to object storage. Failures are in-band,
// like the single-task family.
func (h *Handler) UploadLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.Shipper.Ship(r.Context()); err != nil {
		h.Logger.Error("logship.failed", "error", err)
		writeJSON(w, http.StatusOK, pipeline.TaskResult{
			Success:  false,
			TaskType: "Log",
			Message:  fmt.Sprintf("log upload failed: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, pipeline.TaskResult{
		Success:  true,
		TaskType: "Log",
		Message:  "log files uploaded to object storage",
	})
}

// readUpload pulls the multipart "file" field. A missing field is a request
// shape problem, answered at the transport level for every endpoint family.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Upload, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return pipeline.Upload{}, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file field is required")
		return pipeline.Upload{}, nil, false
	}
	closeUpload := func() { file.Close() }
	return pipeline.Upload{Filename: header.Filename, Content: file}, closeUpload, true
}

// safeName rejects path traversal in user-supplied path segments.
func safeName(s string) bool {
	return s != "" && !strings.ContainsAny(s, `/\`) && s != "." && s != ".."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
