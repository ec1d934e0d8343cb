package server

import "net/http"

// NewRouter wires the HTTP surface. The archive directory is also mounted
// statically so download URLs resolve without the dedicated endpoint.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /ocr/{task}", h.OCRTask)
	mux.HandleFunc("POST /ocr/text/s3_url", h.OCRTextFromS3)
	mux.HandleFunc("POST /parse", h.Parse)

	mux.HandleFunc("GET /download/{filename}", h.Download)
	mux.HandleFunc("GET /results/{task_id}", h.Results)
	mux.HandleFunc("POST /logs/upload", h.UploadLogs)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.ArchiveDir))))

	return mux
}
