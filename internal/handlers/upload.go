package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/storage"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	processTimeout = 2 * time.Minute
	formMemory     = 8 << 20
)

var allowedExtensions = map[string]bool{".pdf": true, ".csv": true}

type UploadHandlers struct {
	processor *services.Processor
	files     *storage.Files
	maxBytes  int64
	logger    *slog.Logger
}

func NewUploadHandlers(processor *services.Processor, files *storage.Files, maxBytes int64, logger *slog.Logger) *UploadHandlers {
	return &UploadHandlers{
		processor: processor,
		files:     files,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

func (h *UploadHandlers) HandleForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Upload(h.maxBytes).Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// HandleUpload stores the uploaded report, processes it and makes it the
// active dataset. Browsers are redirected to the dashboard; other clients
// get the dataset summary as JSON.
func (h *UploadHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			errors.WriteError(w, h.logger, errors.TooLarge(fmt.Sprintf("file exceeds %d bytes", h.maxBytes)), requestID)
			return
		}
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid upload form"), requestID)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		errors.WriteError(w, h.logger, errors.Validation("no file selected"), requestID)
		return
	}
	defer file.Close()

	if !allowedExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		errors.WriteError(w, h.logger, errors.Unsupported("only PDF and CSV files are accepted"), requestID)
		return
	}

	path, err := h.files.SaveUpload(header.Filename, file)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "could not store the upload"), requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), processTimeout)
	defer cancel()

	ds, err := h.processor.Process(ctx, header.Filename, path)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"id":            ds.ID,
		"filename":      ds.SourceFilename,
		"records":       ds.Len(),
		"analysis_ok":   ds.Analysis.Success,
		"clustering_ok": ds.Clustering.Success,
		"active_index":  h.processor.History().ActiveIndex(),
	})
}
