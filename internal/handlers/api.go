package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/history"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/storage"
)

const version = "1.0.0"

type APIHandlers struct {
	processor *services.Processor
	meta      *storage.MetadataStore
	logger    *slog.Logger
	started   time.Time
}

func NewAPIHandlers(processor *services.Processor, meta *storage.MetadataStore, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		processor: processor,
		meta:      meta,
		logger:    logger,
		started:   time.Now(),
	}
}

func (h *APIHandlers) history() *history.Store { return h.processor.History() }

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func noDataset() error {
	return errors.NotFound("no dataset loaded, upload a sales report first")
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.meta.Ping(r.Context()); err != nil {
		h.fail(w, r, errors.ServiceUnavailableWrap(err, "metadata store unavailable"))
		return
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.meta.List(r.Context())
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "could not read dataset metadata"))
		return
	}

	totalRecords := 0
	for _, row := range rows {
		totalRecords += row.RecordCount
	}
	errors.WriteSuccess(w, map[string]any{
		"datasets_loaded": h.history().Len(),
		"active_index":    h.history().ActiveIndex(),
		"datasets_stored": len(rows),
		"records_stored":  totalRecords,
		"uptime":          time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *APIHandlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	ds, err := h.history().Active()
	if err != nil {
		h.fail(w, r, noDataset())
		return
	}
	errors.WriteSuccess(w, ds.Analysis)
}

func (h *APIHandlers) HandleClustering(w http.ResponseWriter, r *http.Request) {
	ds, err := h.history().Active()
	if err != nil {
		h.fail(w, r, noDataset())
		return
	}
	errors.WriteSuccess(w, ds.Clustering)
}

func (h *APIHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.history().List())
}

func (h *APIHandlers) HandleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "dataset index must be a number"))
		return
	}

	ds, err := h.processor.Select(index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("dataset selected", "index", index, "filename", ds.SourceFilename)
	errors.WriteSuccess(w, map[string]any{
		"index":    index,
		"id":       ds.ID,
		"filename": ds.SourceFilename,
	})
}

func (h *APIHandlers) HandleCombine(w http.ResponseWriter, r *http.Request) {
	ds, err := h.processor.Combine(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, map[string]any{
		"id":       ds.ID,
		"filename": ds.SourceFilename,
		"records":  ds.Len(),
	})
}

func (h *APIHandlers) HandleRemoveActive(w http.ResponseWriter, r *http.Request) {
	ds, err := h.processor.RemoveActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, map[string]any{
		"removed":      ds.SourceFilename,
		"active_index": h.history().ActiveIndex(),
	})
}

func (h *APIHandlers) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	n := h.processor.Clear(r.Context())
	errors.WriteSuccess(w, map[string]int{"removed": n})
}

// HandleExport downloads the active dataset as CSV.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	ds, err := h.history().Active()
	if err != nil {
		h.fail(w, r, noDataset())
		return
	}

	name := strings.TrimSuffix(ds.SourceFilename, filepath.Ext(ds.SourceFilename))
	name = storage.SanitizeFilename(name)
	if name == "" {
		name = "dataset"
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_export.csv"`, name))
	if err := dataset.WriteCSV(w, ds); err != nil {
		h.logger.Error("export failed", "dataset", ds.ID, "error", err)
	}
}
