package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sales-dashboard/internal/cluster"
	"sales-dashboard/internal/extract"
	"sales-dashboard/internal/history"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/storage"
)

const menuCSV = `produk,jumlah_terjual,penjualan_rp,kategori
Paket Ayam Geprek,100,5000000,Paket Ayam
Es Teh Manis,300,1500000,Minuman
Kentang Goreng,50,1000000,Snack
Paket Ayam Bakar,80,2500000,Paket Ayam
Jus Alpukat,40,900000,Jus
`

type testEnv struct {
	processor *services.Processor
	meta      *storage.MetadataStore
	files     *storage.Files
	logger    *slog.Logger
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	meta, err := storage.OpenMetadata(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { meta.Close() })

	root := t.TempDir()
	files, err := storage.NewFiles(filepath.Join(root, "uploads"), filepath.Join(root, "processed"))
	if err != nil {
		t.Fatal(err)
	}

	processor := services.NewProcessor(
		extract.NewPipeline(extract.DefaultHeuristics(), logger),
		services.NewAnalyzer(services.DefaultTopN, logger),
		cluster.New(cluster.DefaultOptions(), logger),
		history.NewStore(),
		meta,
		files,
		logger,
	)
	return &testEnv{processor: processor, meta: meta, files: files, logger: logger}
}

// load processes menuCSV under filename and makes it active.
func (e *testEnv) load(t *testing.T, filename string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	if err := os.WriteFile(path, []byte(menuCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.processor.Process(context.Background(), filename, path); err != nil {
		t.Fatalf("Process(%s) error = %v", filename, err)
	}
}

func (e *testEnv) api() *APIHandlers {
	return NewAPIHandlers(e.processor, e.meta, e.logger)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return response
}

func errorCode(response map[string]any) string {
	e, _ := response["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	env := newTestEnv(t)
	handlers := env.api()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	response := decode(t, w)
	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatal("expected health data in response")
	}
	if status, _ := data["status"].(string); status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", status)
	}
	timestamp, _ := data["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
		t.Errorf("invalid timestamp format: %v", err)
	}
}

func TestAPIHandlers_HandleHealth_StoreClosed(t *testing.T) {
	env := newTestEnv(t)
	handlers := env.api()
	env.meta.Close()

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	if code := errorCode(decode(t, w)); code != "SERVICE_UNAVAILABLE" {
		t.Errorf("error code = %q", code)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "menu.csv")
	handlers := env.api()

	w := httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["datasets_loaded"] != float64(1) || data["datasets_stored"] != float64(1) {
		t.Errorf("unexpected dataset counts: %v", data)
	}
	if data["records_stored"] != float64(5) {
		t.Errorf("records_stored = %v, want 5", data["records_stored"])
	}
}

func TestAPIHandlers_NoDataset(t *testing.T) {
	env := newTestEnv(t)
	handlers := env.api()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		path    string
	}{
		{"analysis", handlers.HandleAnalysis, "/api/analysis"},
		{"clustering", handlers.HandleClustering, "/api/clustering"},
		{"export", handlers.HandleExport, "/export"},
		{"remove-active", handlers.HandleRemoveActive, "/api/history/active"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", w.Code)
			}
			response := decode(t, w)
			if success, _ := response["success"].(bool); success {
				t.Error("expected success=false")
			}
			if code := errorCode(response); code != "NOT_FOUND" {
				t.Errorf("error code = %q, want NOT_FOUND", code)
			}
		})
	}
}

func TestAPIHandlers_AnalysisAndClustering(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "menu.csv")
	handlers := env.api()

	w := httptest.NewRecorder()
	handlers.HandleAnalysis(w, httptest.NewRequest(http.MethodGet, "/api/analysis", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("analysis status = %d", w.Code)
	}
	analysis := decode(t, w)["data"].(map[string]any)
	if analysis["success"] != true {
		t.Fatalf("analysis not successful: %v", analysis)
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("content-type = %q", w.Header().Get("Content-Type"))
	}

	w = httptest.NewRecorder()
	handlers.HandleClustering(w, httptest.NewRequest(http.MethodGet, "/api/clustering", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("clustering status = %d", w.Code)
	}
	clustering := decode(t, w)["data"].(map[string]any)
	if clustering["success"] != true {
		t.Errorf("clustering not successful: %v", clustering)
	}
}

func TestAPIHandlers_HandleSelect(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "first.csv")
	env.load(t, "second.csv")
	handlers := env.api()

	tests := []struct {
		index      string
		wantStatus int
		wantFile   string
	}{
		{"0", http.StatusOK, "first.csv"},
		{"1", http.StatusOK, "second.csv"},
		{"2", http.StatusNotFound, ""},
		{"-1", http.StatusNotFound, ""},
		{"abc", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/history/"+tt.index+"/select", nil)
			req.SetPathValue("index", tt.index)
			w := httptest.NewRecorder()

			handlers.HandleSelect(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantFile == "" {
				return
			}
			data := decode(t, w)["data"].(map[string]any)
			if data["filename"] != tt.wantFile {
				t.Errorf("filename = %v, want %s", data["filename"], tt.wantFile)
			}
			if got := env.processor.History().ActiveIndex(); got != int(data["index"].(float64)) {
				t.Errorf("active index = %d", got)
			}
		})
	}
}

func TestAPIHandlers_HandleCombine(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "first.csv")
	handlers := env.api()

	w := httptest.NewRecorder()
	handlers.HandleCombine(w, httptest.NewRequest(http.MethodPost, "/api/history/combine", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("combine with one dataset: status = %d, want 422", w.Code)
	}

	env.load(t, "second.csv")
	w = httptest.NewRecorder()
	handlers.HandleCombine(w, httptest.NewRequest(http.MethodPost, "/api/history/combine", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("combine status = %d", w.Code)
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["records"] != float64(10) {
		t.Errorf("records = %v, want 10", data["records"])
	}
	if name, _ := data["filename"].(string); !strings.HasPrefix(name, "Combined_") {
		t.Errorf("filename = %q", name)
	}
	if env.processor.History().Len() != 3 {
		t.Errorf("history length = %d, want 3", env.processor.History().Len())
	}
}

func TestAPIHandlers_HistoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "first.csv")
	env.load(t, "second.csv")
	handlers := env.api()

	w := httptest.NewRecorder()
	handlers.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	list := decode(t, w)["data"].([]any)
	if len(list) != 2 {
		t.Fatalf("history length = %d, want 2", len(list))
	}
	if last := list[1].(map[string]any); last["active"] != true {
		t.Errorf("latest upload should be active: %v", last)
	}

	w = httptest.NewRecorder()
	handlers.HandleRemoveActive(w, httptest.NewRequest(http.MethodDelete, "/api/history/active", nil))
	data := decode(t, w)["data"].(map[string]any)
	if data["removed"] != "second.csv" || data["active_index"] != float64(0) {
		t.Errorf("remove active = %v", data)
	}

	w = httptest.NewRecorder()
	handlers.HandleClearHistory(w, httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	data = decode(t, w)["data"].(map[string]any)
	if data["removed"] != float64(1) {
		t.Errorf("cleared = %v, want 1", data["removed"])
	}

	rows, err := env.meta.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("metadata rows left after clear: %d", len(rows))
	}
}

func TestAPIHandlers_HandleExport(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "menu report.csv")
	handlers := env.api()

	w := httptest.NewRecorder()
	handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/export", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content-type = %q", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, "_export.csv") {
		t.Errorf("content-disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("exported %d lines, want header plus 5 rows", len(lines))
	}
	if lines[0] != "product,quantity_sold,sales_amount,category" {
		t.Errorf("header = %q", lines[0])
	}
}
