package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sales-dashboard/internal/history"
	"sales-dashboard/internal/models"
)

func sseRequest(t *testing.T, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestSSEHandlers_HeaderConsistency(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "menu.csv")
	handlers := NewSSEHandlers(env.processor.History(), env.logger)

	sseEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"charts", handlers.HandleCharts},
		{"segments", handlers.HandleSegments},
		{"history", handlers.HandleHistory},
	}

	for _, endpoint := range sseEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			w := sseRequest(t, endpoint.handler)

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("expected cache-control 'no-cache', got %q", cc)
			}
			body := w.Body.String()
			if !strings.Contains(body, "event:") || !strings.Contains(body, "data:") {
				t.Error("response should contain SSE event format")
			}
		})
	}
}

func TestSSEHandlers_Empty(t *testing.T) {
	handlers := NewSSEHandlers(history.NewStore(), testLogger())

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"charts", handlers.HandleCharts, "No dataset loaded"},
		{"segments", handlers.HandleSegments, "No dataset loaded"},
		{"history", handlers.HandleHistory, "No datasets loaded yet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := sseRequest(t, tt.handler).Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("response should contain %q, got %q", tt.want, body)
			}
		})
	}
}

func TestSSEHandlers_HandleCharts(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "menu.csv")
	handlers := NewSSEHandlers(env.processor.History(), env.logger)

	body := sseRequest(t, handlers.HandleCharts).Body.String()

	for _, want := range []string{
		"datastar-patch-signals",
		"top_products",
		"category_distribution",
		"cluster_distribution",
		"total_sales",
		"Analysis of menu.csv",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}
}

func TestSSEHandlers_HandleSegments(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "menu.csv")
	handlers := NewSSEHandlers(env.processor.History(), env.logger)

	body := sseRequest(t, handlers.HandleSegments).Body.String()
	if !strings.Contains(body, "segments-content") || !strings.Contains(body, "Segment 1") {
		t.Errorf("segment table not patched: %q", body)
	}
	if !strings.Contains(body, "Rp ") {
		t.Error("segment sales should be formatted as rupiah")
	}
}

func TestSSEHandlers_HandleSegments_Failed(t *testing.T) {
	store := history.NewStore()
	store.Append(&models.Dataset{
		SourceFilename: "tiny.csv",
		Clustering:     &models.ClusteringResult{Error: "not enough data for clustering (minimum 3 data points)"},
	})
	handlers := NewSSEHandlers(store, testLogger())

	body := sseRequest(t, handlers.HandleSegments).Body.String()
	if !strings.Contains(body, "Segmentation unavailable: not enough data") {
		t.Errorf("failure reason not shown: %q", body)
	}
}

func TestSSEHandlers_HandleHistory(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "first.csv")
	env.load(t, "second.csv")
	handlers := NewSSEHandlers(env.processor.History(), env.logger)

	body := sseRequest(t, handlers.HandleHistory).Body.String()
	for _, want := range []string{"history-content", "first.csv", "second.csv", "/api/history/0/select", "Combine all"} {
		if !strings.Contains(body, want) {
			t.Errorf("history should contain %q", want)
		}
	}
	if strings.Contains(body, "/api/history/1/select") {
		t.Error("active dataset should not offer a select button")
	}
}

func TestSSEHandlers_renderHistory_Escapes(t *testing.T) {
	handlers := NewSSEHandlers(history.NewStore(), testLogger())

	html, err := handlers.renderHistory([]models.DatasetSummary{{Filename: "<script>.csv", Active: true}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("filename not escaped: %s", html)
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{1000, "Rp 1.000"},
		{1234.6, "Rp 1.235"},
		{1234567, "Rp 1.234.567"},
		{-2500000, "-Rp 2.500.000"},
	}
	for _, tt := range tests {
		if got := formatRupiah(tt.in); got != tt.want {
			t.Errorf("formatRupiah(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
