package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
)

func openTestStore(t *testing.T) *MetadataStore {
	t.Helper()
	m, err := OpenMetadata(context.Background(), filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("OpenMetadata() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMetadataStore_SaveList(t *testing.T) {
	ctx := context.Background()
	m := openTestStore(t)

	first := DatasetMeta{
		ID:           "a",
		Filename:     "laporan.pdf",
		UploadTime:   time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		RecordCount:  12,
		TotalSales:   2_867_497_901,
		SnapshotPath: "processed_data/processed_20250314_090000.csv",
		AnalysisOK:   true,
	}
	second := DatasetMeta{
		ID:          "b",
		Filename:    "menu.csv",
		UploadTime:  time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
		RecordCount: 3,
		TotalSales:  1500,
	}
	for _, meta := range []DatasetMeta{second, first} {
		if err := m.Save(ctx, meta); err != nil {
			t.Fatalf("Save(%s) error = %v", meta.ID, err)
		}
	}

	got, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]DatasetMeta{first, second}, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	// saving the same id replaces the row
	first.ClusteringOK = true
	if err := m.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	got, _ = m.List(ctx)
	if len(got) != 2 || !got[0].ClusteringOK {
		t.Errorf("after replace: %+v", got)
	}
}

func TestMetadataStore_DeleteClear(t *testing.T) {
	ctx := context.Background()
	m := openTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := m.Save(ctx, DatasetMeta{ID: id, Filename: id, UploadTime: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ := m.List(ctx)
	if len(got) != 2 {
		t.Errorf("rows after delete = %d, want 2", len(got))
	}

	n, err := m.Clear(ctx)
	if err != nil || n != 2 {
		t.Errorf("Clear() = %d, %v; want 2", n, err)
	}
}

func TestMetaFromDataset(t *testing.T) {
	ds := &models.Dataset{
		ID:             "x",
		SourceFilename: "r.pdf",
		Records:        []models.ProductRecord{{Sales: 10}, {Sales: 32.5}},
		Analysis:       &models.AnalysisResult{Success: true},
		Clustering:     &models.ClusteringResult{Success: false},
	}
	meta := MetaFromDataset(ds)
	if meta.RecordCount != 2 || meta.TotalSales != 42.5 || !meta.AnalysisOK || meta.ClusteringOK {
		t.Errorf("MetaFromDataset() = %+v", meta)
	}
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	f, err := NewFiles(filepath.Join(root, "uploads"), filepath.Join(root, "processed"))
	if err != nil {
		t.Fatal(err)
	}
	f.now = func() time.Time { return time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC) }

	path, err := f.SaveUpload("../../Laporan Maret.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if dir, base := filepath.Split(path); dir != filepath.Join(root, "uploads")+string(filepath.Separator) ||
		!strings.HasPrefix(base, "Laporan_Maret_") || !strings.HasSuffix(base, ".pdf") {
		t.Errorf("SaveUpload() path = %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "%PDF-1.4" {
		t.Errorf("stored content = %q", data)
	}

	again, err := f.SaveUpload("../../Laporan Maret.pdf", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("second SaveUpload() error = %v", err)
	}
	if again == path {
		t.Errorf("same client filename stored twice at %q", path)
	}
	if data, _ := os.ReadFile(path); string(data) != "%PDF-1.4" {
		t.Errorf("first upload overwritten: %q", data)
	}

	first, second := f.ProcessedPath(), f.ProcessedPath()
	prefix := filepath.Join(root, "processed", "processed_20250314_150405_")
	for _, got := range []string{first, second} {
		if !strings.HasPrefix(got, prefix) || !strings.HasSuffix(got, ".csv") {
			t.Errorf("ProcessedPath() = %q, want prefix %q", got, prefix)
		}
	}
	if first == second {
		t.Errorf("ProcessedPath() repeated %q within one second", first)
	}

	if _, err := f.SaveUpload("..", strings.NewReader("")); err == nil {
		t.Error("expected error for empty sanitised name")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.csv":          "report.csv",
		"/etc/passwd":         "passwd",
		`C:\tmp\sales 1.pdf`:  "sales_1.pdf",
		".hidden":             "hidden",
		"laporan-(final).pdf": "laporan-final.pdf",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
