package cluster

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func qty(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func record(name, category string, sales, quantity float64) models.ProductRecord {
	return models.ProductRecord{Name: name, Category: category, Sales: sales, Quantity: qty(quantity)}
}

func newDataset(records ...models.ProductRecord) *models.Dataset {
	return &models.Dataset{
		SourceFilename: "test.csv",
		Columns:        models.CanonicalSchema(),
		Records:        records,
	}
}

// threeGroups has twelve rows in three clearly separated sales bands.
func threeGroups() *models.Dataset {
	var recs []models.ProductRecord
	for i := range 4 {
		recs = append(recs, record(fmt.Sprintf("Ayam %d", i), "Paket Ayam", 80_000_000+float64(i)*1_000_000, 4000+float64(i)*10))
	}
	for i := range 4 {
		recs = append(recs, record(fmt.Sprintf("Teh %d", i), "Minuman", 20_000_000+float64(i)*500_000, 2000+float64(i)*10))
	}
	for i := range 4 {
		recs = append(recs, record(fmt.Sprintf("Kentang %d", i), "Snack", 500_000+float64(i)*10_000, 50+float64(i)))
	}
	return newDataset(recs...)
}

func TestBuildFeatures_ColumnOrder(t *testing.T) {
	ds := newDataset(
		record("A", "Snack", 100, 10),
		record("B", "Minuman", 300, 20),
		record("C", "Snack", 250, 0),
	)
	table := BuildFeatures(ds)

	want := []string{
		FeatureTotalSales,
		FeatureSalesPerUnit,
		FeatureQuantity,
		"cat_Minuman",
		"cat_Snack",
		FeatureProfitability,
	}
	if diff := cmp.Diff(want, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if table.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", table.NumRows())
	}
	// zero quantity divides by 1
	if got := table.Rows[2][1]; got != 250 {
		t.Errorf("sales_per_unit with zero quantity = %v, want 250", got)
	}
}

func TestBuildFeatures_DropsConstantColumns(t *testing.T) {
	ds := newDataset(
		record("A", "Snack", 100, 5),
		record("B", "Snack", 200, 5),
		record("C", "Snack", 300, 5),
	)
	table := BuildFeatures(ds)

	// quantity, the single category and profitability are all constant or
	// undefined; sales_per_unit still varies.
	want := []string{FeatureTotalSales, FeatureSalesPerUnit}
	if diff := cmp.Diff(want, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFeatures_NoUsableColumns(t *testing.T) {
	ds := newDataset(record("A", "Snack", 100, 5), record("B", "Snack", 100, 5))
	if table := BuildFeatures(ds); !table.Empty() {
		t.Errorf("expected empty table, got columns %v", table.Columns)
	}
}

func TestStandardize(t *testing.T) {
	got := standardize([][]float64{{1, 7}, {3, 7}})
	want := [][]float64{{-1, 0}, {1, 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("standardize mismatch (-want +got):\n%s", diff)
	}
}

func TestKMeans_Deterministic(t *testing.T) {
	points := [][]float64{{0, 0}, {0, 1}, {10, 10}, {10, 11}, {20, 0}, {21, 0}}
	km := KMeans{K: 3, Restarts: 10, MaxIter: 300, Seed: 42}

	a, err := km.Fit(points)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	b, err := km.Fit(points)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if diff := cmp.Diff(a.Labels, b.Labels); diff != "" {
		t.Errorf("labels differ between runs:\n%s", diff)
	}
	if a.Labels[0] != a.Labels[1] || a.Labels[2] != a.Labels[3] || a.Labels[4] != a.Labels[5] {
		t.Errorf("pairs not grouped together: %v", a.Labels)
	}
	if math.Abs(a.Inertia-1.5) > 1e-9 {
		t.Errorf("inertia = %v, want 1.5", a.Inertia)
	}
}

func TestKMeans_Errors(t *testing.T) {
	km := KMeans{K: 3, Seed: 1}
	if _, err := km.Fit([][]float64{{1}, {2}}); err == nil {
		t.Error("expected error for k > rows")
	}
	km.K = 1
	if _, err := km.Fit([][]float64{{math.NaN()}}); err == nil {
		t.Error("expected error for NaN input")
	}
}

func TestSilhouette(t *testing.T) {
	points := [][]float64{{0}, {1}, {10}, {11}}
	got := Silhouette(points, []int{0, 0, 1, 1})
	// every point has a = 1; b is 10.5 for the outer points and 9.5 for
	// the inner ones.
	want := (2*(1-1/10.5) + 2*(1-1/9.5)) / 4
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Silhouette() = %v, want %v", got, want)
	}

	if s := Silhouette(points, []int{0, 0, 0, 0}); s != 0 {
		t.Errorf("single cluster silhouette = %v, want 0", s)
	}
	if s := Silhouette(points, []int{0, 1, 1, 1}); s >= 1 {
		t.Errorf("singleton cluster should not score 1, got %v", s)
	}
}

func TestSelectK_Bounds(t *testing.T) {
	opts := DefaultOptions()

	small := BuildFeatures(newDataset(
		record("A", "Snack", 1, 1),
		record("B", "Snack", 2, 3),
		record("C", "Snack", 9, 2),
	))
	if k := SelectK(small, opts, quietLogger()); k != 2 {
		t.Errorf("SelectK(3 rows) = %d, want 2", k)
	}

	for _, n := range []int{4, 5, 7, 12, 30} {
		var recs []models.ProductRecord
		for i := range n {
			recs = append(recs, record(fmt.Sprintf("P%d", i), "Snack", float64((i*37)%11+1)*1000, float64(i%5+1)))
		}
		table := BuildFeatures(newDataset(recs...))
		k := SelectK(table, opts, quietLogger())
		if upper := min(6, n-1); k < 2 || k > upper {
			t.Errorf("SelectK(%d rows) = %d, want within [2, %d]", n, k, upper)
		}
	}
}

func TestSelectK_FindsSeparatedGroups(t *testing.T) {
	table := BuildFeatures(threeGroups())
	if k := SelectK(table, DefaultOptions(), quietLogger()); k != 3 {
		t.Errorf("SelectK() = %d, want 3", k)
	}
}

func TestThresholds_Name(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		avg  float64
		want models.SegmentLabel
	}{
		{50_000_001, models.SegmentPremium},
		{50_000_000, models.SegmentHighValue},
		{10_000_001, models.SegmentHighValue},
		{10_000_000, models.SegmentMediumValue},
		{1_000_001, models.SegmentMediumValue},
		{1_000_000, models.SegmentStandard},
		{0, models.SegmentStandard},
	}
	for _, tt := range tests {
		if got := th.Name(tt.avg); got != tt.want {
			t.Errorf("Name(%v) = %q, want %q", tt.avg, got, tt.want)
		}
	}
}

func TestRecommendations_FixedPerLabel(t *testing.T) {
	for _, label := range []models.SegmentLabel{
		models.SegmentPremium, models.SegmentHighValue, models.SegmentMediumValue, models.SegmentStandard,
	} {
		recs := Recommendations(label)
		if len(recs) != 3 {
			t.Errorf("%s: %d recommendations, want 3", label, len(recs))
		}
		recs[0] = "mutated"
		if Recommendations(label)[0] == "mutated" {
			t.Errorf("%s: Recommendations returned shared slice", label)
		}
	}
}

func TestProfile(t *testing.T) {
	ds := newDataset(
		record("A", "Snack", 60_000_000, 10),
		record("B", "Minuman", 70_000_000, 5),
		record("C", "Minuman", 40_000_000, 1),
		record("D", "Snack", 500, 2),
		record("E", "Snack", 500, 2),
	)
	segs := Profile(ds, []int{1, 1, 1, 2, 2}, DefaultThresholds())

	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	one := segs[1]
	if one.Size != 3 || one.TotalSales != 170_000_000 || one.TotalQuantity != 16 {
		t.Errorf("segment 1 totals = %+v", one)
	}
	if one.Label != models.SegmentPremium {
		t.Errorf("segment 1 label = %q, want Premium", one.Label)
	}
	wantCats := []models.CategoryCount{{Category: "Minuman", Count: 2}, {Category: "Snack", Count: 1}}
	if diff := cmp.Diff(wantCats, one.TopCategories); diff != "" {
		t.Errorf("top categories mismatch (-want +got):\n%s", diff)
	}
	wantTop := []models.ProductSales{
		{Product: "B", Sales: 70_000_000},
		{Product: "A", Sales: 60_000_000},
		{Product: "C", Sales: 40_000_000},
	}
	if diff := cmp.Diff(wantTop, one.TopProducts); diff != "" {
		t.Errorf("top products mismatch (-want +got):\n%s", diff)
	}

	two := segs[2]
	if two.Label != models.SegmentStandard {
		t.Errorf("segment 2 label = %q, want Standard", two.Label)
	}
	// equal sales keep insertion order
	if two.TopProducts[0].Product != "D" {
		t.Errorf("tie order = %v, want D first", two.TopProducts)
	}
}

func TestClusterer_Perform(t *testing.T) {
	ds := threeGroups()
	res := New(DefaultOptions(), quietLogger()).Perform(context.Background(), ds)
	if !res.Success {
		t.Fatalf("Perform() failed: %s", res.Error)
	}
	if res.K != 3 {
		t.Errorf("K = %d, want 3", res.K)
	}
	if len(res.Labels) != ds.Len() {
		t.Fatalf("labels = %d, want %d", len(res.Labels), ds.Len())
	}
	for i, l := range res.Labels {
		if l < 1 || l > res.K {
			t.Errorf("label[%d] = %d out of [1, %d]", i, l, res.K)
		}
	}

	total := 0
	for id, seg := range res.Segments {
		if id != seg.ID {
			t.Errorf("segment key %d has id %d", id, seg.ID)
		}
		total += seg.Size
	}
	if total != ds.Len() {
		t.Errorf("segment sizes sum to %d, want %d", total, ds.Len())
	}

	seg := res.Segments[res.Labels[0]]
	if seg.Label != models.SegmentPremium {
		t.Errorf("top band label = %q, want Premium", seg.Label)
	}
	if res.Silhouette <= 0.5 {
		t.Errorf("silhouette = %v, expected well separated groups", res.Silhouette)
	}

	pie := res.Charts["cluster_distribution"]
	if pie.Kind != models.ChartPie || len(pie.Labels) != 3 || pie.Labels[0] != "Segment 1" {
		t.Errorf("cluster_distribution = %+v", pie)
	}
	if bar := res.Charts["sales_by_cluster"]; bar.Kind != models.ChartBar || len(bar.Values) != 3 {
		t.Errorf("sales_by_cluster = %+v", bar)
	}
}

func TestClusterer_Perform_Deterministic(t *testing.T) {
	c := New(DefaultOptions(), quietLogger())
	a := c.Perform(context.Background(), threeGroups())
	b := c.Perform(context.Background(), threeGroups())
	if diff := cmp.Diff(a.Labels, b.Labels); diff != "" {
		t.Errorf("labels differ between runs:\n%s", diff)
	}
}

func TestClusterer_Perform_NotEnoughData(t *testing.T) {
	c := New(DefaultOptions(), quietLogger())
	tests := []struct {
		name string
		ds   *models.Dataset
	}{
		{"two rows", newDataset(record("A", "Snack", 1, 1), record("B", "Minuman", 5, 3))},
		{"no variance", newDataset(record("A", "Snack", 1, 1), record("B", "Snack", 1, 1), record("C", "Snack", 1, 1))},
		{"empty", newDataset()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Perform(context.Background(), tt.ds)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error != ErrNotEnoughData.Error() {
				t.Errorf("error = %q", res.Error)
			}
		})
	}
}

func BenchmarkKMeans(b *testing.B) {
	points := make([][]float64, 500)
	for i := range points {
		g := float64(i % 4)
		points[i] = []float64{g*10 + float64(i%7)/10, g*5 - float64(i%5)/10, float64(i % 3)}
	}
	km := KMeans{K: 4, Restarts: 10, MaxIter: 300, Seed: 42}

	for b.Loop() {
		if _, err := km.Fit(points); err != nil {
			b.Fatal(err)
		}
	}
}
