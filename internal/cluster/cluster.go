// Package cluster segments product rows with k-means and describes each
// segment.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// MinRows is the smallest dataset that can be segmented.
const MinRows = 3

var ErrNotEnoughData = errors.New("not enough data for clustering (minimum 3 data points)")

// Options configure a clustering run.
type Options struct {
	MaxClusters int
	Restarts    int
	MaxIter     int
	Seed        uint64
	Thresholds  Thresholds
}

func DefaultOptions() Options {
	return Options{
		MaxClusters: 6,
		Restarts:    10,
		MaxIter:     300,
		Seed:        42,
		Thresholds:  DefaultThresholds(),
	}
}

func (o Options) kmeans(k int) KMeans {
	return KMeans{K: k, Restarts: o.Restarts, MaxIter: o.MaxIter, Seed: o.Seed}
}

// Assignment is the outcome of Segment. Labels are 1-based and label i
// belongs to Centers[i-1].
type Assignment struct {
	Labels     []int
	Centers    [][]float64
	Inertia    float64
	Silhouette float64
}

// Segment standardises table and partitions it into k clusters.
func Segment(table *FeatureTable, k int, opts Options) (*Assignment, error) {
	scaled := standardize(table.Rows)
	fit, err := opts.kmeans(k).Fit(scaled)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(fit.Labels))
	for i, l := range fit.Labels {
		labels[i] = l + 1
	}
	return &Assignment{
		Labels:     labels,
		Centers:    fit.Centers,
		Inertia:    fit.Inertia,
		Silhouette: Silhouette(scaled, fit.Labels),
	}, nil
}

// Clusterer runs the full segmentation pipeline. It keeps no state between
// runs, so one value may serve concurrent callers.
type Clusterer struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Clusterer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clusterer{opts: opts, logger: logger}
}

// Perform segments ds. It never returns an error: insufficient data and
// internal failures come back as a result with Success false.
func (c *Clusterer) Perform(ctx context.Context, ds *models.Dataset) (res *models.ClusteringResult) {
	ctx, span := observability.StartSpan(ctx, "cluster.perform")
	defer span.End(ctx, c.logger)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("clustering panicked: %v", r)
			c.logger.Error("clustering failed", "error", err)
			span.SetError(err)
			res = failure(err)
		}
	}()

	res, err := c.perform(ds)
	if err != nil {
		c.logger.Warn("clustering not performed", "dataset", ds.SourceFilename, "error", err)
		span.SetError(err)
		return failure(err)
	}
	return res
}

func (c *Clusterer) perform(ds *models.Dataset) (*models.ClusteringResult, error) {
	table := BuildFeatures(ds)
	if table.Empty() || table.NumRows() < MinRows {
		return nil, ErrNotEnoughData
	}

	k := SelectK(table, c.opts, c.logger)
	assign, err := Segment(table, k, c.opts)
	if err != nil {
		return nil, fmt.Errorf("segment k=%d: %w", k, err)
	}

	segments := Profile(ds, assign.Labels, c.opts.Thresholds)
	c.logger.Info("clustering complete",
		"dataset", ds.SourceFilename,
		"k", k,
		"features", len(table.Columns),
		"inertia", assign.Inertia,
		"silhouette", assign.Silhouette,
	)

	return &models.ClusteringResult{
		Success:      true,
		K:            k,
		Labels:       assign.Labels,
		Centers:      assign.Centers,
		Inertia:      assign.Inertia,
		Silhouette:   assign.Silhouette,
		Segments:     segments,
		FeaturesUsed: table.Columns,
		Charts:       segmentCharts(ds, assign.Labels),
	}, nil
}

func failure(err error) *models.ClusteringResult {
	return &models.ClusteringResult{Success: false, Error: err.Error()}
}

func segmentCharts(ds *models.Dataset, labels []int) map[string]models.ChartPayload {
	counts := make(map[int]int)
	sales := make(map[int]float64)
	maxID := 0
	for i, l := range labels {
		counts[l]++
		sales[l] += ds.Records[i].Sales
		maxID = max(maxID, l)
	}

	var names []string
	var sizes, totals []float64
	for id := 1; id <= maxID; id++ {
		if counts[id] == 0 {
			continue
		}
		names = append(names, fmt.Sprintf("Segment %d", id))
		sizes = append(sizes, float64(counts[id]))
		totals = append(totals, charts.Millions(sales[id]))
	}

	return map[string]models.ChartPayload{
		"cluster_distribution": charts.Pie("Product Segment Distribution", names, sizes, charts.SegmentPalette),
		"sales_by_cluster":     charts.Bar("Total Sales per Segment (Million Rp)", "Sales (Million Rp)", "%.1fM", names, totals, charts.SegmentPalette),
	}
}
