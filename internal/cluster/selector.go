package cluster

import (
	"fmt"
	"log/slog"
)

// SelectK chooses the cluster count in [2, min(maxClusters, rows-1)] with
// the best silhouette score. Tables of three rows or fewer get 2 without
// any trial run. Trials that fail score 0 so the search always completes.
func SelectK(table *FeatureTable, opts Options, logger *slog.Logger) int {
	n := table.NumRows()
	if n <= 3 {
		return 2
	}

	scaled := standardize(table.Rows)
	upper := min(opts.MaxClusters, n-1)

	scores := make([]float64, 0, max(upper-1, 0))
	for k := 2; k <= upper; k++ {
		score, err := trialScore(scaled, k, opts)
		if err != nil {
			logger.Warn("cluster trial failed", "k", k, "error", err)
			score = 0
		}
		logger.Debug("cluster trial", "k", k, "silhouette", score)
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		return 2
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return min(best+2, upper)
}

func trialScore(points [][]float64, k int, opts Options) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, err = 0, fmt.Errorf("trial panicked: %v", r)
		}
	}()

	fit, err := opts.kmeans(k).Fit(points)
	if err != nil {
		return 0, err
	}
	return Silhouette(points, fit.Labels), nil
}
