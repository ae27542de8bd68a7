package cluster

import "gonum.org/v1/gonum/floats"

// Silhouette returns the mean silhouette coefficient of a labelling. For
// each point a is its mean distance to the rest of its cluster and b the
// smallest mean distance to another cluster; the point scores
// (b-a)/max(a,b), and 0 when it is alone in its cluster. A labelling with
// fewer than two clusters scores 0.
func Silhouette(points [][]float64, labels []int) float64 {
	n := len(points)
	if n == 0 || distinctLabels(labels) < 2 {
		return 0
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}

	total := 0.0
	sums := make(map[int]float64, len(sizes))
	for i := range points {
		clear(sums)
		for j := range points {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(points[i], points[j], 2)
		}

		own := labels[i]
		if sizes[own] < 2 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)

		b := -1.0
		for l, size := range sizes {
			if l == own {
				continue
			}
			if mean := sums[l] / float64(size); b < 0 || mean < b {
				b = mean
			}
		}

		if m := max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}

func distinctLabels(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
