package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrInvalidK  = errors.New("cluster count out of range")
	ErrNonFinite = errors.New("feature matrix contains non-finite values")
)

// KMeans partitions points with Lloyd's algorithm from k-means++ seeds,
// keeping the restart with the lowest inertia. A fixed Seed makes runs
// reproducible.
type KMeans struct {
	K        int
	Restarts int
	MaxIter  int
	Seed     uint64
}

// Fit is one k-means solution. Labels are 0-based indexes into Centers.
type Fit struct {
	Labels  []int
	Centers [][]float64
	Inertia float64
	Iter    int
}

func (km KMeans) Fit(points [][]float64) (*Fit, error) {
	n := len(points)
	if km.K < 1 || km.K > n {
		return nil, fmt.Errorf("%w: k=%d, rows=%d", ErrInvalidK, km.K, n)
	}
	for _, p := range points {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrNonFinite
			}
		}
	}

	restarts := max(km.Restarts, 1)
	maxIter := max(km.MaxIter, 1)
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed^0x9e3779b97f4a7c15))

	var best *Fit
	for range restarts {
		fit := lloyd(points, seedCenters(points, km.K, rng), maxIter)
		if best == nil || fit.Inertia < best.Inertia {
			best = fit
		}
	}
	return best, nil
}

// seedCenters picks k initial centers with k-means++: each next center is
// drawn with probability proportional to its squared distance from the
// nearest chosen center.
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.IntN(n)]))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		total := floats.Sum(dist)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			next = n - 1
			for i, d := range dist {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		} else {
			next = rng.IntN(n)
		}

		c := clone(points[next])
		centers = append(centers, c)
		for i, p := range points {
			dist[i] = min(dist[i], sqDist(p, c))
		}
	}
	return centers
}

func lloyd(points [][]float64, centers [][]float64, maxIter int) *Fit {
	n, k := len(points), len(centers)
	dims := len(points[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, p := range points {
			c, _ := nearest(p, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			counts[labels[i]]++
			floats.Add(sums[labels[i]], p)
		}
		for c := range centers {
			if counts[c] == 0 {
				// Reseed an empty cluster with the point farthest from its
				// current center.
				far := farthestPoint(points, labels, centers)
				centers[c] = clone(points[far])
				labels[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centers[c] = sums[c]
		}
	}

	inertia := 0.0
	for i, p := range points {
		c, d := nearest(p, centers)
		labels[i] = c
		inertia += d
	}
	return &Fit{Labels: labels, Centers: centers, Inertia: inertia, Iter: iter}
}

func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func farthestPoint(points [][]float64, labels []int, centers [][]float64) int {
	far, farDist := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centers[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
