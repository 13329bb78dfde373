package engine

import (
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"loadshape-platform/internal/models"
)

// defaultMaxIterations caps Lloyd iteration when assignments oscillate.
const defaultMaxIterations = 300

// KMeans is Lloyd's algorithm over squared Euclidean distance in the
// normalized 192-dimensional profile space. The seed fully determines the
// outcome: initialization is k-means++ over the seeded rng, distance ties
// break to the lowest cluster index, and an emptied cluster is reseeded
// from the point farthest from its current centroid.
type KMeans struct {
	Seed          int64
	MaxIterations int
}

// Cluster partitions rows into k groups. k <= 0 and k > len(rows) are
// INVALID, reported before any computation.
func (km *KMeans) Cluster(rows [][]float64, k int) ([]int, error) {
	n := len(rows)
	if k <= 0 {
		return nil, models.Invalidf("group count must be a positive integer")
	}
	if k > n {
		return nil, models.Invalidf("group count %d exceeds the %d meters available", k, n)
	}

	dim := len(rows[0])
	rng := rand.New(rand.NewSource(km.Seed))
	centroids := seedCentroids(rows, k, rng)

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := assignParallel(rows, centroids, assign)

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, c := range assign {
			counts[c]++
			floats.Add(next[c], rows[i])
		}

		reseeded := false
		for c := range next {
			if counts[c] == 0 {
				// Empty cluster: restart it from the worst-fitted point so
				// every label stays populated.
				copy(next[c], rows[farthestPoint(rows, centroids, assign)])
				reseeded = true
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}
		centroids = next

		if !changed && !reseeded {
			break
		}
	}

	return assign, nil
}

// seedCentroids picks the k initial centroids with k-means++ weighting: the
// first uniformly at random, each subsequent one with probability
// proportional to its squared distance from the nearest centroid already
// chosen. A uniform draw over the rows can land every centroid inside one
// dense cloud and strand Lloyd iteration in a degenerate local optimum;
// distance weighting spreads the start across the clouds.
func seedCentroids(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), rows[rng.Intn(n)]...))

	// Squared distance from each row to its nearest chosen centroid.
	dist := make([]float64, n)
	for i, row := range rows {
		dist[i] = sqDist(row, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(dist)
		idx := -1
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, d := range dist {
				if d == 0 {
					continue
				}
				cum += d
				if cum > target {
					idx = i
					break
				}
			}
			if idx < 0 {
				// Accumulated rounding pushed target past the sum.
				idx = floats.MaxIdx(dist)
			}
		} else {
			// Every remaining row coincides with a chosen centroid.
			idx = rng.Intn(n)
		}

		c := append([]float64(nil), rows[idx]...)
		centroids = append(centroids, c)
		for i, row := range rows {
			if d := sqDist(row, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// assignParallel reassigns every row to its nearest centroid, fanning out
// across CPUs. Assignment is per-row independent, so chunk order does not
// affect the result. Reports whether any assignment changed.
func assignParallel(rows, centroids [][]float64, assign []int) bool {
	n := len(rows)
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	changes := make([]bool, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if c := nearest(centroids, rows[i]); c != assign[i] {
					assign[i] = c
					changes[w] = true
				}
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, c := range changes {
		if c {
			return true
		}
	}
	return false
}

// nearest returns the index of the closest centroid by squared Euclidean
// distance. Strict less-than keeps the lowest index on ties.
func nearest(centroids [][]float64, row []float64) int {
	best, bestIdx := math.Inf(1), 0
	for c, ct := range centroids {
		if d := sqDist(row, ct); d < best {
			best, bestIdx = d, c
		}
	}
	return bestIdx
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// farthestPoint finds the row with the greatest distance to its assigned
// centroid, used to reseed an emptied cluster.
func farthestPoint(rows, centroids [][]float64, assign []int) int {
	worst, idx := -1.0, 0
	for i, row := range rows {
		if assign[i] < 0 {
			continue
		}
		if d := sqDist(row, centroids[assign[i]]); d > worst {
			worst, idx = d, i
		}
	}
	return idx
}
