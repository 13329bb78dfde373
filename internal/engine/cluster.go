package engine

import (
	"loadshape-platform/internal/models"
)

// Clusterer partitions normalized meter profiles into exactly k labeled
// groups. Labels are arbitrary integers in [0,k) and carry no ordering
// guarantee across seeds.
type Clusterer interface {
	Cluster(rows [][]float64, k int) ([]int, error)
}

// NewClusterer resolves a clustering method by name. The registry is
// closed: the empty name selects k-means, any other unknown name is an
// INVALID configuration error.
func NewClusterer(name string, seed int64) (Clusterer, error) {
	switch name {
	case "", "kmeans":
		return &KMeans{Seed: seed}, nil
	default:
		return nil, models.Invalidf("group method %q is invalid", name)
	}
}
