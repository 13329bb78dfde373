package engine

// Assignments maps meter id to its cluster label in [0,k). Many meters map
// to one cluster; each meter belongs to exactly one.
type Assignments map[string]int

// CanonicalShapes holds one representative 192-point profile per cluster:
// the element-wise median of the members' raw (unnormalized) profiles.
// These are the externally published load-shape artifact.
type CanonicalShapes struct {
	K        int
	Profiles map[int][]float64
}

// AggregateShapes reduces each cluster's member rows to its canonical
// profile. A cluster of one meter yields that meter's own raw profile
// exactly.
func AggregateShapes(m *FeatureMatrix, assign Assignments, k int) *CanonicalShapes {
	members := make(map[int][][]float64, k)
	for meter, row := range m.Profiles {
		label := assign[meter]
		members[label] = append(members[label], row)
	}

	shapes := &CanonicalShapes{K: k, Profiles: make(map[int][]float64, k)}
	for label, rows := range members {
		profile := make([]float64, NumBuckets)
		col := make([]float64, len(rows))
		for j := 0; j < NumBuckets; j++ {
			for i, row := range rows {
				col[i] = row[j]
			}
			profile[j] = median(col)
		}
		shapes.Profiles[label] = profile
	}
	return shapes
}
