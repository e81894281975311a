package cluster

import "fmt"

// DefaultCentroidIndices picks the 1st, 5th and 10th document.
var DefaultCentroidIndices = []int{0, 4, 9}

// Centroid is a fixed reference point taken from one document's vector.
type Centroid struct {
	Document int
	Vector   Vector
}

// RequiredDocuments returns the smallest document count that satisfies indices.
func RequiredDocuments(indices []int) int {
	required := 0
	for _, idx := range indices {
		if idx+1 > required {
			required = idx + 1
		}
	}
	return required
}

// ValidateIndices checks that indices describe at least one distinct, non-negative position.
func ValidateIndices(indices []int) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no centroid indices", ErrConfiguration)
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 {
			return fmt.Errorf("%w: negative centroid index %d", ErrConfiguration, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: duplicate centroid index %d", ErrConfiguration, idx)
		}
		seen[idx] = true
	}
	return nil
}

// SelectCentroids returns the vectors at the given document positions. The
// centroids share storage with vectors; nothing is averaged or copied.
func SelectCentroids(vectors []Vector, indices []int) ([]Centroid, error) {
	if err := ValidateIndices(indices); err != nil {
		return nil, err
	}
	if required := RequiredDocuments(indices); len(vectors) < required {
		return nil, fmt.Errorf("%w: %d documents supplied, centroid selection needs at least %d",
			ErrConfiguration, len(vectors), required)
	}

	centroids := make([]Centroid, len(indices))
	for c, idx := range indices {
		centroids[c] = Centroid{Document: idx, Vector: vectors[idx]}
	}
	return centroids, nil
}
