package cluster

import (
	"fmt"
	"iter"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimals distances are rounded to.
const DefaultPrecision = 2

// Assignment is the outcome for one document.
type Assignment struct {
	Document  int       `json:"document"`
	Distances []float64 `json:"distances"`
	Cluster   int       `json:"cluster"`
}

// Assigner places documents at their nearest fixed centroid in one pass.
type Assigner struct {
	Centroids []Centroid
	Precision int32
}

func NewAssigner(centroids []Centroid) *Assigner {
	return &Assigner{
		Centroids: centroids,
		Precision: DefaultPrecision,
	}
}

// EuclideanDistance calculates the Euclidean distance between two vectors
func EuclideanDistance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// RoundHalfUp rounds x to places decimals, halves away from zero. The value
// is rounded on its shortest decimal representation, so 1.005 becomes 1.01.
func RoundHalfUp(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// Nearest returns the position of the smallest distance. Ties go to the
// lowest position.
func Nearest(distances []float64) int {
	best := 0
	for c := 1; c < len(distances); c++ {
		if distances[c] < distances[best] {
			best = c
		}
	}
	return best
}

func (a *Assigner) validate(vectors []Vector) error {
	if len(a.Centroids) == 0 {
		return fmt.Errorf("%w: no centroids", ErrConfiguration)
	}
	dim := len(a.Centroids[0].Vector)
	for c, centroid := range a.Centroids {
		if len(centroid.Vector) != dim {
			return fmt.Errorf("%w: centroid %d has length %d, want %d",
				ErrDimensionMismatch, c, len(centroid.Vector), dim)
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: document %d has length %d, want %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// AssignOne computes the rounded distances from v to every centroid and the
// winning cluster.
func (a *Assigner) AssignOne(doc int, v Vector) (Assignment, error) {
	distances := make([]float64, len(a.Centroids))
	for c, centroid := range a.Centroids {
		d, err := EuclideanDistance(v, centroid.Vector)
		if err != nil {
			return Assignment{}, fmt.Errorf("document %d, centroid %d: %w", doc, c, err)
		}
		distances[c] = RoundHalfUp(d, a.Precision)
	}
	return Assignment{
		Document:  doc,
		Distances: distances,
		Cluster:   Nearest(distances),
	}, nil
}

// Assign yields one Assignment per vector in document order. All dimensions
// are checked before the first assignment; on a mismatch the sequence yields
// a single error and stops.
func (a *Assigner) Assign(vectors []Vector) iter.Seq2[Assignment, error] {
	return func(yield func(Assignment, error) bool) {
		if err := a.validate(vectors); err != nil {
			yield(Assignment{}, err)
			return
		}
		for i, v := range vectors {
			assignment, err := a.AssignOne(i, v)
			if !yield(assignment, err) || err != nil {
				return
			}
		}
	}
}

// AssignAll drains Assign into a slice.
func (a *Assigner) AssignAll(vectors []Vector) ([]Assignment, error) {
	out := make([]Assignment, 0, len(vectors))
	for assignment, err := range a.Assign(vectors) {
		if err != nil {
			return nil, err
		}
		out = append(out, assignment)
	}
	return out, nil
}

// Groups collects document indices per cluster label.
func Groups(assignments []Assignment, k int) [][]int {
	groups := make([][]int, k)
	for i := range groups {
		groups[i] = make([]int, 0)
	}
	for _, a := range assignments {
		if a.Cluster >= 0 && a.Cluster < k {
			groups[a.Cluster] = append(groups[a.Cluster], a.Document)
		}
	}
	return groups
}
