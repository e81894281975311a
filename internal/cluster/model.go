package cluster

import (
	"iter"
	"slices"
)

// Options configures Fit.
type Options struct {
	CentroidIndices []int
	Polarity        Polarity
	Precision       int32
}

// DefaultOptions returns K=3 with centroids at documents 0, 4 and 9.
func DefaultOptions() Options {
	return Options{
		CentroidIndices: slices.Clone(DefaultCentroidIndices),
		Polarity:        PolarityAbsence,
		Precision:       DefaultPrecision,
	}
}

// Model holds everything built for one batch. It is discarded after reporting.
type Model struct {
	Vocabulary *Vocabulary
	Vectors    []Vector
	Centroids  []Centroid
	assigner   *Assigner
}

// Fit builds the vocabulary and vectors for docs and selects the centroids.
// It fails with ErrConfiguration before any distance is computed when docs
// cannot satisfy the centroid indices.
func Fit(docs [][]string, opts Options) (*Model, error) {
	if err := ValidateIndices(opts.CentroidIndices); err != nil {
		return nil, err
	}

	vocab := BuildVocabulary(docs)
	vectors := NewVectorizer(vocab, opts.Polarity).TransformAll(docs)

	centroids, err := SelectCentroids(vectors, opts.CentroidIndices)
	if err != nil {
		return nil, err
	}

	assigner := NewAssigner(centroids)
	if opts.Precision > 0 {
		assigner.Precision = opts.Precision
	}

	return &Model{
		Vocabulary: vocab,
		Vectors:    vectors,
		Centroids:  centroids,
		assigner:   assigner,
	}, nil
}

// K is the number of clusters.
func (m *Model) K() int {
	return len(m.Centroids)
}

// Assignments runs the single assignment pass lazily.
func (m *Model) Assignments() iter.Seq2[Assignment, error] {
	return m.assigner.Assign(m.Vectors)
}

// AssignAll runs the single assignment pass eagerly.
func (m *Model) AssignAll() ([]Assignment, error) {
	return m.assigner.AssignAll(m.Vectors)
}
