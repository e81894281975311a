package cluster

import "errors"

var (
	// ErrConfiguration reports a document set or centroid layout that cannot be clustered.
	ErrConfiguration = errors.New("invalid cluster configuration")

	// ErrDimensionMismatch reports vectors whose length differs from the vocabulary.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
