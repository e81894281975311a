package cluster

import (
	"fmt"
	"strings"
)

// Vector is a binary feature vector aligned with a Vocabulary.
type Vector []float64

// Polarity selects which value marks a token as present in a document.
type Polarity int

const (
	// PolarityAbsence sets 1.0 for vocabulary tokens the document does NOT
	// contain and 0.0 for the ones it does. This is the default encoding.
	PolarityAbsence Polarity = iota
	// PolarityPresence is the conventional bag-of-words encoding.
	PolarityPresence
)

func (p Polarity) String() string {
	switch p {
	case PolarityAbsence:
		return "absence"
	case PolarityPresence:
		return "presence"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}

// ParsePolarity maps a configuration value to a Polarity. An empty value
// selects PolarityAbsence.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absence":
		return PolarityAbsence, nil
	case "presence":
		return PolarityPresence, nil
	default:
		return 0, fmt.Errorf("%w: unknown polarity %q", ErrConfiguration, s)
	}
}

// values returns the entries used for a present and an absent token.
func (p Polarity) values() (present, absent float64) {
	if p == PolarityPresence {
		return 1.0, 0.0
	}
	return 0.0, 1.0
}

// Vectorizer turns token sequences into binary vectors over a fixed vocabulary
type Vectorizer struct {
	Vocabulary *Vocabulary
	Polarity   Polarity
}

func NewVectorizer(vocab *Vocabulary, polarity Polarity) *Vectorizer {
	return &Vectorizer{
		Vocabulary: vocab,
		Polarity:   polarity,
	}
}

// Transform encodes one document. Tokens outside the vocabulary are ignored.
func (v *Vectorizer) Transform(tokens []string) Vector {
	present, absent := v.Polarity.values()

	vector := make(Vector, v.Vocabulary.Len())
	for i := range vector {
		vector[i] = absent
	}
	for _, token := range tokens {
		if idx, ok := v.Vocabulary.Index(token); ok {
			vector[idx] = present
		}
	}
	return vector
}

// TransformAll encodes every document, preserving document order.
func (v *Vectorizer) TransformAll(docs [][]string) []Vector {
	vectors := make([]Vector, len(docs))
	for i, tokens := range docs {
		vectors[i] = v.Transform(tokens)
	}
	return vectors
}
