package cluster

// Vocabulary is an insertion-ordered set of tokens. Position i of every
// feature vector refers to Terms()[i].
type Vocabulary struct {
	terms []string
	index map[string]int
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		terms: make([]string, 0),
		index: make(map[string]int),
	}
}

// BuildVocabulary scans documents in index order and tokens in their given
// order, keeping each token the first time it is seen.
func BuildVocabulary(docs [][]string) *Vocabulary {
	v := NewVocabulary()
	for _, tokens := range docs {
		for _, token := range tokens {
			v.Add(token)
		}
	}
	return v
}

// Add appends token if it is new and reports whether it was added
func (v *Vocabulary) Add(token string) bool {
	if _, exists := v.index[token]; exists {
		return false
	}
	v.index[token] = len(v.terms)
	v.terms = append(v.terms, token)
	return true
}

// Index returns the vector position of token
func (v *Vocabulary) Index(token string) (int, bool) {
	idx, ok := v.index[token]
	return idx, ok
}

func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Terms returns a copy of the ordered tokens.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}
