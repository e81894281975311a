package textproc

import (
	"regexp"
	"strings"

	"github.com/reiver/go-porterstemmer"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

var nonAlpha = regexp.MustCompile(`[^A-Za-z ]`)

// StopWords is the NLTK English stop word list.
var StopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she", "her", "hers", "herself", "it", "its",
	"itself", "they", "them", "their", "theirs", "themselves", "what", "which", "who", "whom", "this", "that", "these",
	"those", "am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "having", "do", "does",
	"did", "doing", "a", "an", "the", "and", "but", "if", "or", "because", "as", "until", "while", "of", "at", "by",
	"for", "with", "about", "against", "between", "into", "through", "during", "before", "after", "above", "below",
	"to", "from", "up", "down", "in", "out", "on", "off", "over", "under", "again", "further", "then", "once", "here",
	"there", "when", "where", "why", "how", "all", "any", "both", "each", "few", "more", "most", "other", "some", "such",
	"no", "nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t", "can", "will", "just", "don",
	"should", "now",
}

// Options tunes the tokenizer. The zero value reproduces the plain cleaning
// pipeline: no length filter and no stemming.
type Options struct {
	StopWords []string
	MinLength int
	Stem      bool
}

// Tokenizer cleans raw text into an ordered sequence of tokens
type Tokenizer struct {
	stopWords map[string]struct{}
	minLength int
	stem      bool
	logger    *logrus.Entry
}

func NewTokenizer(opts Options, logger *logrus.Entry) *Tokenizer {
	if logger == nil {
		logger = logrus.WithField("component", "tokenizer")
	}
	words := opts.StopWords
	if words == nil {
		words = StopWords
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[w] = struct{}{}
	}
	return &Tokenizer{
		stopWords: stop,
		minLength: opts.MinLength,
		stem:      opts.Stem,
		logger:    logger,
	}
}

// Tokenize replaces everything but ASCII letters with spaces, lowercases,
// drops stop words and NFC-normalizes each remaining token.
func (t *Tokenizer) Tokenize(text string) []string {
	clean := strings.ToLower(nonAlpha.ReplaceAllString(text, " "))

	tokens := make([]string, 0)
	for _, field := range strings.Fields(clean) {
		if _, stop := t.stopWords[field]; stop {
			continue
		}
		if len(field) < t.minLength {
			continue
		}
		token := norm.NFC.String(field)
		if t.stem {
			token = t.stemToken(token)
			if token == "" {
				continue
			}
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// TokenizeAll tokenizes every text, preserving order.
func (t *Tokenizer) TokenizeAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, text := range texts {
		out[i] = t.Tokenize(text)
	}
	return out
}

func (t *Tokenizer) stemToken(token string) (stemmed string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.WithField("token", token).Warnf("Recovered from panic while stemming: %v", r)
			stemmed = token
		}
	}()
	return porterstemmer.StemString(token)
}
