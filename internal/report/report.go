package report

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/knowledge-engine/clusterer/internal/cluster"
	"github.com/knowledge-engine/clusterer/internal/engine"
)

// Reporter renders the outcome of one clustering run
type Reporter interface {
	Report(result *engine.Result) error
}

// New returns the reporter for the given format ("text" or "json")
func New(format string, w io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextReporter(w), nil
	case "json":
		return &JSONReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// TextReporter prints the human readable listing
type TextReporter struct {
	w       io.Writer
	heading lipgloss.Style
	section lipgloss.Style
}

func NewTextReporter(w io.Writer) *TextReporter {
	r := lipgloss.NewRenderer(w)
	return &TextReporter{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		section: r.NewStyle().Bold(true),
	}
}

func (t *TextReporter) Report(result *engine.Result) error {
	if result == nil {
		return fmt.Errorf("no result to report")
	}

	fmt.Fprintln(t.w, t.heading.Render("Abstract Clustering"))
	fmt.Fprintf(t.w, "Documents: %d  Vocabulary: %d  Polarity: %s  Centroids: %v\n",
		len(result.Documents), result.VocabularySize, result.Polarity, result.CentroidIndices)

	fmt.Fprintln(t.w)
	for _, doc := range result.Documents {
		title := doc.Title
		if title == "" {
			title = doc.URL
		}
		fmt.Fprintf(t.w, "Article %d: %s\n", doc.Index+1, title)
	}

	fmt.Fprintln(t.w)
	if err := t.WriteDistances(sliceSeq(result.Assignments)); err != nil {
		return err
	}

	fmt.Fprintln(t.w)
	fmt.Fprintln(t.w, t.section.Render("Cluster Membership"))
	for label, members := range result.Groups {
		articles := make([]string, len(members))
		for i, doc := range members {
			articles[i] = fmt.Sprintf("%d", doc+1)
		}
		if len(articles) == 0 {
			fmt.Fprintf(t.w, "Cluster %d: (empty)\n", label)
			continue
		}
		fmt.Fprintf(t.w, "Cluster %d: articles %s\n", label, strings.Join(articles, ", "))
	}

	if result.Discussion != "" {
		fmt.Fprintln(t.w)
		fmt.Fprintln(t.w, t.section.Render("Article Discussion"))
		fmt.Fprintln(t.w, strings.TrimSpace(result.Discussion))
	}
	return nil
}

// WriteDistances prints one line per assignment as the sequence yields it
// and stops at the first error.
func (t *TextReporter) WriteDistances(seq iter.Seq2[cluster.Assignment, error]) error {
	for a, err := range seq {
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(t.w, FormatAssignment(a)); err != nil {
			return err
		}
	}
	return nil
}

// FormatAssignment renders a line such as
// "Distances for Article 2 - Centroid 0: 1.00 - Centroid 1: 1.00 - Centroid 2: 1.73 - Cluster: 0".
// Articles are numbered from 1.
func FormatAssignment(a cluster.Assignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distances for Article %d - ", a.Document+1)
	for k, d := range a.Distances {
		fmt.Fprintf(&b, "Centroid %d: %.2f - ", k, d)
	}
	fmt.Fprintf(&b, "Cluster: %d", a.Cluster)
	return b.String()
}

func sliceSeq(assignments []cluster.Assignment) iter.Seq2[cluster.Assignment, error] {
	return func(yield func(cluster.Assignment, error) bool) {
		for _, a := range assignments {
			if !yield(a, nil) {
				return
			}
		}
	}
}

// JSONReporter writes the result as indented JSON
type JSONReporter struct {
	w io.Writer
}

func (j *JSONReporter) Report(result *engine.Result) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
