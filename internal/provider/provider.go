package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowledge-engine/clusterer/internal/config"
)

// LLMProvider defines the interface for AI model integration
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ClusterSummary lists the documents that ended up in one cluster
type ClusterSummary struct {
	Label  int
	Titles []string
}

// New returns the configured provider, or nil when discussion is disabled
func New(cfg config.LLMConfig) (LLMProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, nil
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "openai":
		return NewOpenAIProvider(cfg.BaseURL, cfg.Model, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// BuildPrompt asks for a short discussion of what each cluster has in common
// and how the clusters differ.
func BuildPrompt(clusters []ClusterSummary) string {
	var b strings.Builder
	b.WriteString("You are a research analyst. Articles were grouped by a single-pass clustering of their abstracts.\n")
	b.WriteString("For each cluster, describe in one or two sentences what its articles seem to have in common.\n")
	b.WriteString("Then name the key characteristics that distinguish the clusters from each other.\n\n")
	b.WriteString("CLUSTERS:\n")
	for _, c := range clusters {
		fmt.Fprintf(&b, "Cluster %d:\n", c.Label)
		if len(c.Titles) == 0 {
			b.WriteString("- (no articles)\n")
			continue
		}
		for _, title := range c.Titles {
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	b.WriteString("\nDISCUSSION:\n")
	return b.String()
}
