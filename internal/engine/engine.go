package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/clusterer/internal/acquire"
	"github.com/knowledge-engine/clusterer/internal/cluster"
	"github.com/knowledge-engine/clusterer/internal/config"
	"github.com/knowledge-engine/clusterer/internal/provider"
	"github.com/knowledge-engine/clusterer/internal/textproc"
)

// ErrAlreadyRunning is returned when a run is requested while one is in progress
var ErrAlreadyRunning = errors.New("a clustering run is already in progress")

// Engine runs the acquire, tokenize, vectorize and assign pipeline
type Engine struct {
	Config    *config.Config
	Logger    *logrus.Entry
	Source    acquire.Source
	Tokenizer *textproc.Tokenizer
	LLM       provider.LLMProvider

	options cluster.Options

	// State
	isRunning bool
	last      *Result
	mu        sync.RWMutex

	// Stats
	Stats EngineStats
}

type EngineStats struct {
	Runs        int64     `json:"runs"`
	FailedRuns  int64     `json:"failed_runs"`
	LastError   string    `json:"last_error,omitempty"`
	LastRunTime time.Time `json:"last_run_time"`
}

// DocumentInfo describes one clustered document
type DocumentInfo struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Tokens int    `json:"tokens"`
}

// Result is the outcome of one batch
type Result struct {
	Documents       []DocumentInfo       `json:"documents"`
	VocabularySize  int                  `json:"vocabulary_size"`
	Polarity        string               `json:"polarity"`
	CentroidIndices []int                `json:"centroid_indices"`
	Assignments     []cluster.Assignment `json:"assignments"`
	Groups          [][]int              `json:"groups"`
	Discussion      string               `json:"discussion,omitempty"`
	StartedAt       time.Time            `json:"started_at"`
	Duration        time.Duration        `json:"duration"`
}

// NewEngine validates the cluster settings and wires the pipeline. llm may be nil.
func NewEngine(cfg *config.Config, logger *logrus.Entry, source acquire.Source, llm provider.LLMProvider) (*Engine, error) {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	polarity, err := cluster.ParsePolarity(cfg.Cluster.Polarity)
	if err != nil {
		return nil, err
	}
	if err := cluster.ValidateIndices(cfg.Cluster.CentroidIndices); err != nil {
		return nil, err
	}

	tokenizer := textproc.NewTokenizer(textproc.Options{
		MinLength: cfg.Cluster.MinTokenLength,
		Stem:      cfg.Cluster.Stem,
	}, logger.WithField("component", "tokenizer"))

	return &Engine{
		Config:    cfg,
		Logger:    logger,
		Source:    source,
		Tokenizer: tokenizer,
		LLM:       llm,
		options: cluster.Options{
			CentroidIndices: slices.Clone(cfg.Cluster.CentroidIndices),
			Polarity:        polarity,
			Precision:       int32(cfg.Cluster.Precision),
		},
	}, nil
}

// Run clusters the configured seed documents once
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.claim() {
		return nil, ErrAlreadyRunning
	}
	return e.run(ctx)
}

// Start runs in the background and returns immediately. It fails with
// ErrAlreadyRunning if a run is in progress.
func (e *Engine) Start(ctx context.Context) error {
	if !e.claim() {
		return ErrAlreadyRunning
	}
	go func() {
		if _, err := e.run(ctx); err != nil {
			e.Logger.WithError(err).Error("Background run failed")
		}
	}()
	return nil
}

func (e *Engine) claim() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isRunning {
		return false
	}
	e.isRunning = true
	return true
}

func (e *Engine) run(ctx context.Context) (result *Result, err error) {
	started := time.Now()
	defer func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.isRunning = false
		e.Stats.Runs++
		e.Stats.LastRunTime = started
		if err != nil {
			e.Stats.FailedRuns++
			e.Stats.LastError = err.Error()
			return
		}
		e.Stats.LastError = ""
		e.last = result
	}()

	seeds := e.Config.Cluster.Seeds
	if required := cluster.RequiredDocuments(e.options.CentroidIndices); len(seeds) < required {
		return nil, fmt.Errorf("%w: %d seed documents configured, centroid selection needs at least %d",
			cluster.ErrConfiguration, len(seeds), required)
	}

	log := e.Logger.WithField("documents", len(seeds))
	log.Info("Retrieving documents")

	pages, err := e.Source.Acquire(ctx, seeds)
	if err != nil {
		return nil, err
	}
	if len(pages) != len(seeds) {
		return nil, fmt.Errorf("%w: %d pages returned for %d documents", acquire.ErrAcquisition, len(pages), len(seeds))
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}
	tokens := e.Tokenizer.TokenizeAll(texts)

	model, err := cluster.Fit(tokens, e.options)
	if err != nil {
		return nil, err
	}
	log.WithField("vocabulary", model.Vocabulary.Len()).Info("Vectorized documents")

	assignments, err := model.AssignAll()
	if err != nil {
		return nil, err
	}

	docs := make([]DocumentInfo, len(pages))
	for i, page := range pages {
		docs[i] = DocumentInfo{
			Index:  i,
			URL:    page.URL,
			Title:  page.Title,
			Tokens: len(tokens[i]),
		}
	}

	result = &Result{
		Documents:       docs,
		VocabularySize:  model.Vocabulary.Len(),
		Polarity:        e.options.Polarity.String(),
		CentroidIndices: slices.Clone(e.options.CentroidIndices),
		Assignments:     assignments,
		Groups:          cluster.Groups(assignments, model.K()),
		StartedAt:       started,
	}

	if e.LLM != nil {
		result.Discussion = e.discuss(ctx, result)
	}

	result.Duration = time.Since(started)
	log.WithField("duration", result.Duration).Info("Clustering complete")
	return result, nil
}

// discuss asks the LLM to describe the clusters. Failures are logged only.
func (e *Engine) discuss(ctx context.Context, result *Result) string {
	summaries := make([]provider.ClusterSummary, len(result.Groups))
	for label, members := range result.Groups {
		titles := make([]string, len(members))
		for i, doc := range members {
			titles[i] = result.Documents[doc].Title
		}
		summaries[label] = provider.ClusterSummary{Label: label, Titles: titles}
	}

	text, err := e.LLM.Generate(ctx, provider.BuildPrompt(summaries))
	if err != nil {
		e.Logger.WithError(err).WithField("provider", e.LLM.Name()).Warn("Failed to generate cluster discussion")
		return ""
	}
	return text
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// LastResult returns the most recent successful result, or nil
func (e *Engine) LastResult() *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// GetStats returns a copy of the run statistics
func (e *Engine) GetStats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Stats
}
