package acquire

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/knowledge-engine/clusterer/internal/fetcher"
	"github.com/knowledge-engine/clusterer/internal/storage"
)

// ErrAcquisition wraps any failure that aborts a batch
var ErrAcquisition = errors.New("document acquisition failed")

// Page is one acquired document
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Source returns exactly one page per id, in the order given, or an error
// for the whole batch
type Source interface {
	Acquire(ctx context.Context, ids []string) ([]Page, error)
}

// PageFetcher downloads a single page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.FetchResult, error)
}

// Gate delays or refuses a request according to politeness rules
type Gate interface {
	Wait(ctx context.Context, url string) error
}

// WebSource acquires pages over HTTP with an optional on-disk cache
type WebSource struct {
	fetcher     PageFetcher
	gate        Gate
	cache       storage.ContentStorage
	concurrency int
	logger      *logrus.Entry
}

// NewWebSource wires the fetcher, the politeness gate and the cache. gate and
// cache may be nil.
func NewWebSource(f PageFetcher, gate Gate, cache storage.ContentStorage, concurrency int, logger *logrus.Entry) *WebSource {
	if logger == nil {
		logger = logrus.WithField("component", "acquire")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &WebSource{
		fetcher:     f,
		gate:        gate,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Acquire fetches every id concurrently. The first failure cancels the
// remaining fetches and fails the batch.
func (s *WebSource) Acquire(ctx context.Context, ids []string) ([]Page, error) {
	pages := make([]Page, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			page, err := s.acquireOne(gctx, id)
			if err != nil {
				return fmt.Errorf("%w: document %d (%s): %w", ErrAcquisition, i, id, err)
			}
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *WebSource) acquireOne(ctx context.Context, url string) (Page, error) {
	log := s.logger.WithField("url", url)

	if s.cache != nil {
		cached, err := s.cache.Get(url)
		if err == nil {
			log.Debug("Serving document from cache")
			return pageFrom(cached), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Warn("Failed to read cache, fetching")
		}
	}

	if s.gate != nil {
		if err := s.gate.Wait(ctx, url); err != nil {
			return Page{}, err
		}
	}

	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return Page{}, err
	}
	log.WithField("title", res.Title).Info("Fetched document")

	if s.cache != nil {
		if err := s.cache.Save(res); err != nil {
			log.WithError(err).Error("Failed to save result")
		}
	}
	return pageFrom(res), nil
}

func pageFrom(res *fetcher.FetchResult) Page {
	return Page{
		URL:   res.URL,
		Title: res.Title,
		Text:  res.Text,
	}
}

// StaticSource serves pages that are already in memory, keyed by id
type StaticSource map[string]Page

func (s StaticSource) Acquire(_ context.Context, ids []string) ([]Page, error) {
	pages := make([]Page, len(ids))
	for i, id := range ids {
		page, ok := s[id]
		if !ok {
			return nil, fmt.Errorf("%w: document %d (%s): not found", ErrAcquisition, i, id)
		}
		if page.URL == "" {
			page.URL = id
		}
		pages[i] = page
	}
	return pages, nil
}
