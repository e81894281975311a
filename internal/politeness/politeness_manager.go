package politeness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/knowledge-engine/clusterer/internal/config"
)

var (
	// ErrDisallowed is returned for URLs excluded by robots.txt
	ErrDisallowed = errors.New("URL blocked by robots.txt")

	// ErrUnsupportedURL is returned for URLs that are not absolute http(s) URLs
	ErrUnsupportedURL = errors.New("only HTTP/HTTPS URLs are supported")
)

// PolitenessManager paces requests per host and honours robots.txt
type PolitenessManager struct {
	config      config.PolitenessConfig
	logger      *logrus.Entry
	client      *http.Client
	limiters    map[string]*rate.Limiter
	robotsCache map[string]*RobotsEntry
	mu          sync.Mutex

	stats Statistics
}

// RobotsEntry caches robots.txt data
type RobotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// Statistics holds politeness manager statistics
type Statistics struct {
	TotalRequests    int64            `json:"total_requests"`
	RejectedRequests int64            `json:"rejected_requests"`
	DomainRequests   map[string]int64 `json:"domain_requests"`
	StartTime        time.Time        `json:"start_time"`
	mu               sync.RWMutex
}

// NewPolitenessManager creates a new politeness manager
func NewPolitenessManager(cfg config.PolitenessConfig, logger *logrus.Entry) *PolitenessManager {
	if logger == nil {
		logger = logrus.WithField("component", "politeness_manager")
	}

	return &PolitenessManager{
		config:      cfg,
		logger:      logger,
		client:      &http.Client{Timeout: cfg.DefaultRequestTimeout},
		limiters:    make(map[string]*rate.Limiter),
		robotsCache: make(map[string]*RobotsEntry),
		stats: Statistics{
			DomainRequests: make(map[string]int64),
			StartTime:      time.Now(),
		},
	}
}

// Wait blocks until a request to rawURL is allowed. It returns ErrDisallowed
// when robots.txt excludes the URL, or the context error when ctx ends first.
func (pm *PolitenessManager) Wait(ctx context.Context, rawURL string) error {
	parsedURL, err := parseURL(rawURL)
	if err != nil {
		pm.reject()
		return err
	}

	allowed, err := pm.IsURLAllowed(ctx, rawURL)
	if err != nil {
		pm.reject()
		return err
	}
	if !allowed {
		pm.reject()
		pm.logger.WithField("url", rawURL).Debug("URL blocked by robots.txt")
		return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	if err := pm.limiter(parsedURL.Host).Wait(ctx); err != nil {
		return err
	}

	pm.stats.mu.Lock()
	pm.stats.TotalRequests++
	pm.stats.DomainRequests[parsedURL.Host]++
	pm.stats.mu.Unlock()
	return nil
}

// IsURLAllowed checks if URL is allowed according to robots.txt
func (pm *PolitenessManager) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsedURL, err := parseURL(rawURL)
	if err != nil {
		return false, err
	}
	if !pm.config.EnableRobotsCheck {
		return true, nil
	}

	robotsData, err := pm.getRobotsData(ctx, parsedURL)
	if err != nil {
		pm.logger.WithError(err).WithField("domain", parsedURL.Host).Warn("Failed to get robots.txt, allowing request")
		return true, nil
	}
	if robotsData == nil {
		return true, nil
	}

	return robotsData.TestAgent(parsedURL.Path, pm.config.UserAgent), nil
}

// GetStatistics returns a copy of the current statistics
func (pm *PolitenessManager) GetStatistics() Statistics {
	pm.stats.mu.RLock()
	defer pm.stats.mu.RUnlock()

	stats := Statistics{
		TotalRequests:    pm.stats.TotalRequests,
		RejectedRequests: pm.stats.RejectedRequests,
		DomainRequests:   make(map[string]int64, len(pm.stats.DomainRequests)),
		StartTime:        pm.stats.StartTime,
	}
	for domain, n := range pm.stats.DomainRequests {
		stats.DomainRequests[domain] = n
	}
	return stats
}

func (pm *PolitenessManager) reject() {
	pm.stats.mu.Lock()
	pm.stats.RejectedRequests++
	pm.stats.mu.Unlock()
}

// limiter returns the per-host limiter, allowing one request per min delay
func (pm *PolitenessManager) limiter(host string) *rate.Limiter {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	l, ok := pm.limiters[host]
	if !ok {
		limit := rate.Inf
		if pm.config.DefaultMinDelay > 0 {
			limit = rate.Every(pm.config.DefaultMinDelay)
		}
		l = rate.NewLimiter(limit, 1)
		pm.limiters[host] = l
	}
	return l
}

// getRobotsData fetches and caches robots.txt data
func (pm *PolitenessManager) getRobotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	pm.mu.Lock()
	entry, exists := pm.robotsCache[target.Host]
	pm.mu.Unlock()
	if exists && time.Since(entry.fetchTime) < pm.config.RobotsCacheDuration {
		return entry.robots, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	if pm.config.UserAgent != "" {
		req.Header.Set("User-Agent", pm.config.UserAgent)
	}

	resp, err := pm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	robotsData, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}

	pm.mu.Lock()
	pm.robotsCache[target.Host] = &RobotsEntry{
		robots:    robotsData,
		fetchTime: time.Now(),
	}
	pm.mu.Unlock()

	return robotsData, nil
}

func parseURL(rawURL string) (*url.URL, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("%w: URL must have a host: %s", ErrUnsupportedURL, rawURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	return parsedURL, nil
}
