package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knowledge-engine/clusterer/internal/fetcher"
)

// ErrNotFound is returned by Get for URLs that were never saved
var ErrNotFound = errors.New("document not cached")

// ContentStorage caches fetched documents between runs
type ContentStorage interface {
	Save(result *fetcher.FetchResult) error
	Get(url string) (*fetcher.FetchResult, error)
	Close() error
}

// FileStorage implements ContentStorage using the local file system
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Save writes the fetch result to a JSON file
func (fs *FileStorage) Save(result *fetcher.FetchResult) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := filepath.Join(fs.baseDir, safeFilename(result.URL))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get retrieves a fetch result from disk
func (fs *FileStorage) Get(url string) (*fetcher.FetchResult, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path := filepath.Join(fs.baseDir, safeFilename(url))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var result fetcher.FetchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

// safeFilename keeps alphanumerics of the URL for readability and appends a
// short hash so truncated names stay unique
func safeFilename(rawURL string) string {
	var b strings.Builder
	for _, r := range rawURL {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if len(safe) > 80 {
		safe = safe[:80]
	}
	sum := sha1.Sum([]byte(rawURL))
	return safe + "_" + hex.EncodeToString(sum[:4]) + ".json"
}
