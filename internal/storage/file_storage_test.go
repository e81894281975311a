package storage_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/clusterer/internal/fetcher"
	"github.com/knowledge-engine/clusterer/internal/storage"
)

func TestFileStorage(t *testing.T) {
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	result := &fetcher.FetchResult{
		URL:        "https://www.ncbi.nlm.nih.gov/pubmed/31064043",
		Title:      "Aneurysmal subarachnoid hemorrhage",
		StatusCode: 200,
		Text:       "Patients with diabetes",
	}

	require.NoError(t, fs.Save(result))

	loaded, err := fs.Get(result.URL)
	require.NoError(t, err)
	assert.Equal(t, result.URL, loaded.URL)
	assert.Equal(t, result.Title, loaded.Title)
	assert.Equal(t, result.Text, loaded.Text)
	assert.NoError(t, fs.Close())
}

func TestGetNonExistent(t *testing.T) {
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Get("https://missing.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLongURLsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStorage(dir)
	require.NoError(t, err)

	prefix := "https://example.com/" + strings.Repeat("a", 120)
	first := &fetcher.FetchResult{URL: prefix + "/1", Text: "one"}
	second := &fetcher.FetchResult{URL: prefix + "/2", Text: "two"}
	require.NoError(t, fs.Save(first))
	require.NoError(t, fs.Save(second))

	loaded, err := fs.Get(first.URL)
	require.NoError(t, err)
	assert.Equal(t, "one", loaded.Text)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
