package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/clusterer/internal/acquire"
	"github.com/knowledge-engine/clusterer/internal/cluster"
	"github.com/knowledge-engine/clusterer/internal/config"
	"github.com/knowledge-engine/clusterer/internal/engine"
)

// Mocks

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Acquire(ctx context.Context, ids []string) ([]acquire.Page, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]acquire.Page), args.Error(1)
}

type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	seeds := make([]string, 10)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("https://example.com/abstract/%d", i)
	}
	cfg.Cluster.Seeds = seeds
	return cfg
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("test", "engine")
}

// scenarioPages mirrors the vector scenario a / b / c with document 1
// containing a and b, and the remaining documents containing only stop words.
func scenarioPages(seeds []string) []acquire.Page {
	texts := map[int]string{
		0: "Alpha",
		1: "alpha, and BETA!",
		4: "beta",
		9: "gamma 42",
	}
	pages := make([]acquire.Page, len(seeds))
	for i, seed := range seeds {
		text, ok := texts[i]
		if !ok {
			text = "the of and"
		}
		pages[i] = acquire.Page{URL: seed, Title: fmt.Sprintf("Article %d", i+1), Text: text}
	}
	return pages
}

func TestNewEngine(t *testing.T) {
	eng, err := engine.NewEngine(testConfig(t), testLogger(), new(MockSource), nil)
	require.NoError(t, err)
	assert.NotNil(t, eng.Tokenizer)
	assert.False(t, eng.IsRunning())
	assert.Nil(t, eng.LastResult())
}

func TestNewEngine_InvalidClusterConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cluster.Polarity = "sideways"
	_, err := engine.NewEngine(cfg, testLogger(), new(MockSource), nil)
	assert.ErrorIs(t, err, cluster.ErrConfiguration)

	cfg = testConfig(t)
	cfg.Cluster.CentroidIndices = []int{1, 1}
	_, err = engine.NewEngine(cfg, testLogger(), new(MockSource), nil)
	assert.ErrorIs(t, err, cluster.ErrConfiguration)
}

func TestEngine_Run(t *testing.T) {
	cfg := testConfig(t)
	src := new(MockSource)
	src.On("Acquire", mock.Anything, cfg.Cluster.Seeds).Return(scenarioPages(cfg.Cluster.Seeds), nil)

	eng, err := engine.NewEngine(cfg, testLogger(), src, nil)
	require.NoError(t, err)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.VocabularySize)
	assert.Equal(t, "absence", result.Polarity)
	assert.Equal(t, []int{0, 4, 9}, result.CentroidIndices)
	require.Len(t, result.Assignments, 10)

	assert.Equal(t, []float64{1.00, 1.00, 1.73}, result.Assignments[1].Distances)
	assert.Equal(t, 0, result.Assignments[1].Cluster)
	assert.Equal(t, 1, result.Assignments[4].Cluster)
	assert.Equal(t, 2, result.Assignments[9].Cluster)

	assert.Equal(t, [][]int{{0, 1, 2, 3, 5, 6, 7, 8}, {4}, {9}}, result.Groups)
	assert.Equal(t, "Article 2", result.Documents[1].Title)
	assert.Equal(t, 2, result.Documents[1].Tokens)
	assert.Empty(t, result.Discussion)

	assert.Same(t, result, eng.LastResult())
	stats := eng.GetStats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(0), stats.FailedRuns)
	src.AssertExpectations(t)
}

func TestEngine_RunTooFewSeedsFailsBeforeAcquisition(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cluster.Seeds = cfg.Cluster.Seeds[:9]
	src := new(MockSource)

	eng, err := engine.NewEngine(cfg, testLogger(), src, nil)
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	assert.ErrorIs(t, err, cluster.ErrConfiguration)
	src.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)

	stats := eng.GetStats()
	assert.Equal(t, int64(1), stats.FailedRuns)
	assert.NotEmpty(t, stats.LastError)
	assert.Nil(t, eng.LastResult())
}

func TestEngine_RunAcquisitionFailure(t *testing.T) {
	cfg := testConfig(t)
	src := new(MockSource)
	src.On("Acquire", mock.Anything, cfg.Cluster.Seeds).
		Return(nil, fmt.Errorf("%w: document 3: network error", acquire.ErrAcquisition))

	eng, err := engine.NewEngine(cfg, testLogger(), src, nil)
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	assert.ErrorIs(t, err, acquire.ErrAcquisition)
	assert.False(t, eng.IsRunning())
}

func TestEngine_RunShortBatch(t *testing.T) {
	cfg := testConfig(t)
	src := new(MockSource)
	src.On("Acquire", mock.Anything, cfg.Cluster.Seeds).Return(scenarioPages(cfg.Cluster.Seeds)[:5], nil)

	eng, err := engine.NewEngine(cfg, testLogger(), src, nil)
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	assert.ErrorIs(t, err, acquire.ErrAcquisition)
}

func TestEngine_RunWithDiscussion(t *testing.T) {
	cfg := testConfig(t)
	src := new(MockSource)
	src.On("Acquire", mock.Anything, cfg.Cluster.Seeds).Return(scenarioPages(cfg.Cluster.Seeds), nil)

	llm := new(MockLLMProvider)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return assert.Contains(t, prompt, "Cluster 1:\n- Article 5\n")
	})).Return("Cluster 1 stands alone.", nil)

	eng, err := engine.NewEngine(cfg, testLogger(), src, llm)
	require.NoError(t, err)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cluster 1 stands alone.", result.Discussion)
	llm.AssertExpectations(t)
}

func TestEngine_DiscussionFailureDoesNotFailRun(t *testing.T) {
	cfg := testConfig(t)
	src := new(MockSource)
	src.On("Acquire", mock.Anything, cfg.Cluster.Seeds).Return(scenarioPages(cfg.Cluster.Seeds), nil)

	llm := new(MockLLMProvider)
	llm.On("Generate", mock.Anything, mock.AnythingOfType("string")).Return("", errors.New("model offline"))
	llm.On("Name").Return("ollama")

	eng, err := engine.NewEngine(cfg, testLogger(), src, llm)
	require.NoError(t, err)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Discussion)
}

func TestEngine_StartRejectsConcurrentRun(t *testing.T) {
	cfg := testConfig(t)
	release := make(chan time.Time)
	src := new(MockSource)
	src.On("Acquire", mock.Anything, cfg.Cluster.Seeds).
		WaitUntil(release).
		Return(scenarioPages(cfg.Cluster.Seeds), nil)

	eng, err := engine.NewEngine(cfg, testLogger(), src, nil)
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	assert.True(t, eng.IsRunning())
	assert.ErrorIs(t, eng.Start(context.Background()), engine.ErrAlreadyRunning)

	_, err = eng.Run(context.Background())
	assert.ErrorIs(t, err, engine.ErrAlreadyRunning)

	close(release)
	assert.Eventually(t, func() bool {
		return !eng.IsRunning() && eng.LastResult() != nil
	}, 2*time.Second, 10*time.Millisecond)
}
