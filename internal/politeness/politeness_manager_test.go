package politeness_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/clusterer/internal/config"
	"github.com/knowledge-engine/clusterer/internal/politeness"
)

func createTestConfig() config.PolitenessConfig {
	return config.PolitenessConfig{
		DefaultMinDelay:       0,
		DefaultRequestTimeout: 5 * time.Second,
		RobotsCacheDuration:   time.Hour,
		EnableRobotsCheck:     false,
		UserAgent:             "TestBot/1.0",
	}
}

func createTestLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("test", "politeness")
}

func robotsServer(t *testing.T, robots string, hits *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if hits != nil {
				atomic.AddInt32(hits, 1)
			}
			fmt.Fprint(w, robots)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestWait_RejectsUnsupportedURLs(t *testing.T) {
	pm := politeness.NewPolitenessManager(createTestConfig(), createTestLogger())

	for _, raw := range []string{"ftp://example.com/file", "not a url", "/relative/path"} {
		err := pm.Wait(context.Background(), raw)
		assert.ErrorIs(t, err, politeness.ErrUnsupportedURL, raw)
	}
	assert.Equal(t, int64(3), pm.GetStatistics().RejectedRequests)
}

func TestWait_AllowsWithoutRobotsCheck(t *testing.T) {
	pm := politeness.NewPolitenessManager(createTestConfig(), createTestLogger())

	require.NoError(t, pm.Wait(context.Background(), "https://example.com/a"))
	require.NoError(t, pm.Wait(context.Background(), "https://example.com/b"))

	stats := pm.GetStatistics()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.DomainRequests["example.com"])
}

func TestWait_RobotsDisallow(t *testing.T) {
	ts := robotsServer(t, "User-agent: *\nDisallow: /private\n", nil)

	cfg := createTestConfig()
	cfg.EnableRobotsCheck = true
	pm := politeness.NewPolitenessManager(cfg, createTestLogger())

	assert.NoError(t, pm.Wait(context.Background(), ts.URL+"/public/page"))

	err := pm.Wait(context.Background(), ts.URL+"/private/page")
	assert.ErrorIs(t, err, politeness.ErrDisallowed)
	assert.Equal(t, int64(1), pm.GetStatistics().RejectedRequests)
}

func TestIsURLAllowed_CachesRobots(t *testing.T) {
	var hits int32
	ts := robotsServer(t, "User-agent: *\nAllow: /\n", &hits)

	cfg := createTestConfig()
	cfg.EnableRobotsCheck = true
	pm := politeness.NewPolitenessManager(cfg, createTestLogger())

	for i := 0; i < 3; i++ {
		allowed, err := pm.IsURLAllowed(context.Background(), ts.URL+"/page")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestIsURLAllowed_AgentSpecificGroup(t *testing.T) {
	ts := robotsServer(t, "User-agent: TestBot\nDisallow: /\n\nUser-agent: *\nAllow: /\n", nil)

	cfg := createTestConfig()
	cfg.EnableRobotsCheck = true
	pm := politeness.NewPolitenessManager(cfg, createTestLogger())

	allowed, err := pm.IsURLAllowed(context.Background(), ts.URL+"/page")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestIsURLAllowed_UnreachableRobotsAllows(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	cfg := createTestConfig()
	cfg.EnableRobotsCheck = true
	pm := politeness.NewPolitenessManager(cfg, createTestLogger())

	allowed, err := pm.IsURLAllowed(context.Background(), url+"/page")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestWait_PacesSameHost(t *testing.T) {
	cfg := createTestConfig()
	cfg.DefaultMinDelay = 100 * time.Millisecond
	pm := politeness.NewPolitenessManager(cfg, createTestLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, pm.Wait(context.Background(), "https://paced.example/page"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)

	// a different host has its own budget
	start = time.Now()
	require.NoError(t, pm.Wait(context.Background(), "https://other.example/page"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	cfg := createTestConfig()
	cfg.DefaultMinDelay = time.Hour
	pm := politeness.NewPolitenessManager(cfg, createTestLogger())

	require.NoError(t, pm.Wait(context.Background(), "https://slow.example/1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, pm.Wait(ctx, "https://slow.example/2"))
}
