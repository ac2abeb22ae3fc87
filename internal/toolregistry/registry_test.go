package toolregistry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/aggregator"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/config"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/tracker"
)

func testRegistry(t *testing.T, trackerURL string) *Registry {
	t.Helper()
	pipe := &httpx.Pipeline{
		Provider: "tracker",
		Cache:    cache.New(cache.DefaultConfig(), nil, nil),
		Limiter:  resilience.NewLimiter(resilience.LimiterConfig{PerMinute: 6000, Burst: 100, MaxWait: time.Second}),
		Breaker:  resilience.NewBreaker("tracker", resilience.DefaultBreakerConfig(), nil),
		Retry:    resilience.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}
	trk := tracker.New(tracker.Config{BaseURL: trackerURL}, pipe)
	cacheEngine := cache.New(cache.DefaultConfig(), nil, nil)
	svc := aggregator.NewService(trk, nil, cacheEngine, nil, config.Default().Aggregator)

	rc := &RegistryContext{
		Tracker:    trk,
		SCM:        nil,
		Aggregator: svc,
		Cache:      cacheEngine,
		Breakers:   map[string]*resilience.Breaker{"tracker": pipe.Breaker},
	}
	return New(rc, map[string]int{})
}

func TestInvokeUnknownToolErrors(t *testing.T) {
	reg := testRegistry(t, "http://unused.invalid")
	_, err := reg.Invoke(t.Context(), "does_not_exist", nil)
	require.Error(t, err)
}

func TestInvokeValidationErrorWithoutInvokingHandler(t *testing.T) {
	reg := testRegistry(t, "http://unused.invalid")
	env, err := reg.Invoke(t.Context(), "get_sprints", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, svcerrors.KindValidation, env.Error.Kind)
	require.Contains(t, env.Error.Fields[0], "boardId")
}

func TestInvokeSearchBoardsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "7", "name": "Sage Connect"}})
	}))
	defer srv.Close()

	reg := testRegistry(t, srv.URL)
	env, err := reg.Invoke(t.Context(), "search_boards", json.RawMessage(`{"query":"Sage"}`))
	require.NoError(t, err)
	require.True(t, env.Success)
	require.Equal(t, "search_boards", env.ToolName)
}

func TestInvokeCacheStatsAndHealthCheck(t *testing.T) {
	reg := testRegistry(t, "http://unused.invalid")

	env, err := reg.Invoke(t.Context(), "cache_stats", nil)
	require.NoError(t, err)
	require.True(t, env.Success)

	env, err = reg.Invoke(t.Context(), "health_check", nil)
	require.NoError(t, err)
	require.True(t, env.Success)
	status, ok := env.Result.(healthStatus)
	require.True(t, ok)
	require.Equal(t, "closed", status.Breakers["tracker"])
}

func TestInvokeGetCommitsWithoutSCMFailsGracefully(t *testing.T) {
	reg := testRegistry(t, "http://unused.invalid")
	env, err := reg.Invoke(t.Context(), "get_commits", json.RawMessage(`{
		"owner":"acme","repo":"sage-connect","since":"2026-01-01T00:00:00Z","until":"2026-01-31T00:00:00Z"
	}`))
	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, svcerrors.KindUpstream, env.Error.Kind)
}

func TestInvokeGetIssueDetailsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := testRegistry(t, srv.URL)
	env, err := reg.Invoke(t.Context(), "get_issue_details", json.RawMessage(`{"key":"scnt-1"}`))
	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, svcerrors.KindNotFound, env.Error.Kind)
}
