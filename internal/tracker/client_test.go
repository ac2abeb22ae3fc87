package tracker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
)

func newTestPipeline(t *testing.T) *httpx.Pipeline {
	t.Helper()
	return &httpx.Pipeline{
		Provider: "tracker",
		Cache:    cache.New(cache.DefaultConfig(), nil, nil),
		Limiter:  resilience.NewLimiter(resilience.LimiterConfig{PerMinute: 6000, Burst: 100, MaxWait: time.Second}),
		Breaker:  resilience.NewBreaker("tracker", resilience.DefaultBreakerConfig(), nil),
		Retry:    resilience.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}
}

var _ = redis.Nil // keep redis import available for future L2-backed tests

func TestListSprintIssues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/agile/1.0/sprint/43577/issue", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"key": "scnt-100", "id": "1", "summary": "fix bug", "status": "Done", "issueType": "Bug", "priority": "High"},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	issues, err := c.ListSprintIssues(t.Context(), "43577", nil, 0)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "scnt-100", issues[0].Key)
}

func TestGetIssueDetailsNormalizesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/agile/1.0/issue/SCNT-4945", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"key": "SCNT-4945"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	issue, err := c.GetIssueDetails(t.Context(), "scnt-4945", false)
	require.NoError(t, err)
	require.Equal(t, "SCNT-4945", issue.Key)
}

func TestSearchIssuesRejectsDangerousJQL(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid"}, newTestPipeline(t))
	_, err := c.SearchIssues(t.Context(), "project = X AND text ~ 'DROP TABLE issues'", nil, 10)
	require.Error(t, err)
}

func TestListBoardsCachesResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "1", "name": "Sage Connect"}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	_, err := c.ListBoards(t.Context(), "Sage", 10)
	require.NoError(t, err)
	_, err = c.ListBoards(t.Context(), "Sage", 10)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestListSprintsWalksPagesUntilIsLast(t *testing.T) {
	var gotStartAt []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/agile/1.0/board/7/sprint", r.URL.Path)
		gotStartAt = append(gotStartAt, r.URL.Query().Get("startAt"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("startAt") {
		case "0":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"isLast": false,
				"values": []map[string]any{
					{"id": "1", "name": "Sprint 1", "state": "closed", "boardId": "7"},
					{"id": "2", "name": "Sprint 2", "state": "closed", "boardId": "7"},
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"isLast": true,
				"values": []map[string]any{
					{"id": "3", "name": "Sprint 3", "state": "closed", "boardId": "7"},
				},
			})
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	sprints, err := c.ListSprints(t.Context(), "7", "closed")
	require.NoError(t, err)
	require.Len(t, sprints, 3)
	require.Equal(t, []string{"0", "2"}, gotStartAt)
}

func TestNotFoundSurfacesAsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	_, err := c.GetIssueDetails(t.Context(), "NOPE-1", false)
	require.Error(t, err)
}
