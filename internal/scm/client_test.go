package scm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
)

func newTestPipeline(t *testing.T) *httpx.Pipeline {
	t.Helper()
	return &httpx.Pipeline{
		Provider: "scm",
		Cache:    cache.New(cache.DefaultConfig(), nil, nil),
		Limiter:  resilience.NewLimiter(resilience.LimiterConfig{PerMinute: 6000, Burst: 100, MaxWait: time.Second}),
		Breaker:  resilience.NewBreaker("scm", resilience.DefaultBreakerConfig(), nil),
		Retry:    resilience.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}
}

func TestGetCommitsPaginatesAndExtractsIssueKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/sage-connect/commits", r.URL.Path)
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		if page == "" || page == "1" {
			w.Header().Set("Link", `<https://x/repos/acme/sage-connect/commits?page=2>; rel="next"`)
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{
					"sha": "abc123",
					"commit": map[string]any{
						"message":   "SCNT-100 fix login bug",
						"author":    map[string]any{"name": "Jane", "email": "jane@example.com"},
						"committer": map[string]any{"date": "2026-01-01T00:00:00Z"},
					},
					"author":   map[string]any{"login": "janedoe"},
					"html_url": "https://github.com/acme/sage-connect/commit/abc123",
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"sha": "def456",
				"commit": map[string]any{
					"message":   "SCNT-101 add retry logic",
					"author":    map[string]any{"name": "Bob", "email": "bob@example.com"},
					"committer": map[string]any{"date": "2026-01-02T00:00:00Z"},
				},
				"author":   map[string]any{"login": "bobsmith"},
				"html_url": "https://github.com/acme/sage-connect/commit/def456",
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{Token: "t", BaseURL: srv.URL}, newTestPipeline(t))
	require.NoError(t, err)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	commits, err := c.GetCommits(t.Context(), "acme", "sage-connect", since, until, 0)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "abc123", commits[0].SHA)
	require.Equal(t, []string{"SCNT-100"}, commits[0].IssueKeys)
	require.Equal(t, []string{"SCNT-101"}, commits[1].IssueKeys)
}

func TestGetEnhancedPullRequestMergesReviews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/sage-connect/pulls/42":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"number": 42, "title": "SCNT-200 add caching", "state": "closed", "merged": true,
				"user": map[string]any{"login": "janedoe"},
				"created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-02T00:00:00Z",
				"merged_at": "2026-01-02T00:00:00Z",
				"additions": 10, "deletions": 2, "changed_files": 3, "commits": 1, "comments": 0,
			})
		case "/repos/acme/sage-connect/pulls/42/reviews":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"user": map[string]any{"login": "bobsmith"}, "state": "APPROVED", "submitted_at": "2026-01-02T00:00:00Z"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	require.NoError(t, err)

	pr, err := c.GetEnhancedPullRequest(t.Context(), "acme", "sage-connect", 42)
	require.NoError(t, err)
	require.True(t, pr.Enhanced)
	require.Equal(t, model.PRMerged, pr.State)
	require.Len(t, pr.Reviews, 1)
	require.Equal(t, "bobsmith", pr.Reviews[0].Author)
	require.Equal(t, []string{"SCNT-200"}, pr.IssueKeys)
}

func TestGetPullRequestsInWindowGraphQLPaginatesAndTruncates(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		pages++
		w.Header().Set("Content-Type", "application/json")
		nodes := make([]map[string]any, 0, 100)
		for i := 0; i < 100; i++ {
			nodes = append(nodes, map[string]any{
				"number": pages*1000 + i,
				"title":  fmt.Sprintf("SCNT-%d change", pages*1000+i),
				"state":  "OPEN",
				"merged": false,
				"createdAt": "2026-01-01T00:00:00Z",
				"updatedAt": "2026-01-01T00:00:00Z",
				"author":    map[string]any{"login": "janedoe"},
				"comments":  map[string]any{"totalCount": 0},
				"commits":   map[string]any{"totalCount": 1},
				"labels":    map[string]any{"nodes": []map[string]any{}},
				"assignees": map[string]any{"nodes": []map[string]any{}},
			})
		}
		hasNext := pages < 15
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"search": map[string]any{
					"issueCount": 1500,
					"pageInfo":   map[string]any{"hasNextPage": hasNext, "endCursor": fmt.Sprintf("cursor-%d", pages)},
					"nodes":      nodes,
				},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{Token: "t", GraphQLURL: srv.URL}, newTestPipeline(t))
	require.NoError(t, err)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	prs, truncated, err := c.GetPullRequestsInWindow(t.Context(), "Sage", "sage-connect", since, until)
	require.NoError(t, err)
	require.True(t, truncated)
	require.Len(t, prs, prSearchMaxTotal)
}

func TestGetPullRequestsInWindowRESTFiltersByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/sage-connect/pulls", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"number": 3, "title": "SCNT-300 recent", "state": "open", "user": map[string]any{"login": "a"},
				"created_at": "2026-01-15T00:00:00Z", "updated_at": "2026-01-15T00:00:00Z"},
			{"number": 2, "title": "SCNT-299 too old", "state": "open", "user": map[string]any{"login": "a"},
				"created_at": "2025-12-01T00:00:00Z", "updated_at": "2025-12-01T00:00:00Z"},
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	require.NoError(t, err)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	prs, err := c.GetPullRequestsInWindowREST(t.Context(), "acme", "sage-connect", since, until)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	require.Equal(t, 3, prs[0].Number)
}

func TestEnhancePullRequestsRespectsCapAndBatchSize(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/sage-connect/pulls/7/reviews" {
			_ = json.NewEncoder(w).Encode([]map[string]any{})
			return
		}
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number": 7, "title": "SCNT-400", "state": "open", "user": map[string]any{"login": "a"},
			"created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z",
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	require.NoError(t, err)

	basic := make([]model.PullRequest, 5)
	for i := range basic {
		basic[i] = model.PullRequest{Number: 7, Title: "basic"}
	}

	out, skipped := c.EnhancePullRequests(t.Context(), "acme", "sage-connect", basic, 3, 2)
	require.Equal(t, 2, skipped)
	enhancedCount := 0
	for _, pr := range out {
		if pr.Enhanced {
			enhancedCount++
		}
	}
	require.Equal(t, 3, enhancedCount)
}

func TestEnhancePullRequestsFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, newTestPipeline(t))
	require.NoError(t, err)

	basic := []model.PullRequest{{Number: 99, Title: "stays basic"}}
	out, skipped := c.EnhancePullRequests(t.Context(), "acme", "sage-connect", basic, 15, 5)
	require.Equal(t, 0, skipped)
	require.Len(t, out, 1)
	require.False(t, out[0].Enhanced)
	require.Equal(t, "stays basic", out[0].Title)
}
