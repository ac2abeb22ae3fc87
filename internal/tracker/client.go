// Package tracker implements the issue-tracker (Jira-like) REST client of
// spec.md §4.C. No Jira client library appears anywhere in the reference
// pack (no example repo imports one), so this client is hand-built on
// net/http + encoding/json, grounded on the teacher's own
// services/datafeeds HTTP-source pattern (a bare *http.Client plus JSON
// decode, no generated SDK).
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

const providerName = "tracker"

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
}

// Client is the tracker REST client.
type Client struct {
	cfg    Config
	http   *http.Client
	pipe   *httpx.Pipeline
}

// New constructs a Client. pipe supplies the shared cache/limiter/breaker
// pipeline; its Provider field should be "tracker".
func New(cfg Config, pipe *httpx.Pipeline) *Client {
	return &Client{
		cfg:  cfg,
		http: httpx.CopyHTTPClientWithTimeout(nil, httpx.DefaultRequestDeadline, true),
		pipe: pipe,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return svcerrors.New(svcerrors.KindInternal, err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return svcerrors.New(svcerrors.KindInternal, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return httpx.ClassifyHTTPError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			c.pauseForRetryAfter(ra)
		}
	}
	if resp.StatusCode >= 300 {
		return httpx.ClassifyHTTPError(resp.StatusCode, nil)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return svcerrors.New(svcerrors.KindInternal, err)
		}
	}
	return nil
}

func (c *Client) pauseForRetryAfter(header string) {
	if secs, err := strconv.Atoi(header); err == nil {
		c.pipe.Limiter.Pause(providerName+":default", time.Now().Add(time.Duration(secs)*time.Second))
		return
	}
	if t, err := http.ParseTime(header); err == nil {
		c.pipe.Limiter.Pause(providerName+":default", t)
	}
}

// ListBoards searches boards by name/id/projectKey.
func (c *Client) ListBoards(ctx context.Context, query string, limit int) ([]model.BoardInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{"name": {query}, "maxResults": {strconv.Itoa(limit)}}
	opts := httpx.Options{CacheKey: fmt.Sprintf("board:search:%s:%d", query, limit), TTL: 300}
	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) ([]model.BoardInfo, error) {
		var out []model.BoardInfo
		err := c.doJSON(ctx, http.MethodGet, "/rest/agile/1.0/board", q, nil, &out)
		return out, err
	})
}

// sprintsPage is the Jira Agile API's paginated envelope for
// board/{id}/sprint: {startAt, maxResults, isLast, values}.
type sprintsPage struct {
	Values []model.Sprint `json:"values"`
	IsLast bool           `json:"isLast"`
}

// maxSprintPages bounds the pagination walk in ListSprints so a
// misbehaving upstream (isLast never true) cannot loop forever.
const maxSprintPages = 20

// ListSprints returns sprints for a board in the given state
// ("active", "future", "closed", or "" for all). Per the Jira Agile API,
// results come back paginated (startAt/maxResults/isLast); this walks
// every page up to maxSprintPages, the same page-loop idiom
// scm.Client.GetCommits uses for its own paginated upstream.
func (c *Client) ListSprints(ctx context.Context, boardID string, state string) ([]model.Sprint, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	ttl := int64(300)
	if state == "closed" {
		ttl = 1800
	}
	opts := httpx.Options{CacheKey: fmt.Sprintf("board:%s:sprints:%s", boardID, state), TTL: ttl}
	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) ([]model.Sprint, error) {
		var all []model.Sprint
		startAt := 0
		for page := 0; page < maxSprintPages; page++ {
			q.Set("startAt", strconv.Itoa(startAt))
			var out sprintsPage
			if err := c.doJSON(ctx, http.MethodGet, "/rest/agile/1.0/board/"+boardID+"/sprint", q, nil, &out); err != nil {
				return nil, err
			}
			all = append(all, out.Values...)
			if out.IsLast || len(out.Values) == 0 {
				break
			}
			startAt += len(out.Values)
		}
		return all, nil
	})
}

// GetSprint fetches a single sprint descriptor by ID.
func (c *Client) GetSprint(ctx context.Context, sprintID string) (model.Sprint, error) {
	opts := httpx.Options{CacheKey: "sprint:" + sprintID, TTL: 300}
	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) (model.Sprint, error) {
		var out model.Sprint
		err := c.doJSON(ctx, http.MethodGet, "/rest/agile/1.0/sprint/"+sprintID, nil, nil, &out)
		return out, err
	})
}

// ListSprintIssues returns the issues assigned to a sprint.
func (c *Client) ListSprintIssues(ctx context.Context, sprintID string, fields []string, maxResults int) ([]model.Issue, error) {
	if maxResults <= 0 {
		maxResults = 100
	}
	q := url.Values{"maxResults": {strconv.Itoa(maxResults)}}
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}
	opts := httpx.Options{CacheKey: "sprint:" + sprintID + ":issues", TTL: 300}
	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) ([]model.Issue, error) {
		var out []model.Issue
		err := c.doJSON(ctx, http.MethodGet, "/rest/agile/1.0/sprint/"+sprintID+"/issue", q, nil, &out)
		return out, err
	})
}

// GetIssueDetails fetches a single issue, optionally expanding its
// changelog.
func (c *Client) GetIssueDetails(ctx context.Context, key string, expandChangelog bool) (model.Issue, error) {
	key = NormalizeIssueKey(key)
	q := url.Values{}
	if expandChangelog {
		q.Set("expand", "changelog")
	}
	opts := httpx.Options{CacheKey: "issue:" + key, TTL: 120}
	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) (model.Issue, error) {
		var out model.Issue
		err := c.doJSON(ctx, http.MethodGet, "/rest/agile/1.0/issue/"+key, q, nil, &out)
		return out, err
	})
}

// SearchIssues runs a sanitised JQL query.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields []string, maxResults int) ([]model.Issue, error) {
	if err := ValidateJQL(jql); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	body := map[string]any{
		"jql":        jql,
		"maxResults": maxResults,
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	opts := httpx.Options{} // search results are not cached: arbitrary JQL keys would grow unbounded
	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) ([]model.Issue, error) {
		var out struct {
			Issues []model.Issue `json:"issues"`
		}
		err := c.doJSON(ctx, http.MethodPost, "/rest/api/2/search", nil, body, &out)
		return out.Issues, err
	})
}

// NormalizeIssueKey upper-cases an issue key's project prefix, guaranteeing
// the canonical PROJ-NUM form regardless of input casing.
func NormalizeIssueKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
