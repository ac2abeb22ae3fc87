package scm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

const (
	defaultGraphQLURL = "https://api.github.com/graphql"
	prSearchPageSize  = 100
	prSearchMaxTotal  = 1000
)

const prSearchQuery = `
query($q: String!, $first: Int!, $after: String) {
  search(query: $q, type: ISSUE, first: $first, after: $after) {
    issueCount
    pageInfo { hasNextPage endCursor }
    nodes {
      ... on PullRequest {
        number
        title
        body
        state
        merged
        createdAt
        updatedAt
        mergedAt
        closedAt
        additions
        deletions
        changedFiles
        comments { totalCount }
        commits { totalCount }
        author { login }
        labels(first: 20) { nodes { name } }
        assignees(first: 10) { nodes { login } }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLPRNode struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	State        string     `json:"state"`
	Merged       bool       `json:"merged"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MergedAt     *time.Time `json:"mergedAt"`
	ClosedAt     *time.Time `json:"closedAt"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changedFiles"`
	Comments     struct {
		TotalCount int `json:"totalCount"`
	} `json:"comments"`
	Commits struct {
		TotalCount int `json:"totalCount"`
	} `json:"commits"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
	Labels struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
	Assignees struct {
		Nodes []struct {
			Login string `json:"login"`
		} `json:"nodes"`
	} `json:"assignees"`
}

type graphQLSearchResponse struct {
	Data struct {
		Search struct {
			IssueCount int `json:"issueCount"`
			PageInfo   struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []graphQLPRNode `json:"nodes"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (n graphQLPRNode) toPullRequest() model.PullRequest {
	state := model.PROpen
	if n.Merged {
		state = model.PRMerged
	} else if n.State == "CLOSED" {
		state = model.PRClosed
	}

	author := ""
	if n.Author != nil {
		author = n.Author.Login
	}
	labels := make([]string, 0, len(n.Labels.Nodes))
	for _, l := range n.Labels.Nodes {
		labels = append(labels, l.Name)
	}
	assignees := make([]string, 0, len(n.Assignees.Nodes))
	for _, a := range n.Assignees.Nodes {
		assignees = append(assignees, a.Login)
	}

	return model.PullRequest{
		Number:       n.Number,
		Title:        n.Title,
		Body:         n.Body,
		State:        state,
		Author:       author,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		MergedAt:     n.MergedAt,
		ClosedAt:     n.ClosedAt,
		Additions:    n.Additions,
		Deletions:    n.Deletions,
		FilesChanged: n.ChangedFiles,
		Commits:      n.Commits.TotalCount,
		Comments:     n.Comments.TotalCount,
		Labels:       labels,
		Assignees:    assignees,
		IssueKeys:    model.ExtractIssueKeys(n.Title + "\n" + n.Body),
	}
}

// GetPullRequestsInWindow returns PRs created in [since, until] using the
// GraphQL search API (repo:O/R is:pr created:since..until), auto-paginating
// up to 1000 results (§4.C). Results beyond 1000 are silently capped; the
// caller (aggregator) is responsible for recording the truncation warning
// required by §8.
func (c *Client) GetPullRequestsInWindow(ctx context.Context, owner, repo string, since, until time.Time) ([]model.PullRequest, bool, error) {
	cacheKey := fmt.Sprintf("repo:%s/%s:prs:graphql:%s..%s", owner, repo, since.Format("2006-01-02"), until.Format("2006-01-02"))
	opts := httpx.Options{CacheKey: cacheKey, TTL: 600, Tokens: 2}

	type result struct {
		prs       []model.PullRequest
		truncated bool
	}
	r, err := httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) (result, error) {
		q := fmt.Sprintf("repo:%s/%s is:pr created:%s..%s", owner, repo,
			since.Format("2006-01-02"), until.Format("2006-01-02"))

		var all []model.PullRequest
		var after string
		truncated := false
		for {
			resp, err := c.runSearchPage(ctx, q, prSearchPageSize, after)
			if err != nil {
				return result{}, err
			}
			if len(resp.Errors) > 0 {
				return result{}, svcerrors.New(svcerrors.KindUpstream, fmt.Errorf("graphql: %s", resp.Errors[0].Message))
			}
			for _, n := range resp.Data.Search.Nodes {
				if len(all) >= prSearchMaxTotal {
					truncated = true
					break
				}
				all = append(all, n.toPullRequest())
			}
			if truncated || !resp.Data.Search.PageInfo.HasNextPage || len(all) >= prSearchMaxTotal {
				if resp.Data.Search.IssueCount > prSearchMaxTotal {
					truncated = true
				}
				break
			}
			after = resp.Data.Search.PageInfo.EndCursor
		}
		return result{prs: all, truncated: truncated}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return r.prs, r.truncated, nil
}

func (c *Client) runSearchPage(ctx context.Context, query string, first int, after string) (*graphQLSearchResponse, error) {
	vars := map[string]any{"q": query, "first": first}
	if after != "" {
		vars["after"] = after
	}
	reqBody := graphQLRequest{Query: prSearchQuery, Variables: vars}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, svcerrors.New(svcerrors.KindInternal, err)
	}

	endpoint := c.cfg.GraphQLURL
	if endpoint == "" {
		endpoint = defaultGraphQLURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, svcerrors.New(svcerrors.KindInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, httpx.ClassifyHTTPError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, httpx.ClassifyHTTPError(resp.StatusCode, nil)
	}

	var out graphQLSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, svcerrors.New(svcerrors.KindInternal, err)
	}
	return &out, nil
}

// GetPullRequestsInWindowREST is the client-side-date-filtered REST
// fallback used when no GraphQL token is configured (§4.C capability
// check).
func (c *Client) GetPullRequestsInWindowREST(ctx context.Context, owner, repo string, since, until time.Time) ([]model.PullRequest, error) {
	cacheKey := fmt.Sprintf("repo:%s/%s:prs:rest:%s..%s", owner, repo, since.Format("2006-01-02"), until.Format("2006-01-02"))
	opts := httpx.Options{CacheKey: cacheKey, TTL: 300}

	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) ([]model.PullRequest, error) {
		var all []model.PullRequest
		page := 1
		for page <= 10 {
			listOpts := &github.PullRequestListOptions{
				State:       "all",
				Sort:        "created",
				Direction:   "desc",
				ListOptions: github.ListOptions{Page: page, PerPage: 100},
			}
			prs, resp, err := c.rest.PullRequests.List(ctx, owner, repo, listOpts)
			if err != nil {
				return nil, translateGitHubErr(err, resp)
			}
			stop := false
			for _, gp := range prs {
				createdAt := gp.GetCreatedAt().Time
				if createdAt.Before(since) {
					stop = true
					continue
				}
				if createdAt.After(until) {
					continue
				}
				all = append(all, convertPullRequest(gp))
			}
			if stop || resp.NextPage == 0 {
				break
			}
			page = resp.NextPage
		}
		return all, nil
	})
}
