// Package scm implements the dual-backed source-control client of
// spec.md §4.C: a REST path for commits/basic PRs (backed by
// github.com/google/go-github/v57/github, grounded on
// greg-hellings-devdashboard's repository.GitHubClient) and a GraphQL path
// for date-bounded PR search (hand-built on net/http + encoding/json,
// since no example repo imports a GraphQL client library — see
// DESIGN.md).
package scm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

const providerName = "scm"

// Config configures a Client.
type Config struct {
	// Token authenticates both the REST client and, when non-empty, makes
	// the GraphQL PR-search path the preferred one (§4.C capability
	// check: "GraphQL preferred when token configured").
	Token string
	// BaseURL overrides the GitHub REST API base, for Enterprise
	// instances or test servers.
	BaseURL string
	// GraphQLURL overrides the GraphQL endpoint, for test servers.
	GraphQLURL string
}

// Client is the SCM (source-control) client.
type Client struct {
	cfg        Config
	rest       *github.Client
	httpClient *http.Client
	pipe       *httpx.Pipeline
}

// New constructs a Client. pipe supplies the shared cache/limiter/breaker
// pipeline; its Provider field should be "scm".
func New(cfg Config, pipe *httpx.Pipeline) (*Client, error) {
	base := httpx.CopyHTTPClientWithTimeout(nil, httpx.DefaultRequestDeadline, true)

	var tc *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		tc = oauth2.NewClient(context.Background(), ts)
		tc.Timeout = base.Timeout
	} else {
		tc = base
	}

	gh := github.NewClient(tc)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, svcerrors.New(svcerrors.KindInternal, err)
		}
		gh.BaseURL = base
	}

	return &Client{cfg: cfg, rest: gh, httpClient: tc, pipe: pipe}, nil
}

// PreferGraphQL reports whether a GraphQL token is configured, making the
// GraphQL path the preferred one for date-bounded PR search.
func (c *Client) PreferGraphQL() bool { return c.cfg.Token != "" }

// GetCommits returns commits in [since, until], ordered by date desc,
// paginating up to maxPages pages of 100.
func (c *Client) GetCommits(ctx context.Context, owner, repo string, since, until time.Time, maxPages int) ([]model.Commit, error) {
	if maxPages <= 0 {
		maxPages = 10
	}
	cacheKey := "repo:" + owner + "/" + repo + ":commits:" + since.Format(time.RFC3339) + ":" + until.Format(time.RFC3339)
	opts := httpx.Options{CacheKey: cacheKey, TTL: 300}

	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) ([]model.Commit, error) {
		var all []model.Commit
		page := 1
		for page <= maxPages {
			listOpts := &github.CommitsListOptions{
				Since: since,
				Until: until,
				ListOptions: github.ListOptions{Page: page, PerPage: 100},
			}
			commits, resp, err := c.rest.Repositories.ListCommits(ctx, owner, repo, listOpts)
			if err != nil {
				return nil, translateGitHubErr(err, resp)
			}
			for _, gc := range commits {
				all = append(all, convertCommit(gc))
			}
			if resp.NextPage == 0 {
				break
			}
			page = resp.NextPage
		}
		return all, nil
	})
}

func convertCommit(gc *github.RepositoryCommit) model.Commit {
	msg := ""
	committedAt := time.Time{}
	authorName, authorEmail := "", ""
	if gc.Commit != nil {
		msg = gc.Commit.GetMessage()
		if gc.Commit.Committer != nil {
			committedAt = gc.Commit.Committer.GetDate().Time
		}
		if gc.Commit.Author != nil {
			authorName = gc.Commit.Author.GetName()
			authorEmail = gc.Commit.Author.GetEmail()
		}
	}
	login := ""
	if gc.Author != nil {
		login = gc.Author.GetLogin()
	}
	return model.Commit{
		SHA:         gc.GetSHA(),
		Message:     msg,
		Author:      model.CommitAuthor{Name: authorName, Email: authorEmail, Login: login},
		CommittedAt: committedAt,
		URL:         gc.GetHTMLURL(),
		IssueKeys:   model.ExtractIssueKeys(msg),
	}
}

// GetEnhancedPullRequest fetches a PR plus reviews, commit count, and
// file-change totals.
func (c *Client) GetEnhancedPullRequest(ctx context.Context, owner, repo string, number int) (model.PullRequest, error) {
	cacheKey := "pr:" + owner + "/" + repo + ":" + strconv.Itoa(number) + ":enhanced"
	opts := httpx.Options{CacheKey: cacheKey, TTL: 1800}

	return httpx.Do(ctx, c.pipe, opts, func(ctx context.Context) (model.PullRequest, error) {
		ghPR, resp, err := c.rest.PullRequests.Get(ctx, owner, repo, number)
		if err != nil {
			return model.PullRequest{}, translateGitHubErr(err, resp)
		}
		reviews, reviewsResp, err := c.rest.PullRequests.ListReviews(ctx, owner, repo, number, &github.ListOptions{PerPage: 100})
		if err != nil {
			return model.PullRequest{}, translateGitHubErr(err, reviewsResp)
		}
		pr := convertPullRequest(ghPR)
		pr.Enhanced = true
		for _, r := range reviews {
			pr.Reviews = append(pr.Reviews, model.Review{
				Author:      r.GetUser().GetLogin(),
				State:       r.GetState(),
				SubmittedAt: r.GetSubmittedAt().Time,
			})
		}
		return pr, nil
	})
}

func convertPullRequest(gp *github.PullRequest) model.PullRequest {
	state := model.PROpen
	if gp.GetMerged() {
		state = model.PRMerged
	} else if gp.GetState() == "closed" {
		state = model.PRClosed
	}

	var mergedAt, closedAt *time.Time
	if gp.MergedAt != nil {
		t := gp.GetMergedAt().Time
		mergedAt = &t
	}
	if gp.ClosedAt != nil {
		t := gp.GetClosedAt().Time
		closedAt = &t
	}

	labels := make([]string, 0, len(gp.Labels))
	for _, l := range gp.Labels {
		labels = append(labels, l.GetName())
	}
	assignees := make([]string, 0, len(gp.Assignees))
	for _, a := range gp.Assignees {
		assignees = append(assignees, a.GetLogin())
	}

	text := gp.GetTitle() + "\n" + gp.GetBody()

	return model.PullRequest{
		Number:       gp.GetNumber(),
		Title:        gp.GetTitle(),
		Body:         gp.GetBody(),
		State:        state,
		Author:       gp.GetUser().GetLogin(),
		CreatedAt:    gp.GetCreatedAt().Time,
		UpdatedAt:    gp.GetUpdatedAt().Time,
		MergedAt:     mergedAt,
		ClosedAt:     closedAt,
		Additions:    gp.GetAdditions(),
		Deletions:    gp.GetDeletions(),
		FilesChanged: gp.GetChangedFiles(),
		Commits:      gp.GetCommits(),
		Comments:     gp.GetComments(),
		Labels:       labels,
		Assignees:    assignees,
		IssueKeys:    model.ExtractIssueKeys(text),
	}
}

func translateGitHubErr(err error, resp *github.Response) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.Response.StatusCode
	}
	return httpx.ClassifyHTTPError(status, classifyTransport(status, err))
}

// classifyTransport returns nil when status carries enough information on
// its own (so ClassifyHTTPError treats it as an HTTP-status error rather
// than a transport error), and the original err otherwise.
func classifyTransport(status int, err error) error {
	if status > 0 {
		return nil
	}
	return err
}
