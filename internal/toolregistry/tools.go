package toolregistry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/aggregator"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

// allToolDefs returns the fourteen required tools of §4.E.
func allToolDefs() []ToolDef {
	return []ToolDef{
		{
			Name:    "get_sprints",
			Fields:  []Field{{Name: "boardId", Type: TypeString, Required: true}, {Name: "state", Type: TypeString, Default: ""}},
			Handler: handleGetSprints,
		},
		{
			Name: "get_sprint_issues",
			Fields: []Field{
				{Name: "sprintId", Type: TypeString, Required: true},
				{Name: "maxResults", Type: TypeInt, Default: 100},
				{Name: "fields", Type: TypeStringSlice, Default: []string(nil)},
			},
			Handler: handleGetSprintIssues,
		},
		{
			Name: "get_issue_details",
			Fields: []Field{
				{Name: "key", Type: TypeString, Required: true},
				{Name: "expandChangelog", Type: TypeBool, Default: false},
			},
			Handler: handleGetIssueDetails,
		},
		{
			Name: "search_issues_jql",
			Fields: []Field{
				{Name: "jql", Type: TypeString, Required: true},
				{Name: "maxResults", Type: TypeInt, Default: 50},
				{Name: "fields", Type: TypeStringSlice, Default: []string(nil)},
			},
			Handler: handleSearchIssuesJQL,
		},
		{
			Name: "get_commits",
			Fields: []Field{
				{Name: "owner", Type: TypeString, Required: true},
				{Name: "repo", Type: TypeString, Required: true},
				{Name: "since", Type: TypeString, Required: true},
				{Name: "until", Type: TypeString, Required: true},
				{Name: "maxPages", Type: TypeInt, Default: 10},
			},
			Handler: handleGetCommits,
		},
		{
			Name: "get_pull_requests",
			Fields: []Field{
				{Name: "owner", Type: TypeString, Required: true},
				{Name: "repo", Type: TypeString, Required: true},
				{Name: "since", Type: TypeString, Required: true},
				{Name: "until", Type: TypeString, Required: true},
			},
			Handler: handleGetPullRequests,
		},
		{
			Name: "search_commits_by_message",
			Fields: []Field{
				{Name: "owner", Type: TypeString, Required: true},
				{Name: "repo", Type: TypeString, Required: true},
				{Name: "since", Type: TypeString, Required: true},
				{Name: "until", Type: TypeString, Required: true},
				{Name: "query", Type: TypeString, Required: true},
			},
			Handler: handleSearchCommitsByMessage,
		},
		{
			Name: "find_commits_with_issue_refs",
			Fields: []Field{
				{Name: "owner", Type: TypeString, Required: true},
				{Name: "repo", Type: TypeString, Required: true},
				{Name: "since", Type: TypeString, Required: true},
				{Name: "until", Type: TypeString, Required: true},
				{Name: "issueKey", Type: TypeString, Required: true},
			},
			Handler: handleFindCommitsWithIssueRefs,
		},
		{
			Name:     "generate_sprint_report",
			Fields:   reportFields(),
			Deadline: 60 * time.Second,
			Handler:  handleGenerateSprintReport,
		},
		{
			Name:     "generate_comprehensive_report",
			Fields:   reportFields(),
			Deadline: 60 * time.Second,
			Handler:  handleGenerateComprehensiveReport,
		},
		{
			Name:     "get_sprint_metrics",
			Fields:   []Field{{Name: "sprintId", Type: TypeString, Required: true}},
			Deadline: 60 * time.Second,
			Handler:  handleGetSprintMetrics,
		},
		{
			Name:    "health_check",
			Handler: handleHealthCheck,
		},
		{
			Name:    "cache_stats",
			Handler: handleCacheStats,
		},
		{
			Name: "search_boards",
			Fields: []Field{
				{Name: "query", Type: TypeString, Default: ""},
				{Name: "limit", Type: TypeInt, Default: 50},
			},
			Handler: handleSearchBoards,
		},
	}
}

func reportFields() []Field {
	return []Field{
		{Name: "sprintId", Type: TypeString, Required: true},
		{Name: "owner", Type: TypeString, Default: ""},
		{Name: "repo", Type: TypeString, Default: ""},
		{Name: "includeTier1", Type: TypeBool, Default: false},
		{Name: "includeTier2", Type: TypeBool, Default: false},
		{Name: "includeTier3", Type: TypeBool, Default: false},
		{Name: "includeForwardLooking", Type: TypeBool, Default: false},
		{Name: "includeEnhancedSCM", Type: TypeBool, Default: false},
		{Name: "noCache", Type: TypeBool, Default: false},
	}
}

func handleGetSprints(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Tracker.ListSprints(ctx, argString(args, "boardId"), argString(args, "state"))
}

func handleGetSprintIssues(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Tracker.ListSprintIssues(ctx, argString(args, "sprintId"), argStringSlice(args, "fields"), argInt(args, "maxResults"))
}

func handleGetIssueDetails(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Tracker.GetIssueDetails(ctx, argString(args, "key"), argBool(args, "expandChangelog"))
}

func handleSearchIssuesJQL(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Tracker.SearchIssues(ctx, argString(args, "jql"), argStringSlice(args, "fields"), argInt(args, "maxResults"))
}

func requireSCM(rc *RegistryContext) error {
	if rc.SCM == nil {
		return svcerrors.New(svcerrors.KindUpstream, fmt.Errorf("no source-control client configured")).
			WithMessage("source-control integration is not configured")
	}
	return nil
}

func parseWindow(args map[string]any) (time.Time, time.Time, error) {
	since, err := time.Parse(time.RFC3339, argString(args, "since"))
	if err != nil {
		return time.Time{}, time.Time{}, svcerrors.New(svcerrors.KindValidation, err).WithDetails("field", "since")
	}
	until, err := time.Parse(time.RFC3339, argString(args, "until"))
	if err != nil {
		return time.Time{}, time.Time{}, svcerrors.New(svcerrors.KindValidation, err).WithDetails("field", "until")
	}
	return since, until, nil
}

func handleGetCommits(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	if err := requireSCM(rc); err != nil {
		return nil, err
	}
	since, until, err := parseWindow(args)
	if err != nil {
		return nil, err
	}
	return rc.SCM.GetCommits(ctx, argString(args, "owner"), argString(args, "repo"), since, until, argInt(args, "maxPages"))
}

func handleGetPullRequests(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	if err := requireSCM(rc); err != nil {
		return nil, err
	}
	since, until, err := parseWindow(args)
	if err != nil {
		return nil, err
	}
	owner, repo := argString(args, "owner"), argString(args, "repo")
	if rc.SCM.PreferGraphQL() {
		prs, truncated, err := rc.SCM.GetPullRequestsInWindow(ctx, owner, repo, since, until)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pullRequests": prs, "truncated": truncated}, nil
	}
	prs, err := rc.SCM.GetPullRequestsInWindowREST(ctx, owner, repo, since, until)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pullRequests": prs, "truncated": false}, nil
}

func handleSearchCommitsByMessage(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	if err := requireSCM(rc); err != nil {
		return nil, err
	}
	since, until, err := parseWindow(args)
	if err != nil {
		return nil, err
	}
	commits, err := rc.SCM.GetCommits(ctx, argString(args, "owner"), argString(args, "repo"), since, until, 0)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(argString(args, "query"))
	var matched []model.Commit
	for _, c := range commits {
		if strings.Contains(strings.ToLower(c.Message), query) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func handleFindCommitsWithIssueRefs(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	if err := requireSCM(rc); err != nil {
		return nil, err
	}
	since, until, err := parseWindow(args)
	if err != nil {
		return nil, err
	}
	commits, err := rc.SCM.GetCommits(ctx, argString(args, "owner"), argString(args, "repo"), since, until, 0)
	if err != nil {
		return nil, err
	}
	issueKey := strings.ToUpper(argString(args, "issueKey"))
	var matched []model.Commit
	for _, c := range commits {
		for _, k := range c.IssueKeys {
			if k == issueKey {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched, nil
}

func reportRequestFromArgs(args map[string]any, overrideFullDepth bool) aggregator.Request {
	req := aggregator.Request{
		SprintID:              argString(args, "sprintId"),
		Owner:                 argString(args, "owner"),
		Repo:                  argString(args, "repo"),
		IncludeTier1:          argBool(args, "includeTier1"),
		IncludeTier2:          argBool(args, "includeTier2"),
		IncludeTier3:          argBool(args, "includeTier3"),
		IncludeForwardLooking: argBool(args, "includeForwardLooking"),
		IncludeEnhancedSCM:    argBool(args, "includeEnhancedSCM"),
		NoCache:               argBool(args, "noCache"),
	}
	if overrideFullDepth {
		req.IncludeTier1, req.IncludeTier2, req.IncludeTier3 = true, true, true
		req.IncludeForwardLooking, req.IncludeEnhancedSCM = true, true
	}
	return req
}

func handleGenerateSprintReport(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Aggregator.GenerateReport(ctx, reportRequestFromArgs(args, false))
}

// handleGenerateComprehensiveReport is generate_sprint_report with every
// optional section forced on, per §4.E's distinct "comprehensive" tool.
func handleGenerateComprehensiveReport(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Aggregator.GenerateReport(ctx, reportRequestFromArgs(args, true))
}

func handleGetSprintMetrics(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	report, err := rc.Aggregator.GenerateReport(ctx, aggregator.Request{SprintID: argString(args, "sprintId")})
	if err != nil {
		return nil, err
	}
	return report.Metrics, nil
}

// healthStatus is the health_check tool's composed result, per the
// SUPPLEMENTED FEATURES section: cache reachability, breaker states.
type healthStatus struct {
	CacheL1Up    bool              `json:"cacheL1Up"`
	CacheL2Up    bool              `json:"cacheL2Up"`
	CacheL2Error string            `json:"cacheL2Error,omitempty"`
	Breakers     map[string]string `json:"breakers"`
}

func handleHealthCheck(ctx context.Context, rc *RegistryContext, _ map[string]any) (any, error) {
	status := healthStatus{CacheL1Up: true, CacheL2Up: true, Breakers: map[string]string{}}
	if err := rc.Cache.Ping(ctx); err != nil {
		status.CacheL2Up = false
		status.CacheL2Error = err.Error()
	}
	for provider, b := range rc.Breakers {
		status.Breakers[provider] = b.State().String()
	}
	return status, nil
}

func handleCacheStats(_ context.Context, rc *RegistryContext, _ map[string]any) (any, error) {
	return rc.Cache.Stats(), nil
}

func handleSearchBoards(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error) {
	return rc.Tracker.ListBoards(ctx, argString(args, "query"), argInt(args, "limit"))
}
