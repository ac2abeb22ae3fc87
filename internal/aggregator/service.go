// Package aggregator implements the sprint-report aggregation engine of
// spec.md §4.D: it fans out to the tracker and scm clients concurrently,
// correlates commits/PRs to issues by issue key, computes deterministic
// sprint metrics, and packages the result into a model.SprintReport.
//
// The fan-out barrier is built on golang.org/x/sync/errgroup (present in
// O-tero's go.mod), generalizing the teacher's own goroutine-per-source
// aggregation idiom to a single join point with cooperative cancellation.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/config"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/logging"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/scm"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/tracker"
)

const generatorVersion = "1.0.0"

// Request is the aggregation input contract of §4.D.
type Request struct {
	SprintID              string
	Owner                 string
	Repo                  string
	IncludeTier1          bool
	IncludeTier2          bool
	IncludeTier3          bool
	IncludeForwardLooking bool
	IncludeEnhancedSCM    bool
	NoCache               bool
}

func (r Request) hasRepo() bool { return r.Owner != "" && r.Repo != "" }

// Service implements the sprint-report aggregation engine.
type Service struct {
	Tracker      *tracker.Client
	SCM          *scm.Client // nil when no SCM client is configured
	Cache        *cache.Engine
	Log          *logging.Logger
	Cfg          config.AggregatorConfig
	TierRules    TierRules
	DoneStatuses map[string]bool
}

// NewService constructs a Service, following the teacher's
// Default*()-overridable-by-caller convention: required collaborators
// are passed in, classification rules and done-status vocabulary take
// the spec's defaults and can be overridden on the returned value.
func NewService(trk *tracker.Client, scmClient *scm.Client, cacheEngine *cache.Engine, log *logging.Logger, cfg config.AggregatorConfig) *Service {
	return &Service{
		Tracker:      trk,
		SCM:          scmClient,
		Cache:        cacheEngine,
		Log:          log,
		Cfg:          cfg,
		TierRules:    DefaultTierRules(),
		DoneStatuses: map[string]bool{"Done": true, "Closed": true, "Resolved": true},
	}
}

// GenerateReport implements the NEW → FETCHING_SPRINT → FANNING_OUT →
// CORRELATING → COMPUTING → PACKAGED state machine of §4.D.
func (s *Service) GenerateReport(ctx context.Context, req Request) (*model.SprintReport, error) {
	genStart := time.Now()
	cacheKey := reportCacheKey(req)

	if !req.NoCache {
		if raw, ok := s.Cache.Get(ctx, cacheKey); ok {
			var cached model.SprintReport
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	// FETCHING_SPRINT — blocks everything else; failure here is fatal.
	sprint, err := s.Tracker.GetSprint(ctx, req.SprintID)
	if err != nil {
		return nil, fatalTrackerErr(err)
	}
	ttl := config.TTLForSprintState(string(sprint.State))

	var (
		issues       []model.Issue
		commits      []model.Commit
		prs          []model.PullRequest
		prsTruncated bool
		velocityHist model.Velocity
		teamCapacity float64

		warningsMu sync.Mutex
		warnings   []string
	)
	addWarning := func(msg string) {
		warningsMu.Lock()
		warnings = append(warnings, msg)
		warningsMu.Unlock()
	}

	// FANNING_OUT — tracker's issue fetch is the only fatal source;
	// SCM and historical-velocity sources degrade to warnings.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fetched, err := s.Tracker.ListSprintIssues(gctx, req.SprintID, nil, 0)
		if err != nil {
			return fatalTrackerErr(err)
		}
		issues = fetched
		return nil
	})

	if s.SCM != nil && req.hasRepo() && sprint.StartDate != nil && sprint.EndDate != nil {
		g.Go(func() error {
			fetched, err := s.SCM.GetCommits(gctx, req.Owner, req.Repo, *sprint.StartDate, *sprint.EndDate, 0)
			if err != nil {
				addWarning("commits: " + err.Error())
				return nil
			}
			commits = fetched
			return nil
		})
		g.Go(func() error {
			fetched, truncated, err := s.fetchPullRequests(gctx, req, sprint)
			if err != nil {
				addWarning("pull requests: " + err.Error())
				return nil
			}
			prs = fetched
			prsTruncated = truncated
			return nil
		})
	} else if req.hasRepo() && s.SCM == nil {
		addWarning("scm: no source-control client configured, commit/PR sections omitted")
	}

	g.Go(func() error {
		v, err := s.historicalVelocity(gctx, sprint.BoardID, 5)
		if err != nil {
			addWarning("velocity history: " + err.Error())
			return nil
		}
		velocityHist = v
		return nil
	})

	g.Go(func() error {
		capacity, err := s.teamCapacity(gctx, sprint.BoardID)
		if err != nil {
			addWarning("team capacity: " + err.Error())
			return nil
		}
		teamCapacity = capacity
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if prsTruncated {
		addWarning("pull request search truncated at 1000 results")
	}

	if req.IncludeEnhancedSCM && s.SCM != nil && len(prs) > 0 {
		enhanced, _ := s.SCM.EnhancePullRequests(ctx, req.Owner, req.Repo, prs, s.Cfg.PREnhancementCap, s.Cfg.PREnhancementBatchSize)
		prs = enhanced
	}

	// CORRELATING
	burndown := computeBurndown(issues, sprint, s.DoneStatuses)
	issueLinks := correlate(commits, prs)

	// COMPUTING
	metrics := computeMetrics(issues, sprint, s.DoneStatuses)

	report := &model.SprintReport{
		Sprint:       sprint,
		Metrics:      metrics,
		Commits:      commits,
		PullRequests: prs,
		Velocity:     velocityHist,
		Burndown:     burndown,
		IssueLinks:   issueLinks,
		Metadata: model.ReportMetadata{
			GeneratedAt:       time.Now(),
			GeneratorVersion:  generatorVersion,
			UpstreamLatencyMs: time.Since(genStart).Milliseconds(),
			Warnings:          warnings,
		},
	}

	if req.IncludeTier1 || req.IncludeTier2 || req.IncludeTier3 {
		t1, t2, t3 := bucketByTier(issues, s.TierRules)
		if req.IncludeTier1 {
			report.Tier1Issues = t1
		}
		if req.IncludeTier2 {
			report.Tier2Issues = t2
		}
		if req.IncludeTier3 {
			report.Tier3Issues = t3
		}
	}

	if req.IncludeEnhancedSCM && len(commits)+len(prs) > 0 {
		report.EnhancedGitHub = buildEnhancedGitHub(commits, prs)
	}

	if req.IncludeForwardLooking {
		report.ForwardLooking = buildForwardLooking(velocityHist, issues, req.SprintID, s.DoneStatuses, teamCapacity)
	}

	// PACKAGED — write-through even when noCache skipped the read.
	if raw, err := json.Marshal(report); err == nil {
		_ = s.Cache.Set(ctx, cacheKey, raw, ttl)
	}

	return report, nil
}

// fetchPullRequests applies the §4.C capability check: GraphQL search
// when a token is configured, REST plus client-side date filtering
// otherwise.
func (s *Service) fetchPullRequests(ctx context.Context, req Request, sprint model.Sprint) ([]model.PullRequest, bool, error) {
	since, until := *sprint.StartDate, *sprint.EndDate
	if s.SCM.PreferGraphQL() {
		return s.SCM.GetPullRequestsInWindow(ctx, req.Owner, req.Repo, since, until)
	}
	prs, err := s.SCM.GetPullRequestsInWindowREST(ctx, req.Owner, req.Repo, since, until)
	return prs, false, err
}

// fatalTrackerErr wraps a non-ServiceError as an UpstreamFailure; an
// already-typed ServiceError passes through unchanged.
func fatalTrackerErr(err error) error {
	if _, ok := svcerrors.As(err); ok {
		return err
	}
	return svcerrors.New(svcerrors.KindUpstream, err)
}

// reportCacheKey implements the `report:<sprintId>:<flagsHash>` scheme
// of §4.D.
func reportCacheKey(req Request) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "t1=%v;t2=%v;t3=%v;fwd=%v;scm=%v;owner=%s;repo=%s",
		req.IncludeTier1, req.IncludeTier2, req.IncludeTier3,
		req.IncludeForwardLooking, req.IncludeEnhancedSCM, req.Owner, req.Repo)
	return fmt.Sprintf("report:%s:%x", req.SprintID, h.Sum32())
}
