// Package model holds the domain types shared across the cache, upstream
// client, aggregation, and tool-registry layers. Nothing in this package
// performs I/O; it is pure data plus the small helpers (IssueKeyPattern)
// that every layer needs to agree on.
package model

import (
	"regexp"
	"time"
)

// IssueKeyPattern matches canonical issue keys such as "SCNT-4945".
var IssueKeyPattern = regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+`)

// SprintState is the lifecycle state of a Sprint.
type SprintState string

const (
	SprintActive SprintState = "active"
	SprintFuture SprintState = "future"
	SprintClosed SprintState = "closed"
)

// Tier is the business-impact classification of an Issue.
type Tier int

const (
	TierUnclassified Tier = 0
	Tier1            Tier = 1
	Tier2            Tier = 2
	Tier3            Tier = 3
)

// BoardType distinguishes Scrum from Kanban boards.
type BoardType string

const (
	BoardScrum   BoardType = "scrum"
	BoardKanban  BoardType = "kanban"
)

// PRState is the lifecycle state of a PullRequest.
type PRState string

const (
	PROpen   PRState = "open"
	PRMerged PRState = "merged"
	PRClosed PRState = "closed"
)

// Sprint is a time-boxed iteration of work in the issue tracker.
type Sprint struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	State        SprintState `json:"state"`
	StartDate    *time.Time  `json:"startDate,omitempty"`
	EndDate      *time.Time  `json:"endDate,omitempty"`
	CompleteDate *time.Time  `json:"completeDate,omitempty"`
	Goal         string      `json:"goal,omitempty"`
	BoardID      string      `json:"boardId"`
}

// ChangelogTransition is one status transition recorded against an Issue,
// used to derive cycle time and burndown when the tracker supplies it.
type ChangelogTransition struct {
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	At         time.Time `json:"at"`
}

// Issue is a single unit of tracked work.
type Issue struct {
	Key          string                `json:"key"`
	ID           string                `json:"id"`
	Summary      string                `json:"summary"`
	Status       string                `json:"status"`
	IssueType    string                `json:"issueType"`
	Priority     string                `json:"priority"`
	Assignee     string                `json:"assignee,omitempty"`
	Reporter     string                `json:"reporter,omitempty"`
	StoryPoints  *float64              `json:"storyPoints,omitempty"`
	Created      time.Time             `json:"created"`
	Updated      time.Time             `json:"updated"`
	Resolved     *time.Time            `json:"resolved,omitempty"`
	SprintID     string                `json:"sprintId,omitempty"`
	Labels       []string              `json:"labels,omitempty"`
	Components   []string              `json:"components,omitempty"`
	EpicLink     string                `json:"epicLink,omitempty"`
	ParentKey    string                `json:"parentKey,omitempty"`
	Tier         Tier                  `json:"tier,omitempty"`
	BlockedBy    []string              `json:"blockedBy,omitempty"`
	Changelog    []ChangelogTransition `json:"changelog,omitempty"`
}

// IsCompleted reports whether the issue's status counts as done. Callers
// supply the set of "done" statuses configured for the board; this keeps
// the model package free of deployment-specific status vocabularies.
func (i Issue) IsCompleted(doneStatuses map[string]bool) bool {
	return doneStatuses[i.Status]
}

// CommitAuthor identifies the author of a Commit.
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Login string `json:"login,omitempty"`
}

// Commit is a single VCS commit, enriched with extracted issue keys.
type Commit struct {
	SHA         string       `json:"sha"`
	Message     string       `json:"message"`
	Author      CommitAuthor `json:"author"`
	CommittedAt time.Time    `json:"committedAt"`
	URL         string       `json:"url"`
	Additions   int          `json:"additions,omitempty"`
	Deletions   int          `json:"deletions,omitempty"`
	IssueKeys   []string     `json:"issueKeys,omitempty"`
}

// Review is a single code review left on a PullRequest.
type Review struct {
	Author      string    `json:"author"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// PullRequest is a source-control change request, optionally enhanced
// with review and timing data.
type PullRequest struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Body         string     `json:"body,omitempty"`
	State        PRState    `json:"state"`
	Author       string     `json:"author"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MergedAt     *time.Time `json:"mergedAt,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	FilesChanged int        `json:"filesChanged"`
	Commits      int        `json:"commits"`
	Reviews      []Review   `json:"reviews,omitempty"`
	Comments     int        `json:"comments"`
	Labels       []string   `json:"labels,omitempty"`
	Assignees    []string   `json:"assignees,omitempty"`
	IssueKeys    []string   `json:"issueKeys,omitempty"`
	Enhanced     bool       `json:"enhanced"`
}

// BoardInfo describes a tracker board.
type BoardInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProjectKey  string    `json:"projectKey,omitempty"`
	ProjectName string    `json:"projectName,omitempty"`
	Type        BoardType `json:"type"`
}

// Metrics is the set of deterministic per-sprint computations.
type Metrics struct {
	TotalIssues            int            `json:"totalIssues"`
	CompletedIssues        int            `json:"completedIssues"`
	CompletionRate         float64        `json:"completionRate"`
	TotalStoryPoints       float64        `json:"totalStoryPoints"`
	CompletedStoryPoints   float64        `json:"completedStoryPoints"`
	Velocity               float64        `json:"velocity"`
	VelocityPercentage     float64        `json:"velocityPercentage"`
	ByStatus               map[string]int `json:"byStatus"`
	ByType                 map[string]int `json:"byType"`
	ByPriority             map[string]int `json:"byPriority"`
	ByAssignee             map[string]int `json:"byAssignee"`
	CycleTimeMedianHours   float64        `json:"cycleTimeMedianHours"`
	CycleTimeP90Hours      float64        `json:"cycleTimeP90Hours"`
	CycleTimeAverageHours  float64        `json:"cycleTimeAverageHours"`
	BugResolutionRate      float64        `json:"bugResolutionRate"`
}

// VelocityTrend classifies the direction of a multi-sprint velocity slope.
type VelocityTrend string

const (
	TrendIncreasing VelocityTrend = "increasing"
	TrendDecreasing VelocityTrend = "decreasing"
	TrendStable     VelocityTrend = "stable"
)

// SprintVelocity is one sprint's contribution to a velocity history.
type SprintVelocity struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Commitment float64 `json:"commitment"`
	Completed  float64 `json:"completed"`
	Velocity   float64 `json:"velocity"`
}

// Velocity is the multi-sprint velocity series and its trend.
type Velocity struct {
	Sprints []SprintVelocity `json:"sprints"`
	Average float64          `json:"average"`
	Trend   VelocityTrend    `json:"trend"`
}

// BurndownPoint is one day's remaining-work sample.
type BurndownPoint struct {
	Date      time.Time `json:"date"`
	Remaining float64   `json:"remaining"`
}

// CommitActivity summarizes commit volume over a sprint window.
type CommitActivity struct {
	TotalCommits   int            `json:"totalCommits"`
	ByAuthor       map[string]int `json:"byAuthor"`
	AdditionsTotal int            `json:"additionsTotal"`
	DeletionsTotal int            `json:"deletionsTotal"`
}

// PullRequestStats summarizes PR volume and merge behavior.
type PullRequestStats struct {
	TotalPRs  int     `json:"totalPRs"`
	Merged    int     `json:"merged"`
	Closed    int     `json:"closed"`
	Open      int     `json:"open"`
	MergeRate float64 `json:"mergeRate"`
}

// CodeChanges aggregates line-level churn across commits and PRs.
type CodeChanges struct {
	TotalAdditions int `json:"totalAdditions"`
	TotalDeletions int `json:"totalDeletions"`
	FilesChanged   int `json:"filesChanged"`
}

// ReviewStats summarizes code review participation.
type ReviewStats struct {
	TotalReviews      int     `json:"totalReviews"`
	AveragePerPR      float64 `json:"averagePerPR"`
	PRsWithoutReview  int     `json:"prsWithoutReview"`
}

// Traceability is the fraction of PRs carrying at least one issue key.
type Traceability struct {
	PRsWithIssueKey int     `json:"prsWithIssueKey"`
	TotalPRs        int     `json:"totalPRs"`
	Rate            float64 `json:"rate"`
}

// EnhancedGitHub bundles the richer SCM-derived sections of a report.
type EnhancedGitHub struct {
	CommitActivity   CommitActivity   `json:"commitActivity"`
	PullRequestStats PullRequestStats `json:"pullRequestStats"`
	CodeChanges      CodeChanges      `json:"codeChanges"`
	ReviewStats      ReviewStats      `json:"reviewStats"`
	Traceability     Traceability     `json:"traceability"`
}

// ConfidenceLevel is the forecast confidence band.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// CarryoverReason is the heuristic classification of why an issue carried
// over past its planned sprint.
type CarryoverReason string

const (
	ReasonComplexity   CarryoverReason = "complexity"
	ReasonDependencies CarryoverReason = "dependencies"
	ReasonScope        CarryoverReason = "scope"
	ReasonUnknown      CarryoverReason = "unknown"
)

// CarryoverItem is one incomplete issue annotated with why it carried over.
type CarryoverItem struct {
	Issue  Issue           `json:"issue"`
	Reason CarryoverReason `json:"reason"`
}

// ForwardLooking is the optional predictive block of a SprintReport.
type ForwardLooking struct {
	ForecastedVelocity float64         `json:"forecastedVelocity"`
	ConfidenceLevel    ConfidenceLevel `json:"confidenceLevel"`
	AvailableCapacity  float64         `json:"availableCapacity"`
	CarryoverItems     []CarryoverItem `json:"carryoverItems"`
	Recommendations    []string        `json:"recommendations"`
}

// IssueLinks is one issue key's inverse-index entry: the commits and pull
// requests whose message/title+body referenced it.
type IssueLinks struct {
	CommitSHAs []string `json:"commitShas,omitempty"`
	PRNumbers  []int    `json:"prNumbers,omitempty"`
}

// ReportMetadata carries generation provenance and non-fatal warnings.
type ReportMetadata struct {
	GeneratedAt       time.Time `json:"generatedAt"`
	GeneratorVersion  string    `json:"generatorVersion"`
	CacheHits         int       `json:"cacheHits"`
	UpstreamLatencyMs int64     `json:"upstreamLatencyMs"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// SprintReport is the aggregation engine's output.
type SprintReport struct {
	Sprint         Sprint                `json:"sprint"`
	Metrics        Metrics               `json:"metrics"`
	Tier1Issues    []Issue               `json:"tier1Issues,omitempty"`
	Tier2Issues    []Issue               `json:"tier2Issues,omitempty"`
	Tier3Issues    []Issue               `json:"tier3Issues,omitempty"`
	Commits        []Commit              `json:"commits"`
	PullRequests   []PullRequest         `json:"pullRequests"`
	Velocity       Velocity              `json:"velocity"`
	Burndown       []BurndownPoint       `json:"burndown,omitempty"`
	EnhancedGitHub *EnhancedGitHub       `json:"enhancedGitHub,omitempty"`
	ForwardLooking *ForwardLooking       `json:"forwardLooking,omitempty"`
	IssueLinks     map[string]IssueLinks `json:"issueLinks,omitempty"`
	Metadata       ReportMetadata        `json:"metadata"`
}

// ExtractIssueKeys scans text for canonical issue keys, deduplicating while
// preserving first-seen order. It is a pure function shared by the commit
// and pull-request correlators.
func ExtractIssueKeys(text string) []string {
	matches := IssueKeyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
