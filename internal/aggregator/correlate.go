package aggregator

import (
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

// correlate builds the issueKey → {commits, prs} inverse index of
// §4.D. Commits and PRs already carry their own IssueKeys, populated
// by the scm/tracker clients at fetch time; this step only inverts
// that mapping. The result is surfaced directly on SprintReport.IssueLinks.
func correlate(commits []model.Commit, prs []model.PullRequest) map[string]model.IssueLinks {
	index := make(map[string]model.IssueLinks)
	for _, c := range commits {
		for _, key := range c.IssueKeys {
			entry := index[key]
			entry.CommitSHAs = append(entry.CommitSHAs, c.SHA)
			index[key] = entry
		}
	}
	for _, pr := range prs {
		for _, key := range pr.IssueKeys {
			entry := index[key]
			entry.PRNumbers = append(entry.PRNumbers, pr.Number)
			index[key] = entry
		}
	}
	return index
}

// buildEnhancedGitHub summarizes commit/PR volume, churn, and review
// participation into the report's EnhancedGitHub section.
func buildEnhancedGitHub(commits []model.Commit, prs []model.PullRequest) *model.EnhancedGitHub {
	activity := model.CommitActivity{ByAuthor: map[string]int{}}
	for _, c := range commits {
		activity.TotalCommits++
		author := c.Author.Login
		if author == "" {
			author = c.Author.Name
		}
		if author != "" {
			activity.ByAuthor[author]++
		}
		activity.AdditionsTotal += c.Additions
		activity.DeletionsTotal += c.Deletions
	}

	var stats model.PullRequestStats
	var changes model.CodeChanges
	var reviewTotal, prsWithoutReview int
	var withIssueKey int

	for _, pr := range prs {
		stats.TotalPRs++
		switch pr.State {
		case model.PRMerged:
			stats.Merged++
		case model.PRClosed:
			stats.Closed++
		case model.PROpen:
			stats.Open++
		}
		changes.TotalAdditions += pr.Additions
		changes.TotalDeletions += pr.Deletions
		changes.FilesChanged += pr.FilesChanged
		reviewTotal += len(pr.Reviews)
		if len(pr.Reviews) == 0 {
			prsWithoutReview++
		}
		if len(pr.IssueKeys) > 0 {
			withIssueKey++
		}
	}
	if stats.TotalPRs > 0 {
		stats.MergeRate = float64(stats.Merged) / float64(stats.TotalPRs)
	}

	reviewStats := model.ReviewStats{TotalReviews: reviewTotal, PRsWithoutReview: prsWithoutReview}
	if stats.TotalPRs > 0 {
		reviewStats.AveragePerPR = float64(reviewTotal) / float64(stats.TotalPRs)
	}

	traceability := model.Traceability{PRsWithIssueKey: withIssueKey, TotalPRs: stats.TotalPRs}
	if stats.TotalPRs > 0 {
		traceability.Rate = float64(withIssueKey) / float64(stats.TotalPRs)
	}

	return &model.EnhancedGitHub{
		CommitActivity:   activity,
		PullRequestStats: stats,
		CodeChanges:      changes,
		ReviewStats:      reviewStats,
		Traceability:     traceability,
	}
}
