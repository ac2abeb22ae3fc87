package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

func TestCorrelateBuildsInverseIndex(t *testing.T) {
	commits := []model.Commit{
		{SHA: "c1", IssueKeys: []string{"SCNT-1", "SCNT-2"}},
		{SHA: "c2", IssueKeys: []string{"SCNT-1"}},
	}
	prs := []model.PullRequest{
		{Number: 10, IssueKeys: []string{"SCNT-1"}},
	}
	index := correlate(commits, prs)
	require.ElementsMatch(t, []string{"c1", "c2"}, index["SCNT-1"].CommitSHAs)
	require.ElementsMatch(t, []int{10}, index["SCNT-1"].PRNumbers)
	require.ElementsMatch(t, []string{"c1"}, index["SCNT-2"].CommitSHAs)
	require.Empty(t, index["SCNT-2"].PRNumbers)
}

func TestBuildEnhancedGitHubTraceabilityRate(t *testing.T) {
	prs := []model.PullRequest{
		{Number: 1, State: model.PRMerged, IssueKeys: []string{"SCNT-1"}, Reviews: []model.Review{{Author: "a"}}},
		{Number: 2, State: model.PROpen},
	}
	commits := []model.Commit{{SHA: "c1"}}

	eg := buildEnhancedGitHub(commits, prs)
	require.Equal(t, 1, eg.CommitActivity.TotalCommits)
	require.Equal(t, 2, eg.PullRequestStats.TotalPRs)
	require.Equal(t, 1, eg.PullRequestStats.Merged)
	require.InDelta(t, 0.5, eg.PullRequestStats.MergeRate, 1e-9)
	require.Equal(t, 1, eg.Traceability.PRsWithIssueKey)
	require.InDelta(t, 0.5, eg.Traceability.Rate, 1e-9)
	require.Equal(t, 1, eg.ReviewStats.PRsWithoutReview)
}
