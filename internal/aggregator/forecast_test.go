package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

func TestWeightedForecastUsesLastFiveMostRecentHeaviest(t *testing.T) {
	// A uniform-value series sanity checks that the weighted mean
	// collapses to that shared value.
	require.InDelta(t, 10, weightedForecast([]float64{10, 10, 10, 10, 10}), 1e-9)

	// With a clear upward progression, the weighted mean leans toward
	// the most recent (highest-weighted) values: the newest value (20)
	// carries weight 5.
	v := weightedForecast([]float64{1, 2, 3, 4, 20})
	require.Greater(t, v, 7.0)
}

func TestWeightedForecastEmpty(t *testing.T) {
	require.Equal(t, 0.0, weightedForecast(nil))
}

func TestConfidenceLevelBands(t *testing.T) {
	require.Equal(t, model.ConfidenceLow, confidenceLevel([]float64{10, 10}))     // too few samples
	require.Equal(t, model.ConfidenceHigh, confidenceLevel([]float64{10, 10, 10, 10}))
	require.Equal(t, model.ConfidenceLow, confidenceLevel([]float64{5, 50, 5, 50}))
}

func TestCarryoverReasonHeuristic(t *testing.T) {
	require.Equal(t, model.ReasonComplexity, carryoverReason(model.Issue{StoryPoints: ptr(13)}))
	require.Equal(t, model.ReasonDependencies, carryoverReason(model.Issue{BlockedBy: []string{"X-1"}}))
	require.Equal(t, model.ReasonDependencies, carryoverReason(model.Issue{Labels: []string{"blocked"}}))
	require.Equal(t, model.ReasonScope, carryoverReason(model.Issue{Labels: []string{"scope-change"}}))
	require.Equal(t, model.ReasonUnknown, carryoverReason(model.Issue{}))
}

func TestCarryoverItemsThreeIncompleteIssuesReasons(t *testing.T) {
	issues := []model.Issue{
		{Key: "A-1", SprintID: "5", Status: "To Do", StoryPoints: ptr(13)},
		{Key: "A-2", SprintID: "5", Status: "To Do", Labels: []string{"blocked"}},
		{Key: "A-3", SprintID: "5", Status: "To Do", BlockedBy: []string{"A-9"}},
	}
	items := carryoverItems(issues, "5", doneStatuses)
	require.Len(t, items, 3)
	require.Equal(t, []model.CarryoverReason{model.ReasonComplexity, model.ReasonDependencies, model.ReasonDependencies},
		[]model.CarryoverReason{items[0].Reason, items[1].Reason, items[2].Reason})
}

func TestCarryoverItemsExcludesCompletedAndOtherSprints(t *testing.T) {
	issues := []model.Issue{
		{Key: "A-1", SprintID: "5", Status: "To Do"},
		{Key: "A-2", SprintID: "5", Status: "Done"},
		{Key: "A-3", SprintID: "6", Status: "To Do"},
	}
	items := carryoverItems(issues, "5", doneStatuses)
	require.Len(t, items, 1)
	require.Equal(t, "A-1", items[0].Issue.Key)
}
