package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

func TestComputeBurndownNilWithoutChangelog(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	sprint := model.Sprint{StartDate: &start, EndDate: &end}
	issues := []model.Issue{{StoryPoints: ptr(5)}}
	require.Nil(t, computeBurndown(issues, sprint, doneStatuses))
}

func TestComputeBurndownDecreasesAsIssuesComplete(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	sprint := model.Sprint{StartDate: &start, EndDate: &end}
	doneAt := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	issues := []model.Issue{
		{StoryPoints: ptr(5), Changelog: []model.ChangelogTransition{{ToStatus: "Done", At: doneAt}}},
		{StoryPoints: ptr(3)},
	}
	points := computeBurndown(issues, sprint, map[string]bool{"Done": true})
	require.Len(t, points, 3)
	require.InDelta(t, 8, points[0].Remaining, 1e-9) // day 1: nothing done yet
	require.InDelta(t, 3, points[1].Remaining, 1e-9) // day 2: 5-point issue completed
	require.InDelta(t, 3, points[2].Remaining, 1e-9)
}

func TestSortSprintsByEndDateDescAndReverse(t *testing.T) {
	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sprints := []model.Sprint{
		{ID: "a", EndDate: &d1},
		{ID: "c", EndDate: &d3},
		{ID: "b", EndDate: &d2},
	}
	sortSprintsByEndDateDesc(sprints)
	require.Equal(t, []string{"c", "b", "a"}, []string{sprints[0].ID, sprints[1].ID, sprints[2].ID})
	reverseSprintsInPlace(sprints)
	require.Equal(t, []string{"a", "b", "c"}, []string{sprints[0].ID, sprints[1].ID, sprints[2].ID})
}
