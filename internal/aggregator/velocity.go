package aggregator

import (
	"context"
	"time"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

// historicalVelocity fetches the last n closed sprints for a board and
// derives their commitment/completed/velocity figures, per the
// `historicalVelocity(boardId, lastN)` fan-out call of §4.D.
func (s *Service) historicalVelocity(ctx context.Context, boardID string, n int) (model.Velocity, error) {
	if boardID == "" || n <= 0 {
		return model.Velocity{}, nil
	}
	sprints, err := s.Tracker.ListSprints(ctx, boardID, "closed")
	if err != nil {
		return model.Velocity{}, err
	}
	sortSprintsByEndDateDesc(sprints)
	if len(sprints) > n {
		sprints = sprints[:n]
	}
	reverseSprintsInPlace(sprints) // chronological, oldest first

	out := model.Velocity{Sprints: make([]model.SprintVelocity, 0, len(sprints))}
	for _, sprint := range sprints {
		issues, err := s.Tracker.ListSprintIssues(ctx, sprint.ID, nil, 0)
		if err != nil {
			continue // one bad historical sprint should not fail the whole series
		}
		var commitment, completed float64
		for _, issue := range issues {
			if issue.StoryPoints == nil {
				continue
			}
			commitment += *issue.StoryPoints
			if resolvedInWindow(issue, sprint) {
				completed += *issue.StoryPoints
			}
		}
		out.Sprints = append(out.Sprints, model.SprintVelocity{
			ID: sprint.ID, Name: sprint.Name, Commitment: commitment, Completed: completed, Velocity: completed,
		})
	}

	velocities := make([]float64, len(out.Sprints))
	for i, sv := range out.Sprints {
		velocities[i] = sv.Velocity
	}
	out.Average = average(velocities)
	out.Trend = computeTrend(velocities)
	return out, nil
}

// teamCapacity derives the team's most recent completed-sprint
// capacity, feeding ForwardLooking.AvailableCapacity, per the
// `teamPerformance(boardId, lastN=1)` fan-out call of §4.D.
func (s *Service) teamCapacity(ctx context.Context, boardID string) (float64, error) {
	v, err := s.historicalVelocity(ctx, boardID, 1)
	if err != nil {
		return 0, err
	}
	if len(v.Sprints) == 0 {
		return 0, nil
	}
	return v.Sprints[len(v.Sprints)-1].Commitment, nil
}

func sortSprintsByEndDateDesc(sprints []model.Sprint) {
	for i := 1; i < len(sprints); i++ {
		for j := i; j > 0 && sprintEndDate(sprints[j]).After(sprintEndDate(sprints[j-1])); j-- {
			sprints[j], sprints[j-1] = sprints[j-1], sprints[j]
		}
	}
}

func sprintEndDate(s model.Sprint) time.Time {
	if s.EndDate != nil {
		return *s.EndDate
	}
	return time.Time{}
}

func reverseSprintsInPlace(sprints []model.Sprint) {
	for i, j := 0, len(sprints)-1; i < j; i, j = i+1, j-1 {
		sprints[i], sprints[j] = sprints[j], sprints[i]
	}
}

// computeBurndown derives a daily remaining-work series from issue
// changelogs, per §4.D ("derives from changelog"). When no issue
// carries changelog data, burndown cannot be derived and nil is
// returned rather than a synthetic series.
func computeBurndown(issues []model.Issue, sprint model.Sprint, doneStatuses map[string]bool) []model.BurndownPoint {
	if sprint.StartDate == nil || sprint.EndDate == nil {
		return nil
	}
	haveChangelog := false
	for _, issue := range issues {
		if len(issue.Changelog) > 0 {
			haveChangelog = true
			break
		}
	}
	if !haveChangelog {
		return nil
	}

	total := 0.0
	for _, issue := range issues {
		if issue.StoryPoints != nil {
			total += *issue.StoryPoints
		}
	}

	var points []model.BurndownPoint
	start := sprint.StartDate.Truncate(24 * time.Hour)
	end := sprint.EndDate.Truncate(24 * time.Hour)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		remaining := total
		for _, issue := range issues {
			if issue.StoryPoints == nil {
				continue
			}
			if completedAsOf(issue, day, doneStatuses) {
				remaining -= *issue.StoryPoints
			}
		}
		if remaining < 0 {
			remaining = 0
		}
		points = append(points, model.BurndownPoint{Date: day, Remaining: remaining})
	}
	return points
}

// completedAsOf reports whether issue had transitioned into a done
// status at or before the end of day.
func completedAsOf(issue model.Issue, day time.Time, doneStatuses map[string]bool) bool {
	dayEnd := day.Add(24 * time.Hour)
	for _, t := range issue.Changelog {
		if doneStatuses[t.ToStatus] && t.At.Before(dayEnd) {
			return true
		}
	}
	return false
}
