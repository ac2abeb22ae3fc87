package aggregator

import (
	"math"
	"sort"
	"strings"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

// computeMetrics derives the deterministic per-sprint computations of
// §4.D from the sprint's issue set and its done-status vocabulary.
func computeMetrics(issues []model.Issue, sprint model.Sprint, doneStatuses map[string]bool) model.Metrics {
	m := model.Metrics{
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
		ByPriority: map[string]int{},
		ByAssignee: map[string]int{},
	}

	var bugsCreated, bugsResolved int
	var cycleTimes []float64

	for _, issue := range issues {
		m.TotalIssues++
		m.ByStatus[issue.Status]++
		m.ByType[issue.IssueType]++
		m.ByPriority[issue.Priority]++
		if issue.Assignee != "" {
			m.ByAssignee[issue.Assignee]++
		}
		if issue.StoryPoints != nil {
			m.TotalStoryPoints += *issue.StoryPoints
		}

		completed := issue.IsCompleted(doneStatuses)
		if completed {
			m.CompletedIssues++
			if issue.StoryPoints != nil {
				m.CompletedStoryPoints += *issue.StoryPoints
			}
		}

		if strings.EqualFold(issue.IssueType, "Bug") {
			bugsCreated++
			if completed {
				bugsResolved++
			}
		}

		if resolvedInWindow(issue, sprint) && issue.StoryPoints != nil {
			m.Velocity += *issue.StoryPoints
		}

		if ct, ok := cycleTimeHours(issue); ok {
			cycleTimes = append(cycleTimes, ct)
		}
	}

	if m.TotalIssues > 0 {
		m.CompletionRate = float64(m.CompletedIssues) / float64(m.TotalIssues)
	}
	if m.TotalStoryPoints > 0 {
		m.VelocityPercentage = m.Velocity / m.TotalStoryPoints
	}
	if bugsCreated > 0 {
		m.BugResolutionRate = clamp01(float64(bugsResolved) / float64(bugsCreated))
	}

	m.CycleTimeMedianHours = percentile(cycleTimes, 0.5)
	m.CycleTimeP90Hours = percentile(cycleTimes, 0.9)
	m.CycleTimeAverageHours = average(cycleTimes)

	return m
}

// resolvedInWindow reports whether issue.Resolved falls within the
// sprint's [start, end] window, counting toward velocity per §4.D.
func resolvedInWindow(issue model.Issue, sprint model.Sprint) bool {
	if issue.Resolved == nil {
		return false
	}
	if sprint.StartDate != nil && issue.Resolved.Before(*sprint.StartDate) {
		return false
	}
	if sprint.EndDate != nil && issue.Resolved.After(*sprint.EndDate) {
		return false
	}
	return true
}

// cycleTimeHours computes resolved − firstInProgressTransition in
// hours, per §4.D. Issues without both data points are excluded from
// the cycle-time distribution rather than counted as zero.
func cycleTimeHours(issue model.Issue) (float64, bool) {
	if issue.Resolved == nil {
		return 0, false
	}
	for _, t := range issue.Changelog {
		if strings.EqualFold(t.ToStatus, "In Progress") {
			return issue.Resolved.Sub(t.At).Hours(), true
		}
	}
	return 0, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// percentile returns the p-th percentile (0..1) of xs over a sorted copy,
// interpolating linearly between the two ranks nearest p*(n-1).
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// computeTrend fits a line to the velocity series and classifies the
// slope against §4.D's ±5%-of-mean thresholds.
func computeTrend(velocities []float64) model.VelocityTrend {
	if len(velocities) < 2 {
		return model.TrendStable
	}
	slope := linearSlope(velocities)
	mean := average(velocities)
	if mean == 0 {
		return model.TrendStable
	}
	ratio := slope / mean
	switch {
	case ratio > 0.05:
		return model.TrendIncreasing
	case ratio < -0.05:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// linearSlope computes the least-squares slope of ys against their
// index (0..n-1).
func linearSlope(ys []float64) float64 {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
