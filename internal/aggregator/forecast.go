package aggregator

import (
	"fmt"
	"math"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

// forecastWeights are applied newest-first (weights 5..1) to the last
// five sprints' velocities, per §4.D.
var forecastWeights = []float64{5, 4, 3, 2, 1}

// weightedForecast computes the weighted mean of up to the last five
// velocities; the input slice is chronological, most-recent sprint last.
func weightedForecast(velocities []float64) float64 {
	n := len(velocities)
	if n == 0 {
		return 0
	}
	if n > 5 {
		velocities = velocities[n-5:]
		n = 5
	}
	var sumW, sumWV float64
	// velocities is chronological (oldest..newest); walk from the most
	// recent sprint outward so weight 5 lands on the newest value.
	for i := 0; i < n; i++ {
		w := forecastWeights[i]
		v := velocities[n-1-i]
		sumW += w
		sumWV += w * v
	}
	if sumW == 0 {
		return 0
	}
	return sumWV / sumW
}

// confidenceLevel classifies forecast confidence from the coefficient
// of variation of the velocity sample, per §4.D.
func confidenceLevel(velocities []float64) model.ConfidenceLevel {
	if len(velocities) < 3 {
		return model.ConfidenceLow
	}
	mean := average(velocities)
	if mean == 0 {
		return model.ConfidenceLow
	}
	var sumSq float64
	for _, v := range velocities {
		d := v - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(velocities)))
	cv := stddev / mean
	switch {
	case cv < 0.15:
		return model.ConfidenceHigh
	case cv < 0.30:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// carryoverReason classifies why an incomplete issue carried over,
// using the ordered heuristic of §4.D: story-point magnitude first,
// then dependency links, then labels, else unknown.
func carryoverReason(issue model.Issue) model.CarryoverReason {
	if issue.StoryPoints != nil && *issue.StoryPoints > 8 {
		return model.ReasonComplexity
	}
	if len(issue.BlockedBy) > 0 {
		return model.ReasonDependencies
	}
	for _, label := range issue.Labels {
		switch label {
		case "blocked":
			return model.ReasonDependencies
		case "scope-change", "scope-creep":
			return model.ReasonScope
		}
	}
	return model.ReasonUnknown
}

// carryoverItems finds issues still assigned to sprintID that are not
// in a completed status, annotating each with its carryover reason.
func carryoverItems(issues []model.Issue, sprintID string, doneStatuses map[string]bool) []model.CarryoverItem {
	var out []model.CarryoverItem
	for _, issue := range issues {
		if issue.SprintID != sprintID {
			continue
		}
		if issue.IsCompleted(doneStatuses) {
			continue
		}
		out = append(out, model.CarryoverItem{Issue: issue, Reason: carryoverReason(issue)})
	}
	return out
}

// recommendations derives the deterministic string list of §4.D from
// the forecast and carryover data.
func recommendations(forecasted float64, carryover []model.CarryoverItem) []string {
	var out []string
	out = append(out, fmt.Sprintf("Plan for %.1f points based on recent velocity", forecasted))
	if deps := countReason(carryover, model.ReasonDependencies); deps > 0 {
		out = append(out, fmt.Sprintf("Resolve %d dependencies first", deps))
	}
	if complexity := countReason(carryover, model.ReasonComplexity); complexity > 0 {
		out = append(out, fmt.Sprintf("Break down %d high-complexity carryover items before committing", complexity))
	}
	return out
}

func countReason(items []model.CarryoverItem, reason model.CarryoverReason) int {
	n := 0
	for _, it := range items {
		if it.Reason == reason {
			n++
		}
	}
	return n
}

// buildForwardLooking assembles the §4.D forward-looking block.
func buildForwardLooking(velocityHistory model.Velocity, issues []model.Issue, sprintID string, doneStatuses map[string]bool, availableCapacity float64) *model.ForwardLooking {
	velocities := make([]float64, len(velocityHistory.Sprints))
	for i, sv := range velocityHistory.Sprints {
		velocities[i] = sv.Velocity
	}
	forecasted := weightedForecast(velocities)
	carryover := carryoverItems(issues, sprintID, doneStatuses)
	return &model.ForwardLooking{
		ForecastedVelocity: forecasted,
		ConfidenceLevel:    confidenceLevel(velocities),
		AvailableCapacity:  availableCapacity,
		CarryoverItems:     carryover,
		Recommendations:    recommendations(forecasted, carryover),
	}
}
