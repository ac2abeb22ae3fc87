package aggregator

import (
	"strings"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

// TierRules configures the §4.D tier-classification precedence: label
// match, then component match, then issue-type/priority match. The map
// keys are matched case-insensitively.
type TierRules struct {
	Labels     map[string]model.Tier
	Components map[string]model.Tier
}

// DefaultTierRules returns the rule set named in spec.md §4.D.
func DefaultTierRules() TierRules {
	return TierRules{
		Labels: map[string]model.Tier{
			"customer-impacting": model.Tier1,
			"internal":           model.Tier2,
			"tech-debt":          model.Tier3,
			"refactor":           model.Tier3,
		},
		Components: map[string]model.Tier{},
	}
}

// classifyTier assigns a Tier by the three-step precedence order of
// §4.D: labels first, then configured components, then a fallback
// issue-type/priority rule. The first matching rule wins.
func classifyTier(issue model.Issue, rules TierRules) model.Tier {
	for _, label := range issue.Labels {
		if tier, ok := rules.Labels[strings.ToLower(label)]; ok {
			return tier
		}
	}
	for _, comp := range issue.Components {
		if tier, ok := rules.Components[strings.ToLower(comp)]; ok {
			return tier
		}
	}
	switch {
	case strings.EqualFold(issue.IssueType, "Bug") && strings.EqualFold(issue.Priority, "High"):
		return model.Tier1
	case strings.EqualFold(issue.IssueType, "Task"):
		return model.Tier2
	case strings.EqualFold(issue.IssueType, "Sub-task"):
		return model.Tier3
	}
	return model.TierUnclassified
}

// bucketByTier partitions issues into the three tiered slices requested
// by the caller's include flags; issues with TierUnclassified never
// appear in any bucket.
func bucketByTier(issues []model.Issue, rules TierRules) (tier1, tier2, tier3 []model.Issue) {
	for _, issue := range issues {
		issue.Tier = classifyTier(issue, rules)
		switch issue.Tier {
		case model.Tier1:
			tier1 = append(tier1, issue)
		case model.Tier2:
			tier2 = append(tier2, issue)
		case model.Tier3:
			tier3 = append(tier3, issue)
		}
	}
	return tier1, tier2, tier3
}
