package scm

import (
	"context"
	"time"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/model"
)

const enhanceBatchDelay = 100 * time.Millisecond

// EnhancePullRequests upgrades up to cap basic PRs to enhanced ones
// (reviews + timing), processed in parallel batches of batchSize with a
// 100ms inter-batch delay. A failure enhancing one PR falls back to its
// basic fields rather than aborting the batch (§4.C PR enhancement
// policy). It returns the (possibly partially enhanced) PR slice in the
// original order, plus the count left un-enhanced due to the cap.
func (c *Client) EnhancePullRequests(ctx context.Context, owner, repo string, prs []model.PullRequest, maxEnhance, batchSize int) ([]model.PullRequest, int) {
	if maxEnhance <= 0 {
		maxEnhance = 15
	}
	if batchSize <= 0 {
		batchSize = 5
	}

	toEnhance := prs
	skipped := 0
	if len(prs) > maxEnhance {
		toEnhance = prs[:maxEnhance]
		skipped = len(prs) - maxEnhance
	}

	out := make([]model.PullRequest, len(prs))
	copy(out, prs)

	for start := 0; start < len(toEnhance); start += batchSize {
		end := start + batchSize
		if end > len(toEnhance) {
			end = len(toEnhance)
		}
		c.enhanceBatch(ctx, owner, repo, out[start:end])
		if end < len(toEnhance) {
			select {
			case <-ctx.Done():
				return out, skipped
			case <-time.After(enhanceBatchDelay):
			}
		}
	}
	return out, skipped
}

func (c *Client) enhanceBatch(ctx context.Context, owner, repo string, batch []model.PullRequest) {
	type outcome struct {
		idx int
		pr  model.PullRequest
		ok  bool
	}
	results := make(chan outcome, len(batch))

	for i, pr := range batch {
		go func(i int, number int) {
			enhanced, err := c.GetEnhancedPullRequest(ctx, owner, repo, number)
			if err != nil {
				results <- outcome{idx: i, ok: false}
				return
			}
			results <- outcome{idx: i, pr: enhanced, ok: true}
		}(i, pr.Number)
	}

	for range batch {
		r := <-results
		if r.ok {
			batch[r.idx] = r.pr
		}
		// On failure, batch[r.idx] keeps its original basic-fields value.
	}
}
