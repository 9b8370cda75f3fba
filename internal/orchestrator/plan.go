package orchestrator

import (
	"time"

	"github.com/okian/cadence/internal/domain/model"
)

// Default plan shape constants. Spacing and touch depth are tier-driven:
// hotter tiers get more touches, closer together.
var (
	defaultTouchCounts = map[model.ActionTier]int{
		model.TierHighTouch:         6,
		model.TierAutomatedNurture:  4,
		model.TierContentFocus:      3,
		model.TierLongTermAwareness: 2,
	}
	defaultSpacing = map[model.ActionTier]time.Duration{
		model.TierHighTouch:         48 * time.Hour,
		model.TierAutomatedNurture:  72 * time.Hour,
		model.TierContentFocus:      120 * time.Hour,
		model.TierLongTermAwareness: 168 * time.Hour,
	}
)

// buildPlan lays out the touchpoint sequence for one account: touch count
// and spacing from the tier, channels cycled in configured order,
// objectives cycled across entries.
func buildPlan(campaignID, accountID string, tier model.ActionTier, channels, objectives []string, touchCounts map[model.ActionTier]int, spacing map[model.ActionTier]time.Duration) model.TouchpointPlan {
	count := touchCounts[tier]
	if count == 0 {
		count = defaultTouchCounts[tier]
	}
	gap := spacing[tier]
	if gap == 0 {
		gap = defaultSpacing[tier]
	}
	if len(objectives) == 0 {
		objectives = []string{"introduce_value"}
	}

	entries := make([]model.TouchpointEntry, 0, count)
	for i := 0; i < count; i++ {
		offset := gap
		if i == 0 {
			// The first entry emits on activation; its offset is unused.
			offset = 0
		}
		entries = append(entries, model.TouchpointEntry{
			Channel:   channels[i%len(channels)],
			Offset:    offset,
			Objective: objectives[i%len(objectives)],
			Status:    model.TouchpointPending,
		})
	}

	return model.TouchpointPlan{
		AccountID:  accountID,
		CampaignID: campaignID,
		Entries:    entries,
	}
}

// engagementLikelihood estimates the chance of any engagement for an
// account: an industry baseline boosted by strong financial health, high
// intent, and high-confidence scoring, capped at a realistic maximum.
func engagementLikelihood(fh, intent, confidence float64) float64 {
	const (
		base          = 0.15
		healthBoost   = 0.10
		intentBoost   = 0.15
		evidenceBoost = 0.12
		maxLikelihood = 0.65
	)
	score := base
	if fh > 0.7 {
		score += healthBoost
	}
	if intent > 0.6 {
		score += intentBoost
	}
	if confidence > 0.8 {
		score += evidenceBoost
	}
	if score > maxLikelihood {
		score = maxLikelihood
	}
	return score
}
