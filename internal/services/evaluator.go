package services

import (
	"goldhub/internal/catalog"
	"goldhub/internal/models"
)

// Delta is the set of newly-true facts one evaluation pass produces.
// UpdatedProgress is nil when the snapshot matches what is already stored,
// which lets the committer skip the write entirely.
type Delta struct {
	NewBadgeIDs              []string
	NewCompletedChallengeIDs []string
	StarsToAdd               int
	UpdatedProgress          models.ChallengeProgress
}

// Empty reports whether the pass found nothing to persist.
func (d *Delta) Empty() bool {
	return len(d.NewBadgeIDs) == 0 &&
		len(d.NewCompletedChallengeIDs) == 0 &&
		d.StarsToAdd == 0 &&
		d.UpdatedProgress == nil
}

// EvaluateCriteria compares the recomputed aggregates against the user's
// earned state and returns the delta. Pure: it never touches the store and
// is safe to re-run any number of times; on unchanged inputs the second run
// always yields an empty delta.
func EvaluateCriteria(
	agg Aggregates,
	badges []catalog.BadgeDefinition,
	challenges []catalog.ChallengeDefinition,
	user *models.User,
) Delta {
	var delta Delta

	// Badges: one-time, never re-awarded.
	for _, badge := range badges {
		if user.HasEarnedBadge(badge.ID) {
			continue
		}
		if badgeCriteriaValue(agg, badge.Criteria.Type) >= badge.Criteria.Target {
			delta.NewBadgeIDs = append(delta.NewBadgeIDs, badge.ID)
			delta.StarsToAdd += badge.StarsAwarded
		}
	}

	// Challenges: active ones always appear in the fresh snapshot;
	// inactive ones are dropped from it.
	snapshot := make(models.ChallengeProgress, len(challenges))
	for _, challenge := range challenges {
		old := user.ChallengeProgress[challenge.ID]
		state := models.ChallengeState{
			Progress: challengeProgressValue(agg, challenge),
			Claimed:  old.Claimed,
		}
		if old.Discount != nil {
			d := *old.Discount
			state.Discount = &d
		}
		snapshot[challenge.ID] = state

		if user.HasCompletedChallenge(challenge.ID) || old.Claimed {
			continue
		}
		if state.Progress >= challenge.Goal {
			delta.NewCompletedChallengeIDs = append(delta.NewCompletedChallengeIDs, challenge.ID)
			delta.StarsToAdd += challenge.StarsAwarded
		}
	}

	// Only ship the snapshot when it differs from the stored progress
	// restricted to the active challenge set; identical snapshots would
	// produce no-op writes.
	oldView := make(models.ChallengeProgress, len(snapshot))
	for id := range snapshot {
		if state, ok := user.ChallengeProgress[id]; ok {
			oldView[id] = state
		}
	}
	if !snapshot.Equal(oldView) {
		delta.UpdatedProgress = snapshot
	}

	return delta
}

func badgeCriteriaValue(agg Aggregates, criteria catalog.BadgeCriteriaType) float64 {
	switch criteria {
	case catalog.CriteriaInvestmentCount:
		return float64(agg.InvestmentCount)
	case catalog.CriteriaSellCount:
		return float64(agg.SellCount)
	case catalog.CriteriaRedemptionCount:
		return float64(agg.RedemptionCount)
	case catalog.CriteriaInvestedAmount:
		return agg.LifetimeInvestedAmount
	case catalog.CriteriaInvestedGrams:
		return agg.LifetimeInvestedGrams
	default:
		return 0
	}
}

func challengeProgressValue(agg Aggregates, challenge catalog.ChallengeDefinition) float64 {
	switch challenge.Type {
	case catalog.ChallengeLifetimeTotal:
		switch challenge.Unit {
		case catalog.UnitGrams:
			return agg.LifetimeInvestedGrams
		case catalog.UnitCount:
			return float64(agg.InvestmentCount)
		default:
			return agg.LifetimeInvestedAmount
		}
	case catalog.ChallengeMonthlyTotal:
		return agg.CurrentMonthInvestedAmount
	case catalog.ChallengeWeeklyTotal:
		return float64(agg.CurrentWeekTradeCount)
	case catalog.ChallengeDateRangeTotal:
		return agg.ChallengeWindowTotals[challenge.ID]
	default:
		return 0
	}
}
