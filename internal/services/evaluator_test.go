package services

import (
	"testing"

	"goldhub/internal/catalog"
	"goldhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBadges() []catalog.BadgeDefinition {
	return []catalog.BadgeDefinition{
		{
			ID:           "first_investment",
			Name:         "First Investment",
			Criteria:     catalog.BadgeCriteria{Type: catalog.CriteriaInvestmentCount, Target: 1},
			StarsAwarded: 1,
			IsActive:     true,
		},
		{
			ID:           "gram_collector",
			Name:         "Gram Collector",
			Criteria:     catalog.BadgeCriteria{Type: catalog.CriteriaInvestedGrams, Target: 10},
			StarsAwarded: 3,
			IsActive:     true,
		},
	}
}

func testChallenges() []catalog.ChallengeDefinition {
	return []catalog.ChallengeDefinition{
		{
			ID:           "lifetime_50k",
			Title:        "Gold Builder",
			Goal:         50000,
			Unit:         catalog.UnitCurrency,
			Type:         catalog.ChallengeLifetimeTotal,
			Reward:       catalog.Reward{Kind: catalog.RewardGold, Value: 0.5},
			StarsAwarded: 5,
			IsActive:     true,
		},
		{
			ID:           "weekly_trader",
			Title:        "Weekly Trader",
			Goal:         5,
			Unit:         catalog.UnitCount,
			Type:         catalog.ChallengeWeeklyTotal,
			Reward:       catalog.Reward{Kind: catalog.RewardCash, Value: 100},
			StarsAwarded: 2,
			IsActive:     true,
		},
	}
}

func TestEvaluateCriteriaAwardsFirstBadge(t *testing.T) {
	user := &models.User{ID: 1}
	agg := Aggregates{InvestmentCount: 1, LifetimeInvestedAmount: 1000}

	delta := EvaluateCriteria(agg, testBadges(), testChallenges(), user)

	assert.Equal(t, []string{"first_investment"}, delta.NewBadgeIDs)
	assert.Equal(t, 1, delta.StarsToAdd)
	require.NotNil(t, delta.UpdatedProgress)
	assert.Equal(t, 1000.0, delta.UpdatedProgress["lifetime_50k"].Progress)
}

func TestEvaluateCriteriaNeverReAwardsBadges(t *testing.T) {
	user := &models.User{
		ID:             1,
		EarnedBadgeIDs: []string{"first_investment"},
		ChallengeProgress: models.ChallengeProgress{
			"lifetime_50k":  {Progress: 1000},
			"weekly_trader": {Progress: 0},
		},
	}
	agg := Aggregates{InvestmentCount: 1, LifetimeInvestedAmount: 1000}

	delta := EvaluateCriteria(agg, testBadges(), testChallenges(), user)
	assert.True(t, delta.Empty(), "re-running on unchanged inputs must yield an empty delta")
}

func TestEvaluateCriteriaCompletesChallenge(t *testing.T) {
	user := &models.User{
		ID:             1,
		EarnedBadgeIDs: []string{"first_investment"},
		ChallengeProgress: models.ChallengeProgress{
			"lifetime_50k":  {Progress: 48000},
			"weekly_trader": {Progress: 0},
		},
	}
	agg := Aggregates{InvestmentCount: 9, LifetimeInvestedAmount: 52000}

	delta := EvaluateCriteria(agg, testBadges(), testChallenges(), user)

	assert.Equal(t, []string{"lifetime_50k"}, delta.NewCompletedChallengeIDs)
	assert.Equal(t, 5, delta.StarsToAdd)
	assert.Equal(t, 52000.0, delta.UpdatedProgress["lifetime_50k"].Progress)
}

func TestEvaluateCriteriaCompletedSetIsMonotonic(t *testing.T) {
	// Weekly progress fell back under the goal after the week rolled
	// over; the completed set must keep the challenge.
	user := &models.User{
		ID:                    1,
		CompletedChallengeIDs: []string{"weekly_trader"},
		ChallengeProgress: models.ChallengeProgress{
			"lifetime_50k":  {Progress: 1000},
			"weekly_trader": {Progress: 5},
		},
	}
	agg := Aggregates{LifetimeInvestedAmount: 1000, CurrentWeekTradeCount: 0}

	delta := EvaluateCriteria(agg, testBadges(), []catalog.ChallengeDefinition{testChallenges()[1]}, user)

	assert.Empty(t, delta.NewCompletedChallengeIDs, "a completed challenge is never re-completed")
	require.NotNil(t, delta.UpdatedProgress)
	assert.Equal(t, 0.0, delta.UpdatedProgress["weekly_trader"].Progress, "the progress snapshot still tracks the current window")
}

func TestEvaluateCriteriaClaimedFlagBlocksReCompletion(t *testing.T) {
	// The claimed flag alone must block re-completion even when the
	// completed set lost the ID (legacy data).
	user := &models.User{
		ID: 1,
		ChallengeProgress: models.ChallengeProgress{
			"weekly_trader": {Progress: 5, Claimed: true},
		},
	}
	agg := Aggregates{CurrentWeekTradeCount: 6}

	delta := EvaluateCriteria(agg, nil, []catalog.ChallengeDefinition{testChallenges()[1]}, user)
	assert.Empty(t, delta.NewCompletedChallengeIDs)
}

func TestEvaluateCriteriaCarriesClaimedAndDiscountForward(t *testing.T) {
	user := &models.User{
		ID:                    1,
		CompletedChallengeIDs: []string{"lifetime_50k"},
		ChallengeProgress: models.ChallengeProgress{
			"lifetime_50k": {
				Progress: 50000,
				Claimed:  true,
				Discount: &models.DiscountState{Percent: 0.1, Applied: false},
			},
		},
	}
	agg := Aggregates{LifetimeInvestedAmount: 55000}

	delta := EvaluateCriteria(agg, nil, []catalog.ChallengeDefinition{testChallenges()[0]}, user)

	require.NotNil(t, delta.UpdatedProgress)
	state := delta.UpdatedProgress["lifetime_50k"]
	assert.True(t, state.Claimed)
	require.NotNil(t, state.Discount)
	assert.Equal(t, 0.1, state.Discount.Percent)
}

func TestEvaluateCriteriaSkipsWriteWhenSnapshotUnchanged(t *testing.T) {
	user := &models.User{
		ID: 1,
		ChallengeProgress: models.ChallengeProgress{
			"lifetime_50k":  {Progress: 1000},
			"weekly_trader": {Progress: 2},
			"retired":       {Progress: 7}, // no longer in the active set
		},
		EarnedBadgeIDs: []string{"first_investment"},
	}
	agg := Aggregates{InvestmentCount: 3, LifetimeInvestedAmount: 1000, CurrentWeekTradeCount: 2}

	delta := EvaluateCriteria(agg, testBadges(), testChallenges(), user)
	assert.Nil(t, delta.UpdatedProgress, "inactive leftovers alone must not force a write")
	assert.True(t, delta.Empty())
}

func TestEvaluateCriteriaIdempotentAfterApply(t *testing.T) {
	user := &models.User{ID: 1}
	agg := Aggregates{InvestmentCount: 1, LifetimeInvestedAmount: 60000}

	first := EvaluateCriteria(agg, testBadges(), testChallenges(), user)
	require.False(t, first.Empty())

	// Apply the delta the way the committer would.
	user.EarnedBadgeIDs = append(user.EarnedBadgeIDs, first.NewBadgeIDs...)
	user.CompletedChallengeIDs = append(user.CompletedChallengeIDs, first.NewCompletedChallengeIDs...)
	user.ChallengeProgress = first.UpdatedProgress

	second := EvaluateCriteria(agg, testBadges(), testChallenges(), user)
	assert.True(t, second.Empty(), "the second pass over identical inputs must find nothing new")
}

func TestEvaluateCriteriaLifetimeUnits(t *testing.T) {
	gramChallenge := catalog.ChallengeDefinition{
		ID:       "gram_goal",
		Goal:     10,
		Unit:     catalog.UnitGrams,
		Type:     catalog.ChallengeLifetimeTotal,
		Reward:   catalog.Reward{Kind: catalog.RewardAcknowledge},
		IsActive: true,
	}
	countChallenge := catalog.ChallengeDefinition{
		ID:       "count_goal",
		Goal:     3,
		Unit:     catalog.UnitCount,
		Type:     catalog.ChallengeLifetimeTotal,
		Reward:   catalog.Reward{Kind: catalog.RewardAcknowledge},
		IsActive: true,
	}

	agg := Aggregates{LifetimeInvestedGrams: 12, InvestmentCount: 3, LifetimeInvestedAmount: 1}
	user := &models.User{ID: 1}

	delta := EvaluateCriteria(agg, nil, []catalog.ChallengeDefinition{gramChallenge, countChallenge}, user)
	assert.ElementsMatch(t, []string{"gram_goal", "count_goal"}, delta.NewCompletedChallengeIDs)
	assert.Equal(t, 12.0, delta.UpdatedProgress["gram_goal"].Progress)
	assert.Equal(t, 3.0, delta.UpdatedProgress["count_goal"].Progress)
}
