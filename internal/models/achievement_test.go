package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeProgressFromFlat(t *testing.T) {
	flat := map[string]interface{}{
		"lifetime_50k":                 12500.0,
		"weekly_trader":                3.0,
		"weekly_trader_claimed":        true,
		"monthly_10k":                  10000.0,
		"monthly_10k_claimed":          true,
		"monthly_10k_discount_percent": 0.10,
		"monthly_10k_discount_applied": false,
	}

	progress := ChallengeProgressFromFlat(flat)
	require.Len(t, progress, 3)

	assert.Equal(t, 12500.0, progress["lifetime_50k"].Progress)
	assert.False(t, progress["lifetime_50k"].Claimed)

	assert.Equal(t, 3.0, progress["weekly_trader"].Progress)
	assert.True(t, progress["weekly_trader"].Claimed)

	monthly := progress["monthly_10k"]
	assert.True(t, monthly.Claimed)
	require.NotNil(t, monthly.Discount)
	assert.Equal(t, 0.10, monthly.Discount.Percent)
	assert.False(t, monthly.Discount.Applied)
}

func TestChallengeProgressFromFlatLegacyClaimedMarkers(t *testing.T) {
	// Older records stored truthy numbers and strings where the boolean
	// claimed flag belongs.
	flat := map[string]interface{}{
		"a":         100.0,
		"a_claimed": 1.0,
		"b":         200.0,
		"b_claimed": "true",
		"c":         300.0,
		"c_claimed": "0",
		"d":         400.0,
		"d_claimed": 0.0,
	}

	progress := ChallengeProgressFromFlat(flat)
	assert.True(t, progress["a"].Claimed)
	assert.True(t, progress["b"].Claimed)
	assert.False(t, progress["c"].Claimed)
	assert.False(t, progress["d"].Claimed)
}

func TestToFlatNormalizesLegacyClaimed(t *testing.T) {
	flat := map[string]interface{}{
		"a":         100.0,
		"a_claimed": 1.0,
	}

	// Decode then re-encode: the legacy marker must come back as a real
	// boolean.
	round := ChallengeProgressFromFlat(flat).ToFlat()
	assert.Equal(t, true, round["a_claimed"])
	assert.Equal(t, 100.0, round["a"])
}

func TestToFlatOmitsUnclaimedAndNilDiscount(t *testing.T) {
	progress := ChallengeProgress{
		"open": {Progress: 10},
		"done": {Progress: 50, Claimed: true},
		"disc": {Progress: 99, Claimed: true, Discount: &DiscountState{Percent: 0.05}},
	}

	flat := progress.ToFlat()
	assert.Equal(t, 10.0, flat["open"])
	_, hasClaimed := flat["open_claimed"]
	assert.False(t, hasClaimed)
	_, hasPercent := flat["open_discount_percent"]
	assert.False(t, hasPercent)

	assert.Equal(t, true, flat["done_claimed"])
	assert.Equal(t, 0.05, flat["disc_discount_percent"])
	assert.Equal(t, false, flat["disc_discount_applied"])
}

func TestChallengeProgressEqual(t *testing.T) {
	a := ChallengeProgress{
		"x": {Progress: 1, Claimed: true, Discount: &DiscountState{Percent: 0.1}},
	}
	b := ChallengeProgress{
		"x": {Progress: 1, Claimed: true, Discount: &DiscountState{Percent: 0.1}},
	}
	assert.True(t, a.Equal(b), "structurally identical progress should compare equal")

	b["x"] = ChallengeState{Progress: 1, Claimed: true, Discount: &DiscountState{Percent: 0.2}}
	assert.False(t, a.Equal(b))

	c := a.Clone()
	assert.True(t, a.Equal(c))
	state := c["x"]
	state.Discount.Applied = true
	c["x"] = state
	assert.False(t, a.Equal(c), "clone must be deep, mutating it must not affect the original")
	assert.False(t, a["x"].Discount.Applied)
}
