package models

import (
	"encoding/json"
	"strings"
)

// ===============================
// CHALLENGE PROGRESS
// ===============================

// DiscountState tracks a claimed fee-discount reward until the trade flow
// consumes it on the next buy.
type DiscountState struct {
	Percent float64 `json:"percent"`
	Applied bool    `json:"applied"`
}

// ChallengeState is the in-memory view of one challenge's per-user state.
// The flat storage representation (bare id -> progress, plus "_claimed",
// "_discount_percent" and "_discount_applied" suffix keys) is only produced
// and consumed at the store boundary.
type ChallengeState struct {
	Progress float64        `json:"progress"`
	Claimed  bool           `json:"claimed"`
	Discount *DiscountState `json:"discount,omitempty"`
}

// ChallengeProgress maps a challenge ID to its per-user state.
type ChallengeProgress map[string]ChallengeState

// Flat map key suffixes used by the storage representation. Legacy data
// uses the same keys but may hold non-boolean truthy claimed markers.
const (
	claimedSuffix         = "_claimed"
	discountPercentSuffix = "_discount_percent"
	discountAppliedSuffix = "_discount_applied"
)

// ChallengeProgressFromFlat decodes the flat storage map into the tagged
// form. Legacy truthy non-boolean claimed markers (1, "true", 1.0) decode
// as claimed; the next encode rewrites them as boolean true.
func ChallengeProgressFromFlat(flat map[string]interface{}) ChallengeProgress {
	progress := make(ChallengeProgress, len(flat))

	get := func(id string) ChallengeState { return progress[id] }

	for key, value := range flat {
		switch {
		case strings.HasSuffix(key, claimedSuffix):
			id := strings.TrimSuffix(key, claimedSuffix)
			state := get(id)
			state.Claimed = truthy(value)
			progress[id] = state
		case strings.HasSuffix(key, discountPercentSuffix):
			id := strings.TrimSuffix(key, discountPercentSuffix)
			state := get(id)
			if state.Discount == nil {
				state.Discount = &DiscountState{}
			}
			state.Discount.Percent = asFloat(value)
			progress[id] = state
		case strings.HasSuffix(key, discountAppliedSuffix):
			id := strings.TrimSuffix(key, discountAppliedSuffix)
			state := get(id)
			if state.Discount == nil {
				state.Discount = &DiscountState{}
			}
			state.Discount.Applied = truthy(value)
			progress[id] = state
		default:
			state := get(key)
			state.Progress = asFloat(value)
			progress[key] = state
		}
	}

	return progress
}

// ToFlat encodes the tagged form back into the flat storage map. Claimed is
// always written as a boolean, which normalizes any legacy marker the next
// time the engine touches the record.
func (p ChallengeProgress) ToFlat() map[string]interface{} {
	flat := make(map[string]interface{}, len(p)*2)
	for id, state := range p {
		flat[id] = state.Progress
		if state.Claimed {
			flat[id+claimedSuffix] = true
		}
		if state.Discount != nil {
			flat[id+discountPercentSuffix] = state.Discount.Percent
			flat[id+discountAppliedSuffix] = state.Discount.Applied
		}
	}
	return flat
}

// Clone returns a deep copy.
func (p ChallengeProgress) Clone() ChallengeProgress {
	if p == nil {
		return nil
	}
	clone := make(ChallengeProgress, len(p))
	for id, state := range p {
		if state.Discount != nil {
			d := *state.Discount
			state.Discount = &d
		}
		clone[id] = state
	}
	return clone
}

// Equal reports structural equality, comparing discounts by value.
func (p ChallengeProgress) Equal(other ChallengeProgress) bool {
	if len(p) != len(other) {
		return false
	}
	for id, state := range p {
		o, ok := other[id]
		if !ok || state.Progress != o.Progress || state.Claimed != o.Claimed {
			return false
		}
		switch {
		case state.Discount == nil && o.Discount == nil:
		case state.Discount == nil || o.Discount == nil:
			return false
		case *state.Discount != *o.Discount:
			return false
		}
	}
	return true
}

// ===============================
// FLAT VALUE COERCION
// ===============================

// truthy interprets any stored claimed marker. Legacy records hold 1 or
// "true" where a boolean belongs; those count as claimed.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case float32:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		return v == "true" || v == "1"
	case nil:
		return false
	default:
		return false
	}
}

func asFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// ===============================
// PARTIAL UPDATES
// ===============================

// AchievementUpdate is the partial update the state committer persists.
// ChallengeProgress is nil when the snapshot did not change; the store must
// then leave the stored snapshot untouched.
type AchievementUpdate struct {
	EarnedBadgeIDs        []string
	CompletedChallengeIDs []string
	StarCount             int
	ChallengeProgress     ChallengeProgress
}

// ClaimPatch is the atomic write a successful reward claim produces:
// updated progress (claimed flag and any discount keys), balance deltas,
// and an optional bonus ledger entry.
type ClaimPatch struct {
	ChallengeProgress ChallengeProgress
	CashDelta         float64
	GramsDelta        float64
	BonusEntry        *Transaction
}
