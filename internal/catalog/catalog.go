// Package catalog holds the badge and challenge definitions the rewards
// engine evaluates. Definitions are read-only to the engine; they are
// authored either in the static table below or through the admin challenge
// store, and exposed to the rest of the system through the Provider
// interface.
package catalog

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

// ===============================
// DEFINITION TYPES
// ===============================

// BadgeCriteriaType selects which ledger aggregate a badge criterion is
// compared against.
type BadgeCriteriaType string

const (
	CriteriaInvestmentCount BadgeCriteriaType = "investment_count"
	CriteriaSellCount       BadgeCriteriaType = "sell_count"
	CriteriaRedemptionCount BadgeCriteriaType = "redemption_count"
	CriteriaInvestedAmount  BadgeCriteriaType = "invested_amount"
	CriteriaInvestedGrams   BadgeCriteriaType = "invested_grams"
)

// BadgeCriteria is the single rule a badge is earned by: the aggregate
// selected by Type must reach Target.
type BadgeCriteria struct {
	Type   BadgeCriteriaType `json:"type" validate:"required"`
	Target float64           `json:"target" validate:"gt=0"`
}

// BadgeDefinition is an immutable catalog entry for a one-time achievement.
type BadgeDefinition struct {
	ID           string        `json:"id" validate:"required"`
	Name         string        `json:"name" validate:"required"`
	Description  string        `json:"description"`
	Icon         string        `json:"icon"`
	Criteria     BadgeCriteria `json:"criteria" validate:"required"`
	StarsAwarded int           `json:"stars_awarded" validate:"gte=0"`
	IsActive     bool          `json:"is_active"`
}

// ChallengeType selects how a challenge's progress is derived from the
// ledger aggregates.
type ChallengeType string

const (
	ChallengeLifetimeTotal  ChallengeType = "lifetime_total"
	ChallengeMonthlyTotal   ChallengeType = "monthly_total"
	ChallengeWeeklyTotal    ChallengeType = "weekly_total"
	ChallengeDateRangeTotal ChallengeType = "date_range_total"
)

// ChallengeUnit is the dimension the goal is expressed in.
type ChallengeUnit string

const (
	UnitCurrency ChallengeUnit = "currency"
	UnitGrams    ChallengeUnit = "grams"
	UnitCount    ChallengeUnit = "count"
)

// RewardKind selects the side effect applied when a completed challenge is
// claimed.
type RewardKind string

const (
	RewardGold        RewardKind = "gold"
	RewardCash        RewardKind = "cash"
	RewardFeeDiscount RewardKind = "fee_discount"
	RewardAcknowledge RewardKind = "acknowledge"
)

// Reward describes what a claim grants. Value is grams for gold rewards,
// currency for cash rewards, and a fraction (0.10 = 10%) for fee discounts.
type Reward struct {
	Kind  RewardKind `json:"kind" validate:"required"`
	Value float64    `json:"value" validate:"gte=0"`
}

// ChallengeDefinition is an immutable catalog entry for a goal-based
// achievement with a claimable reward.
type ChallengeDefinition struct {
	ID           string        `json:"id" validate:"required"`
	Title        string        `json:"title" validate:"required"`
	Description  string        `json:"description"`
	Goal         float64       `json:"goal" validate:"gt=0"`
	Unit         ChallengeUnit `json:"unit" validate:"required"`
	Type         ChallengeType `json:"type" validate:"required"`
	Reward       Reward        `json:"reward" validate:"required"`
	StarsAwarded int           `json:"stars_awarded" validate:"gte=0"`
	IsActive     bool          `json:"is_active"`
	StartsAt     *time.Time    `json:"starts_at,omitempty"`
	EndsAt       *time.Time    `json:"ends_at,omitempty"`
}

// ActiveAt reports whether the challenge is live at the given instant.
// This must be re-evaluated on every read; callers never cache the result
// past the instant of evaluation.
func (c *ChallengeDefinition) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartsAt != nil && c.StartsAt.After(now) {
		return false
	}
	if c.EndsAt != nil && c.EndsAt.Before(now) {
		return false
	}
	return true
}

// ===============================
// PROVIDER
// ===============================

// Provider exposes the currently active definitions. Implementations are
// selected at startup: a static in-code table, or the store-backed provider
// that merges admin-defined challenges in.
type Provider interface {
	ActiveBadges(ctx context.Context) ([]BadgeDefinition, error)
	ActiveChallenges(ctx context.Context, now time.Time) ([]ChallengeDefinition, error)
}

// ===============================
// VALIDATION
// ===============================

var validate = validator.New()

// ValidateBadge checks a badge definition for malformed criteria data.
func ValidateBadge(def *BadgeDefinition) error {
	return validate.Struct(def)
}

// ValidateChallenge checks a challenge definition, including that its date
// window is ordered.
func ValidateChallenge(def *ChallengeDefinition) error {
	if err := validate.Struct(def); err != nil {
		return err
	}
	if def.StartsAt != nil && def.EndsAt != nil && def.EndsAt.Before(*def.StartsAt) {
		return &WindowError{ChallengeID: def.ID}
	}
	return nil
}

// WindowError reports a challenge whose end precedes its start.
type WindowError struct {
	ChallengeID string
}

func (e *WindowError) Error() string {
	return "challenge " + e.ChallengeID + ": end date precedes start date"
}
