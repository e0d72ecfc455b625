package catalog

import (
	"context"
	"fmt"
	"time"
)

// StaticProvider serves definitions from in-code tables. It is the default
// provider and also backs the static half of the store-backed provider.
type StaticProvider struct {
	badges     []BadgeDefinition
	challenges []ChallengeDefinition
}

// NewStaticProvider validates the given tables and returns a provider over
// them. A malformed definition fails startup rather than silently skipping.
func NewStaticProvider(badges []BadgeDefinition, challenges []ChallengeDefinition) (*StaticProvider, error) {
	for i := range badges {
		if err := ValidateBadge(&badges[i]); err != nil {
			return nil, fmt.Errorf("invalid badge definition %q: %w", badges[i].ID, err)
		}
	}
	for i := range challenges {
		if err := ValidateChallenge(&challenges[i]); err != nil {
			return nil, fmt.Errorf("invalid challenge definition %q: %w", challenges[i].ID, err)
		}
	}
	return &StaticProvider{badges: badges, challenges: challenges}, nil
}

// ActiveBadges returns the active badge definitions.
func (p *StaticProvider) ActiveBadges(ctx context.Context) ([]BadgeDefinition, error) {
	active := make([]BadgeDefinition, 0, len(p.badges))
	for _, b := range p.badges {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return active, nil
}

// ActiveChallenges returns the challenge definitions live at now.
func (p *StaticProvider) ActiveChallenges(ctx context.Context, now time.Time) ([]ChallengeDefinition, error) {
	active := make([]ChallengeDefinition, 0, len(p.challenges))
	for _, c := range p.challenges {
		if c.ActiveAt(now) {
			active = append(active, c)
		}
	}
	return active, nil
}

// DefaultBadges is the launch badge table.
func DefaultBadges() []BadgeDefinition {
	return []BadgeDefinition{
		{
			ID:           "first_investment",
			Name:         "First Steps",
			Description:  "Make your first gold purchase",
			Icon:         "🥇",
			Criteria:     BadgeCriteria{Type: CriteriaInvestmentCount, Target: 1},
			StarsAwarded: 5,
			IsActive:     true,
		},
		{
			ID:           "regular_investor",
			Name:         "Regular Investor",
			Description:  "Complete ten gold purchases",
			Icon:         "📈",
			Criteria:     BadgeCriteria{Type: CriteriaInvestmentCount, Target: 10},
			StarsAwarded: 15,
			IsActive:     true,
		},
		{
			ID:           "first_sale",
			Name:         "Profit Taker",
			Description:  "Sell gold for the first time",
			Icon:         "💰",
			Criteria:     BadgeCriteria{Type: CriteriaSellCount, Target: 1},
			StarsAwarded: 5,
			IsActive:     true,
		},
		{
			ID:           "first_redemption",
			Name:         "Gold In Hand",
			Description:  "Redeem physical gold for the first time",
			Icon:         "🪙",
			Criteria:     BadgeCriteria{Type: CriteriaRedemptionCount, Target: 1},
			StarsAwarded: 10,
			IsActive:     true,
		},
		{
			ID:           "gram_collector",
			Name:         "Gram Collector",
			Description:  "Accumulate 10 grams of gold through purchases",
			Icon:         "⚖️",
			Criteria:     BadgeCriteria{Type: CriteriaInvestedGrams, Target: 10},
			StarsAwarded: 20,
			IsActive:     true,
		},
	}
}

// DefaultChallenges is the launch challenge table. Admin-defined date-range
// challenges come from the challenge store on top of these.
func DefaultChallenges() []ChallengeDefinition {
	return []ChallengeDefinition{
		{
			ID:           "lifetime_50k",
			Title:        "Golden Milestone",
			Description:  "Invest a lifetime total of 50,000",
			Goal:         50000,
			Unit:         UnitCurrency,
			Type:         ChallengeLifetimeTotal,
			Reward:       Reward{Kind: RewardGold, Value: 0.5},
			StarsAwarded: 25,
			IsActive:     true,
		},
		{
			ID:           "monthly_10k",
			Title:        "Monthly Saver",
			Description:  "Invest 10,000 within the current calendar month",
			Goal:         10000,
			Unit:         UnitCurrency,
			Type:         ChallengeMonthlyTotal,
			Reward:       Reward{Kind: RewardFeeDiscount, Value: 0.10},
			StarsAwarded: 10,
			IsActive:     true,
		},
		{
			ID:           "weekly_trader",
			Title:        "Weekly Trader",
			Description:  "Make five trades within the current week",
			Goal:         5,
			Unit:         UnitCount,
			Type:         ChallengeWeeklyTotal,
			Reward:       Reward{Kind: RewardCash, Value: 100},
			StarsAwarded: 10,
			IsActive:     true,
		},
	}
}

// NewDefaultStaticProvider builds a provider over the launch tables.
func NewDefaultStaticProvider() (*StaticProvider, error) {
	return NewStaticProvider(DefaultBadges(), DefaultChallenges())
}

var _ Provider = (*StaticProvider)(nil)
