package services

import (
	"time"

	"goldhub/internal/catalog"
	"goldhub/internal/models"

	"go.uber.org/zap"
)

// Aggregates is the summary one full scan of a user's ledger produces.
// Every value is recomputed from scratch on each evaluation; nothing here
// is incrementally mutated.
type Aggregates struct {
	LifetimeInvestedAmount float64
	LifetimeInvestedGrams  float64
	InvestmentCount        int
	SellCount              int
	RedemptionCount        int

	CurrentMonthInvestedAmount float64
	CurrentWeekTradeCount      int

	// ChallengeWindowTotals holds invested amounts per active
	// date-range challenge whose window contains the entry timestamp.
	ChallengeWindowTotals map[string]float64
}

// BuildAggregates scans the ledger once. windowChallenges must be the
// currently active date-range challenges; other challenge types derive
// their progress from the lifetime and calendar-period counters.
// Deterministic for a fixed (entries, now).
func BuildAggregates(logger *zap.Logger, entries []models.Transaction, now time.Time, windowChallenges []catalog.ChallengeDefinition) Aggregates {
	agg := Aggregates{
		ChallengeWindowTotals: make(map[string]float64, len(windowChallenges)),
	}
	for _, c := range windowChallenges {
		agg.ChallengeWindowTotals[c.ID] = 0
	}

	monthStart := startOfMonth(now)
	weekStart := startOfWeek(now)

	for _, entry := range entries {
		if entry.CreatedAt.IsZero() {
			logger.Warn("Skipping ledger entry with missing timestamp",
				zap.Int64("transaction_id", entry.ID),
				zap.String("kind", string(entry.Kind)),
			)
			continue
		}

		switch entry.Kind {
		case models.KindInvestment:
			agg.LifetimeInvestedAmount += entry.Amount
			agg.LifetimeInvestedGrams += entry.Grams
			agg.InvestmentCount++
			if !entry.CreatedAt.Before(monthStart) {
				agg.CurrentMonthInvestedAmount += entry.Amount
			}
			if !entry.CreatedAt.Before(weekStart) {
				agg.CurrentWeekTradeCount++
			}
			for _, c := range windowChallenges {
				if inWindow(entry.CreatedAt, c.StartsAt, c.EndsAt) {
					agg.ChallengeWindowTotals[c.ID] += entry.Amount
				}
			}
		case models.KindSell:
			agg.SellCount++
			if !entry.CreatedAt.Before(weekStart) {
				agg.CurrentWeekTradeCount++
			}
		case models.KindRedemption:
			agg.RedemptionCount++
		}
	}

	return agg
}

// startOfMonth returns midnight on the first day of now's month, in now's
// location.
func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// startOfWeek returns midnight on the Monday of now's week, in now's
// location.
func startOfWeek(now time.Time) time.Time {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

func inWindow(ts time.Time, start, end *time.Time) bool {
	if start != nil && ts.Before(*start) {
		return false
	}
	if end != nil && ts.After(*end) {
		return false
	}
	return true
}
