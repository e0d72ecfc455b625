package models

import "time"

// User represents a gold investment account. Balances are denominated in
// the platform currency and in grams of gold held in custody.
type User struct {
	ID          int64  `json:"id" db:"id"`
	Email       string `json:"email" db:"email"`
	Username    string `json:"username" db:"username"`
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`

	CashBalance float64 `json:"cash_balance" db:"cash_balance"`
	GoldGrams   float64 `json:"gold_grams" db:"gold_grams"`

	// Achievement state. Only the rewards engine writes these fields.
	EarnedBadgeIDs        []string          `json:"earned_badge_ids" db:"earned_badge_ids"`
	CompletedChallengeIDs []string          `json:"completed_challenge_ids" db:"completed_challenge_ids"`
	ChallengeProgress     ChallengeProgress `json:"challenge_progress" db:"challenge_progress"`
	StarCount             int               `json:"star_count" db:"star_count"`
	// AchievementsVersion is the optimistic-concurrency token guarding the
	// achievement fields. Incremented on every successful write.
	AchievementsVersion int64 `json:"-" db:"achievements_version"`

	// Transactions holds the user's full ledger when loaded via
	// UserRepository.GetByID.
	Transactions []Transaction `json:"transactions,omitempty" db:"-"`

	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// HasEarnedBadge reports whether the badge is already in the earned set.
func (u *User) HasEarnedBadge(badgeID string) bool {
	for _, id := range u.EarnedBadgeIDs {
		if id == badgeID {
			return true
		}
	}
	return false
}

// HasCompletedChallenge reports whether the challenge is already in the
// completed set.
func (u *User) HasCompletedChallenge(challengeID string) bool {
	for _, id := range u.CompletedChallengeIDs {
		if id == challengeID {
			return true
		}
	}
	return false
}
