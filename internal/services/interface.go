// file: internal/services/interface.go
package services

import (
	"context"
	"time"

	"goldhub/internal/catalog"
	"goldhub/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// AchievementService is the rewards engine surface: the fire-and-forget
// recomputation trigger, the claim operation, and the read model for the
// rewards screens.
type AchievementService interface {
	// OnActionCompleted triggers a recomputation of the user's badges and
	// challenge progress. Fire-and-forget: it never returns an error and
	// never blocks the calling flow beyond dispatch.
	OnActionCompleted(userID int64, action string)

	// Recompute runs one synchronous fetch-evaluate-write pass. Exposed
	// for backfills and the admin resync endpoint.
	Recompute(ctx context.Context, userID int64) error

	// Claim grants the reward of a completed, unclaimed challenge.
	// Typed failures: not-found, not-completed, already-claimed.
	Claim(ctx context.Context, userID int64, challengeID string) (*ClaimResult, error)

	// GetOverview assembles the rewards screen: definitions joined with
	// the user's earned and progress state.
	GetOverview(ctx context.Context, userID int64) (*RewardsOverview, error)
}

// TradeService settles buy, sell and redemption orders against the ledger
// and triggers rewards recomputation after each settlement.
type TradeService interface {
	Buy(ctx context.Context, req *BuyRequest) (*models.Transaction, error)
	Sell(ctx context.Context, req *SellRequest) (*models.Transaction, error)
	Redeem(ctx context.Context, req *RedeemRequest) (*models.Transaction, error)
	GetLedger(ctx context.Context, userID int64) ([]models.Transaction, error)
}

// NotificationService persists and delivers user notifications.
type NotificationService interface {
	NotifyBadgeEarned(ctx context.Context, userID int64, badge catalog.BadgeDefinition) error
	NotifyChallengeCompleted(ctx context.Context, userID int64, challenge catalog.ChallengeDefinition) error
	NotifyRewardClaimed(ctx context.Context, userID int64, challenge catalog.ChallengeDefinition) error
	ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
}

// ChallengeAdminService manages the store-backed challenge definitions.
type ChallengeAdminService interface {
	ListChallenges(ctx context.Context) ([]catalog.ChallengeDefinition, error)
	CreateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error
	UpdateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error
	DeleteChallenge(ctx context.Context, id string) error
}

// ===============================
// REQUEST / RESULT TYPES
// ===============================

// BuyRequest is a gold purchase order. Exactly one of Amount or Grams must
// be positive; the other side is derived from the current price.
type BuyRequest struct {
	UserID int64   `json:"user_id" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Grams  float64 `json:"grams" validate:"gte=0"`
}

// SellRequest is a gold sale order, expressed in grams.
type SellRequest struct {
	UserID int64   `json:"user_id" validate:"required,gt=0"`
	Grams  float64 `json:"grams" validate:"required,gt=0"`
}

// RedeemRequest converts held grams into a physical delivery.
type RedeemRequest struct {
	UserID  int64   `json:"user_id" validate:"required,gt=0"`
	Grams   float64 `json:"grams" validate:"required,gt=0"`
	Address string  `json:"address" validate:"required"`
}

// ClaimResult reports what a successful claim granted.
type ClaimResult struct {
	ChallengeID string              `json:"challenge_id"`
	Reward      catalog.Reward      `json:"reward"`
	GrantedAt   time.Time           `json:"granted_at"`
	BonusEntry  *models.Transaction `json:"bonus_entry,omitempty"`
}

// BadgeView is one badge joined with the user's earned state.
type BadgeView struct {
	catalog.BadgeDefinition
	Earned bool `json:"earned"`
}

// ChallengeView is one challenge joined with the user's progress state.
type ChallengeView struct {
	catalog.ChallengeDefinition
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed"`
	Claimed   bool    `json:"claimed"`
	Claimable bool    `json:"claimable"`
}

// RewardsOverview is the rewards screen read model.
type RewardsOverview struct {
	StarCount  int             `json:"star_count"`
	Badges     []BadgeView     `json:"badges"`
	Challenges []ChallengeView `json:"challenges"`
}
