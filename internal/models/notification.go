package models

import "time"

// Notification kinds dispatched by the rewards engine.
const (
	NotificationBadgeEarned        = "badge_earned"
	NotificationChallengeCompleted = "challenge_completed"
	NotificationRewardClaimed      = "reward_claimed"
)

// Notification is a persisted user notification. Delivery over push
// channels is best-effort and decoupled from persistence.
type Notification struct {
	ID        int64                  `json:"id" db:"id"`
	UserID    int64                  `json:"user_id" db:"user_id"`
	Kind      string                 `json:"kind" db:"kind"`
	Title     string                 `json:"title" db:"title"`
	Message   string                 `json:"message" db:"message"`
	Link      *string                `json:"link,omitempty" db:"link"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	IsRead    bool                   `json:"is_read" db:"is_read"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
