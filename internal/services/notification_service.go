// file: internal/services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"goldhub/internal/catalog"
	"goldhub/internal/models"
	"goldhub/internal/repositories"

	"go.uber.org/zap"
)

// Pusher delivers a notification over a live channel (websocket hub).
// Delivery is best-effort; persistence never depends on it.
type Pusher interface {
	Push(userID int64, n *models.Notification)
}

// notificationService persists notifications and forwards them to the push
// channel when one is attached.
type notificationService struct {
	repo   repositories.NotificationRepository
	pusher Pusher
	logger *zap.Logger
}

// NewNotificationService creates the notification service. pusher may be
// nil when no live channel is configured.
func NewNotificationService(repo repositories.NotificationRepository, pusher Pusher, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, pusher: pusher, logger: logger}
}

// NotifyBadgeEarned records a badge award notification.
func (s *notificationService) NotifyBadgeEarned(ctx context.Context, userID int64, badge catalog.BadgeDefinition) error {
	return s.deliver(ctx, &models.Notification{
		UserID:  userID,
		Kind:    models.NotificationBadgeEarned,
		Title:   "Badge earned",
		Message: fmt.Sprintf("You earned the %s badge", badge.Name),
		Metadata: map[string]interface{}{
			"badge_id":      badge.ID,
			"stars_awarded": badge.StarsAwarded,
		},
	})
}

// NotifyChallengeCompleted records a challenge completion notification.
func (s *notificationService) NotifyChallengeCompleted(ctx context.Context, userID int64, challenge catalog.ChallengeDefinition) error {
	return s.deliver(ctx, &models.Notification{
		UserID:  userID,
		Kind:    models.NotificationChallengeCompleted,
		Title:   "Challenge completed",
		Message: fmt.Sprintf("You completed %s. Claim your reward!", challenge.Title),
		Metadata: map[string]interface{}{
			"challenge_id": challenge.ID,
			"reward_kind":  string(challenge.Reward.Kind),
		},
	})
}

// NotifyRewardClaimed records a reward grant notification.
func (s *notificationService) NotifyRewardClaimed(ctx context.Context, userID int64, challenge catalog.ChallengeDefinition) error {
	return s.deliver(ctx, &models.Notification{
		UserID:  userID,
		Kind:    models.NotificationRewardClaimed,
		Title:   "Reward claimed",
		Message: fmt.Sprintf("Your reward for %s has been credited", challenge.Title),
		Metadata: map[string]interface{}{
			"challenge_id": challenge.ID,
			"reward_kind":  string(challenge.Reward.Kind),
			"reward_value": challenge.Reward.Value,
		},
	})
}

// ListNotifications returns the user's most recent notifications.
func (s *notificationService) ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// MarkRead marks one notification as read, scoped to its owner.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID int64) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

func (s *notificationService) deliver(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now()
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	if s.pusher != nil {
		s.pusher.Push(n.UserID, n)
	}
	s.logger.Debug("Notification delivered",
		zap.Int64("user_id", n.UserID),
		zap.String("kind", n.Kind),
	)
	return nil
}
