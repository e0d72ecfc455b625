// file: internal/services/achievement_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"goldhub/internal/catalog"
	"goldhub/internal/events"
	"goldhub/internal/models"
	"goldhub/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// recomputeTimeout bounds one background fetch-evaluate-write pass.
const recomputeTimeout = 10 * time.Second

// claimMaxRetries bounds retries of claims that lost a version race.
const claimMaxRetries = 3

// achievementService implements AchievementService. All achievement state
// is derived from the ledger on every pass; the service persists only the
// resulting delta, guarded by the per-user version token and an in-process
// keyed mutex.
type achievementService struct {
	userRepo repositories.UserRepository
	catalog  catalog.Provider
	notifier NotificationService
	eventBus events.EventBus
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewAchievementService creates the rewards engine service. notifier and
// eventBus may be nil; delivery is then skipped.
func NewAchievementService(
	userRepo repositories.UserRepository,
	provider catalog.Provider,
	notifier NotificationService,
	eventBus events.EventBus,
	logger *zap.Logger,
) AchievementService {
	return &achievementService{
		userRepo: userRepo,
		catalog:  provider,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// ===============================
// STATE COMMITTER
// ===============================

// OnActionCompleted dispatches a background recomputation. Failures are
// logged and swallowed; the next qualifying action repeats the full scan,
// so a lost pass only delays the award.
func (s *achievementService) OnActionCompleted(userID int64, action string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Recomputation panicked",
					zap.Int64("user_id", userID),
					zap.String("action", action),
					zap.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
		defer cancel()

		if err := s.Recompute(ctx, userID); err != nil {
			s.logger.Warn("Achievement recomputation failed",
				zap.Int64("user_id", userID),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}()
}

// Recompute runs one fetch-evaluate-write pass under the user's lock.
func (s *achievementService) Recompute(ctx context.Context, userID int64) error {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	now := s.now()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return NewNotFoundError("user")
	}

	badges, err := s.catalog.ActiveBadges(ctx)
	if err != nil {
		return fmt.Errorf("load badge definitions: %w", err)
	}
	challenges, err := s.catalog.ActiveChallenges(ctx, now)
	if err != nil {
		return fmt.Errorf("load challenge definitions: %w", err)
	}

	agg := BuildAggregates(s.logger, user.Transactions, now, windowChallenges(challenges))
	delta := EvaluateCriteria(agg, badges, challenges, user)
	if delta.Empty() {
		return nil
	}

	update := &models.AchievementUpdate{
		EarnedBadgeIDs:        append(append([]string{}, user.EarnedBadgeIDs...), delta.NewBadgeIDs...),
		CompletedChallengeIDs: append(append([]string{}, user.CompletedChallengeIDs...), delta.NewCompletedChallengeIDs...),
		StarCount:             user.StarCount + delta.StarsToAdd,
		ChallengeProgress:     delta.UpdatedProgress,
	}

	rows, err := s.userRepo.UpdateAchievements(ctx, userID, update, user.AchievementsVersion)
	if err != nil {
		return fmt.Errorf("persist achievement update: %w", err)
	}
	if rows == 0 {
		// A concurrent pass won the version race. Its scan covered the
		// same ledger or a superset, so dropping this write is safe.
		s.logger.Warn("Achievement update lost version race",
			zap.Int64("user_id", userID),
			zap.Int64("expected_version", user.AchievementsVersion),
		)
		return nil
	}

	s.announceDelta(ctx, userID, delta, badges, challenges)
	return nil
}

// announceDelta sends notifications and events for newly awarded items.
// Best-effort: the write already committed, delivery failures only log.
func (s *achievementService) announceDelta(
	ctx context.Context,
	userID int64,
	delta Delta,
	badges []catalog.BadgeDefinition,
	challenges []catalog.ChallengeDefinition,
) {
	for _, badgeID := range delta.NewBadgeIDs {
		badge, ok := findBadge(badges, badgeID)
		if !ok {
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyBadgeEarned(ctx, userID, badge); err != nil {
				s.logger.Warn("Badge notification failed",
					zap.Int64("user_id", userID),
					zap.String("badge_id", badgeID),
					zap.Error(err),
				)
			}
		}
		if s.eventBus != nil {
			_ = s.eventBus.PublishAsync(ctx, events.NewBadgeEarnedEvent(userID, badgeID, badge.StarsAwarded))
		}
	}

	for _, challengeID := range delta.NewCompletedChallengeIDs {
		challenge, ok := findChallenge(challenges, challengeID)
		if !ok {
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyChallengeCompleted(ctx, userID, challenge); err != nil {
				s.logger.Warn("Challenge notification failed",
					zap.Int64("user_id", userID),
					zap.String("challenge_id", challengeID),
					zap.Error(err),
				)
			}
		}
		if s.eventBus != nil {
			_ = s.eventBus.PublishAsync(ctx, events.NewChallengeCompletedEvent(userID, challengeID, challenge.StarsAwarded))
		}
	}
}

// ===============================
// CLAIM HANDLER
// ===============================

// Claim grants a completed challenge's reward exactly once. Version races
// and transient store failures retry with backoff; business rejections
// (not found, not completed, already claimed) fail immediately.
func (s *achievementService) Claim(ctx context.Context, userID int64, challengeID string) (*ClaimResult, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var result *ClaimResult
	operation := func() error {
		var err error
		result, err = s.claimOnce(ctx, userID, challengeID)
		if err != nil && !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), claimMaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *achievementService) claimOnce(ctx context.Context, userID int64, challengeID string) (*ClaimResult, error) {
	now := s.now()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewTransientStoreError("failed to load user", err)
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	challenges, err := s.catalog.ActiveChallenges(ctx, now)
	if err != nil {
		return nil, NewTransientStoreError("failed to load challenge definitions", err)
	}
	challenge, ok := findChallenge(challenges, challengeID)
	if !ok {
		return nil, NewNotFoundError("challenge not found")
	}

	state := user.ChallengeProgress[challengeID]
	if state.Claimed {
		return nil, NewAlreadyClaimedError(challengeID)
	}
	// Claims require the committed completion, not just a qualifying
	// progress number. The completed-set write is what grants the
	// challenge's stars; claiming ahead of it would flip the claimed flag
	// and stop the committer from ever recording the completion.
	if !user.HasCompletedChallenge(challengeID) {
		return nil, NewNotCompletedError(challengeID)
	}

	patch := s.buildClaimPatch(user, challenge, now)

	rows, err := s.userRepo.CommitClaim(ctx, userID, patch, user.AchievementsVersion)
	if err != nil {
		return nil, NewTransientStoreError("failed to commit claim", err)
	}
	if rows == 0 {
		return nil, NewPersistenceRaceError("claim lost an optimistic write race")
	}

	s.logger.Info("Reward claimed",
		zap.Int64("user_id", userID),
		zap.String("challenge_id", challengeID),
		zap.String("reward_kind", string(challenge.Reward.Kind)),
	)

	if s.notifier != nil {
		if nerr := s.notifier.NotifyRewardClaimed(ctx, userID, challenge); nerr != nil {
			s.logger.Warn("Claim notification failed",
				zap.Int64("user_id", userID),
				zap.String("challenge_id", challengeID),
				zap.Error(nerr),
			)
		}
	}
	if s.eventBus != nil {
		_ = s.eventBus.PublishAsync(ctx, events.NewRewardClaimedEvent(
			userID, challengeID, string(challenge.Reward.Kind), challenge.Reward.Value,
		))
	}

	return &ClaimResult{
		ChallengeID: challengeID,
		Reward:      challenge.Reward,
		GrantedAt:   now,
		BonusEntry:  patch.BonusEntry,
	}, nil
}

// buildClaimPatch translates the challenge's reward into the atomic write:
// the claimed flag flip plus the reward's side effect.
func (s *achievementService) buildClaimPatch(user *models.User, challenge catalog.ChallengeDefinition, now time.Time) *models.ClaimPatch {
	progress := user.ChallengeProgress.Clone()
	if progress == nil {
		progress = make(models.ChallengeProgress, 1)
	}
	state := progress[challenge.ID]
	state.Claimed = true

	patch := &models.ClaimPatch{}

	switch challenge.Reward.Kind {
	case catalog.RewardGold:
		patch.GramsDelta = challenge.Reward.Value
		patch.BonusEntry = &models.Transaction{
			UserID:    user.ID,
			Kind:      models.KindBonus,
			Grams:     challenge.Reward.Value,
			Status:    models.StatusCompleted,
			Reference: "reward:" + challenge.ID,
			CreatedAt: now,
		}
	case catalog.RewardCash:
		patch.CashDelta = challenge.Reward.Value
		patch.BonusEntry = &models.Transaction{
			UserID:    user.ID,
			Kind:      models.KindBonus,
			Amount:    challenge.Reward.Value,
			Status:    models.StatusCompleted,
			Reference: "reward:" + challenge.ID,
			CreatedAt: now,
		}
	case catalog.RewardFeeDiscount:
		state.Discount = &models.DiscountState{
			Percent: challenge.Reward.Value,
			Applied: false,
		}
	case catalog.RewardAcknowledge:
		// Claimed flag only.
	default:
		// Unknown kinds still mark the challenge claimed so a stale
		// catalog cannot wedge the user in a claim loop.
		s.logger.Warn("Unknown reward kind, claim marks only",
			zap.String("challenge_id", challenge.ID),
			zap.String("reward_kind", string(challenge.Reward.Kind)),
		)
	}

	progress[challenge.ID] = state
	patch.ChallengeProgress = progress
	return patch
}

// ===============================
// READ MODEL
// ===============================

// GetOverview joins the active catalog with the user's stored state.
func (s *achievementService) GetOverview(ctx context.Context, userID int64) (*RewardsOverview, error) {
	now := s.now()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	badges, err := s.catalog.ActiveBadges(ctx)
	if err != nil {
		return nil, NewInternalError("failed to load badge definitions")
	}
	challenges, err := s.catalog.ActiveChallenges(ctx, now)
	if err != nil {
		return nil, NewInternalError("failed to load challenge definitions")
	}

	overview := &RewardsOverview{
		StarCount:  user.StarCount,
		Badges:     make([]BadgeView, 0, len(badges)),
		Challenges: make([]ChallengeView, 0, len(challenges)),
	}
	for _, badge := range badges {
		overview.Badges = append(overview.Badges, BadgeView{
			BadgeDefinition: badge,
			Earned:          user.HasEarnedBadge(badge.ID),
		})
	}
	for _, challenge := range challenges {
		state := user.ChallengeProgress[challenge.ID]
		// Completed may run ahead of the async committer so the screen
		// reflects the qualifying trade immediately; Claimable tracks the
		// committed set the claim handler checks.
		completed := user.HasCompletedChallenge(challenge.ID) || state.Progress >= challenge.Goal
		overview.Challenges = append(overview.Challenges, ChallengeView{
			ChallengeDefinition: challenge,
			Progress:            state.Progress,
			Completed:           completed,
			Claimed:             state.Claimed,
			Claimable:           user.HasCompletedChallenge(challenge.ID) && !state.Claimed,
		})
	}
	return overview, nil
}

// ===============================
// HELPERS
// ===============================

// windowChallenges filters the date-range challenges whose per-window
// totals the aggregator must track.
func windowChallenges(challenges []catalog.ChallengeDefinition) []catalog.ChallengeDefinition {
	var out []catalog.ChallengeDefinition
	for _, c := range challenges {
		if c.Type == catalog.ChallengeDateRangeTotal {
			out = append(out, c)
		}
	}
	return out
}

func findBadge(badges []catalog.BadgeDefinition, id string) (catalog.BadgeDefinition, bool) {
	for _, b := range badges {
		if b.ID == id {
			return b, true
		}
	}
	return catalog.BadgeDefinition{}, false
}

func findChallenge(challenges []catalog.ChallengeDefinition, id string) (catalog.ChallengeDefinition, bool) {
	for _, c := range challenges {
		if c.ID == id {
			return c, true
		}
	}
	return catalog.ChallengeDefinition{}, false
}
