// file: internal/services/trade_service.go
package services

import (
	"context"
	"time"

	"goldhub/internal/events"
	"goldhub/internal/models"
	"goldhub/internal/pricefeed"
	"goldhub/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// feeRate is the platform fee charged on purchases, as a fraction of the
// order amount. Claimed fee-discount rewards reduce this fee on the next
// buy only.
const feeRate = 0.005

// tradeService settles orders against the ledger and the user's balances,
// then hands the user off to the rewards engine for recomputation.
type tradeService struct {
	userRepo     repositories.UserRepository
	txRepo       repositories.TransactionRepository
	feed         pricefeed.Feed
	achievements AchievementService
	eventBus     events.EventBus
	logger       *zap.Logger
	validate     *validator.Validate
	now          func() time.Time
}

// NewTradeService creates the trade settlement service.
func NewTradeService(
	userRepo repositories.UserRepository,
	txRepo repositories.TransactionRepository,
	feed pricefeed.Feed,
	achievements AchievementService,
	eventBus events.EventBus,
	logger *zap.Logger,
) TradeService {
	return &tradeService{
		userRepo:     userRepo,
		txRepo:       txRepo,
		feed:         feed,
		achievements: achievements,
		eventBus:     eventBus,
		logger:       logger,
		validate:     validator.New(),
		now:          time.Now,
	}
}

// Buy settles a gold purchase. Exactly one of Amount or Grams drives the
// order; the other side is derived from the current quote.
func (s *tradeService) Buy(ctx context.Context, req *BuyRequest) (*models.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("invalid buy request", err)
	}
	if (req.Amount <= 0) == (req.Grams <= 0) {
		return nil, NewValidationError("exactly one of amount or grams must be positive", nil)
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	price, err := s.feed.PricePerGram(ctx)
	if err != nil {
		return nil, NewServiceUnavailableError("gold price is unavailable")
	}

	amount, grams := req.Amount, req.Grams
	if amount > 0 {
		grams = amount / price
	} else {
		amount = grams * price
	}

	fee := amount * feeRate
	discountID, discount := pendingDiscount(user.ChallengeProgress)
	if discount != nil {
		fee = fee * (1 - discount.Percent)
	}

	total := amount + fee
	if user.CashBalance < total {
		return nil, NewBusinessError("insufficient cash balance", "INSUFFICIENT_FUNDS")
	}

	entry := &models.Transaction{
		UserID:       user.ID,
		Kind:         models.KindInvestment,
		Amount:       amount,
		Grams:        grams,
		PricePerGram: price,
		Status:       models.StatusCompleted,
		CreatedAt:    s.now(),
	}
	if err := s.settle(ctx, user.ID, entry, -total, grams); err != nil {
		return nil, err
	}

	// Only a settled purchase spends the discount. A failed settlement
	// must leave the reward live for the next attempt.
	if discount != nil {
		s.consumeDiscount(ctx, user, discountID)
	}

	s.afterSettlement(ctx, user.ID, entry, "investment")
	return entry, nil
}

// Sell settles a gold sale at the current quote.
func (s *tradeService) Sell(ctx context.Context, req *SellRequest) (*models.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("invalid sell request", err)
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}
	if user.GoldGrams < req.Grams {
		return nil, NewBusinessError("insufficient gold balance", "INSUFFICIENT_GOLD")
	}

	price, err := s.feed.PricePerGram(ctx)
	if err != nil {
		return nil, NewServiceUnavailableError("gold price is unavailable")
	}
	amount := req.Grams * price

	entry := &models.Transaction{
		UserID:       user.ID,
		Kind:         models.KindSell,
		Amount:       amount,
		Grams:        req.Grams,
		PricePerGram: price,
		Status:       models.StatusCompleted,
		CreatedAt:    s.now(),
	}
	if err := s.settle(ctx, user.ID, entry, amount, -req.Grams); err != nil {
		return nil, err
	}

	s.afterSettlement(ctx, user.ID, entry, "sell")
	return entry, nil
}

// Redeem converts held grams into a physical delivery order. The entry
// stays pending until the fulfilment process ships it.
func (s *tradeService) Redeem(ctx context.Context, req *RedeemRequest) (*models.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("invalid redemption request", err)
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}
	if user.GoldGrams < req.Grams {
		return nil, NewBusinessError("insufficient gold balance", "INSUFFICIENT_GOLD")
	}

	entry := &models.Transaction{
		UserID:    user.ID,
		Kind:      models.KindRedemption,
		Grams:     req.Grams,
		Status:    models.StatusPending,
		Reference: req.Address,
		CreatedAt: s.now(),
	}
	if err := s.settle(ctx, user.ID, entry, 0, -req.Grams); err != nil {
		return nil, err
	}

	s.afterSettlement(ctx, user.ID, entry, "redemption")
	return entry, nil
}

// GetLedger returns the user's full transaction history.
func (s *tradeService) GetLedger(ctx context.Context, userID int64) ([]models.Transaction, error) {
	entries, err := s.txRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load ledger")
	}
	return entries, nil
}

// settle commits the ledger entry and the balance deltas in one store
// transaction.
func (s *tradeService) settle(ctx context.Context, userID int64, entry *models.Transaction, cashDelta, gramsDelta float64) error {
	if err := s.userRepo.CommitTrade(ctx, userID, entry, cashDelta, gramsDelta); err != nil {
		s.logger.Error("Failed to settle trade",
			zap.Int64("user_id", userID),
			zap.String("kind", string(entry.Kind)),
			zap.Error(err),
		)
		return NewInternalError("failed to record transaction")
	}
	return nil
}

// afterSettlement publishes the settlement event and triggers the rewards
// recomputation. Both are fire-and-forget.
func (s *tradeService) afterSettlement(ctx context.Context, userID int64, entry *models.Transaction, action string) {
	s.logger.Info("Trade settled",
		zap.Int64("user_id", userID),
		zap.String("kind", string(entry.Kind)),
		zap.Float64("amount", entry.Amount),
		zap.Float64("grams", entry.Grams),
	)
	if s.eventBus != nil {
		_ = s.eventBus.PublishAsync(ctx, events.NewTradeSettledEvent(
			userID, entry.ID, string(entry.Kind), entry.Amount, entry.Grams,
		))
	}
	if s.achievements != nil {
		s.achievements.OnActionCompleted(userID, action)
	}
}

// pendingDiscount finds a claimed, not yet applied fee discount.
func pendingDiscount(progress models.ChallengeProgress) (string, *models.DiscountState) {
	for id, state := range progress {
		if state.Claimed && state.Discount != nil && !state.Discount.Applied {
			return id, state.Discount
		}
	}
	return "", nil
}

// consumeDiscount marks the discount applied. Best-effort under the
// version token: losing the race leaves the discount live for the next
// buy, which only favors the user.
func (s *tradeService) consumeDiscount(ctx context.Context, user *models.User, challengeID string) {
	progress := user.ChallengeProgress.Clone()
	state := progress[challengeID]
	state.Discount.Applied = true
	progress[challengeID] = state

	update := &models.AchievementUpdate{
		EarnedBadgeIDs:        user.EarnedBadgeIDs,
		CompletedChallengeIDs: user.CompletedChallengeIDs,
		StarCount:             user.StarCount,
		ChallengeProgress:     progress,
	}
	rows, err := s.userRepo.UpdateAchievements(ctx, user.ID, update, user.AchievementsVersion)
	if err != nil || rows == 0 {
		s.logger.Warn("Failed to mark fee discount applied",
			zap.Int64("user_id", user.ID),
			zap.String("challenge_id", challengeID),
			zap.Error(err),
		)
	}
}
