package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event.
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
}

// GetEventID returns the event ID.
func (e *BaseEvent) GetEventID() string { return e.EventID }

// GetEventType returns the event type.
func (e *BaseEvent) GetEventType() string { return e.EventType }

// GetTimestamp returns the event timestamp.
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetUserID returns the user ID associated with the event.
func (e *BaseEvent) GetUserID() *int64 { return e.UserID }

// ===============================
// EVENT BUS
// ===============================

// EventHandler handles a published event.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function into an EventHandler.
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler.
func (f EventHandlerFunc) GetHandlerID() string { return f.ID }

// EventBus defines event publishing and subscription.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error
	Subscribe(eventType string, handler EventHandler) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Config holds event bus configuration.
type Config struct {
	BufferSize  int `json:"buffer_size"`
	WorkerCount int `json:"worker_count"`
}

// DefaultConfig returns default event bus configuration.
func DefaultConfig() *Config {
	return &Config{BufferSize: 1000, WorkerCount: 4}
}

// inMemoryEventBus implements EventBus using in-memory channels.
type inMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	queue    chan queuedEvent
	logger   *zap.Logger
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// NewEventBus creates an in-memory event bus.
func NewEventBus(config *Config, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &inMemoryEventBus{
		handlers: make(map[string][]EventHandler),
		queue:    make(chan queuedEvent, config.BufferSize),
		logger:   logger,
		workers:  config.WorkerCount,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish delivers an event synchronously to all subscribed handlers.
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	return b.dispatch(ctx, event)
}

// PublishAsync enqueues an event for worker delivery.
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	select {
	case b.queue <- queuedEvent{ctx: ctx, event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event queue is full")
	}
}

// Subscribe registers a handler for an event type.
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()

	b.logger.Info("Handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// Start launches the worker goroutines.
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.logger.Info("Starting event bus", zap.Int("worker_count", b.workers))
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return nil
}

// Stop drains the workers, bounded by the given context.
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timed out")
		return ctx.Err()
	}
}

func (b *inMemoryEventBus) worker() {
	defer b.wg.Done()
	for {
		select {
		case msg := <-b.queue:
			if err := b.dispatch(msg.ctx, msg.event); err != nil {
				b.logger.Error("Failed to process event",
					zap.String("event_id", msg.event.GetEventID()),
					zap.String("event_type", msg.event.GetEventType()),
					zap.Error(err),
				)
			}
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *inMemoryEventBus) dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.GetEventType()]
	b.mu.RUnlock()

	var failed int
	for _, handler := range handlers {
		if err := b.executeHandler(ctx, handler, event); err != nil {
			failed++
			b.logger.Error("Event handler failed",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", event.GetEventType()),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to execute %d out of %d handlers", failed, len(handlers))
	}
	return nil
}

func (b *inMemoryEventBus) executeHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return handler.Handle(handlerCtx, event)
}

// GenerateEventID generates a unique event ID.
func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}

// ===============================
// REWARDS DOMAIN EVENTS
// ===============================

// BadgeEarnedEvent is emitted when the committer awards a badge.
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeID      string `json:"badge_id"`
	StarsAwarded int    `json:"stars_awarded"`
}

// ChallengeCompletedEvent is emitted when the committer detects a newly
// satisfied challenge goal.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID  string `json:"challenge_id"`
	StarsAwarded int    `json:"stars_awarded"`
}

// RewardClaimedEvent is emitted after a claim persists successfully.
type RewardClaimedEvent struct {
	BaseEvent
	ChallengeID string  `json:"challenge_id"`
	RewardKind  string  `json:"reward_kind"`
	RewardValue float64 `json:"reward_value"`
}

// TradeSettledEvent is emitted after a buy/sell/redeem ledger entry
// commits, before the rewards recomputation is triggered.
type TradeSettledEvent struct {
	BaseEvent
	TransactionID int64   `json:"transaction_id"`
	Kind          string  `json:"kind"`
	Amount        float64 `json:"amount"`
	Grams         float64 `json:"grams"`
}

// NewBadgeEarnedEvent creates a badge earned event.
func NewBadgeEarnedEvent(userID int64, badgeID string, stars int) *BadgeEarnedEvent {
	return &BadgeEarnedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "rewards.badge_earned",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		BadgeID:      badgeID,
		StarsAwarded: stars,
	}
}

// NewChallengeCompletedEvent creates a challenge completed event.
func NewChallengeCompletedEvent(userID int64, challengeID string, stars int) *ChallengeCompletedEvent {
	return &ChallengeCompletedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "rewards.challenge_completed",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ChallengeID:  challengeID,
		StarsAwarded: stars,
	}
}

// NewRewardClaimedEvent creates a reward claimed event.
func NewRewardClaimedEvent(userID int64, challengeID, kind string, value float64) *RewardClaimedEvent {
	return &RewardClaimedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "rewards.claimed",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ChallengeID: challengeID,
		RewardKind:  kind,
		RewardValue: value,
	}
}

// NewTradeSettledEvent creates a trade settled event.
func NewTradeSettledEvent(userID, transactionID int64, kind string, amount, grams float64) *TradeSettledEvent {
	return &TradeSettledEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "trade.settled",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		TransactionID: transactionID,
		Kind:          kind,
		Amount:        amount,
		Grams:         grams,
	}
}
