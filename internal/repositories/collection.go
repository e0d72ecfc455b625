// file: internal/repositories/collection.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"goldhub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection.
type Collection struct {
	User         UserRepository
	Transaction  TransactionRepository
	Challenge    ChallengeRepository
	Notification NotificationRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection wires all repositories onto one database manager.
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	txRepo := NewTransactionRepository(db, logger)
	return &Collection{
		User:         NewUserRepository(db, txRepo, logger),
		Transaction:  txRepo,
		Challenge:    NewChallengeRepository(db, logger),
		Notification: NewNotificationRepository(db, logger),
		db:           db,
		logger:       logger,
	}, nil
}

// Health verifies the backing store is reachable.
func (c *Collection) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.db.Health(ctx)
}
