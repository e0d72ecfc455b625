package repositories

import (
	"context"

	"goldhub/internal/catalog"
	"goldhub/internal/models"
)

// UserRepository is the ledger store boundary for user records. GetByID
// loads the full transaction ledger alongside the account; the achievement
// write methods are version-checked partial updates that report how many
// rows they actually modified.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// GetByID returns (nil, nil) when the user does not exist.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// UpdateAchievements applies the committer's partial update iff the
	// stored achievements_version still equals expectedVersion. Returns
	// the number of rows modified (0 means the write lost a race).
	UpdateAchievements(ctx context.Context, userID int64, update *models.AchievementUpdate, expectedVersion int64) (int64, error)

	// CommitClaim atomically applies a reward claim: progress update,
	// balance deltas and the optional bonus ledger entry, guarded by the
	// same version check.
	CommitClaim(ctx context.Context, userID int64, patch *models.ClaimPatch, expectedVersion int64) (int64, error)

	// CommitTrade atomically appends the ledger entry and applies the
	// balance deltas of one settlement.
	CommitTrade(ctx context.Context, userID int64, entry *models.Transaction, cashDelta, gramsDelta float64) error
}

// TransactionRepository appends and reads ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error)
}

// ChallengeRepository stores admin-defined challenge definitions and backs
// the catalog's store provider.
type ChallengeRepository interface {
	ListChallenges(ctx context.Context) ([]catalog.ChallengeDefinition, error)
	GetChallenge(ctx context.Context, id string) (*catalog.ChallengeDefinition, error)
	CreateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error
	UpdateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error
	DeleteChallenge(ctx context.Context, id string) error
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
}
