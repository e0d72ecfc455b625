package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"goldhub/internal/database"
	"goldhub/internal/models"

	"go.uber.org/zap"
)

// userRepository implements UserRepository on Postgres. Achievement state
// lives in JSONB columns on the users row; the achievements_version column
// is the optimistic-concurrency token every achievement write is guarded
// by.
type userRepository struct {
	*BaseRepository
	txRepo TransactionRepository
}

// NewUserRepository creates a Postgres user repository. txRepo supplies
// the ledger for GetByID.
func NewUserRepository(db *database.Manager, txRepo TransactionRepository, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
		txRepo:         txRepo,
	}
}

// Create inserts a new user with empty achievement state.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, phone_number, cash_balance, gold_grams, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PhoneNumber, user.CashBalance, user.GoldGrams,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.IsActive = true
	return nil
}

// GetByID loads the user with their full ledger. Returns (nil, nil) when
// the user does not exist.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, username, COALESCE(phone_number, ''),
		       cash_balance, gold_grams,
		       earned_badge_ids, completed_challenge_ids, challenge_progress,
		       star_count, achievements_version,
		       is_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	var (
		user         models.User
		earnedRaw    []byte
		completedRaw []byte
		progressRaw  []byte
	)
	err := r.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username, &user.PhoneNumber,
		&user.CashBalance, &user.GoldGrams,
		&earnedRaw, &completedRaw, &progressRaw,
		&user.StarCount, &user.AchievementsVersion,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user %d: %w", id, err)
	}

	if err := decodeAchievementColumns(&user, earnedRaw, completedRaw, progressRaw); err != nil {
		return nil, fmt.Errorf("decode achievement state for user %d: %w", id, err)
	}

	transactions, err := r.txRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ledger for user %d: %w", id, err)
	}
	user.Transactions = transactions
	return &user, nil
}

// UpdateAchievements applies the committer's partial update under the
// version check. A nil ChallengeProgress leaves the stored snapshot
// untouched via COALESCE.
func (r *userRepository) UpdateAchievements(ctx context.Context, userID int64, update *models.AchievementUpdate, expectedVersion int64) (int64, error) {
	earnedRaw, err := json.Marshal(update.EarnedBadgeIDs)
	if err != nil {
		return 0, fmt.Errorf("encode earned badges: %w", err)
	}
	completedRaw, err := json.Marshal(update.CompletedChallengeIDs)
	if err != nil {
		return 0, fmt.Errorf("encode completed challenges: %w", err)
	}
	var progressRaw []byte
	if update.ChallengeProgress != nil {
		progressRaw, err = json.Marshal(update.ChallengeProgress.ToFlat())
		if err != nil {
			return 0, fmt.Errorf("encode challenge progress: %w", err)
		}
	}

	query := `
		UPDATE users
		SET earned_badge_ids = $2,
		    completed_challenge_ids = $3,
		    star_count = $4,
		    challenge_progress = COALESCE($5, challenge_progress),
		    achievements_version = achievements_version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND achievements_version = $6`

	result, err := r.ExecContext(ctx, query, userID, earnedRaw, completedRaw, update.StarCount, progressRaw, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("update achievements for user %d: %w", userID, err)
	}
	return result.RowsAffected()
}

// CommitClaim applies a claim atomically: the progress update, the balance
// deltas and the optional bonus ledger entry, all inside one transaction
// guarded by the version check.
func (r *userRepository) CommitClaim(ctx context.Context, userID int64, patch *models.ClaimPatch, expectedVersion int64) (int64, error) {
	progressRaw, err := json.Marshal(patch.ChallengeProgress.ToFlat())
	if err != nil {
		return 0, fmt.Errorf("encode challenge progress: %w", err)
	}

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE users
		SET challenge_progress = $2,
		    cash_balance = cash_balance + $3,
		    gold_grams = gold_grams + $4,
		    achievements_version = achievements_version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND achievements_version = $5`

	result, err := tx.ExecContext(ctx, query, userID, progressRaw, patch.CashDelta, patch.GramsDelta, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("apply claim for user %d: %w", userID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		// Lost the version race; nothing was written, bail before the
		// bonus entry.
		return 0, nil
	}

	if patch.BonusEntry != nil {
		entry := patch.BonusEntry
		insert := `
			INSERT INTO transactions (user_id, kind, amount, grams, price_per_gram, status, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		err = tx.QueryRowContext(ctx, insert,
			entry.UserID, entry.Kind, entry.Amount, entry.Grams,
			entry.PricePerGram, entry.Status, entry.Reference, entry.CreatedAt,
		).Scan(&entry.ID)
		if err != nil {
			return 0, fmt.Errorf("insert bonus entry for user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit claim for user %d: %w", userID, err)
	}
	return rows, nil
}

// CommitTrade applies one settlement atomically: the ledger entry and the
// balance deltas land in the same transaction, so a failed balance write
// can never leave a committed entry behind for the rewards engine to count.
func (r *userRepository) CommitTrade(ctx context.Context, userID int64, entry *models.Transaction, cashDelta, gramsDelta float64) error {
	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trade transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO transactions (user_id, kind, amount, grams, price_per_gram, status, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err = tx.QueryRowContext(ctx, insert,
		entry.UserID, entry.Kind, entry.Amount, entry.Grams,
		entry.PricePerGram, entry.Status, entry.Reference, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert ledger entry for user %d: %w", userID, err)
	}

	update := `
		UPDATE users
		SET cash_balance = cash_balance + $2,
		    gold_grams = gold_grams + $3,
		    updated_at = NOW()
		WHERE id = $1`
	result, err := tx.ExecContext(ctx, update, userID, cashDelta, gramsDelta)
	if err != nil {
		return fmt.Errorf("update balances for user %d: %w", userID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user %d not found", userID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trade for user %d: %w", userID, err)
	}
	return nil
}

// decodeAchievementColumns unpacks the JSONB achievement columns. The
// challenge_progress column stores the flat map form; legacy truthy
// claimed markers are normalized during decode.
func decodeAchievementColumns(user *models.User, earnedRaw, completedRaw, progressRaw []byte) error {
	if len(earnedRaw) > 0 {
		if err := json.Unmarshal(earnedRaw, &user.EarnedBadgeIDs); err != nil {
			return fmt.Errorf("earned_badge_ids: %w", err)
		}
	}
	if len(completedRaw) > 0 {
		if err := json.Unmarshal(completedRaw, &user.CompletedChallengeIDs); err != nil {
			return fmt.Errorf("completed_challenge_ids: %w", err)
		}
	}
	if len(progressRaw) > 0 {
		var flat map[string]interface{}
		if err := json.Unmarshal(progressRaw, &flat); err != nil {
			return fmt.Errorf("challenge_progress: %w", err)
		}
		user.ChallengeProgress = models.ChallengeProgressFromFlat(flat)
	}
	return nil
}
