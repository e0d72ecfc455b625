package repositories

import (
	"context"
	"fmt"

	"goldhub/internal/database"
	"goldhub/internal/models"

	"go.uber.org/zap"
)

// transactionRepository implements TransactionRepository on Postgres. The
// transactions table is append-only; there is no update or delete surface.
type transactionRepository struct {
	*BaseRepository
}

// NewTransactionRepository creates a Postgres transaction repository.
func NewTransactionRepository(db *database.Manager, logger *zap.Logger) TransactionRepository {
	return &transactionRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// Create appends a ledger entry.
func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, kind, amount, grams, price_per_gram, status, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.QueryRowContext(ctx, query,
		tx.UserID, tx.Kind, tx.Amount, tx.Grams,
		tx.PricePerGram, tx.Status, tx.Reference, tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByUser returns the user's full ledger, oldest first.
func (r *transactionRepository) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, kind, amount, grams, price_per_gram, status, COALESCE(reference, ''), created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Kind, &tx.Amount, &tx.Grams,
			&tx.PricePerGram, &tx.Status, &tx.Reference, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entries = append(entries, tx)
	}
	return entries, rows.Err()
}
