package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"goldhub/internal/catalog"
	"goldhub/internal/database"

	"go.uber.org/zap"
)

// challengeRepository implements ChallengeRepository on Postgres. Rows are
// decoded into catalog definitions; validation happens in the catalog and
// admin layers, not here.
type challengeRepository struct {
	*BaseRepository
}

// NewChallengeRepository creates a Postgres challenge repository.
func NewChallengeRepository(db *database.Manager, logger *zap.Logger) ChallengeRepository {
	return &challengeRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const challengeColumns = `
	id, title, COALESCE(description, ''), goal, unit, type,
	reward_kind, reward_value, stars_awarded, is_active, starts_at, ends_at
`

// Assembled once so tests can check the concatenation seams.
const (
	listChallengesQuery = `SELECT` + challengeColumns + `FROM challenges ORDER BY id`
	getChallengeQuery   = `SELECT` + challengeColumns + `FROM challenges WHERE id = $1`
)

// ListChallenges returns all stored definitions.
func (r *challengeRepository) ListChallenges(ctx context.Context) ([]catalog.ChallengeDefinition, error) {
	rows, err := r.QueryContext(ctx, listChallengesQuery)
	if err != nil {
		return nil, fmt.Errorf("select challenges: %w", err)
	}
	defer rows.Close()

	var defs []catalog.ChallengeDefinition
	for rows.Next() {
		def, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// GetChallenge returns one definition, or (nil, nil) when absent.
func (r *challengeRepository) GetChallenge(ctx context.Context, id string) (*catalog.ChallengeDefinition, error) {
	def, err := scanChallenge(r.QueryRowContext(ctx, getChallengeQuery, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// CreateChallenge inserts a definition.
func (r *challengeRepository) CreateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error {
	query := `
		INSERT INTO challenges (id, title, description, goal, unit, type, reward_kind, reward_value, stars_awarded, is_active, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())`

	_, err := r.ExecContext(ctx, query,
		def.ID, def.Title, def.Description, def.Goal, def.Unit, def.Type,
		def.Reward.Kind, def.Reward.Value, def.StarsAwarded, def.IsActive,
		def.StartsAt, def.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("insert challenge %s: %w", def.ID, err)
	}
	return nil
}

// UpdateChallenge replaces a stored definition.
func (r *challengeRepository) UpdateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error {
	query := `
		UPDATE challenges
		SET title = $2, description = $3, goal = $4, unit = $5, type = $6,
		    reward_kind = $7, reward_value = $8, stars_awarded = $9,
		    is_active = $10, starts_at = $11, ends_at = $12, updated_at = NOW()
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query,
		def.ID, def.Title, def.Description, def.Goal, def.Unit, def.Type,
		def.Reward.Kind, def.Reward.Value, def.StarsAwarded, def.IsActive,
		def.StartsAt, def.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("update challenge %s: %w", def.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("challenge %s not found", def.ID)
	}
	return nil
}

// DeleteChallenge removes a stored definition.
func (r *challengeRepository) DeleteChallenge(ctx context.Context, id string) error {
	result, err := r.ExecContext(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete challenge %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("challenge %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row rowScanner) (catalog.ChallengeDefinition, error) {
	var def catalog.ChallengeDefinition
	err := row.Scan(
		&def.ID, &def.Title, &def.Description, &def.Goal, &def.Unit, &def.Type,
		&def.Reward.Kind, &def.Reward.Value, &def.StarsAwarded, &def.IsActive,
		&def.StartsAt, &def.EndsAt,
	)
	if err == sql.ErrNoRows {
		return def, err
	}
	if err != nil {
		return def, fmt.Errorf("scan challenge: %w", err)
	}
	return def, nil
}
