package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type BaselineRepository interface {
	Find(ctx context.Context, challengeID int64, userID string) (*model.BaselineValue, error)
	SetBaseline(ctx context.Context, challengeID int64, userID string, value float64) error
	UpdateCurrent(ctx context.Context, challengeID int64, userID string, value float64) (int64, error)
	ListForChallenge(ctx context.Context, challengeID int64) ([]model.BaselineValue, error)
	DeleteForChallenge(ctx context.Context, challengeID int64) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) BaselineRepository
}

// baselineDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type baselineDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type baselineRepo struct {
	db baselineDB
}

func NewBaselineRepository(db *sqlx.DB) BaselineRepository {
	return &baselineRepo{db: db}
}

func (r *baselineRepo) WithTx(tx *sqlx.Tx) BaselineRepository {
	return &baselineRepo{db: tx}
}

func (r *baselineRepo) Find(ctx context.Context, challengeID int64, userID string) (*model.BaselineValue, error) {
	var baseline model.BaselineValue
	err := r.db.GetContext(ctx, &baseline, `
		SELECT * FROM baseline_values
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)
	return HandleNotFound(&baseline, err)
}

// SetBaseline stores the starting value, with current equal to it. Racing
// inserts for the same participant collapse into the first one.
func (r *baselineRepo) SetBaseline(ctx context.Context, challengeID int64, userID string, value float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO baseline_values (challenge_id, user_id, baseline, current, last_updated)
		VALUES ($1, $2, $3, $3, NOW())
		ON CONFLICT (challenge_id, user_id) DO NOTHING
	`, challengeID, userID, value)
	return err
}

// UpdateCurrent records a new measured value. Returns 0 rows when no
// baseline exists yet.
func (r *baselineRepo) UpdateCurrent(ctx context.Context, challengeID int64, userID string, value float64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE baseline_values SET
			current = $3,
			last_updated = NOW()
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID, value)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *baselineRepo) DeleteForChallenge(ctx context.Context, challengeID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM baseline_values WHERE challenge_id = $1
	`, challengeID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *baselineRepo) ListForChallenge(ctx context.Context, challengeID int64) ([]model.BaselineValue, error) {
	baselines := []model.BaselineValue{}
	err := r.db.SelectContext(ctx, &baselines, `
		SELECT * FROM baseline_values
		WHERE challenge_id = $1
		ORDER BY user_id ASC
	`, challengeID)
	if err != nil {
		return nil, err
	}
	return baselines, nil
}
