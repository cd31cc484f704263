package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type ChallengeRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Challenge, error)
	FindCurrent(ctx context.Context) (*model.Challenge, error)
	FindPast(ctx context.Context, limit int) ([]model.Challenge, error)
	FindUnfinished(ctx context.Context) ([]model.Challenge, error)
	FindRecent(ctx context.Context, limit int) ([]model.Challenge, error)
	Create(ctx context.Context, params model.CreateChallengeParams) (*model.Challenge, error)
	Update(ctx context.Context, id int64, params model.UpdateChallengeParams) (*model.Challenge, error)
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status model.ChallengeStatus) error
	HasUnfinished(ctx context.Context) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ChallengeRepository
}

// challengeDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type challengeDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type challengeRepo struct {
	db challengeDB
}

func NewChallengeRepository(db *sqlx.DB) ChallengeRepository {
	return &challengeRepo{db: db}
}

func (r *challengeRepo) WithTx(tx *sqlx.Tx) ChallengeRepository {
	return &challengeRepo{db: tx}
}

func (r *challengeRepo) FindByID(ctx context.Context, id int64) (*model.Challenge, error) {
	var challenge model.Challenge
	err := r.db.GetContext(ctx, &challenge, `
		SELECT * FROM challenges WHERE id = $1
	`, id)
	return HandleNotFound(&challenge, err)
}

// FindCurrent returns the most recent challenge that has not fully ended.
func (r *challengeRepo) FindCurrent(ctx context.Context) (*model.Challenge, error) {
	var challenge model.Challenge
	err := r.db.GetContext(ctx, &challenge, `
		SELECT * FROM challenges
		WHERE status != 'ended'
		ORDER BY start_date ASC
		LIMIT 1
	`)
	return HandleNotFound(&challenge, err)
}

func (r *challengeRepo) FindPast(ctx context.Context, limit int) ([]model.Challenge, error) {
	challenges := []model.Challenge{}
	err := r.db.SelectContext(ctx, &challenges, `
		SELECT * FROM challenges
		WHERE status = 'ended'
		ORDER BY end_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// FindUnfinished returns challenges whose stored status may lag behind the
// clock and need a status sync.
func (r *challengeRepo) FindUnfinished(ctx context.Context) ([]model.Challenge, error) {
	challenges := []model.Challenge{}
	err := r.db.SelectContext(ctx, &challenges, `
		SELECT * FROM challenges
		WHERE status != 'ended'
		ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// FindRecent returns the latest challenges regardless of status, newest
// first. Admin edit and removal pick from this listing.
func (r *challengeRepo) FindRecent(ctx context.Context, limit int) ([]model.Challenge, error) {
	challenges := []model.Challenge{}
	err := r.db.SelectContext(ctx, &challenges, `
		SELECT * FROM challenges
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

func (r *challengeRepo) Create(ctx context.Context, params model.CreateChallengeParams) (*model.Challenge, error) {
	var challenge model.Challenge
	err := r.db.GetContext(ctx, &challenge, `
		INSERT INTO challenges (description, scoring_system, kind, status, start_date, end_date, grace_days, created_by)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7)
		RETURNING *
	`, params.Description, params.ScoringSystem, params.Kind, params.StartDate, params.EndDate, params.GraceDays, params.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *challengeRepo) Update(ctx context.Context, id int64, params model.UpdateChallengeParams) (*model.Challenge, error) {
	var challenge model.Challenge
	err := r.db.GetContext(ctx, &challenge, `
		UPDATE challenges SET
			description = COALESCE($2, description),
			scoring_system = COALESCE($3, scoring_system),
			start_date = COALESCE($4, start_date),
			end_date = COALESCE($5, end_date)
		WHERE id = $1
		RETURNING *
	`, id, params.Description, params.ScoringSystem, params.StartDate, params.EndDate)
	return HandleNotFound(&challenge, err)
}

func (r *challengeRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM challenges WHERE id = $1
	`, id)
	return err
}

func (r *challengeRepo) SetStatus(ctx context.Context, id int64, status model.ChallengeStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE challenges SET status = $2 WHERE id = $1
	`, id, status)
	return err
}

// HasUnfinished reports whether any challenge is still pending, active or
// in its grace period. Only one challenge may exist at a time until it ends.
func (r *challengeRepo) HasUnfinished(ctx context.Context) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM challenges WHERE status != 'ended'
	`)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
