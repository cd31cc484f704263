package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type SessionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Session, error)
	Upsert(ctx context.Context, params model.UpsertSessionParams) (*model.Session, error)
	Touch(ctx context.Context, userID string, state model.FlowState, fields []byte) error
	Delete(ctx context.Context, userID string) error
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByUserID(ctx context.Context, userID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE user_id = $1
	`, userID)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Upsert(ctx context.Context, params model.UpsertSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (user_id, flow, state, fields, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			flow = EXCLUDED.flow,
			state = EXCLUDED.state,
			fields = EXCLUDED.fields,
			created_at = NOW(),
			last_active_at = NOW()
		RETURNING *
	`, params.UserID, params.Flow, params.State, params.Fields)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Touch(ctx context.Context, userID string, state model.FlowState, fields []byte) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			state = $2,
			fields = $3,
			last_active_at = NOW()
		WHERE user_id = $1
	`, userID, state, fields)
	return err
}

func (r *sessionRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r *sessionRepo) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE last_active_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
