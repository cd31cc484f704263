package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type NotificationRepository interface {
	// MarkSent records the broadcast and reports whether this call won the
	// insert. A false result means another instance already sent it.
	MarkSent(ctx context.Context, challengeID int64, kind model.NotificationKind) (bool, error)
	DeleteForChallenge(ctx context.Context, challengeID int64) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) NotificationRepository
}

// notificationDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type notificationDB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type notificationRepo struct {
	db notificationDB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) WithTx(tx *sqlx.Tx) NotificationRepository {
	return &notificationRepo{db: tx}
}

func (r *notificationRepo) MarkSent(ctx context.Context, challengeID int64, kind model.NotificationKind) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO challenge_notifications (challenge_id, kind, sent_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (challenge_id, kind) DO NOTHING
	`, challengeID, kind)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *notificationRepo) DeleteForChallenge(ctx context.Context, challengeID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM challenge_notifications WHERE challenge_id = $1
	`, challengeID)
	return err
}
