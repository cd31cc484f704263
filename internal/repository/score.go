package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type ScoreRepository interface {
	AddPoints(ctx context.Context, challengeID int64, userID string, date time.Time, points int64) error
	SetPoints(ctx context.Context, challengeID int64, userID string, date time.Time, points int64) error
	DeleteEntry(ctx context.Context, challengeID int64, userID string, date time.Time) (int64, error)
	DeleteAllForUser(ctx context.Context, challengeID int64, userID string) (int64, error)
	DeleteForChallenge(ctx context.Context, challengeID int64) (int64, error)
	FindEntry(ctx context.Context, challengeID int64, userID string, date time.Time) (*model.ScoreEntry, error)
	FindEntriesForUser(ctx context.Context, challengeID int64, userID string) ([]model.ScoreEntry, error)
	SumForDay(ctx context.Context, challengeID int64, userID string, date time.Time) (int64, error)
	SumForUser(ctx context.Context, challengeID int64, userID string) (int64, error)
	Standings(ctx context.Context, challengeID int64, from, to *time.Time, limit int) ([]model.Standing, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ScoreRepository
}

// scoreDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type scoreDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scoreRepo struct {
	db scoreDB
}

func NewScoreRepository(db *sqlx.DB) ScoreRepository {
	return &scoreRepo{db: db}
}

func (r *scoreRepo) WithTx(tx *sqlx.Tx) ScoreRepository {
	return &scoreRepo{db: tx}
}

// AddPoints accumulates onto the existing row for that day, creating it
// when absent. One row per (challenge, user, date).
func (r *scoreRepo) AddPoints(ctx context.Context, challengeID int64, userID string, date time.Time, points int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scores (challenge_id, user_id, date, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (challenge_id, user_id, date) DO UPDATE SET
			points = scores.points + EXCLUDED.points
	`, challengeID, userID, date, points)
	return err
}

// SetPoints replaces the day's total outright. Used when an edit recomputes
// a distribution from scratch.
func (r *scoreRepo) SetPoints(ctx context.Context, challengeID int64, userID string, date time.Time, points int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scores (challenge_id, user_id, date, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (challenge_id, user_id, date) DO UPDATE SET
			points = EXCLUDED.points
	`, challengeID, userID, date, points)
	return err
}

func (r *scoreRepo) DeleteEntry(ctx context.Context, challengeID int64, userID string, date time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM scores
		WHERE challenge_id = $1 AND user_id = $2 AND date = $3
	`, challengeID, userID, date)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *scoreRepo) DeleteAllForUser(ctx context.Context, challengeID int64, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM scores
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *scoreRepo) DeleteForChallenge(ctx context.Context, challengeID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM scores WHERE challenge_id = $1
	`, challengeID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *scoreRepo) FindEntry(ctx context.Context, challengeID int64, userID string, date time.Time) (*model.ScoreEntry, error) {
	var entry model.ScoreEntry
	err := r.db.GetContext(ctx, &entry, `
		SELECT * FROM scores
		WHERE challenge_id = $1 AND user_id = $2 AND date = $3
	`, challengeID, userID, date)
	return HandleNotFound(&entry, err)
}

func (r *scoreRepo) FindEntriesForUser(ctx context.Context, challengeID int64, userID string) ([]model.ScoreEntry, error) {
	entries := []model.ScoreEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM scores
		WHERE challenge_id = $1 AND user_id = $2
		ORDER BY date ASC
	`, challengeID, userID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *scoreRepo) SumForDay(ctx context.Context, challengeID int64, userID string, date time.Time) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(points), 0) FROM scores
		WHERE challenge_id = $1 AND user_id = $2 AND date = $3
	`, challengeID, userID, date)
	return total, err
}

func (r *scoreRepo) SumForUser(ctx context.Context, challengeID int64, userID string) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(points), 0) FROM scores
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)
	return total, err
}

// Standings sums points per user over an optional date window, descending.
// Users with no entries in the window are omitted.
func (r *scoreRepo) Standings(ctx context.Context, challengeID int64, from, to *time.Time, limit int) ([]model.Standing, error) {
	standings := []model.Standing{}
	query := `
		SELECT s.user_id,
			COALESCE(u.registered_username, u.platform_username, u.id) AS username,
			SUM(s.points) AS points,
			0::float8 AS percent, 0::float8 AS baseline, 0::float8 AS current
		FROM scores s
		JOIN users u ON u.id = s.user_id
		WHERE s.challenge_id = $1`
	args := []interface{}{challengeID}
	if from != nil {
		args = append(args, *from)
		query += ` AND s.date >= $2`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND s.date <= $3`
		} else {
			query += ` AND s.date <= $2`
		}
	}
	args = append(args, limit)
	// Ties go to whoever registered first.
	tail := ` GROUP BY s.user_id, username, u.registration_date
		ORDER BY points DESC, u.registration_date ASC`
	switch len(args) {
	case 2:
		query += tail + ` LIMIT $2`
	case 3:
		query += tail + ` LIMIT $3`
	case 4:
		query += tail + ` LIMIT $4`
	}
	err := r.db.SelectContext(ctx, &standings, query, args...)
	if err != nil {
		return nil, err
	}
	return standings, nil
}
