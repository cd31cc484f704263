package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type SuggestionRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Suggestion, error)
	FindOpen(ctx context.Context, limit int) ([]model.SuggestionWithVotes, error)
	CountOpenByUser(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreateSuggestionParams) (*model.Suggestion, error)
	MarkConsumed(ctx context.Context, id int64) error
	FindVote(ctx context.Context, userID string) (*model.Vote, error)
	UpsertVote(ctx context.Context, suggestionID int64, userID string) error
	DeleteVotesFor(ctx context.Context, suggestionID int64) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SuggestionRepository
}

// suggestionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type suggestionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type suggestionRepo struct {
	db suggestionDB
}

func NewSuggestionRepository(db *sqlx.DB) SuggestionRepository {
	return &suggestionRepo{db: db}
}

func (r *suggestionRepo) WithTx(tx *sqlx.Tx) SuggestionRepository {
	return &suggestionRepo{db: tx}
}

func (r *suggestionRepo) FindByID(ctx context.Context, id int64) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	err := r.db.GetContext(ctx, &suggestion, `
		SELECT * FROM suggestions WHERE id = $1 AND NOT consumed
	`, id)
	return HandleNotFound(&suggestion, err)
}

// FindOpen lists unconsumed suggestions with vote counts, most voted first,
// ties broken by age.
func (r *suggestionRepo) FindOpen(ctx context.Context, limit int) ([]model.SuggestionWithVotes, error) {
	suggestions := []model.SuggestionWithVotes{}
	err := r.db.SelectContext(ctx, &suggestions, `
		SELECT s.*, COUNT(v.user_id) AS votes
		FROM suggestions s
		LEFT JOIN votes v ON v.suggestion_id = s.id
		WHERE NOT s.consumed
		GROUP BY s.id
		ORDER BY votes DESC, s.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (r *suggestionRepo) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM suggestions
		WHERE suggested_by = $1 AND NOT consumed
	`, userID)
	return count, err
}

func (r *suggestionRepo) Create(ctx context.Context, params model.CreateSuggestionParams) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	err := r.db.GetContext(ctx, &suggestion, `
		INSERT INTO suggestions (description, scoring_system, suggested_by)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Description, params.ScoringSystem, params.SuggestedBy)
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *suggestionRepo) MarkConsumed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE suggestions SET consumed = TRUE WHERE id = $1
	`, id)
	return err
}

func (r *suggestionRepo) FindVote(ctx context.Context, userID string) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.GetContext(ctx, &vote, `
		SELECT * FROM votes WHERE user_id = $1
	`, userID)
	return HandleNotFound(&vote, err)
}

// UpsertVote records the user's vote, moving it if one already exists.
func (r *suggestionRepo) UpsertVote(ctx context.Context, suggestionID int64, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (suggestion_id, user_id, cast_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			suggestion_id = EXCLUDED.suggestion_id,
			cast_at = NOW()
	`, suggestionID, userID)
	return err
}

func (r *suggestionRepo) DeleteVotesFor(ctx context.Context, suggestionID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM votes WHERE suggestion_id = $1
	`, suggestionID)
	return err
}
