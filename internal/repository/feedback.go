package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type FeedbackRepository interface {
	Create(ctx context.Context, userID string, message string) (*model.Feedback, error)
	ListRecent(ctx context.Context, limit int) ([]model.Feedback, error)
}

type feedbackRepo struct {
	db *sqlx.DB
}

func NewFeedbackRepository(db *sqlx.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Create(ctx context.Context, userID string, message string) (*model.Feedback, error) {
	var feedback model.Feedback
	err := r.db.GetContext(ctx, &feedback, `
		INSERT INTO feedback (user_id, message)
		VALUES ($1, $2)
		RETURNING *
	`, userID, message)
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepo) ListRecent(ctx context.Context, limit int) ([]model.Feedback, error) {
	items := []model.Feedback{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM feedback
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return items, nil
}
