package model

import (
	"time"
)

// Feedback message length bounds.
const (
	FeedbackMin = 3
	FeedbackMax = 1000
)

// Feedback is a free-form message a user left for the operators.
type Feedback struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
