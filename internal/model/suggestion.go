package model

import (
	"time"
)

// Suggestion text length bounds.
const (
	SuggestionDescriptionMin = 10
	SuggestionDescriptionMax = 300
	SuggestionScoringMin     = 5
	SuggestionScoringMax     = 150
)

// MaxSuggestionsListed caps how many open suggestions a vote listing shows.
const MaxSuggestionsListed = 10

// Suggestion is a proposed future challenge waiting for votes.
type Suggestion struct {
	ID            int64     `db:"id" json:"id"`
	Description   string    `db:"description" json:"description"`
	ScoringSystem string    `db:"scoring_system" json:"scoringSystem"`
	SuggestedBy   string    `db:"suggested_by" json:"suggestedBy"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	Consumed      bool      `db:"consumed" json:"consumed"`
}

// SuggestionWithVotes pairs a suggestion with its current vote count for
// listings.
type SuggestionWithVotes struct {
	Suggestion
	Votes int `db:"votes" json:"votes"`
}

// Vote records one user's single active vote. A user re-voting moves the
// vote to the new suggestion.
type Vote struct {
	SuggestionID int64     `db:"suggestion_id" json:"suggestionId"`
	UserID       string    `db:"user_id" json:"userId"`
	CastAt       time.Time `db:"cast_at" json:"castAt"`
}

// CreateSuggestionParams carries the fields for inserting a suggestion.
type CreateSuggestionParams struct {
	Description   string
	ScoringSystem string
	SuggestedBy   string
}
