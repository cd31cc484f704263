package model

import (
	"time"
)

// ScoreEntry is unique per (challenge, user, date); edits replace,
// never duplicate.
type ScoreEntry struct {
	ChallengeID int64     `db:"challenge_id" json:"challengeId"`
	UserID      string    `db:"user_id" json:"userId"`
	Date        time.Time `db:"date" json:"date"`
	Points      int64     `db:"points" json:"points"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// DayPoints is one slot of a distributed point allocation.
type DayPoints struct {
	Date   time.Time
	Points int64
}

// Standing is one leaderboard row. Points carries summed entries for
// standard periods; Percent carries the derived change for change-challenge
// periods.
type Standing struct {
	UserID   string  `db:"user_id"`
	Username string  `db:"username"`
	Points   int64   `db:"points"`
	Percent  float64 `db:"percent"`
	Baseline float64 `db:"baseline"`
	Current  float64 `db:"current"`
}
