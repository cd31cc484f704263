package model

import (
	"time"
)

// BaselineValue tracks one user's measured value in a change challenge.
// Points for change challenges are derived from Current minus Baseline,
// never entered directly.
type BaselineValue struct {
	ChallengeID int64     `db:"challenge_id" json:"challengeId"`
	UserID      string    `db:"user_id" json:"userId"`
	Baseline    float64   `db:"baseline" json:"baseline"`
	Current     float64   `db:"current" json:"current"`
	LastUpdated time.Time `db:"last_updated" json:"lastUpdated"`
}

// PercentChange returns the relative change from baseline, or 0 when the
// baseline is zero.
func (b *BaselineValue) PercentChange() float64 {
	if b.Baseline == 0 {
		return 0
	}
	return (b.Current - b.Baseline) / abs(b.Baseline) * 100
}

// Delta returns the signed absolute change from baseline.
func (b *BaselineValue) Delta() float64 {
	return b.Current - b.Baseline
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
