package model

import (
	"time"
)

// Challenge field length rules.
const (
	ChallengeDescriptionMin = 10
	ChallengeDescriptionMax = 500
	ChallengeScoringMin     = 5
	ChallengeScoringMax     = 200
)

type Challenge struct {
	ID            int64           `db:"id" json:"id"`
	Description   string          `db:"description" json:"description"`
	ScoringSystem string          `db:"scoring_system" json:"scoringSystem"`
	Kind          ChallengeKind   `db:"kind" json:"kind"`
	Status        ChallengeStatus `db:"status" json:"status"`
	StartDate     time.Time       `db:"start_date" json:"startDate"`
	EndDate       time.Time       `db:"end_date" json:"endDate"`
	GraceDays     int             `db:"grace_days" json:"graceDays"`
	CreatedBy     string          `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

type CreateChallengeParams struct {
	Description   string
	ScoringSystem string
	Kind          ChallengeKind
	StartDate     time.Time
	EndDate       time.Time
	GraceDays     int
	CreatedBy     string
}

// UpdateChallengeParams carries the fields an admin edit may change. Nil
// fields are left as they are.
type UpdateChallengeParams struct {
	Description   *string
	ScoringSystem *string
	StartDate     *time.Time
	EndDate       *time.Time
}

// ChallengeNotification is the sent-once guard row for a lifecycle broadcast.
type ChallengeNotification struct {
	ChallengeID int64            `db:"challenge_id" json:"challengeId"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	SentAt      time.Time        `db:"sent_at" json:"sentAt"`
}
