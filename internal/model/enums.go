package model

// ChallengeKind distinguishes point-accrual challenges from
// baseline/current-value ("change") challenges.
type ChallengeKind string

const (
	ChallengeKindStandard ChallengeKind = "standard"
	ChallengeKindChange   ChallengeKind = "change"
)

// ChallengeStatus is linear: pending -> active -> grace_period -> ended.
type ChallengeStatus string

const (
	ChallengeStatusPending     ChallengeStatus = "pending"
	ChallengeStatusActive      ChallengeStatus = "active"
	ChallengeStatusGracePeriod ChallengeStatus = "grace_period"
	ChallengeStatusEnded       ChallengeStatus = "ended"
)

// AllowsScoreMutation reports whether score entries may be added, edited,
// or removed while a challenge is in this status.
func (s ChallengeStatus) AllowsScoreMutation() bool {
	return s == ChallengeStatusActive || s == ChallengeStatusGracePeriod
}

// FlowKind identifies one multi-turn conversation flow.
type FlowKind string

const (
	FlowRegister        FlowKind = "register"
	FlowAddScore        FlowKind = "add_score"
	FlowRemoveScore     FlowKind = "remove_score"
	FlowEditScore       FlowKind = "edit_score"
	FlowStartChallenge  FlowKind = "start_challenge"
	FlowEditChallenge   FlowKind = "edit_challenge"
	FlowRemoveChallenge FlowKind = "remove_challenge"
	FlowAddAdmin        FlowKind = "add_admin"
	FlowRemoveAdmin     FlowKind = "remove_admin"
	FlowRemoveEntry     FlowKind = "remove_entry"
	FlowNewSuggestion   FlowKind = "new_suggestion"
	FlowSetBaseline     FlowKind = "set_baseline"
	FlowUpdateValue     FlowKind = "update_value"
)

// FlowState is the current position inside a flow.
type FlowState string

const (
	StateUsernameInput      FlowState = "username_input"
	StateDateInput          FlowState = "date_input"
	StatePointsInput        FlowState = "points_input"
	StateNewPointsInput     FlowState = "new_points_input"
	StateDescription        FlowState = "description"
	StateKind               FlowState = "kind"
	StateScoringDescription FlowState = "scoring_description"
	StatePeriod             FlowState = "period"
	StateValueInput         FlowState = "value_input"
	StateChallengeSelect    FlowState = "challenge_select"
	StateFieldSelect        FlowState = "field_select"
	StateNewValue           FlowState = "new_value"
	StateConfirm            FlowState = "confirm"
)

// PeriodKind selects a leaderboard aggregation window.
type PeriodKind string

const (
	PeriodToDate    PeriodKind = "to_date"
	PeriodThisWeek  PeriodKind = "this_week"
	PeriodLastWeek  PeriodKind = "last_week"
	PeriodGain      PeriodKind = "gain"
	PeriodLoss      PeriodKind = "loss"
	PeriodNetChange PeriodKind = "net_change"
)

// NotificationKind marks which lifecycle broadcast was already sent
// for a challenge.
type NotificationKind string

const (
	NotificationStarted      NotificationKind = "started"
	NotificationEndingSoon   NotificationKind = "ending_soon"
	NotificationFinalResults NotificationKind = "final_results"
)
