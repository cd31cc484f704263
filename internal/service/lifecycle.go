package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/audit"
	"github.com/challengeclub/competition-server-go/internal/config"
	"github.com/challengeclub/competition-server-go/internal/database"
	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/notify"
	"github.com/challengeclub/competition-server-go/internal/repository"
)

// MaxChallengeLeadTime bounds how far in the future a challenge may start.
const MaxChallengeLeadTime = 365 * 24 * time.Hour

type LifecycleService struct {
	db             database.TxRunner
	challengeRepo  repository.ChallengeRepository
	suggestionRepo repository.SuggestionRepository
	baselineRepo   repository.BaselineRepository
	notifRepo      repository.NotificationRepository
	ledger         *LedgerService
	notifier       notify.Notifier
	loc            *time.Location
	graceDays      int
}

func NewLifecycleService(
	db database.TxRunner,
	challengeRepo repository.ChallengeRepository,
	suggestionRepo repository.SuggestionRepository,
	baselineRepo repository.BaselineRepository,
	notifRepo repository.NotificationRepository,
	ledger *LedgerService,
	notifier notify.Notifier,
	loc *time.Location,
	graceDays int,
) *LifecycleService {
	return &LifecycleService{
		db:             db,
		challengeRepo:  challengeRepo,
		suggestionRepo: suggestionRepo,
		baselineRepo:   baselineRepo,
		notifRepo:      notifRepo,
		ledger:         ledger,
		notifier:       notifier,
		loc:            loc,
		graceDays:      graceDays,
	}
}

// DateOf truncates t to midnight in its location. Challenge boundaries are
// whole days.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EffectiveStatus derives what a challenge's status should be at the given
// instant, regardless of what is stored. Transitions only move forward.
func EffectiveStatus(c *model.Challenge, now time.Time) model.ChallengeStatus {
	today := DateOf(now)
	start := DateOf(c.StartDate.In(now.Location()))
	end := DateOf(c.EndDate.In(now.Location()))
	graceEnd := end.AddDate(0, 0, c.GraceDays)

	switch {
	case today.Before(start):
		return model.ChallengeStatusPending
	case !today.After(end):
		return model.ChallengeStatusActive
	case !today.After(graceEnd):
		return model.ChallengeStatusGracePeriod
	default:
		return model.ChallengeStatusEnded
	}
}

// StatusLine renders a one-line summary of where the challenge stands.
func StatusLine(c *model.Challenge, now time.Time) string {
	today := DateOf(now)
	start := DateOf(c.StartDate.In(now.Location()))
	end := DateOf(c.EndDate.In(now.Location()))

	switch EffectiveStatus(c, now) {
	case model.ChallengeStatusPending:
		days := int(start.Sub(today).Hours() / 24)
		if days == 1 {
			return "Starts tomorrow!"
		}
		return fmt.Sprintf("Starts in %d days!", days)
	case model.ChallengeStatusActive:
		days := int(end.Sub(today).Hours()/24) + 1
		if days == 1 {
			return "Active - last day, make it count!"
		}
		return fmt.Sprintf("Active - %d days remaining!", days)
	case model.ChallengeStatusGracePeriod:
		return "Grace period - last chance to record your scores!"
	default:
		return "Ended"
	}
}

// CurrentChallenge returns the most recent non-ended challenge with its
// status corrected against the clock, or nil when none exists.
func (s *LifecycleService) CurrentChallenge(ctx context.Context) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("find current challenge: %w", err)
	}
	if challenge == nil {
		return nil, nil
	}

	effective := EffectiveStatus(challenge, time.Now().In(s.loc))
	if effective != challenge.Status {
		if err := s.challengeRepo.SetStatus(ctx, challenge.ID, effective); err != nil {
			return nil, fmt.Errorf("sync challenge status: %w", err)
		}
		challenge.Status = effective
	}
	if challenge.Status == model.ChallengeStatusEnded {
		return nil, nil
	}
	return challenge, nil
}

// RequireActiveChallenge returns the current challenge when scores may be
// recorded against it.
func (s *LifecycleService) RequireActiveChallenge(ctx context.Context) (*model.Challenge, error) {
	challenge, err := s.CurrentChallenge(ctx)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, apperrors.StateViolation("There is no challenge right now. Suggest one with /newsuggest!")
	}
	if !challenge.Status.AllowsScoreMutation() {
		return nil, apperrors.StateViolation(fmt.Sprintf("The challenge hasn't started yet. %s", StatusLine(challenge, time.Now().In(s.loc))))
	}
	return challenge, nil
}

func (s *LifecycleService) PastChallenges(ctx context.Context) ([]model.Challenge, error) {
	return s.challengeRepo.FindPast(ctx, config.PastChallengeLimit)
}

type CreateChallengeInput struct {
	Description   string
	ScoringSystem string
	Kind          model.ChallengeKind
	StartDate     time.Time
	EndDate       time.Time
	CreatedBy     string
	// SuggestionID links the challenge to the suggestion it was promoted
	// from, if any.
	SuggestionID *int64
}

// CreateChallenge records a new challenge after checking its period against
// the calendar and any challenge still in flight.
func (s *LifecycleService) CreateChallenge(ctx context.Context, input CreateChallengeInput) (*model.Challenge, error) {
	now := time.Now().In(s.loc)
	start := DateOf(input.StartDate.In(s.loc))
	end := DateOf(input.EndDate.In(s.loc))

	if !start.Before(end) {
		return nil, apperrors.Validation("The end date must be after the start date.")
	}
	if start.Before(DateOf(now)) {
		return nil, apperrors.Validation("The start date can't be in the past.")
	}
	if start.Sub(DateOf(now)) > MaxChallengeLeadTime {
		return nil, apperrors.Validation("The start date can't be more than a year away.")
	}

	var challenge *model.Challenge
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		challenges := s.challengeRepo.WithTx(tx)

		unfinished, err := challenges.HasUnfinished(ctx)
		if err != nil {
			return fmt.Errorf("check current challenge: %w", err)
		}
		if unfinished {
			return apperrors.StateViolation("Another challenge is already under way or scheduled. Wait for it to end.")
		}

		challenge, err = challenges.Create(ctx, model.CreateChallengeParams{
			Description:   input.Description,
			ScoringSystem: input.ScoringSystem,
			Kind:          input.Kind,
			StartDate:     start,
			EndDate:       end,
			GraceDays:     s.graceDays,
			CreatedBy:     input.CreatedBy,
		})
		if err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}

		if input.SuggestionID != nil {
			suggestions := s.suggestionRepo.WithTx(tx)
			if err := suggestions.MarkConsumed(ctx, *input.SuggestionID); err != nil {
				return fmt.Errorf("consume suggestion: %w", err)
			}
			if err := suggestions.DeleteVotesFor(ctx, *input.SuggestionID); err != nil {
				return fmt.Errorf("clear votes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("challengeId", challenge.ID).
		Str("kind", string(challenge.Kind)).
		Time("start", challenge.StartDate).
		Time("end", challenge.EndDate).
		Msg("challenge created")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventChallengeCreate,
		ActorID: input.CreatedBy,
		Details: map[string]interface{}{"challengeId": challenge.ID, "kind": string(challenge.Kind)},
	})

	return challenge, nil
}

// RecentChallenges lists the latest challenges regardless of status, for
// admin edit and removal pickers.
func (s *LifecycleService) RecentChallenges(ctx context.Context) ([]model.Challenge, error) {
	return s.challengeRepo.FindRecent(ctx, config.RecentChallengeLimit)
}

// EditChallengeInput carries the one detail an admin edit changes. Nil
// fields stay untouched.
type EditChallengeInput struct {
	Description   *string
	ScoringSystem *string
	StartDate     *time.Time
	EndDate       *time.Time
}

// EditChallenge updates a single detail of an existing challenge. The
// resulting period must still run forward.
func (s *LifecycleService) EditChallenge(ctx context.Context, actorID string, id int64, input EditChallengeInput) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	if challenge == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "That challenge doesn't exist anymore.")
	}

	start := DateOf(challenge.StartDate.In(s.loc))
	end := DateOf(challenge.EndDate.In(s.loc))
	if input.StartDate != nil {
		start = DateOf(input.StartDate.In(s.loc))
		input.StartDate = &start
	}
	if input.EndDate != nil {
		end = DateOf(input.EndDate.In(s.loc))
		input.EndDate = &end
	}
	if !start.Before(end) {
		return nil, apperrors.Validation("The end date must be after the start date.")
	}

	updated, err := s.challengeRepo.Update(ctx, id, model.UpdateChallengeParams{
		Description:   input.Description,
		ScoringSystem: input.ScoringSystem,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update challenge: %w", err)
	}
	if updated == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "That challenge doesn't exist anymore.")
	}

	log.Info().Int64("challengeId", id).Str("actor", actorID).Msg("challenge edited")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventChallengeEdit,
		ActorID: actorID,
		Details: map[string]interface{}{"challengeId": id},
	})
	return updated, nil
}

// RemoveChallenge deletes a challenge together with its scores, baselines
// and notification markers, all in one transaction.
func (s *LifecycleService) RemoveChallenge(ctx context.Context, actorID string, id int64) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	if challenge == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "That challenge doesn't exist anymore.")
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ledger.scoreRepo.WithTx(tx).DeleteForChallenge(ctx, id); err != nil {
			return fmt.Errorf("delete scores: %w", err)
		}
		if _, err := s.baselineRepo.WithTx(tx).DeleteForChallenge(ctx, id); err != nil {
			return fmt.Errorf("delete baselines: %w", err)
		}
		if err := s.notifRepo.WithTx(tx).DeleteForChallenge(ctx, id); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := s.challengeRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return fmt.Errorf("delete challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.ledger.cache != nil {
		s.ledger.invalidateLeaderboards(ctx, id)
	}

	log.Info().Int64("challengeId", id).Str("actor", actorID).Msg("challenge removed")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventChallengeRemove,
		ActorID: actorID,
		Details: map[string]interface{}{"challengeId": id},
	})
	return challenge, nil
}

// RecordSuggestion stores a proposed challenge, capping how many open ones
// a single user may have.
func (s *LifecycleService) RecordSuggestion(ctx context.Context, userID, description, scoring string) (*model.Suggestion, error) {
	count, err := s.suggestionRepo.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count suggestions: %w", err)
	}
	if count >= config.MaxOpenSuggestionsPerUser {
		return nil, apperrors.CapacityLimit(fmt.Sprintf("You already have %d open suggestions. Wait for one to be used first.", config.MaxOpenSuggestionsPerUser))
	}

	suggestion, err := s.suggestionRepo.Create(ctx, model.CreateSuggestionParams{
		Description:   description,
		ScoringSystem: scoring,
		SuggestedBy:   userID,
	})
	if err != nil {
		return nil, fmt.Errorf("create suggestion: %w", err)
	}
	return suggestion, nil
}

func (s *LifecycleService) OpenSuggestions(ctx context.Context) ([]model.SuggestionWithVotes, error) {
	return s.suggestionRepo.FindOpen(ctx, model.MaxSuggestionsListed)
}

// CastVote records the user's vote for a suggestion. A user has one vote;
// voting again moves it.
func (s *LifecycleService) CastVote(ctx context.Context, userID string, suggestionID int64) (moved bool, err error) {
	suggestion, err := s.suggestionRepo.FindByID(ctx, suggestionID)
	if err != nil {
		return false, fmt.Errorf("find suggestion: %w", err)
	}
	if suggestion == nil {
		return false, apperrors.New(apperrors.ErrCodeNotFound, "That suggestion doesn't exist anymore.")
	}

	prior, err := s.suggestionRepo.FindVote(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("find vote: %w", err)
	}
	if prior != nil && prior.SuggestionID == suggestionID {
		return false, apperrors.StateViolation("Your vote is already on that suggestion.")
	}

	if err := s.suggestionRepo.UpsertVote(ctx, suggestionID, userID); err != nil {
		return false, fmt.Errorf("cast vote: %w", err)
	}
	return prior != nil, nil
}

// SetBaseline records the starting value for a change challenge participant.
// A participant gets exactly one baseline per challenge; further values go
// through UpdateValue.
func (s *LifecycleService) SetBaseline(ctx context.Context, challenge *model.Challenge, userID string, value float64) error {
	if challenge.Kind != model.ChallengeKindChange {
		return apperrors.StateViolation("The current challenge doesn't track a measured value.")
	}
	if value < -config.MaxBaselineMagnitude || value > config.MaxBaselineMagnitude {
		return apperrors.Validation(fmt.Sprintf("Values must stay within %d either way.", config.MaxBaselineMagnitude))
	}

	existing, err := s.baselineRepo.Find(ctx, challenge.ID, userID)
	if err != nil {
		return fmt.Errorf("find baseline: %w", err)
	}
	if existing != nil {
		return apperrors.StateViolation("Your starting value is already set. Use /updatevalue to record progress.")
	}

	if err := s.baselineRepo.SetBaseline(ctx, challenge.ID, userID, value); err != nil {
		return fmt.Errorf("set baseline: %w", err)
	}
	return nil
}

// UpdateValue records a new measured value against an existing baseline.
func (s *LifecycleService) UpdateValue(ctx context.Context, challenge *model.Challenge, userID string, value float64) (*model.BaselineValue, error) {
	if challenge.Kind != model.ChallengeKindChange {
		return nil, apperrors.StateViolation("The current challenge doesn't track a measured value.")
	}
	if value < -config.MaxBaselineMagnitude || value > config.MaxBaselineMagnitude {
		return nil, apperrors.Validation(fmt.Sprintf("Values must stay within %d either way.", config.MaxBaselineMagnitude))
	}

	rows, err := s.baselineRepo.UpdateCurrent(ctx, challenge.ID, userID, value)
	if err != nil {
		return nil, fmt.Errorf("update value: %w", err)
	}
	if rows == 0 {
		return nil, apperrors.StateViolation("Set your starting value first with /setbaseline.")
	}
	return s.baselineRepo.Find(ctx, challenge.ID, userID)
}

// SyncStatuses advances stored challenge statuses to match the clock and
// fires each lifecycle broadcast exactly once.
func (s *LifecycleService) SyncStatuses(ctx context.Context, now time.Time) error {
	challenges, err := s.challengeRepo.FindUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("find unfinished challenges: %w", err)
	}

	localNow := now.In(s.loc)
	for i := range challenges {
		c := &challenges[i]
		effective := EffectiveStatus(c, localNow)
		if effective != c.Status {
			if err := s.challengeRepo.SetStatus(ctx, c.ID, effective); err != nil {
				log.Error().Err(err).Int64("challengeId", c.ID).Msg("challenge status sync failed")
				continue
			}
			log.Info().
				Int64("challengeId", c.ID).
				Str("from", string(c.Status)).
				Str("to", string(effective)).
				Msg("challenge status advanced")
			c.Status = effective
		}
		s.sendDueNotifications(ctx, c, localNow)
	}
	return nil
}

func (s *LifecycleService) sendDueNotifications(ctx context.Context, c *model.Challenge, now time.Time) {
	today := DateOf(now)
	end := DateOf(c.EndDate.In(now.Location()))

	switch c.Status {
	case model.ChallengeStatusActive:
		s.notifyOnce(ctx, c, model.NotificationStarted, fmt.Sprintf(
			"The challenge has started!\n\n%s\n\nScoring: %s\n\nRecord your points with /addscore.",
			c.Description, c.ScoringSystem))
		if today.Equal(end) {
			s.notifyOnce(ctx, c, model.NotificationEndingSoon,
				"Last day of the challenge! Remember to record your final scores.")
		}
	case model.ChallengeStatusGracePeriod:
		s.notifyOnce(ctx, c, model.NotificationEndingSoon,
			"Last day of the challenge! Remember to record your final scores.")
	case model.ChallengeStatusEnded:
		results, err := s.FinalResults(ctx, c)
		if err != nil {
			log.Error().Err(err).Int64("challengeId", c.ID).Msg("final results failed")
			return
		}
		s.notifyOnce(ctx, c, model.NotificationFinalResults, results)
	}
}

func (s *LifecycleService) notifyOnce(ctx context.Context, c *model.Challenge, kind model.NotificationKind, message string) {
	won, err := s.notifRepo.MarkSent(ctx, c.ID, kind)
	if err != nil {
		log.Error().Err(err).Int64("challengeId", c.ID).Str("kind", string(kind)).Msg("notification guard failed")
		return
	}
	if !won {
		return
	}
	if err := s.notifier.Broadcast(ctx, message); err != nil {
		log.Error().Err(err).Int64("challengeId", c.ID).Str("kind", string(kind)).Msg("broadcast failed")
	}
}

// FinalResults renders the closing leaderboard for an ended challenge.
func (s *LifecycleService) FinalResults(ctx context.Context, c *model.Challenge) (string, error) {
	period := model.PeriodToDate
	if c.Kind == model.ChallengeKindChange {
		period = model.PeriodNetChange
	}
	standings, err := s.ledger.Aggregate(ctx, c, period, time.Now().In(s.loc))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("The challenge is over! Final results:\n\n")
	if len(standings) == 0 {
		b.WriteString("Nobody recorded any points this time.")
		return b.String(), nil
	}

	top := standings
	if len(top) > 3 {
		top = top[:3]
	}
	for i, st := range top {
		switch {
		case c.Kind == model.ChallengeKindChange:
			fmt.Fprintf(&b, "%d. %s: %+.1f%%\n", i+1, st.Username, st.Percent)
		default:
			fmt.Fprintf(&b, "%d. %s: %d points\n", i+1, st.Username, st.Points)
		}
	}
	if len(standings) == 1 {
		b.WriteString("\n1 participant took part.")
	} else {
		fmt.Fprintf(&b, "\n%d participants took part.", len(standings))
	}
	b.WriteString("\nCongratulations to the winner!")
	return b.String(), nil
}
