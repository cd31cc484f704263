package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/audit"
	"github.com/challengeclub/competition-server-go/internal/config"
	"github.com/challengeclub/competition-server-go/internal/database"
	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/redis"
	"github.com/challengeclub/competition-server-go/internal/repository"
)

type LedgerService struct {
	db            database.TxRunner
	scoreRepo     repository.ScoreRepository
	baselineRepo  repository.BaselineRepository
	challengeRepo repository.ChallengeRepository
	userRepo      repository.UserRepository
	cache         *redis.Client
	loc           *time.Location
}

func NewLedgerService(
	db database.TxRunner,
	scoreRepo repository.ScoreRepository,
	baselineRepo repository.BaselineRepository,
	challengeRepo repository.ChallengeRepository,
	userRepo repository.UserRepository,
	cache *redis.Client,
	loc *time.Location,
) *LedgerService {
	return &LedgerService{
		db:            db,
		scoreRepo:     scoreRepo,
		baselineRepo:  baselineRepo,
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
		cache:         cache,
		loc:           loc,
	}
}

// Distribute splits points evenly across dates, assigning the remainder one
// point at a time starting from the earliest date. The sum of the returned
// slots always equals points exactly.
func Distribute(points int64, dates []time.Time) []model.DayPoints {
	if len(dates) == 0 {
		return nil
	}

	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	n := int64(len(sorted))
	base := points / n
	remainder := points % n
	if remainder < 0 {
		// Keep the remainder non-negative for negative totals so every
		// slot stays within one point of the others.
		base--
		remainder += n
	}

	slots := make([]model.DayPoints, len(sorted))
	for i, date := range sorted {
		slots[i] = model.DayPoints{Date: date, Points: base}
		if int64(i) < remainder {
			slots[i].Points++
		}
	}
	return slots
}

// ApplyAdd distributes points across the given dates and accumulates them
// onto each day's entry, enforcing per-day and per-user caps inside one
// transaction.
func (s *LedgerService) ApplyAdd(ctx context.Context, challenge *model.Challenge, userID string, points int64, dates []time.Time) ([]model.DayPoints, error) {
	if !challenge.Status.AllowsScoreMutation() {
		return nil, apperrors.StateViolation("Scores can only be recorded while a challenge is active.")
	}

	slots := Distribute(points, dates)

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		scores := s.scoreRepo.WithTx(tx)

		total, err := scores.SumForUser(ctx, challenge.ID, userID)
		if err != nil {
			return fmt.Errorf("sum user points: %w", err)
		}
		if total+points > config.MaxPointsPerUser {
			return apperrors.CapacityLimit(fmt.Sprintf("That would put you over the %d point total limit.", config.MaxPointsPerUser))
		}

		for _, slot := range slots {
			dayTotal, err := scores.SumForDay(ctx, challenge.ID, userID, slot.Date)
			if err != nil {
				return fmt.Errorf("sum day points: %w", err)
			}
			if dayTotal+slot.Points > config.MaxPointsPerDay {
				return apperrors.CapacityLimit(fmt.Sprintf("Daily limit is %d points per day.", config.MaxPointsPerDay))
			}
			if err := scores.AddPoints(ctx, challenge.ID, userID, slot.Date, slot.Points); err != nil {
				return fmt.Errorf("add points: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLeaderboards(ctx, challenge.ID)
	return slots, nil
}

// ApplyEdit replaces one day's total with a new value.
func (s *LedgerService) ApplyEdit(ctx context.Context, challenge *model.Challenge, userID string, date time.Time, newPoints int64) error {
	if !challenge.Status.AllowsScoreMutation() {
		return apperrors.StateViolation("Scores can only be changed while a challenge is active.")
	}
	if newPoints > config.MaxPointsPerDay {
		return apperrors.CapacityLimit(fmt.Sprintf("Daily limit is %d points per day.", config.MaxPointsPerDay))
	}

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		scores := s.scoreRepo.WithTx(tx)

		entry, err := scores.FindEntry(ctx, challenge.ID, userID, date)
		if err != nil {
			return fmt.Errorf("find entry: %w", err)
		}
		if entry == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, "No points recorded for that date.")
		}

		total, err := scores.SumForUser(ctx, challenge.ID, userID)
		if err != nil {
			return fmt.Errorf("sum user points: %w", err)
		}
		if total-entry.Points+newPoints > config.MaxPointsPerUser {
			return apperrors.CapacityLimit(fmt.Sprintf("That would put you over the %d point total limit.", config.MaxPointsPerUser))
		}

		if err := scores.SetPoints(ctx, challenge.ID, userID, date, newPoints); err != nil {
			return fmt.Errorf("set points: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateLeaderboards(ctx, challenge.ID)
	return nil
}

// ApplyRemove drops one day's entry entirely.
func (s *LedgerService) ApplyRemove(ctx context.Context, challenge *model.Challenge, userID string, date time.Time) error {
	if !challenge.Status.AllowsScoreMutation() {
		return apperrors.StateViolation("Scores can only be changed while a challenge is active.")
	}

	rows, err := s.scoreRepo.DeleteEntry(ctx, challenge.ID, userID, date)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if rows == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, "No points recorded for that date.")
	}

	s.invalidateLeaderboards(ctx, challenge.ID)
	return nil
}

// RemoveAllForUser wipes a user's entries for a challenge. Admin use only;
// the caller checks permissions.
func (s *LedgerService) RemoveAllForUser(ctx context.Context, challenge *model.Challenge, actorID, userID string) (int64, error) {
	rows, err := s.scoreRepo.DeleteAllForUser(ctx, challenge.ID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	if rows > 0 {
		s.invalidateLeaderboards(ctx, challenge.ID)
	}

	log.Info().
		Int64("challengeId", challenge.ID).
		Str("userId", userID).
		Int64("entries", rows).
		Msg("score entries removed")
	audit.Log(ctx, audit.Event{
		Type:     audit.EventEntryWipe,
		ActorID:  actorID,
		TargetID: userID,
		Details:  map[string]interface{}{"challengeId": challenge.ID, "entries": rows},
	})

	return rows, nil
}

// UserTotal returns a user's summed points for a challenge.
func (s *LedgerService) UserTotal(ctx context.Context, challengeID int64, userID string) (int64, error) {
	return s.scoreRepo.SumForUser(ctx, challengeID, userID)
}

// UserEntries returns a user's per-day entries, earliest first.
func (s *LedgerService) UserEntries(ctx context.Context, challengeID int64, userID string) ([]model.ScoreEntry, error) {
	return s.scoreRepo.FindEntriesForUser(ctx, challengeID, userID)
}

// Aggregate computes the leaderboard for one period, serving from cache
// when a fresh copy exists.
func (s *LedgerService) Aggregate(ctx context.Context, challenge *model.Challenge, period model.PeriodKind, now time.Time) ([]model.Standing, error) {
	key := redis.LeaderboardKey(challenge.ID, string(period))
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		var standings []model.Standing
		if err := json.Unmarshal([]byte(cached), &standings); err == nil {
			return standings, nil
		}
	} else if err != goredis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("leaderboard cache read failed")
	}

	standings, err := s.computeStandings(ctx, challenge, period, now)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(standings); err == nil {
		if err := s.cache.Set(ctx, key, data, config.LeaderboardCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("leaderboard cache write failed")
		}
	}
	return standings, nil
}

func (s *LedgerService) computeStandings(ctx context.Context, challenge *model.Challenge, period model.PeriodKind, now time.Time) ([]model.Standing, error) {
	switch period {
	case model.PeriodToDate:
		return s.scoreRepo.Standings(ctx, challenge.ID, nil, nil, config.LeaderboardLimit)
	case model.PeriodThisWeek:
		from, to := WeekBounds(now.In(s.loc), 0)
		return s.scoreRepo.Standings(ctx, challenge.ID, &from, &to, config.LeaderboardLimit)
	case model.PeriodLastWeek:
		from, to := WeekBounds(now.In(s.loc), -1)
		return s.scoreRepo.Standings(ctx, challenge.ID, &from, &to, config.LeaderboardLimit)
	case model.PeriodGain, model.PeriodLoss, model.PeriodNetChange:
		return s.changeStandings(ctx, challenge, period)
	default:
		return nil, apperrors.Validation(fmt.Sprintf("Unknown leaderboard period %q.", period))
	}
}

// changeStandings ranks change-challenge participants by percent change
// from baseline. Users with a zero baseline are skipped since the percent
// is undefined for them.
func (s *LedgerService) changeStandings(ctx context.Context, challenge *model.Challenge, period model.PeriodKind) ([]model.Standing, error) {
	if challenge.Kind != model.ChallengeKindChange {
		return nil, apperrors.StateViolation("This leaderboard only exists for change challenges.")
	}

	baselines, err := s.baselineRepo.ListForChallenge(ctx, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}

	standings := []model.Standing{}
	for _, b := range baselines {
		if b.Baseline == 0 {
			continue
		}
		percent := b.PercentChange()
		switch period {
		case model.PeriodGain:
			if percent <= 0 {
				continue
			}
		case model.PeriodLoss:
			if percent >= 0 {
				continue
			}
		}
		username := b.UserID
		if user, err := s.userRepo.FindByID(ctx, b.UserID); err == nil && user != nil {
			username = user.DisplayName()
		}
		standings = append(standings, model.Standing{
			UserID:   b.UserID,
			Username: username,
			Percent:  percent,
			Baseline: b.Baseline,
			Current:  b.Current,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		switch period {
		case model.PeriodLoss:
			return standings[i].Percent < standings[j].Percent
		case model.PeriodNetChange:
			// Biggest movers first, in either direction.
			return absF(standings[i].Percent) > absF(standings[j].Percent)
		default:
			return standings[i].Percent > standings[j].Percent
		}
	})
	if len(standings) > config.LeaderboardLimit {
		standings = standings[:config.LeaderboardLimit]
	}
	return standings, nil
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *LedgerService) invalidateLeaderboards(ctx context.Context, challengeID int64) {
	pattern := redis.LeaderboardPattern(challengeID)
	iter := s.cache.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			log.Warn().Err(err).Str("key", iter.Val()).Msg("leaderboard cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("leaderboard cache scan failed")
	}
}

// WeekBounds returns the Monday 00:00 start and Sunday end (exclusive upper
// bound at next Monday minus one day for date-typed columns) of the week
// containing t, shifted by offset weeks.
func WeekBounds(t time.Time, offset int) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		AddDate(0, 0, -(weekday-1)).
		AddDate(0, 0, offset*7)
	sunday := monday.AddDate(0, 0, 6)
	return monday, sunday
}
