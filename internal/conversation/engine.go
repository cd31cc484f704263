// Package conversation drives the multi-turn flows a user walks through in
// private chat: each user has at most one session, advanced one message at
// a time and confirmed before anything is committed.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/repository"
	"github.com/challengeclub/competition-server-go/internal/service"
)

// ConfirmToken is the only input that commits a flow at the confirm step.
// Comparison is case-insensitive; any other input cancels.
const ConfirmToken = "yes"

type Engine struct {
	sessionRepo repository.SessionRepository
	users       *service.UserService
	ledger      *service.LedgerService
	lifecycle   *service.LifecycleService
	perms       *service.PermissionService
	ttl         time.Duration
	loc         *time.Location

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(
	sessionRepo repository.SessionRepository,
	users *service.UserService,
	ledger *service.LedgerService,
	lifecycle *service.LifecycleService,
	perms *service.PermissionService,
	ttl time.Duration,
	loc *time.Location,
) *Engine {
	return &Engine{
		sessionRepo: sessionRepo,
		users:       users,
		ledger:      ledger,
		lifecycle:   lifecycle,
		perms:       perms,
		ttl:         ttl,
		loc:         loc,
		locks:       make(map[string]*sync.Mutex),
	}
}

// userLock serializes turns per user. Messages from different users never
// contend with each other.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}

// Begin starts a flow for the user, replacing any session already in
// progress.
func (e *Engine) Begin(ctx context.Context, userID string, kind model.FlowKind) (string, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	flow, ok := flows[kind]
	if !ok {
		return "", apperrors.Internal("unknown flow")
	}

	if err := e.checkGates(ctx, userID, flow); err != nil {
		return "", err
	}

	// Rendered first so a flow that cannot open (nothing to pick from)
	// leaves no session behind.
	prompt, err := e.stepPrompt(ctx, flow.Steps[0], map[string]string{})
	if err != nil {
		return "", err
	}

	session := &model.Session{UserID: userID, Flow: kind, State: flow.Steps[0].State}
	if err := session.SetFieldMap(map[string]string{}); err != nil {
		return "", apperrors.Database(err)
	}
	if _, err := e.sessionRepo.Upsert(ctx, model.UpsertSessionParams{
		UserID: userID,
		Flow:   kind,
		State:  flow.Steps[0].State,
		Fields: session.Fields,
	}); err != nil {
		return "", apperrors.Database(err)
	}

	return prompt, nil
}

// stepPrompt renders a step's question, running its PromptFn when the
// prompt depends on current data.
func (e *Engine) stepPrompt(ctx context.Context, step Step, fields map[string]string) (string, error) {
	if step.PromptFn != nil {
		return step.PromptFn(ctx, e, fields)
	}
	return step.Prompt, nil
}

// Advance feeds one message into the user's session. Validation failures
// re-prompt in place; the confirm step commits on the confirm token and
// cancels on anything else.
func (e *Engine) Advance(ctx context.Context, userID string, input string) (string, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.sessionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if session == nil {
		return "", apperrors.NoSession()
	}
	if session.Expired(e.ttl, time.Now()) {
		if err := e.sessionRepo.Delete(ctx, userID); err != nil {
			return "", apperrors.Database(err)
		}
		return "", apperrors.SessionExpired()
	}

	flow, ok := flows[session.Flow]
	if !ok {
		_ = e.sessionRepo.Delete(ctx, userID)
		return "", apperrors.NoSession()
	}

	input = strings.TrimSpace(input)

	if session.State == model.StateConfirm {
		return e.finish(ctx, flow, session, input)
	}

	stepIdx := flow.stepIndex(session.State)
	if stepIdx < 0 {
		_ = e.sessionRepo.Delete(ctx, userID)
		return "", apperrors.NoSession()
	}
	step := flow.Steps[stepIdx]

	fields, err := session.FieldMap()
	if err != nil {
		_ = e.sessionRepo.Delete(ctx, userID)
		return "", apperrors.Database(err)
	}

	value, err := step.Validate(ctx, e, userID, fields, input)
	if err != nil {
		// Stay on the same step but refresh the idle clock.
		if touchErr := e.sessionRepo.Touch(ctx, userID, session.State, session.Fields); touchErr != nil {
			return "", apperrors.Database(touchErr)
		}
		return "", err
	}
	fields[step.Field] = value

	if err := session.SetFieldMap(fields); err != nil {
		return "", apperrors.Database(err)
	}

	// A validator may fill later fields ahead of time; steps whose field
	// is already answered are skipped.
	next := stepIdx + 1
	for next < len(flow.Steps) {
		if _, done := fields[flow.Steps[next].Field]; !done {
			break
		}
		next++
	}

	var nextState model.FlowState
	var reply string
	if next < len(flow.Steps) {
		nextState = flow.Steps[next].State
		reply, err = e.stepPrompt(ctx, flow.Steps[next], fields)
		if err != nil {
			return "", err
		}
	} else if flow.NoConfirm {
		// Single-answer flows commit as soon as the last input validates.
		return e.commit(ctx, flow, session, fields)
	} else {
		nextState = model.StateConfirm
		reply = flow.Summary(fields) + "\n\nType yes to confirm, anything else cancels."
	}

	if err := e.sessionRepo.Touch(ctx, userID, nextState, session.Fields); err != nil {
		return "", apperrors.Database(err)
	}
	return reply, nil
}

// Cancel drops the user's session if one exists.
func (e *Engine) Cancel(ctx context.Context, userID string) (string, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.sessionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if session == nil {
		return "Nothing to cancel.", nil
	}
	if err := e.sessionRepo.Delete(ctx, userID); err != nil {
		return "", apperrors.Database(err)
	}
	return "Cancelled.", nil
}

func (e *Engine) finish(ctx context.Context, flow *Flow, session *model.Session, input string) (string, error) {
	if !strings.EqualFold(input, ConfirmToken) {
		if err := e.sessionRepo.Delete(ctx, session.UserID); err != nil {
			return "", apperrors.Database(err)
		}
		return "Cancelled.", nil
	}

	fields, err := session.FieldMap()
	if err != nil {
		_ = e.sessionRepo.Delete(ctx, session.UserID)
		return "", apperrors.Database(err)
	}

	return e.commit(ctx, flow, session, fields)
}

// commit runs the flow's Commit and drops the session. A storage failure
// keeps the session so the user can retry.
func (e *Engine) commit(ctx context.Context, flow *Flow, session *model.Session, fields map[string]string) (string, error) {
	reply, err := flow.Commit(ctx, e, session.UserID, fields)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); !ok || appErr.Code == apperrors.ErrCodeDatabase {
			// Keep the session so the user can retry the confirmation
			// after a transient storage failure.
			log.Error().Err(err).
				Str("userId", session.UserID).
				Str("flow", string(session.Flow)).
				Msg("flow commit failed")
			if !ok {
				err = apperrors.Database(err)
			}
			return "", err
		}
		if delErr := e.sessionRepo.Delete(ctx, session.UserID); delErr != nil {
			return "", apperrors.Database(delErr)
		}
		return "", err
	}

	if err := e.sessionRepo.Delete(ctx, session.UserID); err != nil {
		return "", apperrors.Database(err)
	}
	return reply, nil
}

func (e *Engine) checkGates(ctx context.Context, userID string, flow *Flow) error {
	if flow.AdminOnly {
		if err := e.perms.RequireAdmin(ctx, userID); err != nil {
			return err
		}
	}
	if flow.NeedsActive || flow.ChangeOnly {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return err
		}
		if flow.ChangeOnly && challenge.Kind != model.ChallengeKindChange {
			return apperrors.StateViolation("The current challenge doesn't track a measured value.")
		}
		if flow.StandardOnly && challenge.Kind != model.ChallengeKindStandard {
			return apperrors.StateViolation("The current challenge tracks a measured value, not points. Use /updatevalue.")
		}
	}
	return nil
}
