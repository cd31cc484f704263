package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/repository"
	"github.com/challengeclub/competition-server-go/internal/service"
)

// Mock repositories

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByUserID(ctx context.Context, userID string) (*model.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) Upsert(ctx context.Context, params model.UpsertSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) Touch(ctx context.Context, userID string, state model.FlowState, fields []byte) error {
	args := m.Called(ctx, userID, state, fields)
	return args.Error(0)
}

func (m *mockSessionRepo) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByRegisteredUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Upsert(ctx context.Context, params model.UpsertUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) SetRegisteredUsername(ctx context.Context, id string, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockAdminRepo struct {
	mock.Mock
}

func (m *mockAdminRepo) Find(ctx context.Context, userID string) (*model.Admin, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Admin), args.Error(1)
}

func (m *mockAdminRepo) FindBootstrap(ctx context.Context) (*model.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Admin), args.Error(1)
}

func (m *mockAdminRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockAdminRepo) List(ctx context.Context) ([]model.AdminListing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AdminListing), args.Error(1)
}

func (m *mockAdminRepo) Add(ctx context.Context, userID string, addedBy *string) error {
	args := m.Called(ctx, userID, addedBy)
	return args.Error(0)
}

func (m *mockAdminRepo) Remove(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAdminRepo) WithTx(tx *sqlx.Tx) repository.AdminRepository {
	return m
}

type mockChallengeRepo struct {
	mock.Mock
}

func (m *mockChallengeRepo) FindByID(ctx context.Context, id int64) (*model.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) FindCurrent(ctx context.Context) (*model.Challenge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) FindPast(ctx context.Context, limit int) ([]model.Challenge, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) FindUnfinished(ctx context.Context) ([]model.Challenge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) FindRecent(ctx context.Context, limit int) ([]model.Challenge, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) Create(ctx context.Context, params model.CreateChallengeParams) (*model.Challenge, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) Update(ctx context.Context, id int64, params model.UpdateChallengeParams) (*model.Challenge, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Challenge), args.Error(1)
}

func (m *mockChallengeRepo) SetStatus(ctx context.Context, id int64, status model.ChallengeStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockChallengeRepo) HasUnfinished(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockChallengeRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockChallengeRepo) WithTx(tx *sqlx.Tx) repository.ChallengeRepository {
	return m
}

func newTestEngine(sessions *mockSessionRepo, users *mockUserRepo) *Engine {
	return NewEngine(
		sessions,
		service.NewUserService(users, nil),
		nil, nil, nil,
		30*time.Minute,
		time.UTC,
	)
}

func newAdminTestEngine(sessions *mockSessionRepo, users *mockUserRepo, admins *mockAdminRepo) *Engine {
	return NewEngine(
		sessions,
		service.NewUserService(users, nil),
		nil, nil,
		service.NewPermissionService(nil, admins, users),
		30*time.Minute,
		time.UTC,
	)
}

func newChallengePickerEngine(sessions *mockSessionRepo, challenges *mockChallengeRepo, admins *mockAdminRepo) *Engine {
	return NewEngine(
		sessions,
		nil, nil,
		service.NewLifecycleService(nil, challenges, nil, nil, nil, nil, nil, time.UTC, 1),
		service.NewPermissionService(nil, admins, nil),
		30*time.Minute,
		time.UTC,
	)
}

func registeredUser(id, name string) *model.User {
	return &model.User{ID: id, RegisteredUsername: &name}
}

func flowSession(kind model.FlowKind, state model.FlowState, fields string, lastActive time.Time) *model.Session {
	return &model.Session{
		UserID:       "user-1",
		Flow:         kind,
		State:        state,
		Fields:       []byte(fields),
		CreatedAt:    lastActive,
		LastActiveAt: lastActive,
	}
}

func registerSession(state model.FlowState, fields string, lastActive time.Time) *model.Session {
	return flowSession(model.FlowRegister, state, fields, lastActive)
}

func TestEngineBegin(t *testing.T) {
	t.Run("starts the register flow with its first prompt", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertSessionParams) bool {
			return p.UserID == "user-1" && p.Flow == model.FlowRegister && p.State == model.StateUsernameInput
		})).Return(registerSession(model.StateUsernameInput, `{}`, time.Now()), nil)

		engine := newTestEngine(sessions, new(mockUserRepo))
		reply, err := engine.Begin(context.Background(), "user-1", model.FlowRegister)

		require.NoError(t, err)
		assert.Contains(t, reply, "name")
		sessions.AssertExpectations(t)
	})
}

func TestEngineAdvance(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(nil, nil)

		engine := newTestEngine(sessions, new(mockUserRepo))
		_, err := engine.Advance(context.Background(), "user-1", "hello")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoSession))
	})

	t.Run("expired session is dropped", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		stale := registerSession(model.StateUsernameInput, `{}`, time.Now().Add(-time.Hour))
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(stale, nil)
		sessions.On("Delete", mock.Anything, "user-1").Return(nil)

		engine := newTestEngine(sessions, new(mockUserRepo))
		_, err := engine.Advance(context.Background(), "user-1", "pekka")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionExpired))
		sessions.AssertExpectations(t)
	})

	t.Run("invalid input re-prompts without advancing", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		current := registerSession(model.StateUsernameInput, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Touch", mock.Anything, "user-1", model.StateUsernameInput, mock.Anything).Return(nil)

		engine := newTestEngine(sessions, new(mockUserRepo))
		_, err := engine.Advance(context.Background(), "user-1", "x")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		sessions.AssertExpectations(t)
	})

	t.Run("register commits as soon as the name validates", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		users := new(mockUserRepo)
		current := registerSession(model.StateUsernameInput, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Delete", mock.Anything, "user-1").Return(nil)
		users.On("FindByRegisteredUsername", mock.Anything, "pekka").Return(nil, nil)
		users.On("SetRegisteredUsername", mock.Anything, "user-1", "pekka").Return(nil)

		engine := newTestEngine(sessions, users)
		reply, err := engine.Advance(context.Background(), "user-1", "pekka")

		require.NoError(t, err)
		assert.Contains(t, reply, "Welcome, pekka")
		assert.NotContains(t, reply, "yes")
		users.AssertExpectations(t)
		sessions.AssertExpectations(t)
		sessions.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure on a direct commit keeps the session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		users := new(mockUserRepo)
		current := registerSession(model.StateUsernameInput, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		users.On("FindByRegisteredUsername", mock.Anything, "pekka").Return(nil, nil)
		users.On("SetRegisteredUsername", mock.Anything, "user-1", "pekka").Return(errors.New("connection reset"))

		engine := newTestEngine(sessions, users)
		_, err := engine.Advance(context.Background(), "user-1", "pekka")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabase))
		sessions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("valid input moves to confirm", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		users := new(mockUserRepo)
		current := flowSession(model.FlowAddAdmin, model.StateUsernameInput, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Touch", mock.Anything, "user-1", model.StateConfirm, mock.Anything).Return(nil)
		users.On("FindByRegisteredUsername", mock.Anything, "maija").Return(registeredUser("user-2", "maija"), nil)

		engine := newAdminTestEngine(sessions, users, new(mockAdminRepo))
		reply, err := engine.Advance(context.Background(), "user-1", "maija")

		require.NoError(t, err)
		assert.Contains(t, reply, "maija")
		assert.Contains(t, reply, "yes")
		sessions.AssertExpectations(t)
	})

	t.Run("confirm token commits, case-insensitively", func(t *testing.T) {
		for _, token := range []string{"yes", "YES", "Yes"} {
			sessions := new(mockSessionRepo)
			users := new(mockUserRepo)
			admins := new(mockAdminRepo)
			current := flowSession(model.FlowAddAdmin, model.StateConfirm, `{"username":"maija"}`, time.Now())
			sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
			sessions.On("Delete", mock.Anything, "user-1").Return(nil)
			users.On("FindByRegisteredUsername", mock.Anything, "maija").Return(registeredUser("user-2", "maija"), nil)
			admins.On("Find", mock.Anything, "user-2").Return(nil, nil)
			admins.On("Add", mock.Anything, "user-2", mock.Anything).Return(nil)

			engine := newAdminTestEngine(sessions, users, admins)
			reply, err := engine.Advance(context.Background(), "user-1", token)

			require.NoError(t, err, "token %q", token)
			assert.Contains(t, reply, "maija")
			admins.AssertExpectations(t)
		}
	})

	t.Run("anything else at confirm cancels", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		admins := new(mockAdminRepo)
		current := flowSession(model.FlowAddAdmin, model.StateConfirm, `{"username":"maija"}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Delete", mock.Anything, "user-1").Return(nil)

		engine := newAdminTestEngine(sessions, new(mockUserRepo), admins)
		reply, err := engine.Advance(context.Background(), "user-1", "no thanks")

		require.NoError(t, err)
		assert.Equal(t, "Cancelled.", reply)
		admins.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure at commit keeps the session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		users := new(mockUserRepo)
		current := flowSession(model.FlowAddAdmin, model.StateConfirm, `{"username":"maija"}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		users.On("FindByRegisteredUsername", mock.Anything, "maija").Return(nil, errors.New("connection reset"))

		engine := newAdminTestEngine(sessions, users, new(mockAdminRepo))
		_, err := engine.Advance(context.Background(), "user-1", "yes")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabase))
		sessions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("business rejection at commit ends the session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		users := new(mockUserRepo)
		admins := new(mockAdminRepo)
		current := flowSession(model.FlowAddAdmin, model.StateConfirm, `{"username":"maija"}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Delete", mock.Anything, "user-1").Return(nil)
		users.On("FindByRegisteredUsername", mock.Anything, "maija").Return(registeredUser("user-2", "maija"), nil)
		// The target became an admin between validation and confirm.
		admins.On("Find", mock.Anything, "user-2").Return(&model.Admin{UserID: "user-2"}, nil)

		engine := newAdminTestEngine(sessions, users, admins)
		_, err := engine.Advance(context.Background(), "user-1", "yes")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyExists))
		sessions.AssertExpectations(t)
	})
}

func TestEngineCancel(t *testing.T) {
	t.Run("drops an active session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(registerSession(model.StateUsernameInput, `{}`, time.Now()), nil)
		sessions.On("Delete", mock.Anything, "user-1").Return(nil)

		engine := newTestEngine(sessions, new(mockUserRepo))
		reply, err := engine.Cancel(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Equal(t, "Cancelled.", reply)
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(nil, nil)

		engine := newTestEngine(sessions, new(mockUserRepo))
		reply, err := engine.Cancel(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Equal(t, "Nothing to cancel.", reply)
	})
}

func TestChallengePickerFlows(t *testing.T) {
	recent := []model.Challenge{
		{ID: 7, Description: "Most push-ups in a month wins", StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), Status: model.ChallengeStatusActive},
		{ID: 4, Description: "Cold showers every morning", StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), Status: model.ChallengeStatusEnded},
	}
	admin := func(admins *mockAdminRepo) {
		admins.On("Find", mock.Anything, "user-1").Return(&model.Admin{UserID: "user-1"}, nil)
	}

	t.Run("edit opens with a numbered list of recent challenges", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		challenges := new(mockChallengeRepo)
		admins := new(mockAdminRepo)
		admin(admins)
		challenges.On("FindRecent", mock.Anything, mock.Anything).Return(recent, nil)
		sessions.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertSessionParams) bool {
			return p.Flow == model.FlowEditChallenge && p.State == model.StateChallengeSelect
		})).Return(flowSession(model.FlowEditChallenge, model.StateChallengeSelect, `{}`, time.Now()), nil)

		engine := newChallengePickerEngine(sessions, challenges, admins)
		reply, err := engine.Begin(context.Background(), "user-1", model.FlowEditChallenge)

		require.NoError(t, err)
		assert.Contains(t, reply, "1. Most push-ups in a month wins")
		assert.Contains(t, reply, "2. Cold showers every morning")
		sessions.AssertExpectations(t)
	})

	t.Run("no challenges leaves no session behind", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		challenges := new(mockChallengeRepo)
		admins := new(mockAdminRepo)
		admin(admins)
		challenges.On("FindRecent", mock.Anything, mock.Anything).Return([]model.Challenge{}, nil)

		engine := newChallengePickerEngine(sessions, challenges, admins)
		_, err := engine.Begin(context.Background(), "user-1", model.FlowRemoveChallenge)

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
		sessions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("picking a number stores the challenge and asks what to change", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		challenges := new(mockChallengeRepo)
		challenges.On("FindRecent", mock.Anything, mock.Anything).Return(recent, nil)
		current := flowSession(model.FlowEditChallenge, model.StateChallengeSelect, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Touch", mock.Anything, "user-1", model.StateFieldSelect, mock.Anything).Return(nil)

		engine := newChallengePickerEngine(sessions, challenges, new(mockAdminRepo))
		reply, err := engine.Advance(context.Background(), "user-1", "2")

		require.NoError(t, err)
		assert.Contains(t, reply, "What should change?")
		sessions.AssertExpectations(t)
	})

	t.Run("a number off the list re-prompts", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		challenges := new(mockChallengeRepo)
		challenges.On("FindRecent", mock.Anything, mock.Anything).Return(recent, nil)
		current := flowSession(model.FlowEditChallenge, model.StateChallengeSelect, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Touch", mock.Anything, "user-1", model.StateChallengeSelect, mock.Anything).Return(nil)

		engine := newChallengePickerEngine(sessions, challenges, new(mockAdminRepo))
		_, err := engine.Advance(context.Background(), "user-1", "3")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("removal confirms before deleting", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		challenges := new(mockChallengeRepo)
		challenges.On("FindRecent", mock.Anything, mock.Anything).Return(recent, nil)
		current := flowSession(model.FlowRemoveChallenge, model.StateChallengeSelect, `{}`, time.Now())
		sessions.On("FindByUserID", mock.Anything, "user-1").Return(current, nil)
		sessions.On("Touch", mock.Anything, "user-1", model.StateConfirm, mock.Anything).Return(nil)

		engine := newChallengePickerEngine(sessions, challenges, new(mockAdminRepo))
		reply, err := engine.Advance(context.Background(), "user-1", "1")

		require.NoError(t, err)
		assert.Contains(t, reply, "Permanently remove")
		assert.Contains(t, reply, "Most push-ups in a month wins")
	})
}

func TestKnownUsernameValidation(t *testing.T) {
	t.Run("a malformed name never reaches the lookup", func(t *testing.T) {
		users := new(mockUserRepo)
		engine := newTestEngine(new(mockSessionRepo), users)

		_, err := validateKnownUsername(context.Background(), engine, "user-1", map[string]string{}, "x!")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		users.AssertNotCalled(t, "FindByRegisteredUsername", mock.Anything, mock.Anything)
	})

	t.Run("a well-formed registered name passes", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByRegisteredUsername", mock.Anything, "maija").Return(registeredUser("user-2", "maija"), nil)
		engine := newTestEngine(new(mockSessionRepo), users)

		value, err := validateKnownUsername(context.Background(), engine, "user-1", map[string]string{}, " maija ")

		require.NoError(t, err)
		assert.Equal(t, "maija", value)
	})
}

func TestFlowTables(t *testing.T) {
	t.Run("every flow has steps and a commit", func(t *testing.T) {
		for kind, flow := range flows {
			assert.NotEmpty(t, flow.Steps, "flow %s", kind)
			assert.NotNil(t, flow.Commit, "flow %s", kind)
			if !flow.NoConfirm {
				assert.NotNil(t, flow.Summary, "flow %s", kind)
			}
			for _, step := range flow.Steps {
				if step.PromptFn == nil {
					assert.NotEmpty(t, step.Prompt, "flow %s state %s", kind, step.State)
				}
				assert.NotNil(t, step.Validate, "flow %s state %s", kind, step.State)
			}
		}
	})

	t.Run("single-answer flows commit without a confirm step", func(t *testing.T) {
		for _, kind := range []model.FlowKind{model.FlowRegister, model.FlowSetBaseline, model.FlowUpdateValue} {
			assert.True(t, flows[kind].NoConfirm, "flow %s", kind)
		}
		assert.False(t, flows[model.FlowAddScore].NoConfirm)
		assert.False(t, flows[model.FlowStartChallenge].NoConfirm)
	})

	t.Run("admin flows are flagged", func(t *testing.T) {
		for _, kind := range []model.FlowKind{model.FlowStartChallenge, model.FlowEditChallenge, model.FlowRemoveChallenge, model.FlowAddAdmin, model.FlowRemoveAdmin, model.FlowRemoveEntry} {
			assert.True(t, flows[kind].AdminOnly, "flow %s", kind)
		}
		assert.False(t, flows[model.FlowRegister].AdminOnly)
		assert.False(t, flows[model.FlowAddScore].AdminOnly)
	})
}
