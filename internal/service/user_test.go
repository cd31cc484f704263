package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
)

type mockFeedbackRepo struct {
	mock.Mock
}

func (m *mockFeedbackRepo) Create(ctx context.Context, userID string, message string) (*model.Feedback, error) {
	args := m.Called(ctx, userID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Feedback), args.Error(1)
}

func (m *mockFeedbackRepo) ListRecent(ctx context.Context, limit int) ([]model.Feedback, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Feedback), args.Error(1)
}

func TestTouch(t *testing.T) {
	t.Run("keeps a sane platform handle", func(t *testing.T) {
		handle := "pekka_t"
		userRepo := new(mockUserRepo)
		userRepo.On("Upsert", mock.Anything, model.UpsertUserParams{ID: "user-1", PlatformUsername: &handle}).
			Return(&model.User{ID: "user-1"}, nil)

		svc := NewUserService(userRepo, nil)
		_, err := svc.Touch(context.Background(), "user-1", &handle)

		require.NoError(t, err)
		userRepo.AssertExpectations(t)
	})

	t.Run("drops a malformed platform handle", func(t *testing.T) {
		handle := "not a handle!"
		userRepo := new(mockUserRepo)
		userRepo.On("Upsert", mock.Anything, model.UpsertUserParams{ID: "user-1", PlatformUsername: nil}).
			Return(&model.User{ID: "user-1"}, nil)

		svc := NewUserService(userRepo, nil)
		_, err := svc.Touch(context.Background(), "user-1", &handle)

		require.NoError(t, err)
		userRepo.AssertExpectations(t)
	})
}

func TestRegister(t *testing.T) {
	t.Run("claims a free name", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByRegisteredUsername", mock.Anything, "pekka").Return(nil, nil)
		userRepo.On("SetRegisteredUsername", mock.Anything, "user-1", "pekka").Return(nil)

		svc := NewUserService(userRepo, nil)
		require.NoError(t, svc.Register(context.Background(), "user-1", "pekka"))
	})

	t.Run("rejects a taken name", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByRegisteredUsername", mock.Anything, "pekka").Return(registeredUser("user-2", "pekka"), nil)

		svc := NewUserService(userRepo, nil)
		err := svc.Register(context.Background(), "user-1", "pekka")

		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyExists))
	})

	t.Run("re-registering your own name is allowed", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByRegisteredUsername", mock.Anything, "pekka").Return(registeredUser("user-1", "pekka"), nil)
		userRepo.On("SetRegisteredUsername", mock.Anything, "user-1", "pekka").Return(nil)

		svc := NewUserService(userRepo, nil)
		require.NoError(t, svc.Register(context.Background(), "user-1", "pekka"))
	})

	t.Run("rejects malformed names", func(t *testing.T) {
		svc := NewUserService(new(mockUserRepo), nil)

		for _, name := range []string{"ab", strings.Repeat("x", 21), "has space", "bad!char"} {
			err := svc.Register(context.Background(), "user-1", name)
			require.Error(t, err, "name %q", name)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation), "name %q", name)
		}
	})
}

func TestRecordFeedback(t *testing.T) {
	t.Run("stores a message", func(t *testing.T) {
		feedbackRepo := new(mockFeedbackRepo)
		feedbackRepo.On("Create", mock.Anything, "user-1", "love the bot").Return(&model.Feedback{ID: 1}, nil)

		svc := NewUserService(nil, feedbackRepo)
		require.NoError(t, svc.RecordFeedback(context.Background(), "user-1", "love the bot"))
	})

	t.Run("rejects out-of-range lengths", func(t *testing.T) {
		svc := NewUserService(nil, new(mockFeedbackRepo))

		assert.Error(t, svc.RecordFeedback(context.Background(), "user-1", "hi"))
		assert.Error(t, svc.RecordFeedback(context.Background(), "user-1", strings.Repeat("x", 1001)))
	})
}
