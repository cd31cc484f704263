package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/repository"
	"github.com/challengeclub/competition-server-go/internal/util"
)

type UserService struct {
	userRepo     repository.UserRepository
	feedbackRepo repository.FeedbackRepository
}

func NewUserService(userRepo repository.UserRepository, feedbackRepo repository.FeedbackRepository) *UserService {
	return &UserService{
		userRepo:     userRepo,
		feedbackRepo: feedbackRepo,
	}
}

// Touch upserts the user row from the inbound message, keeping the platform
// handle current. Called on every webhook. Handles the platform sends in an
// unexpected shape are dropped rather than stored.
func (s *UserService) Touch(ctx context.Context, userID string, platformUsername *string) (*model.User, error) {
	if platformUsername != nil && !util.IsValidPlatformUsername(*platformUsername) {
		platformUsername = nil
	}
	user, err := s.userRepo.Upsert(ctx, model.UpsertUserParams{
		ID:               userID,
		PlatformUsername: platformUsername,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (s *UserService) Find(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *UserService) FindByRegisteredUsername(ctx context.Context, username string) (*model.User, error) {
	return s.userRepo.FindByRegisteredUsername(ctx, username)
}

// Register claims a display name for the user. Names are unique,
// case-insensitively.
func (s *UserService) Register(ctx context.Context, userID string, username string) error {
	if !util.IsValidRegisteredUsername(username) {
		return apperrors.Validation("Usernames are 3-20 characters: letters, numbers, dots, dashes and underscores.")
	}

	existing, err := s.userRepo.FindByRegisteredUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if existing != nil && existing.ID != userID {
		return apperrors.New(apperrors.ErrCodeAlreadyExists, "That username is taken. Pick another one.")
	}

	if err := s.userRepo.SetRegisteredUsername(ctx, userID, username); err != nil {
		return fmt.Errorf("set username: %w", err)
	}

	log.Info().Str("userId", userID).Str("username", username).Msg("user registered")
	return nil
}

// RecordFeedback stores a free-form message for the operators.
func (s *UserService) RecordFeedback(ctx context.Context, userID string, message string) error {
	if len(message) < model.FeedbackMin || len(message) > model.FeedbackMax {
		return apperrors.Validation(fmt.Sprintf("Feedback must be %d-%d characters.", model.FeedbackMin, model.FeedbackMax))
	}
	if _, err := s.feedbackRepo.Create(ctx, userID, message); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

func (s *UserService) RecentFeedback(ctx context.Context, limit int) ([]model.Feedback, error) {
	return s.feedbackRepo.ListRecent(ctx, limit)
}
