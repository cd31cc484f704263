package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/audit"
	"github.com/challengeclub/competition-server-go/internal/database"
	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/repository"
)

type PermissionService struct {
	db        database.TxRunner
	adminRepo repository.AdminRepository
	userRepo  repository.UserRepository
}

func NewPermissionService(
	db database.TxRunner,
	adminRepo repository.AdminRepository,
	userRepo repository.UserRepository,
) *PermissionService {
	return &PermissionService{
		db:        db,
		adminRepo: adminRepo,
		userRepo:  userRepo,
	}
}

func (s *PermissionService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	admin, err := s.adminRepo.Find(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("find admin: %w", err)
	}
	return admin != nil, nil
}

// RequireAdmin returns a FORBIDDEN error unless the user holds admin rights.
func (s *PermissionService) RequireAdmin(ctx context.Context, userID string) error {
	isAdmin, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperrors.Forbidden("That command is for admins only.")
	}
	return nil
}

// EnsureBootstrap promotes the given user to admin when no admin exists yet.
// The first user to interact with the bot becomes its permanent admin.
func (s *PermissionService) EnsureBootstrap(ctx context.Context, userID string) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		admins := s.adminRepo.WithTx(tx)

		count, err := admins.Count(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if count > 0 {
			return nil
		}
		if err := admins.Add(ctx, userID, nil); err != nil {
			return fmt.Errorf("add bootstrap admin: %w", err)
		}

		log.Info().Str("userId", userID).Msg("bootstrap admin created")
		audit.Log(ctx, audit.Event{Type: audit.EventBootstrapAdmin, TargetID: userID})
		return nil
	})
}

// AddAdmin grants admin rights to the user behind a registered username.
func (s *PermissionService) AddAdmin(ctx context.Context, actorID string, username string) (*model.User, error) {
	user, err := s.userRepo.FindByRegisteredUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("No registered user named %q.", username))
	}

	existing, err := s.adminRepo.Find(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.ErrCodeAlreadyExists, fmt.Sprintf("%s is already an admin.", username))
	}

	if err := s.adminRepo.Add(ctx, user.ID, &actorID); err != nil {
		return nil, fmt.Errorf("add admin: %w", err)
	}

	log.Info().
		Str("userId", user.ID).
		Str("addedBy", actorID).
		Msg("admin added")
	audit.Log(ctx, audit.Event{Type: audit.EventAdminAdd, ActorID: actorID, TargetID: user.ID})

	return user, nil
}

// RemoveAdmin revokes admin rights. The bootstrap admin and the last
// remaining admin can never be removed.
func (s *PermissionService) RemoveAdmin(ctx context.Context, actorID string, username string) (*model.User, error) {
	user, err := s.userRepo.FindByRegisteredUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("No registered user named %q.", username))
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		admins := s.adminRepo.WithTx(tx)

		target, err := admins.Find(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("find admin: %w", err)
		}
		if target == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("%s is not an admin.", username))
		}

		bootstrap, err := admins.FindBootstrap(ctx)
		if err != nil {
			return fmt.Errorf("find bootstrap admin: %w", err)
		}
		count, err := admins.Count(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if err := checkRemovable(user.ID, bootstrap, count); err != nil {
			return err
		}

		if _, err := admins.Remove(ctx, user.ID); err != nil {
			return fmt.Errorf("remove admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("userId", user.ID).
		Str("removedBy", actorID).
		Msg("admin removed")
	audit.Log(ctx, audit.Event{Type: audit.EventAdminRemove, ActorID: actorID, TargetID: user.ID})

	return user, nil
}

func (s *PermissionService) ListAdmins(ctx context.Context) ([]model.AdminListing, error) {
	return s.adminRepo.List(ctx)
}

// checkRemovable enforces the two standing rules: the bootstrap admin stays
// forever, and the group can never be left without any admin.
func checkRemovable(targetID string, bootstrap *model.Admin, count int) error {
	if bootstrap != nil && bootstrap.UserID == targetID {
		return apperrors.Forbidden("The original admin can't be removed.")
	}
	if count <= 1 {
		return apperrors.Forbidden("The last admin can't be removed.")
	}
	return nil
}
