package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/logging"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/repositories"
)

// UserService defines the interface for current-user operations.
type UserService interface {
	// Me returns the caller's stored profile. A caller that has never
	// persisted anything gets the profile carried by the session.
	Me(ctx context.Context) (*models.User, error)
	// SignOut deletes the database session identified by sessionToken.
	// An empty token is a no-op.
	SignOut(ctx context.Context, sessionToken string) error
}

// userService implements UserService.
type userService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	logger      *zap.Logger
}

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, sessionRepo repositories.SessionRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

func (s *userService) Me(ctx context.Context) (*models.User, error) {
	sessionUser, ok := auth.GetSessionUser(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, sessionUser.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return sessionUser.ToUser(), nil
		}
		s.logger.Error("Failed to load current user",
			zap.String("user_id", sessionUser.ID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.Classify("user.me", err)
	}
	return user, nil
}

func (s *userService) SignOut(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	if err := s.sessionRepo.Delete(ctx, sessionToken); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Error("Failed to delete session",
			zap.String("error", logging.SanitizeError(err)))
		return apperrors.Classify("user.signout", err)
	}
	return nil
}
