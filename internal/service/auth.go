package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/auth"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/repository"
)

// AuthService turns a verified provider profile into a local user.
//
//	AuthHandler (HTTP) → AuthService (find or create) → UserRepository (DB)
//	                   ↘ SessionManager (session + cookie token)
type AuthService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, logger: logger}
}

// LoginOrRegister finds the user for profile's subject, creating it on
// first login. Existing users are returned as stored; their profile fields
// are not refreshed.
//
// FIRST USER IS ADMIN:
// The repository decides the admin flag atomically with the insert. If two
// callbacks for the same new account race, the loser sees a conflict and
// re-reads the row the winner created.
func (s *AuthService) LoginOrRegister(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	if profile == nil || profile.Subject == "" {
		return nil, apperror.ValidationFailed("profile", "provider profile has no subject")
	}

	user, err := s.users.GetUserByGoogleID(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up user (googleID=%s): %w", profile.Subject, err)
	}

	user = &model.User{
		GoogleID: profile.Subject,
		Name:     profile.Name,
		Email:    profile.Email,
		Avatar:   profile.Picture,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			existing, getErr := s.users.GetUserByGoogleID(ctx, profile.Subject)
			if getErr != nil {
				return nil, fmt.Errorf("re-reading user after conflict (googleID=%s): %w", profile.Subject, getErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("creating user (googleID=%s): %w", profile.Subject, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
		slog.Bool("admin", user.IsAdmin),
	)
	return user, nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return user, nil
}
