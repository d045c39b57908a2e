package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brackup/brackup-api/models"
	"github.com/brackup/brackup-api/oauth"
	"github.com/brackup/brackup-api/repositories"
)

type AuthService interface {
	// LoginURL builds the identity provider's authorize URL for the
	// given state token.
	LoginURL(state string) string

	// HandleCallback exchanges the authorization code and upserts the
	// user: created on first sight, profile and last_login refreshed on
	// every subsequent one.
	HandleCallback(ctx context.Context, code string) (*models.User, error)

	// GetCurrentUser resolves the authenticated user's profile.
	GetCurrentUser(ctx context.Context, userID int) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	provider oauth.Provider
}

func NewAuthService(userRepo repositories.UserRepository, provider oauth.Provider) AuthService {
	return &authService{
		userRepo: userRepo,
		provider: provider,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

func (s *authService) HandleCallback(ctx context.Context, code string) (*models.User, error) {
	profile, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("identity provider exchange failed: %w", err)
	}

	now := time.Now()

	user, err := s.userRepo.GetByDiscordID(ctx, profile.ID)
	switch {
	case err == nil:
		applyProfile(user, profile)
		user.LastLogin = &now
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to refresh user %d: %w", user.ID, err)
		}
		return user, nil

	case errors.Is(err, repositories.ErrUserNotFound):
		user = &models.User{
			DiscordID: profile.ID,
			Role:      models.RolePlayer,
			LastLogin: &now,
		}
		applyProfile(user, profile)
		if err := s.userRepo.Create(ctx, user); err != nil {
			// Lost a race against another first login of the same account.
			if errors.Is(err, repositories.ErrUserDiscordConflict) {
				return s.userRepo.GetByDiscordID(ctx, profile.ID)
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return user, nil

	default:
		return nil, fmt.Errorf("failed to look up discord id: %w", err)
	}
}

func (s *authService) GetCurrentUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", userID)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return user, nil
}

func applyProfile(user *models.User, profile *oauth.Profile) {
	user.DiscordUsername = profile.Username
	user.DiscordDiscriminator = optional(profile.Discriminator)
	user.DiscordAvatar = optional(profile.Avatar)
	user.Email = optional(profile.Email)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
