package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/brackup/brackup-api/models"
	"github.com/brackup/brackup-api/repositories"
	"github.com/brackup/brackup-api/utils"
	"golang.org/x/sync/errgroup"
)

const (
	defaultUserPageLimit = 50
	maxUserPageLimit     = 100
)

type UpdateUserInput struct {
	DiscordUsername *string `json:"discord_username"`
	Email           *string `json:"email"`
}

type UserListResult struct {
	Users      []models.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

type UserService interface {
	ListUsers(ctx context.Context, page, limit int) (*UserListResult, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UpdateUser(ctx context.Context, id int, input UpdateUserInput) (*models.User, error)
	UpdateUserRole(ctx context.Context, id int, role models.UserRole) (*models.User, error)
	DeleteUser(ctx context.Context, id int) error
	GetUserStats(ctx context.Context, id int) (*models.UserStats, error)
}

type userService struct {
	userRepo        repositories.UserRepository
	teamRepo        repositories.TeamRepository
	memberRepo      repositories.MemberRepository
	participantRepo repositories.ParticipantRepository
}

func NewUserService(
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	participantRepo repositories.ParticipantRepository,
) UserService {
	return &userService{
		userRepo:        userRepo,
		teamRepo:        teamRepo,
		memberRepo:      memberRepo,
		participantRepo: participantRepo,
	}
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) (*UserListResult, error) {
	page, limit = normalizePaging(page, limit, defaultUserPageLimit, maxUserPageLimit)

	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResult{
		Users:      users,
		Pagination: paginate(page, limit, total),
	}, nil
}

// GetUserByID returns the profile with captained teams, memberships and
// tournament participation history.
func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	memberships, err := s.memberRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user %d: %w", id, err)
	}
	user.Memberships = memberships

	// Captained teams are the subset of memberships where the user holds
	// the CAPTAIN role; resolve them with their rosters.
	captainTeams := make([]models.Team, 0)
	for _, m := range memberships {
		if m.Role != models.MemberRoleCaptain || m.Team == nil {
			continue
		}
		team := *m.Team
		members, err := s.memberRepo.ListByTeam(ctx, team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list members for team %d: %w", team.ID, err)
		}
		team.Members = members
		team.MemberCount = len(members)
		captainTeams = append(captainTeams, team)
	}
	user.CaptainTeams = captainTeams

	participants, err := s.participantRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for user %d: %w", id, err)
	}
	user.Tournaments = participants

	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id int, input UpdateUserInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	if input.DiscordUsername != nil {
		if len(*input.DiscordUsername) < 2 || len(*input.DiscordUsername) > 100 {
			return nil, Validation("username must be between 2 and 100 characters")
		}
		user.DiscordUsername = *input.DiscordUsername
	}
	if input.Email != nil {
		if *input.Email != "" && !utils.IsValidEmail(*input.Email) {
			return nil, Validation("invalid email address")
		}
		user.Email = input.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return user, nil
}

func (s *userService) UpdateUserRole(ctx context.Context, id int, role models.UserRole) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, Validation(fmt.Sprintf("invalid role %q", role))
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	if err := s.userRepo.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to update role for user %d: %w", id, err)
	}

	user.Role = role
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id int) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return NotFound("user", id)
		}
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

// GetUserStats gathers the three counters concurrently. The "won" count
// is match rows whose winner is one of the user's participation entries.
func (s *userService) GetUserStats(ctx context.Context, id int) (*models.UserStats, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	stats := &models.UserStats{}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.participantRepo.CountByUser(groupCtx, id)
		stats.TournamentsParticipated = count
		return err
	})
	g.Go(func() error {
		count, err := s.participantRepo.CountWinsByUser(groupCtx, id)
		stats.TournamentsWon = count
		return err
	})
	g.Go(func() error {
		count, err := s.memberRepo.CountByUser(groupCtx, id)
		stats.TeamsCount = count
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to gather stats for user %d: %w", id, err)
	}
	return stats, nil
}
