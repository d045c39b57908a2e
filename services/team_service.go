package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/brackup/brackup-api/models"
	"github.com/brackup/brackup-api/repositories"
	"github.com/brackup/brackup-api/storage"
)

const (
	defaultTeamPageLimit = 20
	maxTeamPageLimit     = 100
)

type CreateTeamInput struct {
	Name    string  `json:"name"`
	Tag     *string `json:"tag"`
	LogoURL *string `json:"logo_url"`
	GameID  int     `json:"game_id"`

	// CreatorID is set by the handler from the authenticated user.
	CreatorID int `json:"-"`
}

type UpdateTeamInput struct {
	Name    *string `json:"name"`
	Tag     *string `json:"tag"`
	LogoURL *string `json:"logo_url"`
}

type TeamListResult struct {
	Teams      []models.Team `json:"teams"`
	Pagination Pagination    `json:"pagination"`
}

type TeamService interface {
	ListTeams(ctx context.Context, gameID *int, page, limit int) (*TeamListResult, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	UpdateTeamDetails(ctx context.Context, teamID int, input UpdateTeamInput, currentUserID int) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID, currentUserID int) error
	AddMember(ctx context.Context, teamID, userIDToAdd, currentUserID int) (*models.Team, error)
	RemoveMember(ctx context.Context, teamID, userIDToRemove, currentUserID int) error
	TransferCaptaincy(ctx context.Context, teamID, newCaptainID, currentUserID int) (*models.Team, error)
	UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error)
}

type teamService struct {
	tx              repositories.TxRunner
	teamRepo        repositories.TeamRepository
	memberRepo      repositories.MemberRepository
	gameRepo        repositories.GameRepository
	userRepo        repositories.UserRepository
	participantRepo repositories.ParticipantRepository
	uploader        storage.FileUploader
}

func NewTeamService(
	db *sql.DB,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	participantRepo repositories.ParticipantRepository,
	uploader storage.FileUploader,
) TeamService {
	return &teamService{
		tx:              repositories.NewTxRunner(db),
		teamRepo:        teamRepo,
		memberRepo:      memberRepo,
		gameRepo:        gameRepo,
		userRepo:        userRepo,
		participantRepo: participantRepo,
		uploader:        uploader,
	}
}

func (s *teamService) ListTeams(ctx context.Context, gameID *int, page, limit int) (*TeamListResult, error) {
	page, limit = normalizePaging(page, limit, defaultTeamPageLimit, maxTeamPageLimit)

	total, err := s.teamRepo.Count(ctx, gameID)
	if err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.List(ctx, gameID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	return &TeamListResult{
		Teams:      teams,
		Pagination: paginate(page, limit, total),
	}, nil
}

// GetTeamByID returns the team with its game, captain summary, ordered
// member list and tournament participation history.
func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, NotFound("team", id)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}

	game, err := s.gameRepo.GetByID(ctx, team.GameID)
	if err != nil && !errors.Is(err, repositories.ErrGameNotFound) {
		return nil, fmt.Errorf("failed to get game %d: %w", team.GameID, err)
	}
	team.Game = game

	captain, err := s.userRepo.GetByID(ctx, team.CaptainID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get captain %d: %w", team.CaptainID, err)
	}
	if captain != nil {
		summary := captain.Summary()
		team.Captain = &summary
	}

	members, err := s.memberRepo.ListByTeam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members for team %d: %w", id, err)
	}
	team.Members = members
	team.MemberCount = len(members)

	participants, err := s.participantRepo.ListByTeam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for team %d: %w", id, err)
	}
	team.Participants = participants

	return team, nil
}

// CreateTeam inserts the team row and the creator's CAPTAIN member row
// in one transaction: either both exist afterwards or neither does.
func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	if len(input.Name) < 2 || len(input.Name) > 100 {
		return nil, Validation("team name must be between 2 and 100 characters")
	}
	if input.Tag != nil && len(*input.Tag) > 10 {
		return nil, Validation("team tag must be at most 10 characters")
	}

	if _, err := s.gameRepo.GetByID(ctx, input.GameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, NotFound("game", input.GameID)
		}
		return nil, fmt.Errorf("failed to get game %d: %w", input.GameID, err)
	}

	// Friendly pre-check; teams_game_id_name_key is the backstop.
	if _, err := s.teamRepo.GetByNameAndGame(ctx, input.Name, input.GameID); err == nil {
		return nil, Conflict("team", "a team with this name already exists for this game")
	} else if !errors.Is(err, repositories.ErrTeamNotFound) {
		return nil, fmt.Errorf("failed to check team name: %w", err)
	}

	team := &models.Team{
		Name:      input.Name,
		Tag:       input.Tag,
		LogoURL:   input.LogoURL,
		GameID:    input.GameID,
		CaptainID: input.CreatorID,
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.teamRepo.Create(ctx, tx, team); err != nil {
			return err
		}
		member := &models.TeamMember{
			TeamID: team.ID,
			UserID: input.CreatorID,
			Role:   models.MemberRoleCaptain,
		}
		return s.memberRepo.Create(ctx, tx, member)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, Conflict("team", "a team with this name already exists for this game")
		}
		if errors.Is(err, repositories.ErrTeamGameInvalid) {
			return nil, NotFound("game", input.GameID)
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return s.GetTeamByID(ctx, team.ID)
}

func (s *teamService) UpdateTeamDetails(ctx context.Context, teamID int, input UpdateTeamInput, currentUserID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, NotFound("team", teamID)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, Forbidden("only the team captain can update the team")
	}

	if input.Name != nil {
		if len(*input.Name) < 2 || len(*input.Name) > 100 {
			return nil, Validation("team name must be between 2 and 100 characters")
		}
		team.Name = *input.Name
	}
	if input.Tag != nil {
		if len(*input.Tag) > 10 {
			return nil, Validation("team tag must be at most 10 characters")
		}
		team.Tag = input.Tag
	}
	if input.LogoURL != nil {
		team.LogoURL = input.LogoURL
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, Conflict("team", "a team with this name already exists for this game")
		}
		return nil, fmt.Errorf("failed to update team %d: %w", teamID, err)
	}

	return s.GetTeamByID(ctx, teamID)
}

func (s *teamService) DeleteTeam(ctx context.Context, teamID, currentUserID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return NotFound("team", teamID)
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return Forbidden("only the team captain can delete the team")
	}

	registrations, err := s.participantRepo.CountByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if registrations > 0 {
		return Conflict("team", "cannot delete team with tournament registrations")
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return NotFound("team", teamID)
		}
		return fmt.Errorf("failed to delete team %d: %w", teamID, err)
	}
	return nil
}

func (s *teamService) AddMember(ctx context.Context, teamID, userIDToAdd, currentUserID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, NotFound("team", teamID)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, Forbidden("only the team captain can add members")
	}

	game, err := s.gameRepo.GetByID(ctx, team.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", team.GameID, err)
	}

	memberCount, err := s.memberRepo.CountByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if memberCount >= game.TeamSize {
		return nil, Conflict("team", "team is full")
	}

	if _, err := s.memberRepo.GetByTeamAndUser(ctx, teamID, userIDToAdd); err == nil {
		return nil, Conflict("member", "user is already a member of this team")
	} else if !errors.Is(err, repositories.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.TeamMember{
		TeamID: teamID,
		UserID: userIDToAdd,
		Role:   models.MemberRoleMember,
	}
	if err := s.memberRepo.Create(ctx, nil, member); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMemberConflict):
			return nil, Conflict("member", "user is already a member of this team")
		case errors.Is(err, repositories.ErrMemberUserInvalid):
			return nil, NotFound("user", userIDToAdd)
		}
		return nil, fmt.Errorf("failed to add member %d to team %d: %w", userIDToAdd, teamID, err)
	}

	return s.GetTeamByID(ctx, teamID)
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, userIDToRemove, currentUserID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return NotFound("team", teamID)
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	// Self-removal is allowed; anyone else needs to be the captain.
	if team.CaptainID != currentUserID && userIDToRemove != currentUserID {
		return Forbidden("only the team captain or the member themselves can remove a member")
	}

	if team.CaptainID == userIDToRemove {
		return Conflict("member", "captain cannot be removed, transfer captaincy first")
	}

	if err := s.memberRepo.Delete(ctx, teamID, userIDToRemove); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return NotFound("member", userIDToRemove)
		}
		return fmt.Errorf("failed to remove member %d from team %d: %w", userIDToRemove, teamID, err)
	}
	return nil
}

// TransferCaptaincy moves the captain reference and swaps the two member
// roles in one transaction, so no observer ever sees two captains or
// none.
func (s *teamService) TransferCaptaincy(ctx context.Context, teamID, newCaptainID, currentUserID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, NotFound("team", teamID)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, Forbidden("only the current captain can transfer captaincy")
	}

	if _, err := s.memberRepo.GetByTeamAndUser(ctx, teamID, newCaptainID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, Conflict("member", "new captain must be a team member")
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	oldCaptainID := team.CaptainID

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.teamRepo.UpdateCaptain(ctx, tx, teamID, newCaptainID); err != nil {
			return err
		}
		if err := s.memberRepo.UpdateRole(ctx, tx, teamID, oldCaptainID, models.MemberRoleMember); err != nil {
			return err
		}
		return s.memberRepo.UpdateRole(ctx, tx, teamID, newCaptainID, models.MemberRoleCaptain)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transfer captaincy of team %d: %w", teamID, err)
	}

	return s.GetTeamByID(ctx, teamID)
}

func (s *teamService) UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, Validation("file uploads are not configured")
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, NotFound("team", teamID)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, Forbidden("only the team captain can update the team")
	}

	key := buildFileKey("teams", team.ID, contentType)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for team %d: %w", teamID, err)
	}

	team.LogoURL = &result.Location
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to store logo url for team %d: %w", teamID, err)
	}

	return s.GetTeamByID(ctx, teamID)
}
