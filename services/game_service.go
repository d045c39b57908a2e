package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brackup/brackup-api/models"
	"github.com/brackup/brackup-api/repositories"
	"github.com/brackup/brackup-api/storage"
	"github.com/brackup/brackup-api/utils"
)

const recentTeamsLimit = 10

type CreateGameInput struct {
	Name        string  `json:"name"`
	TeamSize    int     `json:"team_size"`
	IconURL     *string `json:"icon_url"`
	Description *string `json:"description"`
}

type UpdateGameInput struct {
	Name        *string `json:"name"`
	TeamSize    *int    `json:"team_size"`
	IconURL     *string `json:"icon_url"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type GameService interface {
	ListGames(ctx context.Context) ([]models.Game, error)
	GetGameByID(ctx context.Context, id int) (*models.Game, error)
	CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error)
	UpdateGame(ctx context.Context, id int, input UpdateGameInput) (*models.Game, error)
	DeleteGame(ctx context.Context, id int) error
	ToggleGameStatus(ctx context.Context, id int) (*models.Game, error)
	UploadIcon(ctx context.Context, id int, contentType string, file io.Reader) (*models.Game, error)
}

type gameService struct {
	gameRepo repositories.GameRepository
	uploader storage.FileUploader
}

func NewGameService(gameRepo repositories.GameRepository, uploader storage.FileUploader) GameService {
	return &gameService{
		gameRepo: gameRepo,
		uploader: uploader,
	}
}

func (s *gameService) ListGames(ctx context.Context) ([]models.Game, error) {
	games, err := s.gameRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *gameService) GetGameByID(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, NotFound("game", id)
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}

	teams, err := s.gameRepo.ListRecentTeams(ctx, id, recentTeamsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for game %d: %w", id, err)
	}
	game.Teams = teams

	tournaments, err := s.gameRepo.ListTournaments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments for game %d: %w", id, err)
	}
	game.Tournaments = tournaments

	return game, nil
}

func (s *gameService) CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error) {
	if err := validateGameName(input.Name); err != nil {
		return nil, err
	}
	if err := validateTeamSize(input.TeamSize); err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}

	slug := utils.Slugify(input.Name)
	if slug == "" {
		return nil, Validation("game name must contain at least one alphanumeric character")
	}

	// Friendly pre-check; the unique constraint on slug is the backstop
	// against racing creates.
	if _, err := s.gameRepo.GetBySlug(ctx, slug); err == nil {
		return nil, Conflict("game", "a game with this name already exists")
	} else if !errors.Is(err, repositories.ErrGameNotFound) {
		return nil, fmt.Errorf("failed to check slug %q: %w", slug, err)
	}

	game := &models.Game{
		Name:        input.Name,
		Slug:        slug,
		IconURL:     input.IconURL,
		TeamSize:    input.TeamSize,
		IsActive:    true,
		Description: input.Description,
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameSlugConflict) {
			return nil, Conflict("game", "a game with this name already exists")
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return game, nil
}

func (s *gameService) UpdateGame(ctx context.Context, id int, input UpdateGameInput) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, NotFound("game", id)
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}

	if input.Name != nil {
		if err := validateGameName(*input.Name); err != nil {
			return nil, err
		}
		// Slug stays as derived at creation time.
		game.Name = *input.Name
	}
	if input.TeamSize != nil {
		if err := validateTeamSize(*input.TeamSize); err != nil {
			return nil, err
		}
		game.TeamSize = *input.TeamSize
	}
	if input.IconURL != nil {
		game.IconURL = input.IconURL
	}
	if input.Description != nil {
		if err := validateDescription(input.Description); err != nil {
			return nil, err
		}
		game.Description = input.Description
	}
	if input.IsActive != nil {
		game.IsActive = *input.IsActive
	}

	if err := s.gameRepo.Update(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, NotFound("game", id)
		}
		return nil, fmt.Errorf("failed to update game %d: %w", id, err)
	}

	return game, nil
}

func (s *gameService) DeleteGame(ctx context.Context, id int) error {
	if _, err := s.gameRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return NotFound("game", id)
		}
		return fmt.Errorf("failed to get game %d: %w", id, err)
	}

	teamCount, err := s.gameRepo.CountTeams(ctx, id)
	if err != nil {
		return err
	}
	tournamentCount, err := s.gameRepo.CountTournaments(ctx, id)
	if err != nil {
		return err
	}
	if teamCount > 0 || tournamentCount > 0 {
		return Conflict("game", "cannot delete game with existing teams or tournaments")
	}

	if err := s.gameRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return NotFound("game", id)
		}
		return fmt.Errorf("failed to delete game %d: %w", id, err)
	}
	return nil
}

func (s *gameService) ToggleGameStatus(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, NotFound("game", id)
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}

	game.IsActive = !game.IsActive

	if err := s.gameRepo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to toggle game %d: %w", id, err)
	}
	return game, nil
}

func (s *gameService) UploadIcon(ctx context.Context, id int, contentType string, file io.Reader) (*models.Game, error) {
	if s.uploader == nil {
		return nil, Validation("file uploads are not configured")
	}

	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, NotFound("game", id)
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}

	key := buildFileKey("games", game.ID, contentType)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload icon for game %d: %w", id, err)
	}

	game.IconURL = &result.Location
	if err := s.gameRepo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to store icon url for game %d: %w", id, err)
	}
	return game, nil
}

func validateGameName(name string) error {
	if len(name) < 2 || len(name) > 100 {
		return Validation("game name must be between 2 and 100 characters")
	}
	return nil
}

func validateTeamSize(size int) error {
	if size < 1 || size > 10 {
		return Validation("team size must be between 1 and 10")
	}
	return nil
}

func validateDescription(description *string) error {
	if description != nil && len(*description) > 1000 {
		return Validation("description must be at most 1000 characters")
	}
	return nil
}
