package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brackup/brackup-api/models"
	"github.com/lib/pq"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrGameSlugConflict = errors.New("game slug conflict")
)

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id int) (*models.Game, error)
	GetBySlug(ctx context.Context, slug string) (*models.Game, error)
	ListActive(ctx context.Context) ([]models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id int) error
	CountTeams(ctx context.Context, gameID int) (int, error)
	CountTournaments(ctx context.Context, gameID int) (int, error)
	ListRecentTeams(ctx context.Context, gameID, limit int) ([]models.TeamSummary, error)
	ListTournaments(ctx context.Context, gameID int) ([]models.TournamentSummary, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

const gameColumns = `id, name, slug, icon_url, team_size, is_active, description, created_at, updated_at`

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (name, slug, icon_url, team_size, is_active, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		game.Name,
		game.Slug,
		game.IconURL,
		game.TeamSize,
		game.IsActive,
		game.Description,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "games_slug_key" {
				return ErrGameSlugConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	return r.scanGame(ctx, query, id)
}

func (r *postgresGameRepository) GetBySlug(ctx context.Context, slug string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE slug = $1`
	return r.scanGame(ctx, query, slug)
}

func (r *postgresGameRepository) ListActive(ctx context.Context) ([]models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE is_active = TRUE ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		var game models.Game
		if err := scanGameRow(rows, &game); err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

func (r *postgresGameRepository) Update(ctx context.Context, game *models.Game) error {
	// Slug is immutable after creation and deliberately absent here.
	query := `
		UPDATE games SET
			name = $1,
			icon_url = $2,
			team_size = $3,
			is_active = $4,
			description = $5,
			updated_at = now()
		WHERE id = $6
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		game.Name,
		game.IconURL,
		game.TeamSize,
		game.IsActive,
		game.Description,
		game.ID,
	).Scan(&game.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGameNotFound
		}
		return err
	}
	return nil
}

func (r *postgresGameRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (r *postgresGameRepository) CountTeams(ctx context.Context, gameID int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE game_id = $1`, gameID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams for game %d: %w", gameID, err)
	}
	return total, nil
}

func (r *postgresGameRepository) CountTournaments(ctx context.Context, gameID int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments WHERE game_id = $1`, gameID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count tournaments for game %d: %w", gameID, err)
	}
	return total, nil
}

// ListRecentTeams returns the newest teams of a game with member counts.
func (r *postgresGameRepository) ListRecentTeams(ctx context.Context, gameID, limit int) ([]models.TeamSummary, error) {
	query := `
		SELECT t.id, t.name, t.tag, t.logo_url,
			(SELECT COUNT(*) FROM team_members tm WHERE tm.team_id = t.id) AS member_count
		FROM teams t
		WHERE t.game_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.TeamSummary, 0)
	for rows.Next() {
		var team models.TeamSummary
		if err := rows.Scan(&team.ID, &team.Name, &team.Tag, &team.LogoURL, &team.MemberCount); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// ListTournaments returns a game's non-cancelled tournaments, newest first.
func (r *postgresGameRepository) ListTournaments(ctx context.Context, gameID int) ([]models.TournamentSummary, error) {
	query := `
		SELECT tr.id, tr.name, tr.status, tr.start_date, tr.max_participants,
			(SELECT COUNT(*) FROM tournament_participants tp WHERE tp.tournament_id = tr.id) AS participant_count
		FROM tournaments tr
		WHERE tr.game_id = $1 AND tr.status <> $2
		ORDER BY tr.start_date DESC NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, gameID, models.TournamentStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.TournamentSummary, 0)
	for rows.Next() {
		var t models.TournamentSummary
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.StartDate, &t.MaxParticipants, &t.ParticipantCount); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}

	return tournaments, rows.Err()
}

func (r *postgresGameRepository) scanGame(ctx context.Context, query string, args ...interface{}) (*models.Game, error) {
	game := &models.Game{}
	err := scanGameRow(r.db.QueryRowContext(ctx, query, args...), game)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

func scanGameRow(row rowScanner, game *models.Game) error {
	return row.Scan(
		&game.ID,
		&game.Name,
		&game.Slug,
		&game.IconURL,
		&game.TeamSize,
		&game.IsActive,
		&game.Description,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
}
