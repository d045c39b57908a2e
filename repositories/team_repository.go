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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name conflict for this game")
	ErrTeamGameInvalid  = errors.New("team game conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByNameAndGame(ctx context.Context, name string, gameID int) (*models.Team, error)
	List(ctx context.Context, gameID *int, offset, limit int) ([]models.Team, error)
	Count(ctx context.Context, gameID *int) (int, error)
	Update(ctx context.Context, team *models.Team) error
	UpdateCaptain(ctx context.Context, exec SQLExecutor, teamID, captainID int) error
	Delete(ctx context.Context, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, name, tag, logo_url, game_id, captain_id, created_at, updated_at`

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (name, tag, logo_url, game_id, captain_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		team.Name,
		team.Tag,
		team.LogoURL,
		team.GameID,
		team.CaptainID,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "teams_game_id_name_key" {
					return ErrTeamNameConflict
				}
			case "23503":
				if pqErr.Constraint == "teams_game_id_fkey" {
					return ErrTeamGameInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.scanTeam(ctx, query, id)
}

func (r *postgresTeamRepository) GetByNameAndGame(ctx context.Context, name string, gameID int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE name = $1 AND game_id = $2`
	return r.scanTeam(ctx, query, name, gameID)
}

// List returns teams newest first, optionally filtered by game, with
// captain summary and member count populated.
func (r *postgresTeamRepository) List(ctx context.Context, gameID *int, offset, limit int) ([]models.Team, error) {
	query := `
		SELECT t.id, t.name, t.tag, t.logo_url, t.game_id, t.captain_id, t.created_at, t.updated_at,
			u.id, u.discord_username, u.discord_avatar,
			(SELECT COUNT(*) FROM team_members tm WHERE tm.team_id = t.id) AS member_count
		FROM teams t
		JOIN users u ON u.id = t.captain_id
		WHERE ($1::int IS NULL OR t.game_id = $1)
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, gameID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var team models.Team
		var captain models.UserSummary
		err := rows.Scan(
			&team.ID,
			&team.Name,
			&team.Tag,
			&team.LogoURL,
			&team.GameID,
			&team.CaptainID,
			&team.CreatedAt,
			&team.UpdatedAt,
			&captain.ID,
			&captain.DiscordUsername,
			&captain.DiscordAvatar,
			&team.MemberCount,
		)
		if err != nil {
			return nil, err
		}
		team.Captain = &captain
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

func (r *postgresTeamRepository) Count(ctx context.Context, gameID *int) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM teams WHERE ($1::int IS NULL OR game_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, gameID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return total, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	// game_id is immutable after creation.
	query := `
		UPDATE teams SET
			name = $1,
			tag = $2,
			logo_url = $3,
			updated_at = now()
		WHERE id = $4
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		team.Name,
		team.Tag,
		team.LogoURL,
		team.ID,
	).Scan(&team.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "teams_game_id_name_key" {
				return ErrTeamNameConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) UpdateCaptain(ctx context.Context, exec SQLExecutor, teamID, captainID int) error {
	query := `UPDATE teams SET captain_id = $1, updated_at = now() WHERE id = $2`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, captainID, teamID)
	if err != nil {
		return err
	}

	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	// Member rows cascade.
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *postgresTeamRepository) scanTeam(ctx context.Context, query string, args ...interface{}) (*models.Team, error) {
	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&team.ID,
		&team.Name,
		&team.Tag,
		&team.LogoURL,
		&team.GameID,
		&team.CaptainID,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}
