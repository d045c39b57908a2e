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
	ErrMemberNotFound    = errors.New("team member not found")
	ErrMemberConflict    = errors.New("user is already a member of this team")
	ErrMemberUserInvalid = errors.New("member user conflict or invalid")
)

type MemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error
	GetByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMember, error)
	ListByTeam(ctx context.Context, teamID int) ([]models.TeamMember, error)
	ListByUser(ctx context.Context, userID int) ([]models.TeamMember, error)
	CountByTeam(ctx context.Context, teamID int) (int, error)
	CountByUser(ctx context.Context, userID int) (int, error)
	UpdateRole(ctx context.Context, exec SQLExecutor, teamID, userID int, role models.MemberRole) error
	Delete(ctx context.Context, teamID, userID int) error
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMemberRepository) Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		member.TeamID,
		member.UserID,
		member.Role,
	).Scan(&member.ID, &member.JoinedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "team_members_team_id_user_id_key" {
					return ErrMemberConflict
				}
			case "23503":
				if pqErr.Constraint == "team_members_user_id_fkey" {
					return ErrMemberUserInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresMemberRepository) GetByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2`

	member := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&member.ID,
		&member.TeamID,
		&member.UserID,
		&member.Role,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// ListByTeam returns a team's members with user summaries, captain first,
// then by join time.
func (r *postgresMemberRepository) ListByTeam(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
			u.id, u.discord_username, u.discord_avatar
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.role ASC, tm.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var member models.TeamMember
		var user models.UserSummary
		err := rows.Scan(
			&member.ID,
			&member.TeamID,
			&member.UserID,
			&member.Role,
			&member.JoinedAt,
			&user.ID,
			&user.DiscordUsername,
			&user.DiscordAvatar,
		)
		if err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}

	return members, rows.Err()
}

// ListByUser returns a user's memberships with the team and its game populated.
func (r *postgresMemberRepository) ListByUser(ctx context.Context, userID int) ([]models.TeamMember, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
			t.id, t.name, t.tag, t.logo_url, t.game_id, t.captain_id, t.created_at, t.updated_at,
			g.id, g.name, g.slug, g.icon_url, g.team_size, g.is_active, g.description, g.created_at, g.updated_at
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		JOIN games g ON g.id = t.game_id
		WHERE tm.user_id = $1
		ORDER BY tm.joined_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]models.TeamMember, 0)
	for rows.Next() {
		var member models.TeamMember
		var team models.Team
		var game models.Game
		err := rows.Scan(
			&member.ID,
			&member.TeamID,
			&member.UserID,
			&member.Role,
			&member.JoinedAt,
			&team.ID,
			&team.Name,
			&team.Tag,
			&team.LogoURL,
			&team.GameID,
			&team.CaptainID,
			&team.CreatedAt,
			&team.UpdatedAt,
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
		if err != nil {
			return nil, err
		}
		team.Game = &game
		member.Team = &team
		memberships = append(memberships, member)
	}

	return memberships, rows.Err()
}

func (r *postgresMemberRepository) CountByTeam(ctx context.Context, teamID int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count members for team %d: %w", teamID, err)
	}
	return total, nil
}

func (r *postgresMemberRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_members WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships for user %d: %w", userID, err)
	}
	return total, nil
}

func (r *postgresMemberRepository) UpdateRole(ctx context.Context, exec SQLExecutor, teamID, userID int, role models.MemberRole) error {
	query := `UPDATE team_members SET role = $1 WHERE team_id = $2 AND user_id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, role, teamID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *postgresMemberRepository) Delete(ctx context.Context, teamID, userID int) error {
	query := `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}
