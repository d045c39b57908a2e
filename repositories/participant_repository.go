package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brackup/brackup-api/models"
)

// ParticipantRepository reads tournament participation. Registrations are
// written by the tournament service, not this one; here they gate team
// and user deletion and feed history and stats.
type ParticipantRepository interface {
	ListByTeam(ctx context.Context, teamID int) ([]models.TournamentParticipant, error)
	ListByUser(ctx context.Context, userID int) ([]models.TournamentParticipant, error)
	CountByTeam(ctx context.Context, teamID int) (int, error)
	CountByUser(ctx context.Context, userID int) (int, error)
	CountWinsByUser(ctx context.Context, userID int) (int, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

const participantQuery = `
	SELECT tp.id, tp.tournament_id, tp.user_id, tp.team_id, tp.status, tp.created_at,
		tr.id, tr.name, tr.status, tr.start_date, tr.max_participants,
		(SELECT COUNT(*) FROM tournament_participants p2 WHERE p2.tournament_id = tr.id) AS participant_count
	FROM tournament_participants tp
	JOIN tournaments tr ON tr.id = tp.tournament_id`

func (r *postgresParticipantRepository) ListByTeam(ctx context.Context, teamID int) ([]models.TournamentParticipant, error) {
	query := participantQuery + `
	WHERE tp.team_id = $1
	ORDER BY tp.created_at DESC`
	return r.listParticipants(ctx, query, teamID)
}

func (r *postgresParticipantRepository) ListByUser(ctx context.Context, userID int) ([]models.TournamentParticipant, error) {
	query := participantQuery + `
	WHERE tp.user_id = $1
	ORDER BY tp.created_at DESC`
	return r.listParticipants(ctx, query, userID)
}

func (r *postgresParticipantRepository) CountByTeam(ctx context.Context, teamID int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE team_id = $1`, teamID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations for team %d: %w", teamID, err)
	}
	return total, nil
}

func (r *postgresParticipantRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations for user %d: %w", userID, err)
	}
	return total, nil
}

// CountWinsByUser counts match rows whose winner is one of the user's
// participation entries.
func (r *postgresParticipantRepository) CountWinsByUser(ctx context.Context, userID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM matches m
		WHERE m.winner_id IN (
			SELECT tp.id FROM tournament_participants tp WHERE tp.user_id = $1
		)`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count wins for user %d: %w", userID, err)
	}
	return total, nil
}

func (r *postgresParticipantRepository) listParticipants(ctx context.Context, query string, args ...interface{}) ([]models.TournamentParticipant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.TournamentParticipant, 0)
	for rows.Next() {
		var p models.TournamentParticipant
		var t models.TournamentSummary
		err := rows.Scan(
			&p.ID,
			&p.TournamentID,
			&p.UserID,
			&p.TeamID,
			&p.Status,
			&p.CreatedAt,
			&t.ID,
			&t.Name,
			&t.Status,
			&t.StartDate,
			&t.MaxParticipants,
			&t.ParticipantCount,
		)
		if err != nil {
			return nil, err
		}
		p.Tournament = &t
		participants = append(participants, p)
	}

	return participants, rows.Err()
}
