package models

import "time"

// Tournaments and matches are referenced read models: this service never
// creates them, but participation history and user stats read them.

type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "UPCOMING"
	TournamentStatusActive    TournamentStatus = "ACTIVE"
	TournamentStatusCompleted TournamentStatus = "COMPLETED"
	TournamentStatusCancelled TournamentStatus = "CANCELLED"
)

type TournamentSummary struct {
	ID               int              `json:"id"`
	Name             string           `json:"name"`
	Status           TournamentStatus `json:"status"`
	StartDate        *time.Time       `json:"start_date,omitempty"`
	MaxParticipants  *int             `json:"max_participants,omitempty"`
	ParticipantCount int              `json:"participant_count"`
}

type TournamentParticipant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	UserID       *int      `json:"user_id,omitempty"`
	TeamID       *int      `json:"team_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	Tournament *TournamentSummary `json:"tournament,omitempty"`
}
