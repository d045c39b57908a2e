package models

import "time"

type UserRole string

const (
	RolePlayer    UserRole = "PLAYER"
	RoleModerator UserRole = "MODERATOR"
	RoleAdmin     UserRole = "ADMIN"
)

// ValidRole reports whether the given role is one of the recognized values.
func ValidRole(role UserRole) bool {
	switch role {
	case RolePlayer, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                   int        `json:"id"`
	DiscordID            string     `json:"discord_id"`
	DiscordUsername      string     `json:"discord_username"`
	DiscordDiscriminator *string    `json:"discord_discriminator,omitempty"`
	DiscordAvatar        *string    `json:"discord_avatar,omitempty"`
	Email                *string    `json:"email,omitempty"`
	Role                 UserRole   `json:"role"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	LastLogin            *time.Time `json:"last_login,omitempty"`

	CaptainTeams []Team                  `json:"captain_teams,omitempty"`
	Memberships  []TeamMember            `json:"team_memberships,omitempty"`
	Tournaments  []TournamentParticipant `json:"tournament_participants,omitempty"`
}

// UserSummary is the trimmed representation embedded in team and
// membership payloads.
type UserSummary struct {
	ID              int     `json:"id"`
	DiscordUsername string  `json:"discord_username"`
	DiscordAvatar   *string `json:"discord_avatar,omitempty"`
}

// Summary returns the embeddable view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:              u.ID,
		DiscordUsername: u.DiscordUsername,
		DiscordAvatar:   u.DiscordAvatar,
	}
}

// UserStats holds the derived per-user counters.
type UserStats struct {
	TournamentsParticipated int `json:"tournaments_participated"`
	TournamentsWon          int `json:"tournaments_won"`
	TeamsCount              int `json:"teams_count"`
}
