package models

import "time"

type MemberRole string

const (
	MemberRoleCaptain MemberRole = "CAPTAIN"
	MemberRoleMember  MemberRole = "MEMBER"
)

type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Tag       *string   `json:"tag,omitempty"`
	LogoURL   *string   `json:"logo_url,omitempty"`
	GameID    int       `json:"game_id"`
	CaptainID int       `json:"captain_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Game         *Game                   `json:"game,omitempty"`
	Captain      *UserSummary            `json:"captain,omitempty"`
	Members      []TeamMember            `json:"members,omitempty"`
	Participants []TournamentParticipant `json:"tournament_participants,omitempty"`
	MemberCount  int                     `json:"member_count,omitempty"`
}

type TeamMember struct {
	ID       int        `json:"id"`
	TeamID   int        `json:"team_id"`
	UserID   int        `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`

	User *UserSummary `json:"user,omitempty"`
	Team *Team        `json:"team,omitempty"`
}

// TeamSummary is the trimmed representation embedded in game payloads.
type TeamSummary struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Tag         *string `json:"tag,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
	MemberCount int     `json:"member_count"`
}
