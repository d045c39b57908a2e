package models

import "time"

type Game struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	IconURL     *string   `json:"icon_url,omitempty"`
	TeamSize    int       `json:"team_size"`
	IsActive    bool      `json:"is_active"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Teams       []TeamSummary       `json:"teams,omitempty"`
	Tournaments []TournamentSummary `json:"tournaments,omitempty"`
}
