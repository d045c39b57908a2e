// Package oauth implements the Discord authorization-code flow the
// platform uses for sign-in.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	discordAuthURL  = "https://discord.com/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
	discordUserURL  = "https://discord.com/api/users/@me"

	stateTokenLength = 16 // bytes, 32 hex characters
)

// Profile is the subset of the Discord account this platform cares about.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email"`
}

// Provider exchanges authorization codes for Discord profiles.
type Provider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

type discordProvider struct {
	config *oauth2.Config
}

func NewDiscordProvider(clientID, clientSecret, redirectURL string) Provider {
	return &discordProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  discordAuthURL,
				TokenURL: discordTokenURL,
			},
		},
	}
}

func (p *discordProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *discordProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(discordUserURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("discord profile request returned %d: %s", resp.StatusCode, body)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode discord profile: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("discord profile is missing an id")
	}

	return &profile, nil
}

// GenerateState returns a random token binding the authorize redirect to
// its callback.
func GenerateState() (string, error) {
	bytes := make([]byte, stateTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
