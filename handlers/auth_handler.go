package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/brackup/brackup-api/middleware"
	"github.com/brackup/brackup-api/oauth"
	"github.com/brackup/brackup-api/services"
	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenTTL        = 7 * 24 * time.Hour
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

type AuthHandler struct {
	authService   services.AuthService
	authenticator *middleware.Authenticator
	jwtSecret     []byte
	clientURL     string
}

func NewAuthHandler(authService services.AuthService, authenticator *middleware.Authenticator, jwtSecret, clientURL string) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		authenticator: authenticator,
		jwtSecret:     []byte(jwtSecret),
		clientURL:     clientURL,
	}
}

// DiscordLogin godoc
// @Summary Start the Discord sign-in flow
// @Tags auth
// @Success 302
// @Router /auth/discord [get]
func (h *AuthHandler) DiscordLogin(w http.ResponseWriter, r *http.Request) {
	state, err := oauth.GenerateState()
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.authService.LoginURL(state), http.StatusFound)
}

// DiscordCallback godoc
// @Summary Discord OAuth callback
// @Tags auth
// @Description Exchanges the authorization code, upserts the user and redirects to the client with a bearer token.
// @Success 302
// @Router /auth/discord/callback [get]
func (h *AuthHandler) DiscordCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Redirect(w, r, "/auth/failure", http.StatusFound)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		http.Redirect(w, r, "/auth/failure", http.StatusFound)
		return
	}

	// Consume the state cookie regardless of outcome.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	user, err := h.authService.HandleCallback(r.Context(), code)
	if err != nil {
		http.Redirect(w, r, "/auth/failure", http.StatusFound)
		return
	}

	tokenString, err := h.signToken(user.ID, string(user.Role), user.DiscordUsername)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s/auth/success?token=%s", h.clientURL, url.QueryEscape(tokenString)), http.StatusFound)
}

// GetCurrentUser godoc
// @Summary Current authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	user, err := h.authService.GetCurrentUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Logout godoc
// @Summary Log out
// @Tags auth
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; the client discards its copy.
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "Logged out successfully"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// VerifyToken godoc
// @Summary Validate a bearer token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/verify [post]
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	tokenString, err := middleware.ExtractBearerToken(r)
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, jsonResponse{"valid": false, "error": "no token provided"})
		return
	}

	claims, err := h.authenticator.ParseToken(tokenString)
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, jsonResponse{"valid": false, "error": "invalid token"})
		return
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		errorResponse(w, r, http.StatusUnauthorized, jsonResponse{"valid": false, "error": "invalid token"})
		return
	}

	user, err := h.authService.GetCurrentUser(r.Context(), int(userIDFloat))
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, jsonResponse{"valid": false, "error": "user not found"})
		return
	}

	response := jsonResponse{
		"valid": true,
		"user":  user.Summary(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Failure godoc
// @Summary OAuth failure landing
// @Tags auth
// @Failure 401 {object} map[string]string
// @Router /auth/failure [get]
func (h *AuthHandler) Failure(w http.ResponseWriter, r *http.Request) {
	unauthorizedResponse(w, r, "authentication failed")
}

func (h *AuthHandler) signToken(userID int, role, name string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"name":    name,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
