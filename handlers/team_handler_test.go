package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brackup/brackup-api/middleware"
	"github.com/brackup/brackup-api/models"
	"github.com/brackup/brackup-api/services"
)

type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) ListTeams(ctx context.Context, gameID *int, page, limit int) (*services.TeamListResult, error) {
	args := m.Called(ctx, gameID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TeamListResult), args.Error(1)
}

func (m *MockTeamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) CreateTeam(ctx context.Context, input services.CreateTeamInput) (*models.Team, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) UpdateTeamDetails(ctx context.Context, teamID int, input services.UpdateTeamInput, currentUserID int) (*models.Team, error) {
	args := m.Called(ctx, teamID, input, currentUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) DeleteTeam(ctx context.Context, teamID, currentUserID int) error {
	args := m.Called(ctx, teamID, currentUserID)
	return args.Error(0)
}

func (m *MockTeamService) AddMember(ctx context.Context, teamID, userIDToAdd, currentUserID int) (*models.Team, error) {
	args := m.Called(ctx, teamID, userIDToAdd, currentUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) RemoveMember(ctx context.Context, teamID, userIDToRemove, currentUserID int) error {
	args := m.Called(ctx, teamID, userIDToRemove, currentUserID)
	return args.Error(0)
}

func (m *MockTeamService) TransferCaptaincy(ctx context.Context, teamID, newCaptainID, currentUserID int) (*models.Team, error) {
	args := m.Called(ctx, teamID, newCaptainID, currentUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error) {
	args := m.Called(ctx, teamID, currentUserID, contentType, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func newTeamTestRouter(svc services.TeamService) *chi.Mux {
	h := NewTeamHandler(svc)
	router := chi.NewRouter()
	router.Get("/api/teams", h.ListTeams)
	router.Get("/api/teams/{teamID}", h.GetTeamByID)
	router.Post("/api/teams", h.CreateTeam)
	router.Post("/api/teams/{teamID}/members", h.AddMember)
	router.Delete("/api/teams/{teamID}/members/{userID}", h.RemoveMember)
	router.Patch("/api/teams/{teamID}/captain", h.TransferCaptaincy)
	return router
}

func authenticated(req *http.Request, userID int, role string) *http.Request {
	claims := jwt.MapClaims{"user_id": float64(userID), "role": role}
	return req.WithContext(middleware.ContextWithClaims(req.Context(), claims))
}

func TestTeamHandler_ListTeams(t *testing.T) {
	t.Run("returns the paged envelope", func(t *testing.T) {
		svc := new(MockTeamService)
		svc.On("ListTeams", mock.Anything, (*int)(nil), 1, 20).Return(&services.TeamListResult{
			Teams:      []models.Team{{ID: 42, Name: "Night Owls"}},
			Pagination: services.Pagination{Page: 1, Limit: 20, Total: 1, TotalPages: 1},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Teams      []models.Team       `json:"teams"`
			Pagination services.Pagination `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Teams, 1)
		assert.Equal(t, 1, body.Pagination.TotalPages)
	})

	t.Run("passes the game filter through", func(t *testing.T) {
		svc := new(MockTeamService)
		svc.On("ListTeams", mock.Anything, mock.MatchedBy(func(gameID *int) bool {
			return gameID != nil && *gameID == 3
		}), 2, 10).Return(&services.TeamListResult{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/teams?gameId=3&page=2&limit=10", nil)
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects a non-numeric page", func(t *testing.T) {
		svc := new(MockTeamService)

		req := httptest.NewRequest(http.MethodGet, "/api/teams?page=abc", nil)
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTeamHandler_CreateTeam(t *testing.T) {
	t.Run("sets the creator from the token and returns 201", func(t *testing.T) {
		svc := new(MockTeamService)
		svc.On("CreateTeam", mock.Anything, mock.MatchedBy(func(input services.CreateTeamInput) bool {
			return input.Name == "Night Owls" && input.GameID == 3 && input.CreatorID == 7
		})).Return(&models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}, nil)

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/teams",
			strings.NewReader(`{"name":"Night Owls","game_id":3}`)), 7, "PLAYER")
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("a body trying to spoof the creator is rejected", func(t *testing.T) {
		svc := new(MockTeamService)

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/teams",
			strings.NewReader(`{"name":"Night Owls","game_id":3,"CreatorID":99}`)), 7, "PLAYER")
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateTeam", mock.Anything, mock.Anything)
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		svc := new(MockTeamService)

		req := httptest.NewRequest(http.MethodPost, "/api/teams",
			strings.NewReader(`{"name":"Night Owls","game_id":3}`))
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTeamHandler_AddMember(t *testing.T) {
	t.Run("forwards ids and returns the roster", func(t *testing.T) {
		svc := new(MockTeamService)
		svc.On("AddMember", mock.Anything, 42, 8, 7).
			Return(&models.Team{ID: 42, MemberCount: 2}, nil)

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/teams/42/members",
			strings.NewReader(`{"user_id":8}`)), 7, "PLAYER")
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("full team conflict surfaces as 409", func(t *testing.T) {
		svc := new(MockTeamService)
		svc.On("AddMember", mock.Anything, 42, 8, 7).
			Return(nil, services.Conflict("team", "team is full"))

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/teams/42/members",
			strings.NewReader(`{"user_id":8}`)), 7, "PLAYER")
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing user_id is a bad request", func(t *testing.T) {
		svc := new(MockTeamService)

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/teams/42/members",
			strings.NewReader(`{}`)), 7, "PLAYER")
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTeamHandler_RemoveMember(t *testing.T) {
	svc := new(MockTeamService)
	svc.On("RemoveMember", mock.Anything, 42, 8, 7).Return(nil)

	req := authenticated(httptest.NewRequest(http.MethodDelete, "/api/teams/42/members/8", nil), 7, "PLAYER")
	rec := httptest.NewRecorder()
	newTeamTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestTeamHandler_TransferCaptaincy(t *testing.T) {
	svc := new(MockTeamService)
	svc.On("TransferCaptaincy", mock.Anything, 42, 8, 7).
		Return(&models.Team{ID: 42, CaptainID: 8}, nil)

	req := authenticated(httptest.NewRequest(http.MethodPatch, "/api/teams/42/captain",
		strings.NewReader(`{"new_captain_id":8}`)), 7, "PLAYER")
	rec := httptest.NewRecorder()
	newTeamTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Team models.Team `json:"team"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 8, body.Team.CaptainID)
}

func TestTeamHandler_GetTeamByID(t *testing.T) {
	t.Run("invalid id is a bad request", func(t *testing.T) {
		svc := new(MockTeamService)

		req := httptest.NewRequest(http.MethodGet, "/api/teams/abc", nil)
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown team is 404", func(t *testing.T) {
		svc := new(MockTeamService)
		svc.On("GetTeamByID", mock.Anything, 42).Return(nil, services.NotFound("team", 42))

		req := httptest.NewRequest(http.MethodGet, "/api/teams/42", nil)
		rec := httptest.NewRecorder()
		newTeamTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
