package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/brackup/brackup-api/handlers"
	"github.com/brackup/brackup-api/middleware"
	"github.com/brackup/brackup-api/models"
)

type Handlers struct {
	Auth *handlers.AuthHandler
	Game *handlers.GameHandler
	Team *handlers.TeamHandler
	User *handlers.UserHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator, clientURL string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{clientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Brackup API","version":"1.0","status":"ok"}`))
	})

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/auth", func(r chi.Router) {
		r.Get("/discord", h.Auth.DiscordLogin)
		r.Get("/discord/callback", h.Auth.DiscordCallback)
		r.Post("/verify", h.Auth.VerifyToken)
		r.Get("/failure", h.Auth.Failure)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Get("/me", h.Auth.GetCurrentUser)
			r.Post("/logout", h.Auth.Logout)
		})
	})

	router.Route("/api/games", func(r chi.Router) {
		r.Get("/", h.Game.ListGames)
		r.Get("/{gameID}", h.Game.GetGameByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.RequireRole(models.RoleAdmin))

			r.Post("/", h.Game.CreateGame)
			r.Put("/{gameID}", h.Game.UpdateGame)
			r.Delete("/{gameID}", h.Game.DeleteGame)
			r.Patch("/{gameID}/toggle-status", h.Game.ToggleGameStatus)
			r.Post("/{gameID}/icon", h.Game.UploadIcon)
		})
	})

	router.Route("/api/teams", func(r chi.Router) {
		r.Get("/", h.Team.ListTeams)
		r.Get("/{teamID}", h.Team.GetTeamByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/", h.Team.CreateTeam)
			r.Put("/{teamID}", h.Team.UpdateTeam)
			r.Delete("/{teamID}", h.Team.DeleteTeam)
			r.Post("/{teamID}/members", h.Team.AddMember)
			r.Delete("/{teamID}/members/{userID}", h.Team.RemoveMember)
			r.Patch("/{teamID}/captain", h.Team.TransferCaptaincy)
			r.Post("/{teamID}/logo", h.Team.UploadLogo)
		})
	})

	router.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Get("/me", h.User.GetMe)
			r.Get("/{userID}", h.User.GetUserByID)
			r.Get("/{userID}/stats", h.User.GetUserStats)
			r.Put("/{userID}", h.User.UpdateUser)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))

				r.Get("/", h.User.ListUsers)
				r.Patch("/{userID}/role", h.User.UpdateUserRole)
				r.Delete("/{userID}", h.User.DeleteUser)
			})
		})
	})

	return router
}
