package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/competition-system/handlers"
	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Competition *handlers.CompetitionHandler
	Settings    *handlers.SettingsHandler
	Vote        *handlers.VoteHandler
	Payment     *handlers.PaymentHandler
	Ledger      *handlers.LedgerHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, jwtSecret string, allowedOrigins []string, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
	})

	router.Route("/competitions", func(r chi.Router) {
		r.Get("/", h.Competition.ListCompetitions)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Post("/", h.Competition.CreateCompetition)
		})

		r.Route("/{competitionID}", func(r chi.Router) {
			r.Get("/", h.Competition.GetCompetition)
			r.Get("/contestants", h.Competition.ListContestants)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.Authorize(models.RoleAdmin))
				r.Delete("/", h.Competition.DeleteCompetition)
				r.Patch("/status", h.Competition.UpdateStatus)
				r.With(chiMiddleware.Timeout(60*time.Second)).Post("/ledger/export", h.Ledger.ExportLedger)
				r.Delete("/ledger/exports/{exportName}", h.Ledger.DeleteLedgerExport)
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.Authorize(models.RoleAdmin, models.RoleHost))
				r.Get("/editability", h.Settings.GetEditability)
				r.Patch("/settings", h.Settings.UpdateSettings)
				r.Post("/contestants", h.Competition.AddContestant)
			})

			r.Route("/votes", func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/today", h.Vote.GetTodaysVote)
				r.Post("/free", h.Vote.SubmitFreeVote)
				r.Post("/payment-intents", h.Payment.CreatePaymentIntent)
				r.Post("/paid", h.Payment.ConfirmPaidVote)
			})
		})
	})

	router.Get("/ws/competitions/{competitionID}", h.WebSocket.ServeWs)
}
