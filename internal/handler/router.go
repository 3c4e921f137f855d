package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds what NewRouter needs besides the handler.
type RouterConfig struct {
	SchedulerToken string
	AllowedOrigins []string
}

// NewRouter wires every route onto a chi router.
func NewRouter(h *TournamentHandler, cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Get("/leaderboard", h.Leaderboard)
				r.Get("/results", h.Results)
				r.Get("/entries/{wallet}", h.Entry)
				r.Post("/join", h.Join)
			})
		})
		r.Post("/rounds", h.RecordRound)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(SchedulerAuthMiddleware(cfg.SchedulerToken))
		r.Post("/tick", h.Tick)
		r.Post("/finalize", h.FinalizeOverdue)
		r.Post("/tournaments/{id}/finalize", h.Finalize)
	})

	r.Get("/ws/tournaments/{id}", h.Live)

	return r
}
