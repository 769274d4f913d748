package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/vncsmyrnk/univote/docs"
	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type Handlers struct {
	Elections *ElectionHandler
	Votes     *VoteHandler
	Results   *ResultsHandler
	Voters    *VoterHandler
	Audit     *AuditHandler
}

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

// @title                       Univote API
// @version                     1.0
// @description                 University election API: elections, ballots and results.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func NewHandler(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(cfg.AllowedOrigins))

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	admin := RequireRole(domain.RoleAdmin)
	student := RequireRole(domain.RoleStudent)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.JWTSecret))

			r.Get("/me", h.Voters.GetMe)

			r.Route("/elections", func(r chi.Router) {
				r.Get("/", h.Elections.ListElections)
				r.With(admin).Post("/", h.Elections.CreateElection)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Elections.GetElection)
					r.With(admin).Put("/", h.Elections.UpdateElection)
					r.With(admin).Delete("/", h.Elections.DeleteElection)
					r.Get("/results", h.Results.GetResults)
					r.With(student).Post("/vote", h.Votes.SubmitVote)
					r.With(student).Get("/vote-status", h.Votes.VoteStatus)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(admin)

				r.Get("/users", h.Voters.ListVoters)
				r.Post("/users", h.Voters.CreateVoter)
				r.Get("/audit-logs", h.Audit.ListAuditLogs)

				r.Post("/elections/recompute-all-stats", h.Results.RecomputeAll)
				r.Get("/elections/{id}/results", h.Results.GetLiveResults)
				r.Post("/elections/{id}/recompute-stats", h.Results.Recompute)
				r.Get("/elections/{id}/export", h.Results.ExportResults)
			})
		})
	})

	return r
}

// corsHandler echoes allowed origins with credentials. An empty list allows
// any origin.
func corsHandler(allowed []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(allowed) == 0 {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	}
	return cors.Handler(opts)
}
