package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/deliverypulse/engine/internal/api/handlers"
	mw "github.com/deliverypulse/engine/internal/api/middleware"
)

type Dependencies struct {
	HealthHandler   *handlers.HealthHandler
	ImportsHandler  *handlers.ImportsHandler
	ProjectsHandler *handlers.ProjectsHandler
	ReportsHandler  *handlers.ReportsHandler

	// RateLimitRPS disables rate limiting when zero.
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}
	r.Use(chimid.Compress(5))

	// Health endpoints
	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/imports", func(ir chi.Router) {
			ir.Get("/", dep.ImportsHandler.List)
			ir.Post("/", dep.ImportsHandler.Upload)
			ir.Get("/{id}", dep.ImportsHandler.Get)
		})

		api.Route("/projects", func(pr chi.Router) {
			pr.Get("/search", dep.ProjectsHandler.Search)
			pr.Route("/{code}", func(p chi.Router) {
				p.Get("/state", dep.ProjectsHandler.State)
				p.Get("/details", dep.ProjectsHandler.Details)
				p.Get("/indicators", dep.ProjectsHandler.Indicators)
				p.Get("/series", dep.ProjectsHandler.Series)
				p.Get("/metrics/weekly", dep.ProjectsHandler.WeeklyMetrics)
				p.Get("/metrics/phases", dep.ProjectsHandler.PhaseHistory)
				p.Put("/assigned-hours/phase", dep.ProjectsHandler.SetPhaseHours)
				p.Put("/assigned-hours/role", dep.ProjectsHandler.SetRoleHours)
				p.Put("/comments", dep.ProjectsHandler.SetComment)
			})
		})

		api.Route("/reports", func(rr chi.Router) {
			rr.Get("/deviations", dep.ReportsHandler.Deviations)
			rr.Get("/filters", dep.ReportsHandler.Filters)
		})

		api.Get("/managers/{name}/projects", dep.ReportsHandler.ManagerProjects)
		api.Get("/historical", dep.ReportsHandler.Historical)
	})

	return r
}
