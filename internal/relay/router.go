package relay

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"daygen/internal/infra"
	"daygen/internal/infra/geoip"
	"daygen/internal/middleware"
)

// NewRouter assembles the relay's middleware chain and routes.
func NewRouter(app *App, cfg *infra.Config, geo geoip.CountryResolver) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Logger(app.Logger, geo),
		middleware.CORS(cfg.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		r.Post("/v1/generate", app.Generate)
		r.Get("/v1/jobs/{job_id}", app.JobStatus)
		r.Get("/v1/video/status/{operation}", app.VideoStatus)
	})

	return r
}
