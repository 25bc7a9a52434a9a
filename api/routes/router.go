package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packdrop-engine/api/controllers"
	"github.com/angelmondragon/packdrop-engine/api/middleware"
	"github.com/angelmondragon/packdrop-engine/pkg/config"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

// NewRouter builds the worker's operations surface: probes, metrics and, outside
// production, a manual job trigger.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	checks map[string]controllers.Pinger,
	jobs controllers.JobRunner,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, checks))
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if jobs != nil && !cfg.App.IsProd() {
		r.Post("/jobs/{name}/run", controllers.RunJob(jobs, logg))
	}
	return r
}
