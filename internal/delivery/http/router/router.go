package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/delivery/http/handler"
	"github.com/user/seo-snapshot-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireOwner)

		r.Post("/scans", h.HandleScan)

		r.Route("/websites", func(r chi.Router) {
			r.Get("/", h.HandleListWebsites)
			r.Post("/", h.HandleCreateWebsite)

			r.Route("/{websiteID}", func(r chi.Router) {
				r.Get("/", h.HandleGetWebsite)
				r.Delete("/", h.HandleDeactivateWebsite)
				r.Get("/snapshots", h.HandleListSnapshots)
				r.Post("/snapshots", h.HandleStartSnapshot)
				r.Get("/comparisons", h.HandleListComparisons)
				r.Post("/comparisons", h.HandleCompare)
				r.Get("/comparisons/summary", h.HandleComparisonSummary)
				r.Get("/competitive-analysis", h.HandleCompetitiveAnalysis)
			})
		})

		r.Route("/snapshots/{snapshotID}", func(r chi.Router) {
			r.Get("/", h.HandleGetSnapshot)
			r.Get("/status", h.HandleGetSnapshotStatus)
			r.Get("/pages", h.HandleListPages)
			r.Get("/failures", h.HandleListFailures)
		})

		r.Get("/comparisons/{comparisonID}", h.HandleGetComparison)
	})

	return r
}
