// Package httptransport assembles the HTTP shell. Handlers are thin: they
// decode, delegate to domain services, and translate coded errors. Business
// logic never lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercato/internal/platform/metrics"
	"mercato/internal/platform/middleware"
)

// Registrar is implemented by feature handlers that attach their routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports dependency health for /healthz.
type HealthChecker func() error

// NewRouter wires the middleware stack, operational endpoints, and every
// feature handler.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, health HealthChecker, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(m))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				logger.WarnContext(req.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
