package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/observability"
	"github.com/boddenberg/mfi-statements-bfa/internal/port"
	"github.com/boddenberg/mfi-statements-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const probeTimeout = 2 * time.Second

// Probe is a named dependency checked by /healthz.
type Probe struct {
	Name    string
	Checker port.HealthChecker
}

// NewRouter creates the HTTP router with all routes and middleware.
// auth may be nil, in which case /v1 routes are open.
func NewRouter(reports *service.ReportService, probes []Probe, auth *TokenValidator, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(probes, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if auth != nil {
			r.Use(JWTAuthMiddleware(auth, logger))
		}

		// =============================================
		// Officers and daily reports
		// =============================================
		r.Get("/officers/{officerId}/collections", officerCollectionsHandler(reports, logger))
		r.Get("/reports/daily", dailyDigestHandler(reports, logger))
		r.Get("/metrics/reports", reportMetricsHandler(metrics))

		// =============================================
		// Loan and saving accounts
		// kind = loans | savings
		// =============================================
		r.Route("/{kind}/{accountId}", func(r chi.Router) {
			r.Get("/summary", accountSummaryHandler(reports, logger))
			r.Get("/collections", listCollectionsHandler(reports, logger))
			r.Get("/collections/report", collectionReportHandler(reports, logger))
			r.Get("/statement", statementHandler(reports, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(probes []Probe, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		for _, p := range probes {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			start := time.Now()
			err := p.Checker.Ping(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health probe failed", zap.String("dependency", p.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: p.Name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func reportMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
