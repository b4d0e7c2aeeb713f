package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/ALEXSANDER2002/aritana/internal/api/middleware"
	"github.com/ALEXSANDER2002/aritana/internal/api/response"
	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit
	Metrics   *telemetry.Provider
	// TrustProxy reads the client address from forwarding headers. Only set it behind a
	// proxy that overwrites them, or clients can pick their own rate-limit key.
	TrustProxy bool

	HealthHandler        http.HandlerFunc
	GatewayHealthHandler http.HandlerFunc
	UploadHandler        http.HandlerFunc
	ListJobsHandler      http.HandlerFunc
	JobStatusHandler     http.HandlerFunc
	HistoryHandler       http.HandlerFunc
	StatsHandler         http.HandlerFunc
	RegionsHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger(deps.Metrics))
	r.Use(mw.Recovery)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.ClientKey)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Recurso não encontrado", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.CodeInvalidRequest, "Método não permitido", nil)
	})

	// Probes and metrics are never rate limited
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/gateway/health", orNotImplemented(deps.GatewayHealthHandler))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/uploads", orNotImplemented(deps.UploadHandler))
		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/{jobID}/status", orNotImplemented(deps.JobStatusHandler))
		r.Get("/api/v1/history", orNotImplemented(deps.HistoryHandler))
		r.Get("/api/v1/stats", orNotImplemented(deps.StatsHandler))
		r.Get("/api/v1/regions", orNotImplemented(deps.RegionsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
