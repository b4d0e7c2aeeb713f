package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/api/response"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GatewayProbe reports whether the analysis gateway answers.
type GatewayProbe interface {
	HealthCheck(ctx context.Context) bool
}

type healthView struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// NewHealthHandler returns GET /api/v1/health. The database is required; an unreachable
// cache only degrades the service. A nil cache reports "disabled".
func NewHealthHandler(db, ca Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := healthView{Status: "ok", Database: probe(r.Context(), db), Cache: "disabled"}
		if ca != nil {
			v.Cache = probe(r.Context(), ca)
		}

		status := http.StatusOK
		switch {
		case v.Database != "ok":
			v.Status = "unavailable"
			status = http.StatusServiceUnavailable
		case v.Cache == "unavailable":
			v.Status = "degraded"
		}
		response.Status(w, status, v)
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "unavailable"
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

type gatewayHealthView struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewGatewayHealthHandler returns GET /api/v1/gateway/health.
func NewGatewayHealthHandler(gw GatewayProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := gatewayHealthView{Healthy: gw.HealthCheck(r.Context()), CheckedAt: time.Now().UTC()}
		status := http.StatusOK
		if !v.Healthy {
			status = http.StatusServiceUnavailable
		}
		response.Status(w, status, v)
	}
}
