package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/api/response"
	"github.com/ALEXSANDER2002/aritana/internal/cache"
)

const defaultRequestsPerMinute = 120

const rateWindow = 60 * time.Second

// RateLimit counts requests per client in fixed one-minute windows kept in Redis.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
	now            func() time.Time
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin, now: time.Now}
}

// Limit rejects a client's requests beyond the per-minute budget. Requests without a
// client key, or made while Redis is unreachable, pass through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, ok := GetClientKey(r)
		if !ok || rl.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(client), rateWindow)
		if err != nil {
			slog.Warn("rate limit counter unavailable", "client", client, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(rateWindow).Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests,
				response.CodeRateLimited, "Muitas requisições. Aguarde um minuto.", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
