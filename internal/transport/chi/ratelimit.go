package chi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/domain"
	"github.com/kailas-cloud/khoj/internal/metrics"
)

// Limiter counts requests per key within a fixed window (repository/ratelimit.Limiter).
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// rateLimitExemptPaths bypass the limiter (probes and scrapes).
var rateLimitExemptPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RateLimitMiddleware rejects clients exceeding limit requests per window with 429.
// Clients are keyed by IP. A limiter failure lets the request through.
// Disabled (pass-through) when limiter is nil or limit <= 0.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rateLimitExemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("ip", ip),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RateLimitRejectedTotal.Inc()
				if r.URL.Path == "/search" {
					metrics.SearchRequestsTotal.WithLabelValues("rate_limited").Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, ErrorCodeRateLimited, domain.ErrRateLimited.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware, when mounted
// in front, has already replaced RemoteAddr with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
