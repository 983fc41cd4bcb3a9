package middleware

import (
	"fmt"
	"net/http"

	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/pkg/ratelimit"
)

// RateLimit, verilen limiter ile IP bazlı istek sınırlaması uygular.
// Limit aşılırsa 429 + Retry-After döner.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ratelimit.ExtractIP(r)
			if !limiter.Allow(ip) {
				retry := limiter.RetryAfterSeconds(ip)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
				pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
