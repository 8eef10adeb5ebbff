package routes

import (
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/cors"

	"fileconv/limiter"
	"fileconv/logger"
	"fileconv/metrics"
	"fileconv/models"
)

// corsHandler lets browsers on the configured origins call the API. Any
// header is allowed for those origins; other origins get no CORS headers.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		// the library reads an empty list as "*"
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
}

// clientIP is the peer address of the connection, without the port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rateLimit(l limiter.Limiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, err := l.Allow(r.Context(), ip)
			if err != nil {
				// limiter backend down: serve the request rather than fail it
				logger.Warnf("Rate limiter unavailable for %s: %v", ip, err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.RateLimited.Inc()
				logger.Infof("Rate limit exceeded for %s on %s", ip, r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
					Detail: fmt.Sprintf("Rate limit exceeded: %d per 1 minute", perMinute),
					Reason: reasonRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
