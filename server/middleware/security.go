package middleware

import (
	"net/http"
)

// V1SecurityHeaders adds security headers suited to a JSON and metrics API
// that never serves documents
func V1SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			// health and capability answers change with the backend
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
