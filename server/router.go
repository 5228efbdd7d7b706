// Package server exposes the operational HTTP surface of dualfs: health,
// the backend's capability table and Prometheus metrics.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/config"
	"github.com/ebogdum/dualfs/core"
	"github.com/ebogdum/dualfs/metrics"
	mw "github.com/ebogdum/dualfs/server/middleware"
)

// OperationCapability is one row of the capability table
type OperationCapability struct {
	Name     string   `json:"name"`
	Inputs   []string `json:"inputs"`
	Blocking bool     `json:"blocking"`
	Callback bool     `json:"callback"`
}

// Capabilities describes which calling conventions a backend implements
type Capabilities struct {
	Backend    string                `json:"backend"`
	Operations []OperationCapability `json:"operations"`
}

// CapabilitiesOf builds the capability table for the dispatcher's backend
func CapabilitiesOf(d *core.Dispatcher) Capabilities {
	caps := Capabilities{Backend: d.Backend().Name()}
	for _, op := range backends.Operations() {
		caps.Operations = append(caps.Operations, OperationCapability{
			Name:     op.Name,
			Inputs:   op.Inputs,
			Blocking: d.Supports(op.Op, backends.ModeBlocking),
			Callback: d.Supports(op.Op, backends.ModeCallback),
		})
	}
	return caps
}

// NewRouter creates and configures the HTTP router
func NewRouter(d *core.Dispatcher, cfg config.MetricsConfig, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(mw.V1RequestIDMiddleware())
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(mw.V1SecurityHeaders())
	r.Use(mw.V1RateLimitMiddleware(mw.NewClientLimiter(cfg.RateLimit, cfg.RateBurst), logger))

	// Custom logging and metrics middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := routePattern(r)

			metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				route,
				http.StatusText(ww.Status()),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method,
				route,
			).Observe(duration.Seconds())

			requestID, _ := mw.GetRequestID(r.Context())
			logger.Debug("HTTP request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", duration),
				zap.String("remote_addr", r.RemoteAddr))
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{
			"status":  "ok",
			"backend": d.Backend().Name(),
		})
	})

	r.Get("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, CapabilitiesOf(d))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// routePattern returns the matched route so unknown paths do not create
// unbounded metric label values
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Log error but don't change response since headers are already written
		logger.Error("Failed to write response", zap.Error(err))
	}
}
