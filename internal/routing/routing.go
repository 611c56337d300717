// Package routing wires handlers, middleware, and telemetry into the HTTP
// router.
package routing

import (
	"net/http"

	"vigil/internal/handlers"
	"vigil/internal/identity"
	"vigil/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Identity *identity.Service
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Cross-origin protection for all state-changing routes
	cop := http.NewCrossOriginProtection()

	// Health and metrics (no auth)
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Dashboard read API
	mux.HandleFunc("GET /api/me", h.HandleMe)
	mux.HandleFunc("GET /api/profile/{user}", h.HandleProfile)
	mux.HandleFunc("GET /api/notifications", h.HandleNotifications)
	mux.HandleFunc("GET /api/stats", h.HandleStats)

	// Moderation routes
	mux.HandleFunc("GET /mod/audit", h.HandleAudit)
	mux.Handle("POST /mod/action", cop.Handler(http.HandlerFunc(h.HandleModAction)))
	mux.Handle("POST /mod/adjust-score", cop.Handler(http.HandlerFunc(h.HandleAdjustScore)))
	mux.Handle("POST /mod/note", cop.Handler(http.HandlerFunc(h.HandleAddNote)))

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs first on request)
	handler = middleware.LimitBodyMiddleware(handler)

	// 2. Resolve admin identity into the request context
	handler = cfg.Identity.AuthMiddleware(handler)

	// 3. Apply rate limiting
	rateLimitConfig := middleware.NewDefaultRateLimitConfig()
	handler = middleware.RateLimitMiddleware(rateLimitConfig)(handler)

	// 4. Apply security headers
	handler = middleware.SecurityHeadersMiddleware(handler)

	// 5. Apply logging middleware (outermost - wraps everything)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	// Trace spans cover the whole middleware chain
	return otelhttp.NewHandler(handler, "vigil.http")
}
