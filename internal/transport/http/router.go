// Package httptransport assembles the HTTP surface from the module handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "dlvery/internal/auth/handler"
	deliveryhandler "dlvery/internal/delivery/handler"
	inventoryhandler "dlvery/internal/inventory/handler"
	"dlvery/internal/platform/metrics"
	"dlvery/internal/platform/middleware"
	"dlvery/pkg/platform/httputil"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration

	Tokens      middleware.JWTValidator
	Revocations middleware.TokenRevocationChecker

	Auth       *authhandler.Handler
	Deliveries *deliveryhandler.Handler
	Inventory  *inventoryhandler.Handler

	HealthChecks map[string]HealthCheck
}

// NewRouter wires public and authenticated routes behind the shared middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)
		cfg.Auth.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Tokens, cfg.Revocations, cfg.Logger))
		cfg.Auth.RegisterAuthenticated(r)
		cfg.Deliveries.Register(r)
		cfg.Inventory.Register(r)
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "up"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":     overall,
			"components": components,
		})
	}
}
