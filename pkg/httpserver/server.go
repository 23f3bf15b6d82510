// Package httpserver holds the HTTP plumbing shared by the service binaries:
// middleware, JWT auth, JSON envelopes, health and metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tair/commerce-core/pkg/logger"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouteRegistrar adds routes to a router
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter builds a router with middlewares, the given routes, /health and /metrics.
// The returned handler is wrapped with CORS.
func NewRouter(config *MiddlewareConfig, db Pinger, registrars ...RouteRegistrar) http.Handler {
	router := mux.NewRouter()
	RegisterMiddlewares(router, config)

	for _, r := range registrars {
		r.RegisterRoutes(router)
	}

	RegisterHealthCheck(router, db)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return SetupCORS(config)(router)
}

// RegisterHealthCheck registers the health check endpoint
func RegisterHealthCheck(router *mux.Router, db Pinger) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				RespondError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		RespondData(w, http.StatusOK, "healthy", nil)
	}).Methods(http.MethodGet)
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().
			Str("addr", srv.Addr).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
