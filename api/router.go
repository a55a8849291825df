// Package api exposes the operator HTTP and gRPC surfaces and mounts the
// websocket endpoint.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"darkest-dnd-server/auth"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/server"
)

// Options configures the router.
type Options struct {
	// TrustProxy takes the client address from X-Forwarded-For and friends.
	// Admin admission is keyed by that address, so only enable it behind a
	// proxy that sets the headers.
	TrustProxy bool
	// AdminTokenSecret, when set, requires a bearer admin token on
	// mutating operator routes.
	AdminTokenSecret string
}

// NewRouter builds the root router: /ws for peers and /v1 for operators.
func NewRouter(hub *server.Hub, opts Options) chi.Router {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger.Log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.HandleFunc("/ws", hub.HandleConnections)

	mh := NewMetricsHandler(hub)
	wh := NewWorldHandler(hub)
	r.Route("/v1", func(sub chi.Router) {
		// Health
		sub.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if !hub.Running() {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		mh.Routes(sub)
		wh.Routes(sub, bearerAdmin(opts.AdminTokenSecret))
	})

	return r
}

// bearerAdmin checks an "Authorization: Bearer" admin token. An empty
// secret lets every request through.
func bearerAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			h := r.Header.Get("Authorization")
			if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
				errorJSON(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if _, err := auth.Verify(secret, h[len(prefix):]); err != nil {
				errorJSON(w, http.StatusForbidden, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
