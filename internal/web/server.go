// Package web is the admin HTTP API for managing fleet device
// configurations.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/gatasproject/gatas-server/internal/auth"
	"github.com/gatasproject/gatas-server/pkg/model"
)

// Store is the slice of the datastore the admin API needs.
type Store interface {
	GetFleetConfig(ctx context.Context, gatasID uint32) (model.FleetConfig, bool, error)
	SetNewICAOAddress(ctx context.Context, gatasID, newAddr uint32) error
	FleetConfigsNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]model.FleetConfig, error)
}

// Config tunes the admin server.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string

	// RequestsPerSecond caps the whole API. Burst is twice the rate.
	RequestsPerSecond float64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		RequestsPerSecond: 10,
	}
}

// Server is the admin API. A nil auth service leaves the API open,
// which is only meant for development setups.
type Server struct {
	cfg     Config
	store   Store
	authSvc *auth.Service
	router  *chi.Mux
	limiter *rate.Limiter
}

// New creates the admin server and wires its routes.
func New(cfg Config, store Store, authSvc *auth.Service) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		authSvc: authSvc,
		router:  chi.NewRouter(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond*2)),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.rateLimitMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/config", func(r chi.Router) {
		r.Post("/pinCode", s.handlePinCode)
		r.Get("/aircraftConfiguration/{gatasId}", s.handleAircraftConfiguration)

		r.Group(func(r chi.Router) {
			r.Use(s.deviceAuthMiddleware)
			r.Post("/changeAircraft", s.handleChangeAircraft)
		})
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const claimsKey contextKey = "deviceClaims"

// deviceAuthMiddleware requires a bearer token issued by the pin code
// exchange. With auth disabled it passes everything through.
func (s *Server) deviceAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authSvc == nil {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if len(header) < 8 || header[:7] != "Bearer " {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := s.authSvc.ValidateToken(header[7:])
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorizedDevice returns the device a request's token is bound to.
// The second return is false when auth is disabled.
func authorizedDevice(ctx context.Context) (uint32, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return 0, false
	}
	return claims.GatasID, true
}
