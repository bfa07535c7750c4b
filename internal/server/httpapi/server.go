// Package httpapi is the REST transport: a chi router exposing the session
// and cart endpoints, plus health and metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/logging"
	"github.com/dmitrijs2005/cartkeeper/internal/server/auth"
	"github.com/dmitrijs2005/cartkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	"github.com/dmitrijs2005/cartkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 16 << 10

const shutdownTimeout = 5 * time.Second

// SessionService is the part of services.UserService the handlers use.
type SessionService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	GetCurrentUser(ctx context.Context, id string) (*models.User, error)
}

// CartService is the part of services.CartService the handlers use.
type CartService interface {
	AddToCart(ctx context.Context, in services.AddToCartInput) (*models.Cart, error)
	History(ctx context.Context, userID string) ([]*models.Cart, error)
}

// AccessVerifier validates access tokens for requireAuth.
type AccessVerifier interface {
	VerifyAccess(token string) (*auth.AccessClaims, error)
}

// HealthCheck reports whether dependencies are reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	Address     string
	CORSOrigins []string
	Production  bool
}

type Server struct {
	address     string
	corsOrigins []string
	production  bool
	logger      logging.Logger
	users       SessionService
	carts       CartService
	tokens      AccessVerifier
	metrics     *metrics.Metrics
	health      HealthCheck
}

func NewServer(opts Options, l logging.Logger, us SessionService, cs CartService, tv AccessVerifier, m *metrics.Metrics, hc HealthCheck) *Server {
	return &Server{
		address:     opts.Address,
		corsOrigins: opts.CORSOrigins,
		production:  opts.Production,
		logger:      l.With("module", "http_server"),
		users:       us,
		carts:       cs,
		tokens:      tv,
		metrics:     m,
		health:      hc,
	}
}

// Router builds the handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.With(s.requireAuth).Post("/logout", s.handleLogout)
		r.Get("/{id}", s.handleGetUser)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Post("/add", s.handleAddToCart)
		r.Get("/{userId}/history", s.handleHistory)
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
