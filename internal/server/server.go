package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/countries-api-service/internal/config"
	"github.com/countries-api-service/internal/countries"
	"github.com/countries-api-service/internal/handler"
	"github.com/countries-api-service/internal/middleware"
	"github.com/countries-api-service/internal/service"
	"github.com/countries-api-service/internal/store"
	"github.com/countries-api-service/internal/token"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Auth      *service.AuthService
	Keys      *service.APIKeyService
	Tokens    *token.Manager
	Countries *countries.Client
	Usage     store.UsageStore
	DB        handler.Pinger
	Version   string
}

// Server is the top-level HTTP server. It owns the chi router and the
// graceful shutdown lifecycle.
type Server struct {
	cfg        *config.Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New wires up all routes and middleware and returns a server ready to
// listen.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	corsOrigins := s.cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireJSON)
	r.Use(middleware.Metrics)

	r.Get("/health", handler.NewHealthHandler(s.deps.DB, s.deps.Version).ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	limiter := middleware.NewAuthAttemptLimiter(
		s.cfg.AuthMaxFailures, s.cfg.AuthFailureWindow, s.cfg.AuthBlockDuration)

	authHandler := handler.NewAuthHandler(s.deps.Auth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	keyHandler := handler.NewAPIKeyHandler(s.deps.Keys)
	r.Route("/user", func(r chi.Router) {
		r.Use(middleware.SessionAuth(s.deps.Tokens, limiter))

		r.Get("/profile", handler.NewProfileHandler(s.deps.Auth).ServeHTTP)
		r.Get("/api-keys", keyHandler.List)
		r.Post("/api-keys", keyHandler.Create)
		r.Delete("/api-keys/{id}", keyHandler.Revoke)
		r.Post("/api-keys/{id}/extend", keyHandler.Extend)
		r.Get("/api-keys/{id}/usage", keyHandler.Usage)
	})

	countriesHandler := handler.NewCountriesHandler(s.deps.Countries)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/docs", handler.NewDocsHandler().ServeHTTP)

		r.Route("/countries", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(s.deps.Keys, s.deps.Usage, limiter))

			r.Get("/", countriesHandler.List)
			r.Get("/{name}", countriesHandler.ByName)
			r.Get("/currency/{code}", countriesHandler.ByCurrency)
			r.Get("/language/{code}", countriesHandler.ByLanguage)
			r.Get("/region/{region}", countriesHandler.ByRegion)
		})
	})

	s.router = r
}

// ListenAndServe starts the server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
