package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/config"
	"github.com/velocity-platform/console/internal/logger"
	"github.com/velocity-platform/console/internal/middleware"
	"github.com/velocity-platform/console/internal/ui/auth"
	"github.com/velocity-platform/console/internal/ui/handlers"
)

const (
	// ServerShutdownTimeout is the timeout for graceful server shutdown
	ServerShutdownTimeout = 10 * time.Second
)

type Server struct {
	router    *chi.Mux
	config    *config.UI
	logger    *slog.Logger
	apiClient *apiclient.Client
}

// New creates the UI server. The API client is shared; each request derives its own
// session-bound copy.
func New(cfg *config.UI, logger *slog.Logger, apiClient *apiclient.Client) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		apiClient: apiClient,
	}

	s.setupMiddleware()
	s.RegisterRoutes(s.router)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) RegisterRoutes(router chi.Router) {
	handlerService := &handlers.HandlerService{
		APIClient:   s.apiClient,
		Environment: s.config.Environment,
	}

	router.Get("/health/live", handlerService.HandleLive)
	router.Get("/health/api", handlerService.HandleAPIHealth)

	// Public routes (no auth required)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequestSizeLimit(console.DefaultAPIRequestSize))

		r.Get("/login", handlerService.HandleLogin)
		r.With(middleware.RateLimit(s.config.LoginRateLimit, s.config.LoginRateBurst)).
			Post("/login", handlerService.HandleLoginPost)
		r.Get("/register", handlerService.HandleRegister)
		r.Post("/register", handlerService.HandleRegisterPost)

		// redirects to dashboard if authenticated, login if not
		r.Get("/", handlerService.HandleHome)
	})

	// Protected routes (require a session)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequestSizeLimit(console.DefaultAPIRequestSize))
		r.Use(auth.RequireAuth)

		r.Post("/logout", handlerService.HandleLogout)
		r.Get("/dashboard", handlerService.HandleDashboard)
		r.Get("/profile", handlerService.HandleProfile)
		r.Post("/profile", handlerService.HandleProfilePost)
		r.Post("/session/refresh", handlerService.HandleRefreshSession)
	})
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(60 * time.Second))
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("UI server listening",
			slog.String("address", addr),
			slog.String("api", s.apiClient.BaseURL()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down UI server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server forced to shutdown", slog.String("error", err.Error()))
			return err
		}
	}

	return nil
}
