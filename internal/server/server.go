// Package server wires storage, services, handlers and middleware into one
// HTTP server and owns its lifecycle.
//
// This is the composition root: every dependency is constructed in New and
// handed down explicitly, so nothing below this package reads the
// environment or holds global state.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB ──┬─> services ──> handlers ──> routes
//	            └─> session store (or Redis) ──> auth.SessionManager ──> auth.Authenticate
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/recipe-share/internal/auth"
	"github.com/sakif/recipe-share/internal/config"
	"github.com/sakif/recipe-share/internal/handler"
	"github.com/sakif/recipe-share/internal/metrics"
	"github.com/sakif/recipe-share/internal/middleware"
	"github.com/sakif/recipe-share/internal/repository"
	redisRepo "github.com/sakif/recipe-share/internal/repository/redis"
	sqliteRepo "github.com/sakif/recipe-share/internal/repository/sqlite"
	"github.com/sakif/recipe-share/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

// Server owns the router and every resource that must be released on
// shutdown: the database and, when configured, the Redis client.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	closers []io.Closer

	provider auth.Provider
	metrics  *metrics.Metrics
	limiter  *middleware.RateLimiter
}

// Option customises New. Tests use it to swap the OAuth provider.
type Option func(*Server)

// WithProvider replaces the Google provider built from the config.
func WithProvider(p auth.Provider) Option {
	return func(s *Server) { s.provider = p }
}

// New opens storage and builds the full route tree.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.provider == nil {
		s.provider = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			CallbackURL:  cfg.Google.CallbackURL,
		})
	}

	store, err := s.sessionStore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	if err := s.setupRoutes(store); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// sessionStore picks the configured session backend. SQLite shares the
// main database; Redis lets several instances share logins.
func (s *Server) sessionStore(ctx context.Context) (repository.SessionRepository, error) {
	if s.config.Session.Store != config.StoreRedis {
		return s.db, nil
	}

	client, err := redisRepo.NewClient(ctx, s.config.Redis.Addr, s.config.Redis.Password, s.config.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s.closers = append(s.closers, client)
	s.logger.Info("using redis session store", slog.String("addr", s.config.Redis.Addr))
	return redisRepo.NewSessionStore(client), nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /health                         liveness
//	GET    /ready                          database reachable
//	GET    /metrics                        Prometheus exposition
//	GET    /auth/google                    start sign-in
//	GET    /auth/google/callback           finish sign-in
//	GET    /auth/user                      current user or 401
//	GET    /auth/logout                    end session
//	GET    /[api/]recipes                  list
//	GET    /[api/]recipes/featured         featured
//	GET    /[api/]recipes/{id}             one recipe
//	POST   /[api/]recipes                  create         (auth)
//	POST   /[api/]recipes/{id}/rate        rate           (auth)
//	GET    /[api/]admin/stats              dashboard      (admin)
//	PUT    /[api/]admin/recipes/{id}/feature               (admin)
//	GET    /api/chat/history               transcript     (auth)
//	POST   /api/chat/save                                 (auth)
//	DELETE /api/chat/clear                                (auth)
//	GET    /api/chat/summary               chat activity  (admin)
//
// MIDDLEWARE ORDER:
// Logger and Metrics sit outside Recoverer so a recovered panic is still
// logged and counted as a 500. CORS answers preflights before the rate
// limiter and identity lookup run. Logout skips the identity lookup.
func (s *Server) setupRoutes(store repository.SessionRepository) error {
	tokens, err := auth.NewTokenService(s.config.Session.Secret)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(store, tokens, s.config.Session.TTL, s.logger)

	authService := service.NewAuthService(s.db, s.logger)
	recipeService := service.NewRecipeService(s.db, s.logger)
	adminService := service.NewAdminService(s.db, s.db, s.logger)
	chatService := service.NewChatService(s.db, s.logger)

	opts := handler.Options{ExposeErrors: s.config.IsDevelopment()}
	authHandler := handler.NewAuthHandler(handler.AuthHandlerConfig{
		Provider:  s.provider,
		Accounts:  authService,
		Sessions:  sessions,
		Cookies:   auth.CookieWriter{Secure: s.config.SecureCookies()},
		ClientURL: s.config.ClientURL,
		Metrics:   s.metrics,
		Logger:    s.logger,
		Options:   opts,
	})
	recipeHandler := handler.NewRecipeHandler(recipeService, s.metrics, s.logger, opts)
	adminHandler := handler.NewAdminHandler(adminService, s.logger, opts)
	chatHandler := handler.NewChatHandler(chatService, s.logger, opts)

	r := s.router
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics(s.metrics))
	r.Use(middleware.Recoverer(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready(s.db, s.logger))
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	authenticate := auth.Authenticate(sessions, authService, s.logger)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)

		r.Route("/auth", func(r chi.Router) {
			// Logout must clear the cookie even when the session lookup fails.
			r.Get("/logout", authHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/google", authHandler.HandleLogin)
				r.Get("/google/callback", authHandler.HandleCallback)
				r.Get("/user", authHandler.HandleUser)
			})
		})

		catalogue := func(r chi.Router) {
			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", recipeHandler.HandleList)
				r.Get("/featured", recipeHandler.HandleFeatured)
				r.Get("/{id}", recipeHandler.HandleGet)
				r.With(auth.RequireAuth).Post("/", recipeHandler.HandleCreate)
				r.With(auth.RequireAuth).Post("/{id}/rate", recipeHandler.HandleRate)
			})
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/stats", adminHandler.HandleStats)
				r.Put("/recipes/{id}/feature", adminHandler.HandleFeature)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/api", func(r chi.Router) {
				catalogue(r)
				r.Route("/chat", func(r chi.Router) {
					r.Use(auth.RequireAuth)
					r.Get("/history", chatHandler.HandleHistory)
					r.Post("/save", chatHandler.HandleSave)
					r.Delete("/clear", chatHandler.HandleClear)
					r.With(auth.RequireAdmin).Get("/summary", chatHandler.HandleSummary)
				})
			})
			r.Group(catalogue)
		})
	})

	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// PurgeExpiredSessions removes expired SQLite sessions. Redis expires its
// keys itself, so there is nothing to do for that store.
func (s *Server) PurgeExpiredSessions(ctx context.Context) {
	if s.config.Session.Store == config.StoreRedis {
		return
	}
	n, err := s.db.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		s.logger.Warn("purging expired sessions failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", slog.Int64("count", n))
	}
}

// Close releases the database and any external clients.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and releases storage.
func (s *Server) Start() error {
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.PurgeExpiredSessions(ctx)
	go s.limiter.Run(ctx, sweepInterval)

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.String("sessionStore", s.config.Session.Store),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
