// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, the services,
// both transports (REST and GraphQL) and the middleware, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlstore.DB → service.Services → handler.API
//	                                               → graphapi.Handler
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/config"
	"github.com/sakif/socialhub/internal/graphapi"
	"github.com/sakif/socialhub/internal/handler"
	"github.com/sakif/socialhub/internal/middleware"
	"github.com/sakif/socialhub/internal/observability"
	"github.com/sakif/socialhub/internal/repository/sqlstore"
	"github.com/sakif/socialhub/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool, the optional Redis client and the
// tracer provider. Close releases all three; Start calls it on the way out.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	store       *sqlstore.DB
	rdb         *redis.Client // nil when REDIS_URL is unset
	tokens      *auth.TokenService
	stopTracing func(context.Context) error
}

// New opens every dependency described by cfg and wires the routes. On any
// failure it releases what was already opened.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx := context.Background()

	// === TRACING ===
	stopTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "socialhub",
		Environment: cfg.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising tracing: %w", err)
	}

	s := &Server{
		router:      chi.NewRouter(),
		config:      cfg,
		logger:      logger,
		stopTracing: stopTracing,
	}

	// === DATABASE ===
	s.store, err = sqlstore.Open(ctx, sqlstore.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// === REDIS (optional) ===
	// Without REDIS_URL the rate limiter is disabled. An unreachable Redis
	// is not fatal; RATE_LIMIT_POLICY decides what the limiter does then.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		s.rdb = redis.NewClient(opts)
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", slog.String("error", err.Error()))
		}
	}

	// === AUTH ===
	s.tokens, err = auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(cfg.BcryptCost)

	if err := s.setupRoutes(service.New(s.store, passwords, s.tokens, logger)); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request
// 2. RealIP: extracts real client IP from proxy headers (the rate limiter keys on it)
// 3. Tracing, Metrics, Logger: observe everything below them
// 4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes(svc *service.Services) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	if s.config.TracingEnabled {
		s.router.Use(middleware.Tracing())
	}
	if s.config.MetricsEnabled {
		s.router.Use(middleware.Metrics())
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	policy, err := middleware.ParseFailPolicy(s.config.RateLimitPolicy)
	if err != nil {
		return err
	}
	authLimit := middleware.NewLimiter(s.rdb, s.config.RateLimit, s.config.RateWindow, policy, "auth", s.logger)

	// === REST ===
	handler.NewAPI(svc, s.store, s.logger).Routes(s.router, s.tokens, middleware.RateLimit(authLimit))

	// === GRAPHQL ===
	// Same services, same token; a bad token just means anonymous here.
	// register and login spend the same "auth" budget as /api/auth.
	gql, err := graphapi.New(svc, s.logger, graphapi.WithAuthLimiter(authLimit))
	if err != nil {
		return fmt.Errorf("building graphql schema: %w", err)
	}
	s.router.With(auth.OptionalAuth(s.tokens), middleware.ClientAddr).Handle("/graphql", gql)

	// === METRICS ===
	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store, Redis and the tracer provider. It is safe to
// call on a partially built Server.
func (s *Server) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.rdb != nil {
		errs = append(errs, s.rdb.Close())
	}
	if s.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, s.stopTracing(ctx))
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// On SIGINT/SIGTERM, or when ctx is cancelled:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database pool, Redis and flush pending spans
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("db_driver", s.config.DBDriver),
			slog.Bool("rate_limit", s.rdb != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.String("reason", ctx.Err().Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
