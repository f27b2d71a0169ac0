// Package server wires the HTTP surface: the Chi router, the global
// middleware chain, and the route table binding handlers to services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/policyops/acctd/internal/config"
	"github.com/policyops/acctd/internal/handler"
	"github.com/policyops/acctd/internal/server/middleware"
	"github.com/policyops/acctd/internal/service"
	"github.com/policyops/acctd/internal/store"
)

// Server is the top-level HTTP server. It owns the Chi router and holds the
// store and services the handlers are bound to.
type Server struct {
	cfg        config.Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	registry   *service.Registry
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg config.Config, st *store.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		authSvc:  service.NewAuthService(st, cfg),
		registry: service.NewRegistry(st),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.Server.MaxBodySize > 0 {
		r.Use(maxBytes(s.cfg.Server.MaxBodySize))
	}

	authHandler := handler.NewAuthHandler(s.authSvc, s.cfg)
	systemHandler := handler.NewSystemHandler(s.store)
	openAPIHandler := handler.NewOpenAPIHandler(s.registry, s.baseURL())

	// --- Open endpoints ---
	r.Get("/healthz", systemHandler.Healthz)
	r.Get("/readyz", systemHandler.Readyz)
	r.Get("/openapi.json", openAPIHandler.Spec)

	// Credential endpoints are rate limited but not authenticated.
	r.Group(func(r chi.Router) {
		if s.cfg.Server.LoginRateLimit > 0 {
			r.Use(middleware.RateLimit(s.cfg.Server.LoginRateLimit))
		}
		r.Post("/login", authHandler.Login)
		r.Post("/refresh_token", authHandler.Refresh)
	})
	r.Post("/logout", authHandler.Logout)

	// --- Authenticated API ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.authSvc))

		r.Get("/me", authHandler.Me)

		for _, svc := range s.registry.All() {
			cfg := svc.Config()
			h := handler.NewEntityHandler(svc)
			r.Get(cfg.Route+"/", h.List)
			r.Post(cfg.Route+"/upsert", h.Upsert)
			if cfg.AllowDelete {
				r.Post(cfg.Route+"/delete", h.Delete)
			}
		}

		// The CCT screens reuse the special-account entity under their own
		// prefix.
		if svc, ok := s.registry.Lookup("sac_account"); ok {
			h := handler.NewEntityHandler(svc)
			r.Get("/cct/account/", h.List)
			r.Post("/cct/account/upsert", h.Upsert)
		}

		dropdownHandler := handler.NewDropdownHandler(service.NewDropdownService(s.store))
		r.Route("/dropdowns/{dropdown_name}", func(r chi.Router) {
			r.Get("/", dropdownHandler.Get)
			r.Post("/upsert", dropdownHandler.Upsert)
			r.Post("/delete", dropdownHandler.Delete)
		})

		associationHandler := handler.NewAssociationHandler(service.NewAssociationService(s.store))
		r.Route("/sac/account_associations", func(r chi.Router) {
			r.Get("/", associationHandler.Get)
			r.Post("/add", associationHandler.Add)
			r.Post("/delete", associationHandler.Delete)
		})

		policyHandler := handler.NewPolicyHandler(service.NewPolicyService(s.store))
		for _, prefix := range []string{"/sac/policies", "/cct/policies"} {
			r.Route(prefix, func(r chi.Router) {
				r.Get("/", policyHandler.List)
				r.Post("/upsert", policyHandler.Upsert)
				r.Post("/update_field_for_all_policies", policyHandler.UpdateFieldForAll)
				r.Get("/get_premium", policyHandler.Premium)
			})
		}

		searchHandler := handler.NewSearchHandler(service.NewSearchService(s.store))
		r.Get("/affinity/search/", searchHandler.AffinityPrograms)
		r.Get("/cct/affinity_programs/", searchHandler.AffinityPrograms)
		r.Get("/sac/search/", searchHandler.SACAccounts)
		r.Get("/cct/search/", searchHandler.SACAccounts)
		r.Route("/cct/policy_filters", func(r chi.Router) {
			r.Get("/policy_statuses", searchHandler.PolicyStatuses)
			r.Get("/policy_numbers", searchHandler.PolicyNumbers)
		})

		composeHandler := handler.NewComposeHandler(
			service.NewComposeService(s.cfg.Compose), s.cfg.Compose.Enabled)
		r.Post("/outlook_compose/compose_link", composeHandler.ComposeLink)
	})

	s.router = r
}

func (s *Server) baseURL() string {
	return fmt.Sprintf("http://%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
}

// maxBytes caps request body size so oversized batch payloads fail fast.
func maxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database pool.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("closing database pool", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
