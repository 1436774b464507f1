package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/avramidis/folio/internal/app"
	"github.com/avramidis/folio/internal/modules/allocation"
	"github.com/avramidis/folio/internal/modules/health"
	"github.com/avramidis/folio/internal/modules/portfolio"
	"github.com/avramidis/folio/internal/modules/prices"
	"github.com/avramidis/folio/internal/modules/rebalancing"
	"github.com/avramidis/folio/internal/modules/recommendations"
	"github.com/avramidis/folio/internal/modules/transactions"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	App     *app.App
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	app    *app.App
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		app:    cfg.App,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// The dashboard is served from the same machine; permissive CORS keeps
	// local dev servers working.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(log zerolog.Logger) {
	portfolioHandler := portfolio.NewHandler(s.app.Portfolios, log)
	txHandler := transactions.NewHandler(s.app.Transactions, log)
	allocationHandler := allocation.NewHandler(s.app.Allocation, log)
	rebalancingHandler := rebalancing.NewHandler(s.app.Rebalancing, s.app.Targets, s.app.Exclusions, log)
	healthHandler := health.NewHandler(s.app.Health, log)
	recsHandler := recommendations.NewHandler(s.app.Recommendations, log)
	pricesHandler := prices.NewHandler(s.app.Prices, s.app.Events, log)

	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", portfolioHandler.HandleList)
			r.Post("/", portfolioHandler.HandleCreate)
			r.Get("/{id}", portfolioHandler.HandleGet)
			r.Put("/{id}", portfolioHandler.HandleUpdate)
			r.Delete("/{id}", portfolioHandler.HandleDelete)
			r.Post("/{id}/exclusion", rebalancingHandler.HandleToggleExclusion)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", txHandler.HandleList)
			r.Post("/", txHandler.HandleCreate)
			r.Put("/{id}", txHandler.HandleUpdate)
			r.Delete("/{id}", txHandler.HandleDelete)
		})

		r.Get("/allocation", allocationHandler.HandleGetBreakdown)

		r.Route("/rebalancing", func(r chi.Router) {
			r.Get("/plan", rebalancingHandler.HandleGetPlan)
			r.Get("/exclusions", rebalancingHandler.HandleGetExclusions)
			r.Get("/models", rebalancingHandler.HandleListModels)
			r.Post("/models", rebalancingHandler.HandleSaveModel)
			r.Delete("/models/{id}", rebalancingHandler.HandleDeleteModel)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/health", healthHandler.HandleGetScore)
			r.Get("/profiles", healthHandler.HandleListProfiles)
			r.Put("/profiles/active", healthHandler.HandleSetProfile)
			r.Get("/recommendations", recsHandler.HandleList)
		})

		r.Post("/prices/refresh", pricesHandler.HandleRefresh)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
