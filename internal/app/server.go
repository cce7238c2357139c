package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/docingest/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/docingest/internal/api/middlewares"
	"github.com/markdave123-py/docingest/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, search handlers.Searcher, asker handlers.Asker, runner handlers.Runner) *Server {
	if cfg.JWTSecret == "" {
		slog.Default().With("component", "http").Warn("JWT_SECRET not set, /api/ingest is disabled")
	}
	searchHandler := handlers.NewSearchHandler(search, asker)
	ingestHandler := handlers.NewIngestHandler(runner, cfg.SourceDir, cfg.SourceExt, cfg.IngestRoots...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handlers.Health)

	r.Route("/api", func(api chi.Router) {
		if cfg.JWTSecret != "" {
			api.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
		}
		api.Post("/search", searchHandler.Search)
		api.Post("/ask", searchHandler.Ask)
		// ingestion reads server-side paths, so it is only served behind auth
		if cfg.JWTSecret != "" {
			api.Post("/ingest", ingestHandler.Ingest)
		}
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, logger: slog.Default().With("component", "http")}
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Server builds the HTTP surface over the app's components.
func (a *App) Server() *Server {
	var asker handlers.Asker
	if a.Answer != nil {
		asker = a.Answer
	}
	return NewServer(a.Config, a.Search, asker, a.Runner)
}
