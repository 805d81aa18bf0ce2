package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/api/handlers"
	appMiddleware "github.com/paperstack-io/paperstack/internal/api/middlewares"
	"github.com/paperstack-io/paperstack/internal/config"
	"github.com/paperstack-io/paperstack/internal/core/ingest"
	"github.com/paperstack-io/paperstack/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, ingestor ingest.Ingestor, docs *services.DocumentService, log *zap.Logger) *Server {
	docHandler := handlers.NewDocumentHandler(ingestor, docs, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Post("/documents", docHandler.Upload)
			protected.Get("/documents", docHandler.Search)
			protected.Get("/documents/filter", docHandler.Filter)
			protected.Get("/search/popular", docHandler.PopularTerms)
			protected.Get("/documents/{id}/download", docHandler.Download)
			protected.Patch("/documents/{id}", docHandler.Update)
			protected.Delete("/documents/{id}", docHandler.Delete)
			protected.Post("/documents/{id}/deletion-request", docHandler.RequestDeletion)

			protected.Patch("/admin/documents/{id}", docHandler.AdminUpdate)
			protected.Delete("/admin/documents/{id}", docHandler.AdminDelete)
			protected.Post("/admin/documents/{id}/deletion-resolution", docHandler.ResolveDeletion)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
