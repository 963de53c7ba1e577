// Package api provides the HTTP API server and handlers for the gallery.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/graphia/graphia-server/internal/config"
	"github.com/graphia/graphia-server/internal/metrics"
	"github.com/graphia/graphia-server/internal/ratelimit"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	services        *Services
	router          *chi.Mux
	api             huma.API
	metrics         *metrics.Collector
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
	edits           *keyedMutex
	maxUploadBytes  int64
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, cfg *config.Config, m *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		services:        services,
		router:          chi.NewRouter(),
		metrics:         m,
		logger:          logger,
		authRateLimiter: ratelimit.PerMinute(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
		edits:           newKeyedMutex(),
		maxUploadBytes:  cfg.Server.MaxUploadBytes,
	}

	s.setupMiddleware(cfg.Server.CORSOrigins)

	humaConfig := huma.DefaultConfig("Graphia API", APIVersion)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:   "http",
			Scheme: "bearer",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(languageMiddleware)
	if s.metrics != nil {
		s.router.Use(observeMiddleware(s.metrics, s.logger))
	}
	s.router.Use(authMiddleware(s.services.Sessions, s.logger))
}

func (s *Server) registerRoutes() {
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Multipart uploads use chi directly.
	s.router.Post("/api/v1/artifacts", s.handleUploadArtifact)

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerArtifactRoutes()
	s.registerEditRoutes()
	s.registerRankingRoutes()
	s.registerProfileRoutes()
}
