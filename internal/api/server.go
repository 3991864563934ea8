// Package api provides the HTTP API for the agency network server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agencynet/agencynet-server/internal/auth"
	"github.com/agencynet/agencynet-server/internal/config"
	"github.com/agencynet/agencynet-server/internal/sse"
	"github.com/agencynet/agencynet-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         store.Store
	services      *Services
	tokens        *auth.TokenService
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
	sseManager    *sse.Manager
	verifyLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st store.Store,
	services *Services,
	tokens *auth.TokenService,
	sseManager *sse.Manager,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:         st,
		services:      services,
		tokens:        tokens,
		router:        chi.NewRouter(),
		logger:        logger,
		sseManager:    sseManager,
		verifyLimiter: NewRateLimiter(cfg.RateLimit.VerifyPerMinute, time.Minute, cfg.RateLimit.VerifyBurst),
	}

	s.setupRoutes(cfg.Server.AllowedOrigins)

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(allowedOrigins []string) {
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	s.router.Use(authMiddleware(s.tokens))

	humaConfig := huma.DefaultConfig("AgencyNet API", "1.0.0")
	humaConfig.Info.Description = "Agency membership, developer collaboration contracts and property sharing."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerInvitationRoutes()
	s.registerMembershipRoutes()
	s.registerContractRoutes()
	s.registerSharingRoutes()
	s.registerNotificationRoutes()
	s.registerChangeStreamRoutes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources owned by the server.
func (s *Server) Close() {
	s.verifyLimiter.Stop()
}

// bearerAuth is the security requirement for authenticated operations.
var bearerAuth = []map[string][]string{{"bearer": {}}}
