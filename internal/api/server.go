package api

import (
	"context"
	"net/http"
	"time"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/api/handlers"
	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/metrics"
	"example.com/connectsphere/internal/realtime"
	"example.com/connectsphere/internal/services"
	"example.com/connectsphere/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	services   *services.Services
	hub        *realtime.Hub
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, svc *services.Services, hub *realtime.Hub, tracer tracing.Tracer, m *metrics.Metrics) *Server {
	if tracer == nil {
		tracer = tracing.Disabled()
	}
	server := &Server{
		config:   cfg,
		services: svc,
		hub:      hub,
		tracer:   tracer,
		metrics:  m,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	if s.config.CorsEnabled {
		router.Use(middleware.CORS(s.config.CorsOrigins))
	}
	if app := s.tracer.Application(); app != nil {
		router.Use(middleware.NewRelic(app))
	}

	requireAuth := middleware.RequireAuth(s.services.Auth)

	api := router.Group("/api")
	handlers.NewAuthHandler(s.services.Auth).RegisterRoutes(api, requireAuth)
	handlers.NewEventHandler(s.services.Events).RegisterRoutes(api, requireAuth)
	handlers.NewRSVPHandler(s.services.RSVPs).RegisterRoutes(api, requireAuth)
	handlers.NewChatHandler(s.services.Chat).RegisterRoutes(api, requireAuth)
	handlers.NewPollHandler(s.services.Polls).RegisterRoutes(api, requireAuth)
	handlers.NewParticipantHandler(s.services.Participants).RegisterRoutes(api, requireAuth)

	if s.hub != nil {
		handlers.NewRealtimeHandler(s.hub).RegisterRoutes(router, requireAuth)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.config.MetricsEnabled && s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return router
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
