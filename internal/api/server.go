package api

import (
	"context"
	"net/http"
	"time"

	"example.com/merchkit/services/quotes/config"
	"example.com/merchkit/services/quotes/internal/api/handlers"
	"example.com/merchkit/services/quotes/internal/metrics"
	"example.com/merchkit/services/quotes/internal/search"
	"example.com/merchkit/services/quotes/internal/services"
	"example.com/merchkit/services/quotes/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config        config.Config
	router        *gin.Engine
	httpServer    *http.Server
	quoteService  *services.QuoteService
	elasticClient *search.ElasticClient
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	quoteService *services.QuoteService,
	elasticClient *search.ElasticClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:        cfg,
		quoteService:  quoteService,
		elasticClient: elasticClient,
		metrics:       metricsCollector,
		tracer:        tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: server.router,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())

	quoteHandler := handlers.NewQuoteHandler(s.quoteService, s.elasticClient, s.tracer)
	quoteHandler.RegisterRoutes(router)

	publicHandler := handlers.NewPublicHandler(s.quoteService, s.tracer)
	publicHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

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
