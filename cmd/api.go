package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/merchkit/services/quotes/config"
	"example.com/merchkit/services/quotes/internal/api"
	"example.com/merchkit/services/quotes/internal/cache"
	"example.com/merchkit/services/quotes/internal/database"
	"example.com/merchkit/services/quotes/internal/mailer"
	"example.com/merchkit/services/quotes/internal/messaging"
	"example.com/merchkit/services/quotes/internal/metrics"
	"example.com/merchkit/services/quotes/internal/repositories"
	"example.com/merchkit/services/quotes/internal/search"
	"example.com/merchkit/services/quotes/internal/services"
	"example.com/merchkit/services/quotes/internal/token"
	"example.com/merchkit/services/quotes/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for vendor quote management and public quote access`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database connections
	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db, readOnlyDB)

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.NewDisabledTracer()
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Initialize the event publisher
	publisher, err := messaging.NewServiceBusPublisher(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus publisher, lifecycle events will not be published")
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize services
	quoteService := services.NewQuoteService(
		repositories.NewQuoteRepository(db, readOnlyDB),
		repositories.NewNotificationRepository(db, readOnlyDB),
		repositories.NewRateTableRepository(readOnlyDB),
		token.NewGenerator(),
		mailer.NewMailer(cfg.SMTP),
		publisher,
		elasticClient,
		redisCache,
		metricsCollector,
		tracer,
		services.NewSystemClock(),
		services.PoliciesFromConfig(cfg.Quotes),
	)

	// Initialize and start the server
	server := api.NewServer(cfg, quoteService, elasticClient, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
