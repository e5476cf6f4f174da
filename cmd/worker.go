package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/merchkit/services/quotes/config"
	"example.com/merchkit/services/quotes/internal/database"
	"example.com/merchkit/services/quotes/internal/mailer"
	"example.com/merchkit/services/quotes/internal/messaging"
	"example.com/merchkit/services/quotes/internal/metrics"
	"example.com/merchkit/services/quotes/internal/repositories"
	"example.com/merchkit/services/quotes/internal/search"
	"example.com/merchkit/services/quotes/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that expires overdue quotes and dispatches scheduled notifications`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database connections
	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db, readOnlyDB)

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

	// Initialize the scheduler service
	schedulerService := services.NewSchedulerService(
		repositories.NewQuoteRepository(db, readOnlyDB),
		repositories.NewNotificationRepository(db, readOnlyDB),
		mailer.NewMailer(cfg.SMTP),
		publisher,
		elasticClient,
		metricsCollector,
		services.NewSystemClock(),
		services.PoliciesFromConfig(cfg.Quotes),
	)

	// Run the cron jobs until the context is cancelled
	g.Go(func() error {
		log.Info().Msg("Starting quote expiry and notification jobs")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Expiry scan runs hourly. Under the date policy a merch quote
		// only becomes overdue at midnight, but the hourly cadence keeps
		// timestamp-policy picking quotes from lingering.
		_, err = scheduler.NewJob(
			gocron.DurationJob(1*time.Hour),
			gocron.NewTask(func() {
				expired, err := schedulerService.ScanExpired(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Expiry scan failed")
					return
				}
				if expired > 0 {
					log.Info().Int("expired", expired).Msg("Expiry scan finished")
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		// Notification dispatch runs every minute.
		_, err = scheduler.NewJob(
			gocron.DurationJob(1*time.Minute),
			gocron.NewTask(func() {
				if _, err := schedulerService.DispatchDue(ctx); err != nil {
					log.Error().Err(err).Msg("Notification dispatch failed")
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
