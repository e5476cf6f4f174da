package services

import (
	"context"
	"time"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/mailer"
	"example.com/merchkit/services/quotes/internal/messaging"
	"example.com/merchkit/services/quotes/internal/metrics"
	"example.com/merchkit/services/quotes/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SchedulerService runs the background sweeps: expiring overdue quotes
// and dispatching due notifications. Both sweeps are idempotent; running
// them twice, or from two workers at once, changes nothing the second
// time.
type SchedulerService struct {
	quotes        QuoteStore
	notifications NotificationStore
	mail          mailer.Mailer
	publisher     messaging.Publisher
	indexer       QuoteIndexer
	collector     *metrics.Metrics
	clock         Clock
	policies      Policies
}

// NewSchedulerService creates a new scheduler service. Publisher and
// indexer may be nil.
func NewSchedulerService(
	quotes QuoteStore,
	notifications NotificationStore,
	mail mailer.Mailer,
	publisher messaging.Publisher,
	indexer QuoteIndexer,
	collector *metrics.Metrics,
	clock Clock,
	policies Policies,
) *SchedulerService {
	return &SchedulerService{
		quotes:        quotes,
		notifications: notifications,
		mail:          mail,
		publisher:     publisher,
		indexer:       indexer,
		collector:     collector,
		clock:         clock,
		policies:      policies,
	}
}

// DispatchResult summarizes one dispatcher sweep.
type DispatchResult struct {
	Sent   int
	Errors int
}

// ScanExpired moves every overdue non-terminal quote to expired and
// returns how many quotes this run actually expired. Each quote is
// expired with a conditional single-row update, so a concurrent scanner
// or a rerun counts zero for quotes already handled. Per-quote failures
// are logged and skipped; the sweep keeps going.
func (s *SchedulerService) ScanExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	expired := 0

	for _, kind := range []models.QuoteKind{models.KindMerch, models.KindPicking} {
		cutoff := s.policies.ExpiryCutoff(kind, now)

		quotes, err := s.quotes.FindDueForExpiry(ctx, kind, cutoff, s.policies.ScanBatchSize)
		if err != nil {
			return expired, errors.Wrapf(err, "failed to scan %s quotes for expiry", kind)
		}

		for i := range quotes {
			quote := &quotes[i]

			won, err := s.quotes.ExpireOne(ctx, quote.ID, cutoff)
			if err != nil {
				log.Error().Err(err).
					Str("quote_id", quote.ID.String()).
					Str("number", quote.Number).
					Msg("Failed to expire quote")
				continue
			}
			if !won {
				// Another scanner, or an earlier run, got there first.
				continue
			}

			expired++
			s.collector.IncrementCounter(metrics.QuotesExpired)
			quote.Status = lifecycle.StatusExpired

			log.Info().
				Str("quote_id", quote.ID.String()).
				Str("number", quote.Number).
				Str("kind", string(quote.Kind)).
				Time("expiry_date", quote.ExpiryDate).
				Msg("Quote expired")

			if s.publisher != nil {
				err := s.publisher.Publish(ctx, messaging.QuoteEvent{
					Type:       messaging.EventQuoteExpired,
					QuoteID:    quote.ID.String(),
					Number:     quote.Number,
					Kind:       string(quote.Kind),
					Status:     string(quote.Status),
					OccurredAt: now,
				})
				if err != nil {
					log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to publish expiry event")
				}
			}
			if s.indexer != nil {
				if err := s.indexer.IndexQuote(ctx, quote); err != nil {
					log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to index expired quote")
				}
			}
		}
	}

	return expired, nil
}

// DispatchDue sends every notification whose scheduled time has passed.
// A dispatcher first claims the row with a conditional sent-flag update;
// only the claimer mails the client, so concurrent sweeps cannot send
// duplicates. A failed send releases the claim so the row is retried on
// the next sweep.
func (s *SchedulerService) DispatchDue(ctx context.Context) (DispatchResult, error) {
	now := s.clock.Now()
	var result DispatchResult

	due, err := s.notifications.FindDue(ctx, now, s.policies.DispatchBatchSize)
	if err != nil {
		return result, errors.Wrap(err, "failed to find due notifications")
	}

	for i := range due {
		notification := &due[i]

		err := s.dispatchOne(ctx, notification, now)
		if errors.Is(err, errAlreadyHandled) {
			// Another dispatcher won the sent-flag race. Not an error,
			// and not counted: the notification went out exactly once.
			continue
		}
		if err != nil {
			result.Errors++
			s.collector.IncrementCounter(metrics.NotificationErrors)
			log.Error().Err(err).
				Str("notification_id", notification.ID.String()).
				Str("quote_id", notification.QuoteID.String()).
				Str("type", string(notification.Type)).
				Msg("Failed to dispatch notification")
			continue
		}

		result.Sent++
		s.collector.IncrementCounter(metrics.NotificationsSent)
	}

	if result.Sent > 0 || result.Errors > 0 {
		log.Info().
			Int("sent", result.Sent).
			Int("errors", result.Errors).
			Msg("Notification dispatch finished")
	}

	return result, nil
}

// errAlreadyHandled marks a notification that lost the sent-flag race.
// It is swallowed by dispatchOne's caller path, never surfaced.
var errAlreadyHandled = errors.New("notification already handled")

func (s *SchedulerService) dispatchOne(ctx context.Context, notification *models.Notification, now time.Time) error {
	quote := notification.Quote
	recipient := quote.Client.Email
	if recipient == "" {
		return errors.Errorf("client %s has no email address", quote.ClientID)
	}

	// Claim the row before touching the mailer. Exactly one dispatcher
	// wins this update; the rest back off without sending anything.
	won, err := s.notifications.MarkSent(ctx, notification.ID, now)
	if err != nil {
		return errors.Wrap(err, "failed to claim notification")
	}
	if !won {
		return errAlreadyHandled
	}

	err = s.mail.Send(ctx, recipient, templateForNotification(notification.Type), map[string]string{
		"quote_number": quote.Number,
		"client_name":  quote.Client.Name,
		"total":        quote.Total.StringFixed(2),
		"expiry_date":  quote.ExpiryDate.Format("2006-01-02"),
		"public_token": quote.PublicToken,
	})
	if err != nil {
		// Release the claim so the next sweep retries the send.
		if revertErr := s.notifications.MarkUnsent(ctx, notification.ID); revertErr != nil {
			log.Error().Err(revertErr).
				Str("notification_id", notification.ID.String()).
				Msg("Failed to release notification claim")
		}
		return errors.Wrap(err, "failed to send notification email")
	}
	return nil
}

func templateForNotification(notificationType models.NotificationType) string {
	if notificationType == models.NotificationExpired {
		return mailer.TemplateQuoteExpired
	}
	return mailer.TemplateExpiryWarning
}
