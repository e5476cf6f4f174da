package repositories

import (
	"context"
	"time"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrQuoteNotFound is returned when a quote lookup matches no row.
var ErrQuoteNotFound = errors.New("quote not found")

// QuoteRepository provides access to quote data
type QuoteRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *gorm.DB, readOnlyDB *gorm.DB) *QuoteRepository {
	return &QuoteRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create persists a quote with its lines and notifications in one insert.
func (r *QuoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	// Use write DB for writes
	return r.db.WithContext(ctx).Create(quote).Error
}

// Save persists updates to an existing quote row (not its associations).
func (r *QuoteRepository) Save(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).Omit("LineItems", "ServiceLines", "BoxLines", "Notifications", "Client").Save(quote).Error
}

// GetByID loads a quote with its client and lines. Reads from the write
// DB because callers typically mutate the quote next and must not see a
// stale replica.
func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("LineItems").
		Preload("ServiceLines").
		Preload("BoxLines").
		First(&quote, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrQuoteNotFound, id.String())
		}
		return nil, errors.Wrap(err, "failed to get quote by ID")
	}
	return &quote, nil
}

// GetByToken loads a quote by its public access token. The lookup is an
// exact equality match on a unique column; no prefix matching.
func (r *QuoteRepository) GetByToken(ctx context.Context, publicToken string) (*models.Quote, error) {
	var quote models.Quote
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Client").
		Preload("LineItems").
		Preload("ServiceLines").
		Preload("BoxLines").
		First(&quote, "public_token = ?", publicToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, errors.Wrap(err, "failed to get quote by token")
	}
	return &quote, nil
}

// LastSequence returns the highest sequence used for a quote kind.
func (r *QuoteRepository) LastSequence(ctx context.Context, kind models.QuoteKind) (int64, error) {
	var last int64
	err := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("kind = ?", kind).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to read last quote sequence")
	}
	return last, nil
}

// UpdateStatus performs the conditional single-row status update that
// backs every transition: the WHERE clause re-checks the source status so
// two racing writers cannot both win. Returns false when zero rows were
// affected, meaning another writer got there first.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from lifecycle.Status, to lifecycle.Status, stamps map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for column, value := range stamps {
		updates[column] = value
	}

	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to update quote status")
	}

	return result.RowsAffected > 0, nil
}

// UpdateTotals persists a recomputed monetary snapshot.
func (r *QuoteRepository) UpdateTotals(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update quote totals")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrQuoteNotFound, id.String())
	}
	return nil
}

// FindDueForExpiry returns quotes of one kind whose expiry date has
// passed the cutoff and whose status is still non-terminal.
func (r *QuoteRepository) FindDueForExpiry(ctx context.Context, kind models.QuoteKind, cutoff time.Time, limit int) ([]models.Quote, error) {
	var quotes []models.Quote
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Client").
		Where("kind = ? AND status IN ? AND expiry_date < ?", kind, lifecycle.NonTerminal(), cutoff).
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find quotes due for expiry")
	}
	return quotes, nil
}

// ExpireOne transitions a single quote to expired if it is still
// non-terminal and overdue. The condition is re-checked in the UPDATE
// itself, so concurrent scanners are safe and a second run is a no-op.
func (r *QuoteRepository) ExpireOne(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND status IN ? AND expiry_date < ?", id, lifecycle.NonTerminal(), cutoff).
		Update("status", lifecycle.StatusExpired)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to expire quote")
	}

	return result.RowsAffected > 0, nil
}

// NotificationRepository provides access to notification data
type NotificationRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB, readOnlyDB *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create persists a batch of notifications.
func (r *NotificationRepository) Create(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

// DeleteUnsent removes the unsent notifications of a quote. Called before
// rescheduling so stale schedules never linger.
func (r *NotificationRepository) DeleteUnsent(ctx context.Context, quoteID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("quote_id = ? AND sent = ?", quoteID, false).
		Delete(&models.Notification{}).Error
	return errors.Wrap(err, "failed to delete unsent notifications")
}

// FindDue returns unsent notifications scheduled at or before now, with
// the owning quote and its client loaded for rendering.
func (r *NotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Quote").
		Preload("Quote.Client").
		Where("scheduled_for <= ? AND sent = ?", now, false).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find due notifications")
	}
	return notifications, nil
}

// MarkSent claims a notification for delivery, but only if it is still
// unsent. The `sent = false` guard is the exactly-once mechanism: when
// two dispatchers race, only one UPDATE affects a row; the loser sees
// false and never touches the mailer. The claim is taken before the send
// and released with MarkUnsent if the send fails.
func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(map[string]interface{}{"sent": true, "sent_at": sentAt})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to mark notification as sent")
	}

	return result.RowsAffected > 0, nil
}

// MarkUnsent releases a claimed notification after a failed send so the
// next sweep picks it up again.
func (r *NotificationRepository) MarkUnsent(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"sent": false, "sent_at": nil}).Error
	return errors.Wrap(err, "failed to mark notification as unsent")
}

// RateTableRepository provides read-only access to the admin-managed rate
// tables. Quotes snapshot resolved values, so these are never consulted
// for historical quotes.
type RateTableRepository struct {
	readOnlyDB *gorm.DB
}

// NewRateTableRepository creates a new rate table repository
func NewRateTableRepository(readOnlyDB *gorm.DB) *RateTableRepository {
	return &RateTableRepository{readOnlyDB: readOnlyDB}
}

// CostScales returns all cost scale rows.
func (r *RateTableRepository) CostScales(ctx context.Context) ([]models.CostScale, error) {
	var rows []models.CostScale
	err := r.readOnlyDB.WithContext(ctx).Order("from_qty").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cost scales")
	}
	return rows, nil
}

// ComponentIncrements returns all component increment rows.
func (r *RateTableRepository) ComponentIncrements(ctx context.Context) ([]models.ComponentIncrement, error) {
	var rows []models.ComponentIncrement
	err := r.readOnlyDB.WithContext(ctx).Order("from_count").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load component increments")
	}
	return rows, nil
}

// PaymentCondition returns one payment condition by id.
func (r *RateTableRepository) PaymentCondition(ctx context.Context, id uuid.UUID) (*models.PaymentCondition, error) {
	var row models.PaymentCondition
	err := r.readOnlyDB.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load payment condition")
	}
	return &row, nil
}
