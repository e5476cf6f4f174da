package services

import (
	"context"
	"time"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/models"

	"github.com/google/uuid"
)

// QuoteStore is the persistence surface the services need for quotes.
// *repositories.QuoteRepository satisfies it.
type QuoteStore interface {
	Create(ctx context.Context, quote *models.Quote) error
	Save(ctx context.Context, quote *models.Quote) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	GetByToken(ctx context.Context, publicToken string) (*models.Quote, error)
	LastSequence(ctx context.Context, kind models.QuoteKind) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from lifecycle.Status, to lifecycle.Status, stamps map[string]interface{}) (bool, error)
	UpdateTotals(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	FindDueForExpiry(ctx context.Context, kind models.QuoteKind, cutoff time.Time, limit int) ([]models.Quote, error)
	ExpireOne(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

// NotificationStore is the persistence surface for scheduled
// notifications. *repositories.NotificationRepository satisfies it.
type NotificationStore interface {
	Create(ctx context.Context, notifications []models.Notification) error
	DeleteUnsent(ctx context.Context, quoteID uuid.UUID) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)
	MarkUnsent(ctx context.Context, id uuid.UUID) error
}

// RateTableStore reads the admin-managed rate tables.
// *repositories.RateTableRepository satisfies it.
type RateTableStore interface {
	CostScales(ctx context.Context) ([]models.CostScale, error)
	ComponentIncrements(ctx context.Context) ([]models.ComponentIncrement, error)
	PaymentCondition(ctx context.Context, id uuid.UUID) (*models.PaymentCondition, error)
}

// QuoteIndexer pushes quotes into the search index.
// *search.ElasticClient satisfies it.
type QuoteIndexer interface {
	IndexQuote(ctx context.Context, quote *models.Quote) error
}
