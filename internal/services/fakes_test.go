package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/messaging"
	"example.com/merchkit/services/quotes/internal/models"
	"example.com/merchkit/services/quotes/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// The fakes below mirror the repository semantics that matter to the
// services: conditional updates report whether they won, and every
// mutation is guarded by a mutex so concurrency tests are meaningful.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTokens struct {
	mu sync.Mutex
	n  int
}

func (t *fakeTokens) Generate() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	// 32 deterministic bytes encode to the production token shape.
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%032d", t.n))), nil
}

type fakeQuoteStore struct {
	mu      sync.Mutex
	quotes  map[uuid.UUID]*models.Quote
	lookups int
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{quotes: make(map[uuid.UUID]*models.Quote)}
}

func (s *fakeQuoteStore) put(quote *models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *quote
	s.quotes[quote.ID] = &copied
}

func (s *fakeQuoteStore) get(id uuid.UUID) *models.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok {
		return nil
	}
	copied := *quote
	return &copied
}

func (s *fakeQuoteStore) Create(ctx context.Context, quote *models.Quote) error {
	s.put(quote)
	return nil
}

func (s *fakeQuoteStore) Save(ctx context.Context, quote *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[quote.ID]; !ok {
		return repositories.ErrQuoteNotFound
	}
	copied := *quote
	s.quotes[quote.ID] = &copied
	return nil
}

func (s *fakeQuoteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	if quote := s.get(id); quote != nil {
		return quote, nil
	}
	return nil, repositories.ErrQuoteNotFound
}

func (s *fakeQuoteStore) GetByToken(ctx context.Context, publicToken string) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	for _, quote := range s.quotes {
		if quote.PublicToken == publicToken {
			copied := *quote
			return &copied, nil
		}
	}
	return nil, repositories.ErrQuoteNotFound
}

func (s *fakeQuoteStore) LastSequence(ctx context.Context, kind models.QuoteKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last int64
	for _, quote := range s.quotes {
		if quote.Kind == kind && quote.Sequence > last {
			last = quote.Sequence
		}
	}
	return last, nil
}

func (s *fakeQuoteStore) UpdateStatus(ctx context.Context, id uuid.UUID, from lifecycle.Status, to lifecycle.Status, stamps map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok || quote.Status != from {
		return false, nil
	}
	quote.Status = to
	for column, value := range stamps {
		switch column {
		case "sent_at":
			at := value.(time.Time)
			quote.SentAt = &at
		case "decision_at":
			at := value.(time.Time)
			quote.DecisionAt = &at
		case "reject_reason":
			reason := value.(string)
			quote.RejectReason = &reason
		case "public_token":
			quote.PublicToken = value.(string)
		}
	}
	return true, nil
}

func (s *fakeQuoteStore) UpdateTotals(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok {
		return repositories.ErrQuoteNotFound
	}
	for column, value := range updates {
		switch column {
		case "subtotal":
			quote.Subtotal = value.(decimal.Decimal)
		case "tax_amount":
			quote.TaxAmount = value.(decimal.Decimal)
		case "total":
			quote.Total = value.(decimal.Decimal)
		case "unit_price_per_kit":
			unit := value.(decimal.Decimal)
			quote.UnitPricePerKit = &unit
		}
	}
	return nil
}

func (s *fakeQuoteStore) FindDueForExpiry(ctx context.Context, kind models.QuoteKind, cutoff time.Time, limit int) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.Quote
	for _, quote := range s.quotes {
		if quote.Kind != kind || quote.Status.Terminal() {
			continue
		}
		if quote.ExpiryDate.Before(cutoff) {
			due = append(due, *quote)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *fakeQuoteStore) ExpireOne(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok || quote.Status.Terminal() || !quote.ExpiryDate.Before(cutoff) {
		return false, nil
	}
	quote.Status = lifecycle.StatusExpired
	return true, nil
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*models.Notification
	quotes        *fakeQuoteStore
}

func newFakeNotificationStore(quotes *fakeQuoteStore) *fakeNotificationStore {
	return &fakeNotificationStore{
		notifications: make(map[uuid.UUID]*models.Notification),
		quotes:        quotes,
	}
}

func (s *fakeNotificationStore) Create(ctx context.Context, notifications []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range notifications {
		copied := notifications[i]
		s.notifications[copied.ID] = &copied
	}
	return nil
}

func (s *fakeNotificationStore) DeleteUnsent(ctx context.Context, quoteID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, notification := range s.notifications {
		if notification.QuoteID == quoteID && !notification.Sent {
			delete(s.notifications, id)
		}
	}
	return nil
}

func (s *fakeNotificationStore) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.Notification
	for _, notification := range s.notifications {
		if notification.Sent || notification.ScheduledFor.After(now) {
			continue
		}
		copied := *notification
		if quote := s.quotes.get(copied.QuoteID); quote != nil {
			copied.Quote = *quote
		}
		due = append(due, copied)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *fakeNotificationStore) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[id]
	if !ok || notification.Sent {
		return false, nil
	}
	notification.Sent = true
	notification.SentAt = &sentAt
	return true, nil
}

func (s *fakeNotificationStore) MarkUnsent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[id]
	if !ok {
		return errors.New("notification not found")
	}
	notification.Sent = false
	notification.SentAt = nil
	return nil
}

func (s *fakeNotificationStore) unsentFor(quoteID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, notification := range s.notifications {
		if notification.QuoteID == quoteID && !notification.Sent {
			out = append(out, *notification)
		}
	}
	return out
}

type sentMail struct {
	recipient  string
	templateID string
	data       map[string]string
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failing bool
}

func (m *fakeMailer) Send(ctx context.Context, recipient, templateID string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{recipient: recipient, templateID: templateID, data: data})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) setFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

type fakePublisher struct {
	mu     sync.Mutex
	events []messaging.QuoteEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event messaging.QuoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []uuid.UUID
}

func (i *fakeIndexer) IndexQuote(ctx context.Context, quote *models.Quote) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, quote.ID)
	return nil
}

type fakeRateTables struct {
	scales     []models.CostScale
	increments []models.ComponentIncrement
	conditions map[uuid.UUID]models.PaymentCondition
}

func (r *fakeRateTables) CostScales(ctx context.Context) ([]models.CostScale, error) {
	return r.scales, nil
}

func (r *fakeRateTables) ComponentIncrements(ctx context.Context) ([]models.ComponentIncrement, error) {
	return r.increments, nil
}

func (r *fakeRateTables) PaymentCondition(ctx context.Context, id uuid.UUID) (*models.PaymentCondition, error) {
	condition, ok := r.conditions[id]
	if !ok {
		return nil, errors.New("payment condition not found")
	}
	return &condition, nil
}

func int64Ptr(v int64) *int64 { return &v }

func testRateTables() *fakeRateTables {
	return &fakeRateTables{
		scales: []models.CostScale{
			{ID: uuid.New(), FromQty: 1, ToQty: int64Ptr(100), Description: "1-100 units", UnitCost: decimal.RequireFromString("12.00")},
			{ID: uuid.New(), FromQty: 101, ToQty: int64Ptr(500), Description: "101-500 units", UnitCost: decimal.RequireFromString("10.00")},
			{ID: uuid.New(), FromQty: 501, ToQty: nil, Description: "501+ units", UnitCost: decimal.RequireFromString("8.50")},
		},
		increments: []models.ComponentIncrement{
			{ID: uuid.New(), FromCount: 1, ToCount: int64Ptr(3), Description: "1-3 components", Increment: decimal.RequireFromString("0.10")},
			{ID: uuid.New(), FromCount: 4, ToCount: int64Ptr(6), Description: "4-6 components", Increment: decimal.RequireFromString("0.20")},
			{ID: uuid.New(), FromCount: 7, ToCount: nil, Description: "7+ components", Increment: decimal.RequireFromString("0.35")},
		},
		conditions: make(map[uuid.UUID]models.PaymentCondition),
	}
}

func testPolicies() Policies {
	return Policies{
		TaxRate:           decimal.RequireFromString("0.21"),
		ApplyTaxDefault:   true,
		ValidityDays:      15,
		ExpiryWarningDays: 3,
		MerchExpiry:       models.ExpiryByDate,
		PickingExpiry:     models.ExpiryByTimestamp,
		ScanBatchSize:     100,
		DispatchBatchSize: 100,
	}
}
