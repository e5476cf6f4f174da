package services

import (
	"context"
	"time"

	"example.com/merchkit/services/quotes/internal/cache"
	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/mailer"
	"example.com/merchkit/services/quotes/internal/messaging"
	"example.com/merchkit/services/quotes/internal/metrics"
	"example.com/merchkit/services/quotes/internal/models"
	"example.com/merchkit/services/quotes/internal/pricing"
	"example.com/merchkit/services/quotes/internal/repositories"
	"example.com/merchkit/services/quotes/internal/token"
	"example.com/merchkit/services/quotes/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrValidation is the root of all input validation failures. They are
// rejected before any calculation runs.
var ErrValidation = errors.New("validation failed")

// QuoteService implements quote creation, pricing and lifecycle
// transitions.
type QuoteService struct {
	quotes        QuoteStore
	notifications NotificationStore
	rates         RateTableStore
	tokens        token.Generator
	mail          mailer.Mailer
	publisher     messaging.Publisher
	indexer       QuoteIndexer
	cache         *cache.RedisCache
	collector     *metrics.Metrics
	tracer        tracing.Tracer
	clock         Clock
	policies      Policies
}

// NewQuoteService creates a new quote service. Publisher, indexer and
// cache may be nil; the service degrades to logging-only for those
// concerns.
func NewQuoteService(
	quotes QuoteStore,
	notifications NotificationStore,
	rates RateTableStore,
	tokens token.Generator,
	mail mailer.Mailer,
	publisher messaging.Publisher,
	indexer QuoteIndexer,
	redisCache *cache.RedisCache,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
	clock Clock,
	policies Policies,
) *QuoteService {
	return &QuoteService{
		quotes:        quotes,
		notifications: notifications,
		rates:         rates,
		tokens:        tokens,
		mail:          mail,
		publisher:     publisher,
		indexer:       indexer,
		cache:         redisCache,
		collector:     collector,
		tracer:        tracer,
		clock:         clock,
		policies:      policies,
	}
}

// LineItemInput is one merch line of a create request.
type LineItemInput struct {
	Description    string          `json:"description"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ProductionDays int             `json:"production_days"`
	VariantGroup   *string         `json:"variant_group,omitempty"`
	IsSelected     bool            `json:"is_selected"`
}

// CostLineInput is one service or box line of a picking create request.
type CostLineInput struct {
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quantity    int64           `json:"quantity"`
}

// CreateQuoteInput carries everything needed to create a quote.
type CreateQuoteInput struct {
	Kind               models.QuoteKind `json:"kind"`
	VendorID           uuid.UUID        `json:"vendor_id"`
	ClientID           uuid.UUID        `json:"client_id"`
	IssueDate          time.Time        `json:"issue_date"`
	ExpiryDate         time.Time        `json:"expiry_date"`
	ApplyTax           *bool            `json:"apply_tax,omitempty"`
	PaymentConditionID *uuid.UUID       `json:"payment_condition_id,omitempty"`

	// Merch.
	Items []LineItemInput `json:"items,omitempty"`

	// Picking.
	Services       []CostLineInput `json:"services,omitempty"`
	Boxes          []CostLineInput `json:"boxes,omitempty"`
	ComponentCount int64           `json:"component_count,omitempty"`
	TotalKits      int64           `json:"total_kits,omitempty"`
}

// CreateQuote validates the input, resolves and snapshots the applicable
// tier, computes totals and persists the quote with its lines and
// scheduled notifications. The tier snapshot means later rate-table edits
// never touch this quote.
func (s *QuoteService) CreateQuote(ctx context.Context, in CreateQuoteInput) (*models.Quote, error) {
	txn := s.tracer.StartTransaction("create-quote")
	defer s.tracer.EndTransaction(txn)

	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = now
	}
	expiryDate := in.ExpiryDate
	if expiryDate.IsZero() {
		expiryDate = issueDate.AddDate(0, 0, s.policies.ValidityDays)
	}
	if !expiryDate.After(issueDate) {
		return nil, errors.Wrap(ErrValidation, "expiry date must be after issue date")
	}

	quoteID := uuid.New()
	items := buildLineItems(quoteID, in.Items)
	if err := models.ValidateVariantGroups(items); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	span := s.tracer.StartSpan("resolve-tier", txn)
	tier, incrementRate, serviceLines, err := s.resolveTier(ctx, in, items)
	span.End()
	if err != nil {
		s.collector.IncrementCounter(metrics.ConfigurationFailures)
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	paymentDescription, paymentPct, err := s.resolvePaymentCondition(ctx, in.PaymentConditionID)
	if err != nil {
		return nil, err
	}

	applyTax := s.policies.ApplyTaxDefault
	if in.ApplyTax != nil {
		applyTax = *in.ApplyTax
	}

	breakdown, err := pricing.Calculate(pricing.Input{
		Services:            serviceLines,
		Boxes:               toCostLines(in.Boxes),
		IncrementRate:       incrementRate,
		PaymentConditionPct: paymentPct,
		TaxRate:             s.policies.TaxRate,
		ApplyTax:            applyTax,
		PricePerKit:         in.Kind == models.KindPicking,
		KitCount:            in.TotalKits,
	})
	if err != nil {
		s.collector.IncrementCounter(metrics.ConfigurationFailures)
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	publicToken, err := s.tokens.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate public token")
	}

	lastSequence, err := s.quotes.LastSequence(ctx, in.Kind)
	if err != nil {
		return nil, err
	}
	number, sequence := models.NextQuoteNumber(in.Kind, issueDate.Year(), lastSequence)

	quote := &models.Quote{
		ID:                          quoteID,
		Kind:                        in.Kind,
		Number:                      number,
		Sequence:                    sequence,
		PublicToken:                 publicToken,
		Status:                      lifecycle.StatusUnsent,
		VendorID:                    in.VendorID,
		ClientID:                    in.ClientID,
		IssueDate:                   issueDate,
		ExpiryDate:                  expiryDate,
		TierDescription:             tier.Description,
		TierValue:                   tier.Value,
		PaymentConditionDescription: paymentDescription,
		PaymentConditionPercentage:  paymentPct,
		ApplyTax:                    applyTax,
		TaxRate:                     s.policies.TaxRate,
		Subtotal:                    breakdown.SubtotalWithPayment,
		TaxAmount:                   breakdown.TaxAmount,
		Total:                       breakdown.Total,
		TotalKits:                   in.TotalKits,
		LineItems:                   items,
		ServiceLines:                buildServiceLines(quoteID, in.Services),
		BoxLines:                    buildBoxLines(quoteID, in.Boxes),
	}
	if in.Kind == models.KindPicking {
		unitPrice := breakdown.UnitPricePerKit
		quote.UnitPricePerKit = &unitPrice
	}
	quote.Notifications = s.scheduleFor(quote)

	span = s.tracer.StartSpan("persist-quote", txn)
	err = s.quotes.Create(ctx, quote)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to persist quote")
	}

	s.collector.IncrementCounter(metrics.QuotesCreated)
	log.Info().
		Str("quote_id", quote.ID.String()).
		Str("number", quote.Number).
		Str("kind", string(quote.Kind)).
		Str("total", quote.Total.String()).
		Msg("Quote created")

	return quote, nil
}

// GetQuote loads a quote with its client and lines.
func (s *QuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	return s.quotes.GetByID(ctx, id)
}

// Recalculate re-runs the totals calculator from the persisted lines and
// snapshots, without re-resolving tiers. Only unsent/draft quotes can be
// recalculated; sent quotes are immutable.
func (s *QuoteService) Recalculate(ctx context.Context, id uuid.UUID) (*pricing.Breakdown, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quote.Editable() {
		return nil, errors.Wrapf(lifecycle.ErrInvalidTransition, "quote %s is %s and can no longer be recalculated", quote.Number, quote.Status)
	}

	breakdown, err := pricing.Calculate(calculatorInput(quote))
	if err != nil {
		s.collector.IncrementCounter(metrics.ConfigurationFailures)
		return nil, err
	}

	updates := map[string]interface{}{
		"subtotal":   breakdown.SubtotalWithPayment,
		"tax_amount": breakdown.TaxAmount,
		"total":      breakdown.Total,
	}
	if quote.Kind == models.KindPicking {
		updates["unit_price_per_kit"] = breakdown.UnitPricePerKit
	}
	if err := s.quotes.UpdateTotals(ctx, id, updates); err != nil {
		return nil, err
	}

	return breakdown, nil
}

// Transition applies a lifecycle event to a quote. The status write is a
// conditional single-row update re-checking the source status, so two
// racing actors cannot both win. Expiry is applied only by the scanner.
func (s *QuoteService) Transition(ctx context.Context, id uuid.UUID, event lifecycle.Event, actor, reason string) (*models.Quote, error) {
	txn := s.tracer.StartTransaction("transition-quote")
	defer s.tracer.EndTransaction(txn)

	if event == lifecycle.EventExpire {
		return nil, errors.Wrap(lifecycle.ErrInvalidTransition, "expiry is applied by the scanner, not by actors")
	}

	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// The date check is authoritative even when the scanner has not
	// caught up with the stored status yet.
	if event.ClientEvent() && quote.ExpiredAt(now, s.policies.ExpiryPolicy(quote.Kind)) {
		return nil, errors.Wrapf(lifecycle.ErrQuoteExpired, "quote %s expired %s", quote.Number, quote.ExpiryDate.Format(time.RFC3339))
	}

	next, err := lifecycle.Next(quote.Status, event)
	if err != nil {
		s.collector.IncrementCounter(metrics.InvalidTransitions)
		return nil, err
	}

	stamps := map[string]interface{}{}
	switch event {
	case lifecycle.EventSend:
		if quote.PublicToken == "" {
			publicToken, err := s.tokens.Generate()
			if err != nil {
				return nil, errors.Wrap(err, "failed to generate public token")
			}
			quote.PublicToken = publicToken
			stamps["public_token"] = publicToken
		}
		quote.SentAt = &now
		stamps["sent_at"] = now
	case lifecycle.EventApprove:
		quote.DecisionAt = &now
		stamps["decision_at"] = now
	case lifecycle.EventReject:
		quote.DecisionAt = &now
		stamps["decision_at"] = now
		if reason != "" {
			quote.RejectReason = &reason
			stamps["reject_reason"] = reason
		}
	}

	updated, err := s.quotes.UpdateStatus(ctx, id, quote.Status, next, stamps)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	if !updated {
		s.collector.IncrementCounter(metrics.InvalidTransitions)
		return nil, errors.Wrapf(lifecycle.ErrInvalidTransition, "quote %s was changed concurrently", quote.Number)
	}

	previous := quote.Status
	quote.Status = next

	log.Info().
		Str("quote_id", quote.ID.String()).
		Str("number", quote.Number).
		Str("from", string(previous)).
		Str("to", string(next)).
		Str("actor", actor).
		Msg("Quote transitioned")

	s.afterTransition(ctx, quote, event, now)

	return quote, nil
}

// afterTransition runs the side effects of a committed transition. They
// are best-effort: failures are logged, the status change stands.
func (s *QuoteService) afterTransition(ctx context.Context, quote *models.Quote, event lifecycle.Event, now time.Time) {
	if err := s.cache.Delete(ctx, cache.PublicQuoteCacheKey(quote.PublicToken)); err != nil {
		log.Warn().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to invalidate public quote cache")
	}

	var eventType string
	switch event {
	case lifecycle.EventSend:
		s.collector.IncrementCounter(metrics.QuotesSent)
		eventType = messaging.EventQuoteSent
		s.rescheduleNotifications(ctx, quote)
		s.emailQuoteSent(ctx, quote)
	case lifecycle.EventApprove:
		s.collector.IncrementCounter(metrics.QuotesApproved)
		eventType = messaging.EventQuoteApproved
		// A decided quote needs no further reminders.
		if err := s.notifications.DeleteUnsent(ctx, quote.ID); err != nil {
			log.Warn().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to drop pending notifications")
		}
	case lifecycle.EventReject:
		s.collector.IncrementCounter(metrics.QuotesRejected)
		eventType = messaging.EventQuoteRejected
		if err := s.notifications.DeleteUnsent(ctx, quote.ID); err != nil {
			log.Warn().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to drop pending notifications")
		}
	}

	if eventType != "" && s.publisher != nil {
		err := s.publisher.Publish(ctx, messaging.QuoteEvent{
			Type:       eventType,
			QuoteID:    quote.ID.String(),
			Number:     quote.Number,
			Kind:       string(quote.Kind),
			Status:     string(quote.Status),
			OccurredAt: now,
		})
		if err != nil {
			log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to publish quote event")
		}
	}

	if s.indexer != nil {
		if err := s.indexer.IndexQuote(ctx, quote); err != nil {
			log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to index quote")
		}
	}
}

// cachedPublicQuote is the redis envelope for public lookups. The quote's
// own token field is excluded from JSON everywhere, so the envelope
// carries the token explicitly for the equality check on read.
type cachedPublicQuote struct {
	Token string       `json:"token"`
	Quote models.Quote `json:"quote"`
}

// ResolvePublicQuote returns the quote a public access token grants
// access to. The token is the sole credential; lookup is an exact match.
func (s *QuoteService) ResolvePublicQuote(ctx context.Context, publicToken string) (*models.Quote, error) {
	s.collector.IncrementCounter(metrics.PublicQuoteLookups)

	if !token.WellFormed(publicToken) {
		// A malformed token can never match; do not touch the database.
		return nil, repositories.ErrQuoteNotFound
	}

	key := cache.PublicQuoteCacheKey(publicToken)
	var cached cachedPublicQuote
	if err := s.cache.Get(ctx, key, &cached); err == nil && token.Equal(cached.Token, publicToken) {
		s.collector.IncrementCounter(metrics.PublicQuoteCacheHits)
		quote := cached.Quote
		quote.PublicToken = cached.Token
		return &quote, nil
	}

	quote, err := s.quotes.GetByToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, cachedPublicQuote{Token: publicToken, Quote: *quote}, time.Minute); err != nil {
		log.Debug().Err(err).Msg("Failed to cache public quote")
	}

	return quote, nil
}

// UpdateExpiryDate moves the expiry of an unsent/draft quote and
// recomputes its scheduled notifications so stale schedules never linger.
func (s *QuoteService) UpdateExpiryDate(ctx context.Context, id uuid.UUID, expiryDate time.Time) (*models.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quote.Editable() {
		return nil, errors.Wrapf(lifecycle.ErrInvalidTransition, "quote %s is %s and its expiry can no longer change", quote.Number, quote.Status)
	}
	if !expiryDate.After(quote.IssueDate) {
		return nil, errors.Wrap(ErrValidation, "expiry date must be after issue date")
	}

	quote.ExpiryDate = expiryDate
	if err := s.quotes.Save(ctx, quote); err != nil {
		return nil, errors.Wrap(err, "failed to save quote expiry date")
	}

	s.rescheduleNotifications(ctx, quote)
	return quote, nil
}

// scheduleFor computes the two notifications a quote carries: a warning
// N days ahead of expiry and an expired notice on the expiry instant.
func (s *QuoteService) scheduleFor(quote *models.Quote) []models.Notification {
	return []models.Notification{
		{
			ID:           uuid.New(),
			QuoteID:      quote.ID,
			Type:         models.NotificationExpiryWarning,
			ScheduledFor: quote.ExpiryDate.AddDate(0, 0, -s.policies.ExpiryWarningDays),
		},
		{
			ID:           uuid.New(),
			QuoteID:      quote.ID,
			Type:         models.NotificationExpired,
			ScheduledFor: quote.ExpiryDate,
		},
	}
}

func (s *QuoteService) rescheduleNotifications(ctx context.Context, quote *models.Quote) {
	if err := s.notifications.DeleteUnsent(ctx, quote.ID); err != nil {
		log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to delete unsent notifications")
		return
	}
	if err := s.notifications.Create(ctx, s.scheduleFor(quote)); err != nil {
		log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to schedule notifications")
	}
}

func (s *QuoteService) emailQuoteSent(ctx context.Context, quote *models.Quote) {
	recipient := quote.Client.Email
	if recipient == "" {
		log.Warn().Str("quote_id", quote.ID.String()).Msg("Client has no email, skipping sent notification")
		return
	}

	err := s.mail.Send(ctx, recipient, mailer.TemplateQuoteSent, map[string]string{
		"quote_number": quote.Number,
		"client_name":  quote.Client.Name,
		"total":        quote.Total.StringFixed(2),
		"expiry_date":  quote.ExpiryDate.Format("2006-01-02"),
		"public_token": quote.PublicToken,
	})
	if err != nil {
		log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to email sent quote")
	}
}

// resolveTier resolves and snapshots the applicable rate-table row: the
// cost scale by total selected quantity for merch, the component
// increment by component count for picking. The increment also feeds the
// calculator; the merch cost scale is snapshot-only.
func (s *QuoteService) resolveTier(ctx context.Context, in CreateQuoteInput, items []models.LineItem) (pricing.TierRow, decimal.Decimal, []pricing.CostLine, error) {
	if in.Kind == models.KindMerch {
		selected := models.SelectedItems(items)
		var totalQty int64
		serviceLines := make([]pricing.CostLine, 0, len(selected))
		for _, item := range selected {
			totalQty += item.Quantity
			serviceLines = append(serviceLines, pricing.CostLine{UnitCost: item.UnitPrice, Quantity: item.Quantity})
		}

		scales, err := s.rates.CostScales(ctx)
		if err != nil {
			return pricing.TierRow{}, decimal.Zero, nil, err
		}
		row, err := pricing.Resolve(costScaleRows(scales), totalQty)
		if err != nil {
			return pricing.TierRow{}, decimal.Zero, nil, err
		}
		return row, decimal.Zero, serviceLines, nil
	}

	increments, err := s.rates.ComponentIncrements(ctx)
	if err != nil {
		return pricing.TierRow{}, decimal.Zero, nil, err
	}
	row, err := pricing.Resolve(componentIncrementRows(increments), in.ComponentCount)
	if err != nil {
		return pricing.TierRow{}, decimal.Zero, nil, err
	}
	return row, row.Value, toCostLines(in.Services), nil
}

func (s *QuoteService) resolvePaymentCondition(ctx context.Context, id *uuid.UUID) (*string, decimal.Decimal, error) {
	if id == nil {
		return nil, decimal.Zero, nil
	}
	condition, err := s.rates.PaymentCondition(ctx, *id)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(ErrValidation, "unknown payment condition")
	}
	description := condition.Description
	return &description, condition.Percentage, nil
}

func validateCreateInput(in CreateQuoteInput) error {
	if in.Kind != models.KindMerch && in.Kind != models.KindPicking {
		return errors.Wrapf(ErrValidation, "unknown quote kind %q", in.Kind)
	}
	if in.ClientID == uuid.Nil {
		return errors.Wrap(ErrValidation, "client is required")
	}
	if in.VendorID == uuid.Nil {
		return errors.Wrap(ErrValidation, "vendor is required")
	}

	if in.Kind == models.KindMerch {
		if len(in.Items) == 0 {
			return errors.Wrap(ErrValidation, "a merch quote needs at least one line item")
		}
		for _, item := range in.Items {
			if item.Quantity <= 0 {
				return errors.Wrapf(ErrValidation, "line item %q has non-positive quantity", item.Description)
			}
			if item.UnitPrice.IsNegative() {
				return errors.Wrapf(ErrValidation, "line item %q has negative unit price", item.Description)
			}
		}
		return nil
	}

	if len(in.Services) == 0 {
		return errors.Wrap(ErrValidation, "a picking quote needs at least one service line")
	}
	for _, line := range append(append([]CostLineInput{}, in.Services...), in.Boxes...) {
		if line.Quantity <= 0 {
			return errors.Wrapf(ErrValidation, "line %q has non-positive quantity", line.Description)
		}
		if line.UnitCost.IsNegative() {
			return errors.Wrapf(ErrValidation, "line %q has negative unit cost", line.Description)
		}
	}
	if in.ComponentCount <= 0 {
		return errors.Wrap(ErrValidation, "component count must be positive")
	}
	if in.TotalKits <= 0 {
		return errors.Wrap(ErrValidation, "total kits must be positive")
	}
	return nil
}

// calculatorInput rebuilds the calculator input from persisted lines and
// snapshot fields, so recalculation never touches the rate tables.
func calculatorInput(quote *models.Quote) pricing.Input {
	in := pricing.Input{
		PaymentConditionPct: quote.PaymentConditionPercentage,
		TaxRate:             quote.TaxRate,
		ApplyTax:            quote.ApplyTax,
	}

	if quote.Kind == models.KindMerch {
		for _, item := range models.SelectedItems(quote.LineItems) {
			in.Services = append(in.Services, pricing.CostLine{UnitCost: item.UnitPrice, Quantity: item.Quantity})
		}
		return in
	}

	for _, line := range quote.ServiceLines {
		in.Services = append(in.Services, pricing.CostLine{UnitCost: line.UnitCost, Quantity: line.Quantity})
	}
	for _, line := range quote.BoxLines {
		in.Boxes = append(in.Boxes, pricing.CostLine{UnitCost: line.UnitCost, Quantity: line.Quantity})
	}
	in.IncrementRate = quote.TierValue
	in.PricePerKit = true
	in.KitCount = quote.TotalKits
	return in
}

func buildLineItems(quoteID uuid.UUID, inputs []LineItemInput) []models.LineItem {
	items := make([]models.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.LineItem{
			ID:             uuid.New(),
			QuoteID:        quoteID,
			Description:    in.Description,
			Quantity:       in.Quantity,
			UnitPrice:      in.UnitPrice,
			ProductionDays: in.ProductionDays,
			VariantGroup:   in.VariantGroup,
			IsSelected:     in.IsSelected,
		})
	}
	return items
}

func buildServiceLines(quoteID uuid.UUID, inputs []CostLineInput) []models.ServiceLine {
	lines := make([]models.ServiceLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, models.ServiceLine{
			ID:          uuid.New(),
			QuoteID:     quoteID,
			Description: in.Description,
			UnitCost:    in.UnitCost,
			Quantity:    in.Quantity,
			Subtotal:    in.UnitCost.Mul(decimal.NewFromInt(in.Quantity)).Round(2),
		})
	}
	return lines
}

func buildBoxLines(quoteID uuid.UUID, inputs []CostLineInput) []models.BoxLine {
	lines := make([]models.BoxLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, models.BoxLine{
			ID:          uuid.New(),
			QuoteID:     quoteID,
			Description: in.Description,
			UnitCost:    in.UnitCost,
			Quantity:    in.Quantity,
			Subtotal:    in.UnitCost.Mul(decimal.NewFromInt(in.Quantity)).Round(2),
		})
	}
	return lines
}

func toCostLines(inputs []CostLineInput) []pricing.CostLine {
	lines := make([]pricing.CostLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, pricing.CostLine{UnitCost: in.UnitCost, Quantity: in.Quantity})
	}
	return lines
}

func costScaleRows(scales []models.CostScale) []pricing.TierRow {
	rows := make([]pricing.TierRow, 0, len(scales))
	for _, s := range scales {
		rows = append(rows, pricing.TierRow{From: s.FromQty, To: s.ToQty, Description: s.Description, Value: s.UnitCost})
	}
	return rows
}

func componentIncrementRows(increments []models.ComponentIncrement) []pricing.TierRow {
	rows := make([]pricing.TierRow, 0, len(increments))
	for _, inc := range increments {
		rows = append(rows, pricing.TierRow{From: inc.FromCount, To: inc.ToCount, Description: inc.Description, Value: inc.Increment})
	}
	return rows
}
