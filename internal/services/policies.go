package services

import (
	"time"

	"example.com/merchkit/services/quotes/config"
	"example.com/merchkit/services/quotes/internal/models"

	"github.com/shopspring/decimal"
)

// Policies are the quoting rules that come from configuration rather than
// the rate tables: the tax setup, default validity, the notification
// lead time, and how each quote kind compares expiry dates.
type Policies struct {
	TaxRate           decimal.Decimal
	ApplyTaxDefault   bool
	ValidityDays      int
	ExpiryWarningDays int
	MerchExpiry       models.ExpiryPolicy
	PickingExpiry     models.ExpiryPolicy
	ScanBatchSize     int
	DispatchBatchSize int
}

// PoliciesFromConfig builds Policies from the config section.
func PoliciesFromConfig(cfg config.QuotesConfig) Policies {
	return Policies{
		TaxRate:           decimal.NewFromFloat(cfg.TaxRate),
		ApplyTaxDefault:   cfg.ApplyTaxDefault,
		ValidityDays:      cfg.ValidityDays,
		ExpiryWarningDays: cfg.ExpiryWarningDays,
		MerchExpiry:       models.ExpiryPolicy(cfg.MerchExpiryPolicy),
		PickingExpiry:     models.ExpiryPolicy(cfg.PickingExpiryPolicy),
		ScanBatchSize:     cfg.ScanBatchSize,
		DispatchBatchSize: cfg.DispatchBatchSize,
	}
}

// ExpiryPolicy returns the comparison policy for a quote kind.
func (p Policies) ExpiryPolicy(kind models.QuoteKind) models.ExpiryPolicy {
	if kind == models.KindMerch {
		return p.MerchExpiry
	}
	return p.PickingExpiry
}

// ExpiryCutoff converts now into the scanner's comparison instant for a
// kind. Under the date policy the cutoff is the start of today, so a
// quote expiring today is not yet overdue; under the timestamp policy the
// cutoff is now itself.
func (p Policies) ExpiryCutoff(kind models.QuoteKind, now time.Time) time.Time {
	if p.ExpiryPolicy(kind) == models.ExpiryByDate {
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	}
	return now
}
