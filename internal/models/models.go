package models

import (
	"fmt"
	"time"

	"example.com/merchkit/services/quotes/internal/lifecycle"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteKind discriminates the two product lines.
type QuoteKind string

const (
	KindMerch   QuoteKind = "merch"
	KindPicking QuoteKind = "picking"
)

// ExpiryPolicy controls how a quote's expiry date is compared against the
// scanner's clock.
type ExpiryPolicy string

const (
	// ExpiryByDate truncates the comparison to start of day: the quote
	// expires once its expiry day has fully passed.
	ExpiryByDate ExpiryPolicy = "date"
	// ExpiryByTimestamp compares full instants.
	ExpiryByTimestamp ExpiryPolicy = "timestamp"
)

// NotificationType identifies what a scheduled notification is about.
type NotificationType string

const (
	NotificationExpiryWarning NotificationType = "expiry_warning"
	NotificationExpired       NotificationType = "expired"
)

// Client is the recipient of a quote.
type Client struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"not null" json:"email"`
	Quotes    []Quote        `gorm:"foreignKey:ClientID" json:"-"`
}

// CostScale is a quantity-tiered unit cost row (admin-managed).
type CostScale struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	FromQty     int64           `gorm:"not null" json:"from_qty"`
	ToQty       *int64          `json:"to_qty"`
	Description string          `gorm:"not null" json:"description"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
}

// ComponentIncrement is a surcharge fraction keyed by how many components
// a kit contains (admin-managed). Increment is a fraction: 0.20 adds 20%.
type ComponentIncrement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	FromCount   int64           `gorm:"not null" json:"from_count"`
	ToCount     *int64          `json:"to_count"`
	Description string          `gorm:"not null" json:"description"`
	Increment   decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"increment"`
}

// PaymentCondition is a signed percentage adjustment tied to a payment
// term. Negative percentages are discounts, positive are surcharges.
type PaymentCondition struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Description string          `gorm:"not null" json:"description"`
	Percentage  decimal.Decimal `gorm:"type:decimal(7,2);not null" json:"percentage"`
}

// Quote is a priced proposal sent to a client. Merch and picking quotes
// share this shape; they differ in which line tables they own and in how
// expiry is compared.
//
// The tier and payment-condition fields are snapshots: resolved once at
// creation/edit time and never recomputed from the rate tables, so later
// rate changes cannot retroactively reprice a quote.
type Quote struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Kind        QuoteKind        `gorm:"type:varchar(10);not null;index" json:"kind"`
	Number      string           `gorm:"not null;uniqueIndex" json:"number"`
	Sequence    int64            `gorm:"not null" json:"-"`
	PublicToken string           `gorm:"not null;uniqueIndex" json:"-"`
	Status      lifecycle.Status `gorm:"type:varchar(12);not null;default:'unsent';index" json:"status"`

	VendorID uuid.UUID `gorm:"type:uuid;not null;index" json:"vendor_id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   Client    `gorm:"foreignKey:ClientID" json:"client"`

	IssueDate  time.Time `gorm:"not null" json:"issue_date"`
	ExpiryDate time.Time `gorm:"not null;index" json:"expiry_date"`

	// Snapshot of the resolved tier (cost scale for merch, component
	// increment for picking).
	TierDescription string          `gorm:"not null" json:"tier_description"`
	TierValue       decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"tier_value"`

	// Snapshot of the selected payment condition, if any.
	PaymentConditionDescription *string         `json:"payment_condition_description"`
	PaymentConditionPercentage  decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0" json:"payment_condition_percentage"`

	ApplyTax  bool            `gorm:"not null" json:"apply_tax"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"tax_rate"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	// Picking only.
	TotalKits       int64            `gorm:"not null;default:0" json:"total_kits,omitempty"`
	UnitPricePerKit *decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price_per_kit,omitempty"`

	SentAt       *time.Time `json:"sent_at"`
	DecisionAt   *time.Time `json:"decision_at"`
	RejectReason *string    `json:"reject_reason,omitempty"`

	LineItems     []LineItem     `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	ServiceLines  []ServiceLine  `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"service_lines,omitempty"`
	BoxLines      []BoxLine      `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"box_lines,omitempty"`
	Notifications []Notification `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"-"`
}

// Editable reports whether the vendor may still mutate the quote.
func (q *Quote) Editable() bool {
	return q.Status == lifecycle.StatusUnsent || q.Status == lifecycle.StatusDraft
}

// ExpiredAt reports whether the quote's expiry date has passed at now,
// under the given policy. The date check is authoritative regardless of
// the stored status.
func (q *Quote) ExpiredAt(now time.Time, policy ExpiryPolicy) bool {
	if policy == ExpiryByDate {
		year, month, day := now.Date()
		startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		return q.ExpiryDate.Before(startOfDay)
	}
	return q.ExpiryDate.Before(now)
}

// LineItem is one merch line. Items sharing a non-empty VariantGroup are
// mutually exclusive alternatives of which exactly one is selected; items
// without a group are always selected.
type LineItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	QuoteID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	Description    string          `gorm:"not null" json:"description"`
	Quantity       int64           `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	ProductionDays int             `gorm:"not null;default:0" json:"production_days"`
	VariantGroup   *string         `gorm:"index" json:"variant_group,omitempty"`
	IsSelected     bool            `gorm:"not null;default:true" json:"is_selected"`
}

// Selected reports whether the item contributes to totals.
func (i LineItem) Selected() bool {
	if i.VariantGroup == nil || *i.VariantGroup == "" {
		return true
	}
	return i.IsSelected
}

// ServiceLine is one picking/kitting service line.
type ServiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	Description string          `gorm:"not null" json:"description"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// BoxLine is one packaging line of a picking quote.
type BoxLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	Description string          `gorm:"not null" json:"description"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// Notification is a scheduled reminder or expiry email for one quote. At
// most one unsent notification of a given type exists per quote.
type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	QuoteID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"quote_id"`
	Quote        Quote            `gorm:"foreignKey:QuoteID" json:"-"`
	Type         NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	ScheduledFor time.Time        `gorm:"not null;index" json:"scheduled_for"`
	Sent         bool             `gorm:"not null;default:false;index" json:"sent"`
	SentAt       *time.Time       `json:"sent_at"`
}

// NextQuoteNumber builds the human-readable number for the next quote of
// a kind from the last used sequence. Pure: the caller supplies the
// sequence explicitly, there is no hidden counter.
func NextQuoteNumber(kind QuoteKind, year int, lastSequence int64) (string, int64) {
	prefix := "MQ"
	if kind == KindPicking {
		prefix = "PQ"
	}
	next := lastSequence + 1
	return fmt.Sprintf("%s-%d-%06d", prefix, year, next), next
}

// ValidateVariantGroups enforces the selection rule: within every
// non-empty variant group exactly one item is selected.
func ValidateVariantGroups(items []LineItem) error {
	selected := make(map[string]int)
	members := make(map[string]int)

	for _, item := range items {
		if item.VariantGroup == nil || *item.VariantGroup == "" {
			continue
		}
		members[*item.VariantGroup]++
		if item.IsSelected {
			selected[*item.VariantGroup]++
		}
	}

	for group := range members {
		if selected[group] != 1 {
			return errors.Errorf("variant group %q must have exactly one selected item, has %d", group, selected[group])
		}
	}
	return nil
}

// SelectedItems filters items down to those contributing to totals.
func SelectedItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Selected() {
			out = append(out, item)
		}
	}
	return out
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Client{},
		&CostScale{},
		&ComponentIncrement{},
		&PaymentCondition{},
		&Quote{},
		&LineItem{},
		&ServiceLine{},
		&BoxLine{},
		&Notification{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
