package pricing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrZeroKits is returned when a per-kit price is requested for a quote
// with no kits. This must be validated upstream; reaching it here is a
// configuration error.
var ErrZeroKits = errors.New("total kits must be greater than zero")

// CostLine is a priced line: unit cost times quantity.
type CostLine struct {
	UnitCost decimal.Decimal
	Quantity int64
}

// Total returns UnitCost * Quantity, unrounded.
func (l CostLine) Total() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(l.Quantity))
}

// Input carries everything the calculator needs to produce a breakdown.
//
// IncrementRate is a fraction (0.20 adds 20%); PaymentConditionPct is in
// percent units (-5 subtracts 5%) and may be negative for discounts. The
// asymmetry is deliberate and matches how the rate tables store the two
// values.
type Input struct {
	Services            []CostLine
	Boxes               []CostLine
	IncrementRate       decimal.Decimal
	PaymentConditionPct decimal.Decimal
	TaxRate             decimal.Decimal
	ApplyTax            bool
	PricePerKit         bool
	KitCount            int64
}

// Breakdown is the full totals snapshot for a quote. Every field is
// rounded to 2 decimal places; intermediate arithmetic is not.
type Breakdown struct {
	ServicesSubtotal       decimal.Decimal `json:"services_subtotal"`
	IncrementAmount        decimal.Decimal `json:"increment_amount"`
	SubtotalWithIncrement  decimal.Decimal `json:"subtotal_with_increment"`
	BoxTotal               decimal.Decimal `json:"box_total"`
	SubtotalBase           decimal.Decimal `json:"subtotal_base"`
	PaymentConditionAmount decimal.Decimal `json:"payment_condition_amount"`
	SubtotalWithPayment    decimal.Decimal `json:"subtotal_with_payment"`
	TaxAmount              decimal.Decimal `json:"tax_amount"`
	Total                  decimal.Decimal `json:"total"`
	UnitPricePerKit        decimal.Decimal `json:"unit_price_per_kit"`
}

var oneHundred = decimal.NewFromInt(100)

// Calculate produces a deterministic totals breakdown. The computation
// order is fixed: services subtotal, component increment, boxes, payment
// condition, tax, per-kit price. Each step feeds the next at full
// precision; rounding happens only when the derived fields are emitted.
func Calculate(in Input) (*Breakdown, error) {
	servicesSubtotal := decimal.Zero
	for _, line := range in.Services {
		servicesSubtotal = servicesSubtotal.Add(line.Total())
	}

	incrementAmount := servicesSubtotal.Mul(in.IncrementRate)
	subtotalWithIncrement := servicesSubtotal.Add(incrementAmount)

	boxTotal := decimal.Zero
	for _, line := range in.Boxes {
		boxTotal = boxTotal.Add(line.Total())
	}
	subtotalBase := subtotalWithIncrement.Add(boxTotal)

	paymentConditionAmount := subtotalBase.Mul(in.PaymentConditionPct).Div(oneHundred)
	subtotalWithPayment := subtotalBase.Add(paymentConditionAmount)

	taxAmount := decimal.Zero
	if in.ApplyTax {
		taxAmount = subtotalWithPayment.Mul(in.TaxRate)
	}
	total := subtotalWithPayment.Add(taxAmount)

	breakdown := &Breakdown{
		ServicesSubtotal:       servicesSubtotal.Round(2),
		IncrementAmount:        incrementAmount.Round(2),
		SubtotalWithIncrement:  subtotalWithIncrement.Round(2),
		BoxTotal:               boxTotal.Round(2),
		SubtotalBase:           subtotalBase.Round(2),
		PaymentConditionAmount: paymentConditionAmount.Round(2),
		SubtotalWithPayment:    subtotalWithPayment.Round(2),
		TaxAmount:              taxAmount.Round(2),
		Total:                  total.Round(2),
	}

	if in.PricePerKit {
		if in.KitCount <= 0 {
			return nil, errors.Wrapf(ErrZeroKits, "kit count %d", in.KitCount)
		}
		breakdown.UnitPricePerKit = total.Div(decimal.NewFromInt(in.KitCount)).Round(2)
	}

	return breakdown, nil
}
