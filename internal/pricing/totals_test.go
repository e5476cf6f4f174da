package pricing

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)),
		"%s: want %s, got %s", field, want, got)
}

// Reference vector: services 1000, increment 20%, boxes 500, payment
// condition -5%, tax 21%.
func TestCalculateReferenceBreakdown(t *testing.T) {
	in := Input{
		Services: []CostLine{
			{UnitCost: decimal.NewFromInt(10), Quantity: 100},
		},
		Boxes: []CostLine{
			{UnitCost: decimal.NewFromInt(5), Quantity: 100},
		},
		IncrementRate:       decimal.NewFromFloat(0.20),
		PaymentConditionPct: decimal.NewFromInt(-5),
		TaxRate:             decimal.NewFromFloat(0.21),
		ApplyTax:            true,
		PricePerKit:         true,
		KitCount:            120,
	}

	b, err := Calculate(in)
	require.NoError(t, err)

	requireDecimalEqual(t, "1000", b.ServicesSubtotal, "services_subtotal")
	requireDecimalEqual(t, "200", b.IncrementAmount, "increment_amount")
	requireDecimalEqual(t, "1200", b.SubtotalWithIncrement, "subtotal_with_increment")
	requireDecimalEqual(t, "500", b.BoxTotal, "box_total")
	requireDecimalEqual(t, "1700", b.SubtotalBase, "subtotal_base")
	requireDecimalEqual(t, "-85", b.PaymentConditionAmount, "payment_condition_amount")
	requireDecimalEqual(t, "1615", b.SubtotalWithPayment, "subtotal_with_payment")
	requireDecimalEqual(t, "339.15", b.TaxAmount, "tax_amount")
	requireDecimalEqual(t, "1954.15", b.Total, "total")
	requireDecimalEqual(t, "16.28", b.UnitPricePerKit, "unit_price_per_kit")
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := Input{
		Services: []CostLine{
			{UnitCost: decimal.NewFromFloat(3.33), Quantity: 7},
			{UnitCost: decimal.NewFromFloat(0.07), Quantity: 991},
		},
		IncrementRate:       decimal.NewFromFloat(0.15),
		PaymentConditionPct: decimal.NewFromFloat(2.5),
		TaxRate:             decimal.NewFromFloat(0.21),
		ApplyTax:            true,
	}

	first, err := Calculate(in)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Calculate(in)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// Merch quotes have no component increment and no boxes; the breakdown
// degrades to subtotal + payment condition + tax.
func TestCalculateMerchShape(t *testing.T) {
	in := Input{
		Services: []CostLine{
			{UnitCost: decimal.NewFromFloat(12.50), Quantity: 40},
		},
		TaxRate:  decimal.NewFromFloat(0.21),
		ApplyTax: true,
	}

	b, err := Calculate(in)
	require.NoError(t, err)

	requireDecimalEqual(t, "500", b.ServicesSubtotal, "services_subtotal")
	requireDecimalEqual(t, "0", b.IncrementAmount, "increment_amount")
	requireDecimalEqual(t, "0", b.BoxTotal, "box_total")
	requireDecimalEqual(t, "500", b.SubtotalBase, "subtotal_base")
	requireDecimalEqual(t, "0", b.PaymentConditionAmount, "payment_condition_amount")
	requireDecimalEqual(t, "105", b.TaxAmount, "tax_amount")
	requireDecimalEqual(t, "605", b.Total, "total")
	require.True(t, b.UnitPricePerKit.IsZero())
}

func TestCalculateWithoutTax(t *testing.T) {
	in := Input{
		Services: []CostLine{
			{UnitCost: decimal.NewFromInt(100), Quantity: 10},
		},
		TaxRate:  decimal.NewFromFloat(0.21),
		ApplyTax: false,
	}

	b, err := Calculate(in)
	require.NoError(t, err)
	requireDecimalEqual(t, "0", b.TaxAmount, "tax_amount")
	requireDecimalEqual(t, "1000", b.Total, "total")
}

func TestCalculateRoundsOnlyAtTheEnd(t *testing.T) {
	// 3 * 0.333 = 0.999; with a 10% surcharge the unrounded chain gives
	// 1.0989 -> 1.10. Rounding mid-computation (0.999 -> 1.00) would give
	// 1.10 too, so also check the payment amount itself: 0.0999 -> 0.10.
	in := Input{
		Services: []CostLine{
			{UnitCost: decimal.NewFromFloat(0.333), Quantity: 3},
		},
		PaymentConditionPct: decimal.NewFromInt(10),
	}

	b, err := Calculate(in)
	require.NoError(t, err)
	requireDecimalEqual(t, "1.00", b.ServicesSubtotal, "services_subtotal")
	requireDecimalEqual(t, "0.10", b.PaymentConditionAmount, "payment_condition_amount")
	requireDecimalEqual(t, "1.10", b.Total, "total")
}

func TestCalculateZeroKitsFails(t *testing.T) {
	in := Input{
		Services:    []CostLine{{UnitCost: decimal.NewFromInt(10), Quantity: 1}},
		PricePerKit: true,
		KitCount:    0,
	}

	_, err := Calculate(in)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrZeroKits))

	in.KitCount = -5
	_, err = Calculate(in)
	require.True(t, errors.Is(err, ErrZeroKits))
}

func TestCalculatePaymentConditionSurcharge(t *testing.T) {
	in := Input{
		Services:            []CostLine{{UnitCost: decimal.NewFromInt(200), Quantity: 1}},
		PaymentConditionPct: decimal.NewFromInt(8),
	}

	b, err := Calculate(in)
	require.NoError(t, err)
	requireDecimalEqual(t, "16", b.PaymentConditionAmount, "payment_condition_amount")
	requireDecimalEqual(t, "216", b.Total, "total")
}
