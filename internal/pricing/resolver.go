package pricing

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Rate-table configuration errors. Both indicate the rate table needs
// fixing by an administrator; callers must never fall back to a default
// tier.
var (
	ErrNoMatchingTier   = errors.New("no matching tier for value")
	ErrOverlappingTiers = errors.New("rate table contains overlapping tiers")
)

// TierRow is one row of a rate table: an inclusive [From, To] range and
// the value it yields. A nil To means "or more".
type TierRow struct {
	From        int64
	To          *int64
	Description string
	Value       decimal.Decimal
}

// contains reports whether value falls inside the row's range.
func (r TierRow) contains(value int64) bool {
	if value < r.From {
		return false
	}
	return r.To == nil || value <= *r.To
}

// ValidateTable checks that no two rows of a rate table overlap. The rows
// may be passed in any order.
func ValidateTable(rows []TierRow) error {
	sorted := make([]TierRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev.To == nil || *prev.To >= sorted[i].From {
			return errors.Wrapf(ErrOverlappingTiers,
				"tier starting at %d overlaps tier starting at %d", prev.From, sorted[i].From)
		}
	}
	return nil
}

// Resolve returns the single row whose range contains value. A table with
// overlapping rows or no matching row is a configuration error; the
// resolver never substitutes a boundary tier.
func Resolve(rows []TierRow, value int64) (TierRow, error) {
	if err := ValidateTable(rows); err != nil {
		return TierRow{}, err
	}

	for _, row := range rows {
		if row.contains(value) {
			return row, nil
		}
	}

	return TierRow{}, errors.Wrapf(ErrNoMatchingTier, "value %d", value)
}
