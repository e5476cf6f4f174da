package pricing

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func int64ptr(v int64) *int64 { return &v }

func testTable() []TierRow {
	return []TierRow{
		{From: 1, To: int64ptr(99), Description: "A", Value: decimal.NewFromFloat(10.50)},
		{From: 100, To: int64ptr(199), Description: "B", Value: decimal.NewFromFloat(9.25)},
		{From: 200, To: nil, Description: "C", Value: decimal.NewFromFloat(8.00)},
	}
}

func TestResolveMatchesCorrectTier(t *testing.T) {
	table := testTable()

	cases := []struct {
		value int64
		want  string
	}{
		{1, "A"},
		{50, "A"},
		{99, "A"},
		{100, "B"},
		{150, "B"},
		{199, "B"},
		{200, "C"},
		{500, "C"},
		{1000000, "C"},
	}

	for _, tc := range cases {
		row, err := Resolve(table, tc.value)
		require.NoError(t, err, "value %d", tc.value)
		require.Equal(t, tc.want, row.Description, "value %d", tc.value)
	}
}

func TestResolveBelowAllTiersIsConfigurationError(t *testing.T) {
	_, err := Resolve(testTable(), -1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoMatchingTier))

	_, err = Resolve(testTable(), 0)
	require.True(t, errors.Is(err, ErrNoMatchingTier))
}

func TestResolveGapIsConfigurationError(t *testing.T) {
	gapped := []TierRow{
		{From: 1, To: int64ptr(50), Description: "low"},
		{From: 100, To: nil, Description: "high"},
	}

	// 75 falls between the tiers; the resolver must surface the gap, not
	// default to a boundary tier.
	_, err := Resolve(gapped, 75)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoMatchingTier))
}

func TestResolveOverlappingTableIsConfigurationError(t *testing.T) {
	overlapping := []TierRow{
		{From: 1, To: int64ptr(100), Description: "A"},
		{From: 100, To: int64ptr(200), Description: "B"},
	}

	_, err := Resolve(overlapping, 50)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOverlappingTiers))
}

func TestValidateTableOpenEndedNotLast(t *testing.T) {
	// An open-ended row swallows everything above it, so any later row
	// overlaps it.
	bad := []TierRow{
		{From: 1, To: nil, Description: "open"},
		{From: 500, To: int64ptr(600), Description: "later"},
	}

	err := ValidateTable(bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOverlappingTiers))
}

func TestValidateTableUnorderedInput(t *testing.T) {
	shuffled := []TierRow{testTable()[2], testTable()[0], testTable()[1]}
	require.NoError(t, ValidateTable(shuffled))

	row, err := Resolve(shuffled, 150)
	require.NoError(t, err)
	require.Equal(t, "B", row.Description)
}
