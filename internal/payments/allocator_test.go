package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC) }

func TestAllocateFIFOOldestFirst(t *testing.T) {
	obligations := []Obligation{
		{SaleID: 3, SoldAt: day(3), Remaining: dec("30")},
		{SaleID: 1, SoldAt: day(1), Remaining: dec("100")},
		{SaleID: 2, SoldAt: day(2), Remaining: dec("50")},
	}

	allocations, err := AllocateFIFO(dec("120"), obligations)
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	require.EqualValues(t, 1, allocations[0].SaleID)
	require.True(t, allocations[0].AmountApplied.Equal(dec("100")))
	require.True(t, allocations[0].ResultingRemaining.IsZero())
	require.True(t, allocations[0].FullyPaid)

	require.EqualValues(t, 2, allocations[1].SaleID)
	require.True(t, allocations[1].AmountApplied.Equal(dec("20")))
	require.True(t, allocations[1].ResultingRemaining.Equal(dec("30")))
	require.False(t, allocations[1].FullyPaid)

	require.True(t, TotalApplied(allocations).Equal(dec("120")))
}

func TestAllocateFIFOTiesBrokenBySaleID(t *testing.T) {
	obligations := []Obligation{
		{SaleID: 8, SoldAt: day(5), Remaining: dec("10")},
		{SaleID: 4, SoldAt: day(5), Remaining: dec("10")},
	}
	allocations, err := AllocateFIFO(dec("15"), obligations)
	require.NoError(t, err)
	require.EqualValues(t, 4, allocations[0].SaleID)
	require.True(t, allocations[0].FullyPaid)
	require.EqualValues(t, 8, allocations[1].SaleID)
	require.True(t, allocations[1].ResultingRemaining.Equal(dec("5")))
}

func TestAllocateFIFOExactSettlement(t *testing.T) {
	allocations, err := AllocateFIFO(dec("45000"), []Obligation{{SaleID: 1, SoldAt: day(1), Remaining: dec("45000")}})
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	require.True(t, allocations[0].FullyPaid)
	require.True(t, allocations[0].ResultingRemaining.IsZero())
}

func TestAllocateFIFOSkipsClosedObligations(t *testing.T) {
	allocations, err := AllocateFIFO(dec("5"), []Obligation{
		{SaleID: 1, SoldAt: day(1), Remaining: dec("0")},
		{SaleID: 2, SoldAt: day(2), Remaining: dec("7.50")},
	})
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	require.EqualValues(t, 2, allocations[0].SaleID)
	require.Equal(t, "2.50", allocations[0].ResultingRemaining.StringFixed(2))
}

func TestAllocateFIFOLeftoverIsInvariantViolation(t *testing.T) {
	_, err := AllocateFIFO(dec("61"), []Obligation{
		{SaleID: 1, SoldAt: day(1), Remaining: dec("30")},
		{SaleID: 2, SoldAt: day(2), Remaining: dec("30")},
	})
	require.ErrorIs(t, err, shared.ErrAllocationInvariant)
}

func TestAllocateFIFORejectsNonPositiveAmount(t *testing.T) {
	_, err := AllocateFIFO(decimal.Zero, nil)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	_, err = AllocateFIFO(dec("-5"), nil)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestAllocateFIFODoesNotMutateInput(t *testing.T) {
	obligations := []Obligation{
		{SaleID: 2, SoldAt: day(2), Remaining: dec("50")},
		{SaleID: 1, SoldAt: day(1), Remaining: dec("100")},
	}
	_, err := AllocateFIFO(dec("120"), obligations)
	require.NoError(t, err)
	require.EqualValues(t, 2, obligations[0].SaleID)
	require.True(t, obligations[0].Remaining.Equal(dec("50")))
}
