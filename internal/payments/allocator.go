package payments

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Obligation is an open sale remainder eligible for allocation.
type Obligation struct {
	SaleID    int64
	SoldAt    time.Time
	Remaining decimal.Decimal
}

// Allocation records how much of a payment went to one sale.
type Allocation struct {
	SaleID             int64           `json:"sale_id"`
	AmountApplied      decimal.Decimal `json:"amount_applied"`
	ResultingRemaining decimal.Decimal `json:"resulting_remaining"`
	FullyPaid          bool            `json:"fully_paid"`
}

// AllocateFIFO spreads amount over obligations oldest first, ties broken by
// sale id. A partial allocation consumes the rest of the payment and ends the
// walk. Amount left over once every obligation is closed means the caller
// skipped the balance check and is reported as ErrAllocationInvariant.
func AllocateFIFO(amount decimal.Decimal, obligations []Obligation) ([]Allocation, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount, "Jumlah pembayaran harus lebih dari 0")
	}
	ordered := make([]Obligation, 0, len(obligations))
	for _, o := range obligations {
		if o.Remaining.IsPositive() {
			ordered = append(ordered, o)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].SoldAt.Equal(ordered[j].SoldAt) {
			return ordered[i].SoldAt.Before(ordered[j].SoldAt)
		}
		return ordered[i].SaleID < ordered[j].SaleID
	})

	remaining := amount
	allocations := make([]Allocation, 0, len(ordered))
	for _, o := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if remaining.GreaterThanOrEqual(o.Remaining) {
			allocations = append(allocations, Allocation{
				SaleID:             o.SaleID,
				AmountApplied:      o.Remaining,
				ResultingRemaining: decimal.Zero,
				FullyPaid:          true,
			})
			remaining = remaining.Sub(o.Remaining)
			continue
		}
		allocations = append(allocations, Allocation{
			SaleID:             o.SaleID,
			AmountApplied:      remaining,
			ResultingRemaining: o.Remaining.Sub(remaining),
			FullyPaid:          false,
		})
		remaining = decimal.Zero
		break
	}
	if remaining.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrAllocationInvariant,
			"sisa pembayaran %s tidak teralokasi", remaining.StringFixed(2))
	}
	return allocations, nil
}

// TotalApplied sums the amounts of allocations.
func TotalApplied(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.AmountApplied)
	}
	return total
}
