// Package payments allocates outlet payments across open sale obligations.
package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status values stored in payments.status.
const (
	StatusLunas    = "lunas"
	StatusSebagian = "sebagian"
)

// Payment is an immutable payment event with its allocation trail.
type Payment struct {
	ID            int64            `json:"id"`
	OutletID      int64            `json:"outlet_id"`
	OutletName    string           `json:"outlet_name,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	PaidOn        time.Time        `json:"paid_on"`
	SettledOn     *time.Time       `json:"settled_on,omitempty"`
	Status        string           `json:"status"`
	OutletBalance *decimal.Decimal `json:"outlet_balance,omitempty"`
	Allocations   []Allocation     `json:"allocations,omitempty"`
}

// PaymentInput is the request to record a payment.
type PaymentInput struct {
	OutletID       int64
	Amount         decimal.Decimal
	PaidOn         time.Time
	IdempotencyKey string
	ActorID        int64
}

// Result is the outcome of a recorded payment.
type Result struct {
	Payment     Payment         `json:"payment"`
	Status      string          `json:"status"`
	NewBalance  decimal.Decimal `json:"new_balance"`
	Allocations []Allocation    `json:"allocations"`
}

// StatusFor derives the payment status from the balance left after allocation.
func StatusFor(balanceAfter decimal.Decimal) string {
	if balanceAfter.IsPositive() {
		return StatusSebagian
	}
	return StatusLunas
}
