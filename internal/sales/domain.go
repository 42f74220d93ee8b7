// Package sales records outlet sales as payable obligations.
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a sold quantity together with the obligation it created.
type Sale struct {
	ID              int64           `json:"id"`
	OutletID        int64           `json:"outlet_id"`
	OutletName      string          `json:"outlet_name,omitempty"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name,omitempty"`
	Quantity        int64           `json:"quantity"`
	SoldAt          time.Time       `json:"sold_at"`
	Gross           decimal.Decimal `json:"gross"`
	Commission      decimal.Decimal `json:"commission"`
	NetPayable      decimal.Decimal `json:"net_payable"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	IsPaid          bool            `json:"is_paid"`
}

// SaleInput is the request to record a sale.
type SaleInput struct {
	OutletID       int64
	ProductID      int64
	Quantity       int64
	SoldAt         time.Time
	IdempotencyKey string
	ActorID        int64
}

// OutletBalance is the derived outstanding amount of an outlet.
type OutletBalance struct {
	OutletID   int64           `json:"outlet_id"`
	OutletName string          `json:"outlet_name,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
}
