// Package billing splits a sale's gross value into commission and net payable.
package billing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

// MoneyPlaces is the decimal precision of every stored amount.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Bill is the outcome of pricing a sale.
type Bill struct {
	UnitPrice      decimal.Decimal `json:"unit_price"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Quantity       int64           `json:"quantity"`
	Gross          decimal.Decimal `json:"gross"`
	Commission     decimal.Decimal `json:"commission"`
	Net            decimal.Decimal `json:"net"`
}

// Compute prices quantity units. Gross and commission are rounded half-up to
// cents and net is derived by subtraction so commission+net always equals gross.
func Compute(unitPrice, commissionRatePercent decimal.Decimal, quantity int64) (Bill, error) {
	if quantity <= 0 {
		return Bill{}, shared.NewDomainError(shared.ErrInvalidInput, "Jumlah harus lebih dari 0")
	}
	if unitPrice.IsNegative() {
		return Bill{}, shared.NewDomainError(shared.ErrInvalidInput, "Harga produk tidak valid")
	}
	if commissionRatePercent.IsNegative() || commissionRatePercent.GreaterThan(hundred) {
		return Bill{}, shared.NewDomainError(shared.ErrInvalidInput, "Persentase komisi harus 0-100")
	}
	gross := unitPrice.Mul(decimal.NewFromInt(quantity)).Round(MoneyPlaces)
	commission := gross.Mul(commissionRatePercent).Div(hundred).Round(MoneyPlaces)
	return Bill{
		UnitPrice:      unitPrice,
		CommissionRate: commissionRatePercent,
		Quantity:       quantity,
		Gross:          gross,
		Commission:     commission,
		Net:            gross.Sub(commission),
	}, nil
}

// Payable reports whether the bill leaves the outlet owing something.
func (b Bill) Payable() bool {
	return b.Net.IsPositive()
}

// Pricing holds the product fields billing depends on.
type Pricing struct {
	ProductID      int64
	Name           string
	UnitPrice      decimal.Decimal
	CommissionRate decimal.Decimal
}

// PricingReader loads product pricing; it must return shared.ErrNotFound for unknown products.
type PricingReader interface {
	ProductPricing(ctx context.Context, productID int64) (Pricing, error)
}

// Calculator prices a product by id.
type Calculator struct {
	products PricingReader
}

// NewCalculator builds a Calculator.
func NewCalculator(products PricingReader) *Calculator {
	return &Calculator{products: products}
}

// ComputeForProduct looks the product up and prices quantity units of it.
func (c *Calculator) ComputeForProduct(ctx context.Context, productID, quantity int64) (Bill, error) {
	pricing, err := c.products.ProductPricing(ctx, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Bill{}, shared.NewDomainError(shared.ErrNotFound, "Produk tidak ditemukan")
		}
		return Bill{}, shared.StorageFailure("billing: product pricing", err)
	}
	return Compute(pricing.UnitPrice, pricing.CommissionRate, quantity)
}
