// Package invoice builds the unpaid-sales invoice of an outlet.
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Company is the issuer printed in the invoice header.
type Company struct {
	Name    string
	Contact string
}

// Outlet is the billed party.
type Outlet struct {
	ID       int64  `json:"id"`
	Name     string `json:"nama"`
	Location string `json:"lokasi"`
	Contact  string `json:"kontak"`
}

// Line is one unpaid sale on the invoice.
type Line struct {
	No          int             `json:"no"`
	SaleID      int64           `json:"sale_id"`
	SoldAt      time.Time       `json:"tanggal"`
	ProductName string          `json:"produk"`
	Quantity    int64           `json:"qty"`
	UnitPrice   decimal.Decimal `json:"harga_satuan"`
	Gross       decimal.Decimal `json:"total"`
	Commission  decimal.Decimal `json:"komisi"`
	NetPayable  decimal.Decimal `json:"tagihan"`
	Remaining   decimal.Decimal `json:"sisa_tagihan"`
}

// Invoice is the assembled document.
type Invoice struct {
	Number          string          `json:"number"`
	IssuedAt        time.Time       `json:"issued_at"`
	CompanyName     string          `json:"company"`
	CompanyContact  string          `json:"company_contact,omitempty"`
	Outlet          Outlet          `json:"outlet"`
	Lines           []Line          `json:"lines"`
	TotalQuantity   int64           `json:"total_qty"`
	TotalGross      decimal.Decimal `json:"total_penjualan"`
	TotalCommission decimal.Decimal `json:"total_komisi"`
	TotalNet        decimal.Decimal `json:"total_tagihan"`
	TotalRemaining  decimal.Decimal `json:"total_yang_harus_dibayar"`
}

// Settled reports whether the outlet has nothing left to pay.
func (inv Invoice) Settled() bool { return len(inv.Lines) == 0 }

// Number formats the invoice number for an outlet on a given day.
func Number(issuedAt time.Time, outletID int64) string {
	return fmt.Sprintf("INV-%s-%04d", issuedAt.Format("20060102"), outletID)
}

// Assemble keeps only lines with a positive remainder, numbers them in
// order and computes the totals.
func Assemble(company Company, outlet Outlet, lines []Line, issuedAt time.Time) Invoice {
	inv := Invoice{
		Number:          Number(issuedAt, outlet.ID),
		IssuedAt:        issuedAt,
		CompanyName:     company.Name,
		CompanyContact:  company.Contact,
		Outlet:          outlet,
		Lines:           make([]Line, 0, len(lines)),
		TotalGross:      decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalNet:        decimal.Zero,
		TotalRemaining:  decimal.Zero,
	}
	for _, line := range lines {
		if !line.Remaining.IsPositive() {
			continue
		}
		line.No = len(inv.Lines) + 1
		inv.Lines = append(inv.Lines, line)
		inv.TotalQuantity += line.Quantity
		inv.TotalGross = inv.TotalGross.Add(line.Gross)
		inv.TotalCommission = inv.TotalCommission.Add(line.Commission)
		inv.TotalNet = inv.TotalNet.Add(line.NetPayable)
		inv.TotalRemaining = inv.TotalRemaining.Add(line.Remaining)
	}
	return inv
}

// FileName is the suggested download name of the PDF.
func FileName(inv Invoice) string {
	status := "BELUM_LUNAS"
	if inv.Settled() {
		status = "LUNAS"
	}
	name := strings.Join(strings.Fields(inv.Outlet.Name), "_")
	if name == "" {
		name = fmt.Sprintf("outlet_%d", inv.Outlet.ID)
	}
	return fmt.Sprintf("Invoice_%s_%s_%s.pdf", name, status, inv.IssuedAt.Format("20060102"))
}
