// Package reports aggregates read-only views over the ledger.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/sales"
	"github.com/odyssey-erp/distribusi/internal/stock"
)

// Totals are the overall ledger figures for a period.
type Totals struct {
	TotalDistributed int64           `json:"total_distribusi"`
	TotalSold        int64           `json:"total_penjualan"`
	TotalGross       decimal.Decimal `json:"total_tagihan"`
	TotalCommission  decimal.Decimal `json:"total_komisi"`
	TotalNet         decimal.Decimal `json:"total_omzet_bersih"`
	TotalOutstanding decimal.Decimal `json:"total_piutang"`
}

// DetailLine is one sale in the detailed outlet report.
type DetailLine struct {
	SaleID          int64           `json:"sale_id"`
	SoldAt          time.Time       `json:"tanggal"`
	OutletID        int64           `json:"outlet_id"`
	OutletName      string          `json:"outlet_nama"`
	ProductID       int64           `json:"produk_id"`
	ProductName     string          `json:"produk_nama"`
	Quantity        int64           `json:"jumlah_terjual"`
	UnitPrice       decimal.Decimal `json:"harga"`
	Gross           decimal.Decimal `json:"tagihan"`
	Commission      decimal.Decimal `json:"komisi"`
	NetPayable      decimal.Decimal `json:"yang_harus_dibayar"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	IsPaid          bool            `json:"is_paid"`
	Distributed     int64           `json:"distribusi"`
	StockLeft       int64           `json:"sisa"`
}

// DetailSummary totals every sale of a detailed report window.
type DetailSummary struct {
	TotalSold        int64           `json:"total_terjual"`
	TotalGross       decimal.Decimal `json:"total_tagihan"`
	TotalCommission  decimal.Decimal `json:"total_komisi"`
	TotalNet         decimal.Decimal `json:"total_dibayar"`
	TotalDistributed int64           `json:"total_distribusi"`
}

// SlotReport is an outlet's capacity usage.
type SlotReport struct {
	OutletID        int64   `json:"outlet_id"`
	OutletName      string  `json:"outlet_nama"`
	SlotMax         int64   `json:"slot_maksimal"`
	Distributed     int64   `json:"distributed"`
	Sold            int64   `json:"sold"`
	Used            int64   `json:"used"`
	Available       int64   `json:"available"`
	UsagePercentage float64 `json:"usage_percentage"`
}

// BalanceLine is an outlet's outstanding balance.
type BalanceLine = sales.OutletBalance

// Overview combines the report page sections.
type Overview struct {
	Totals  Totals        `json:"totals"`
	Lines   []DetailLine  `json:"lines"`
	Summary DetailSummary `json:"summary"`
	Slots   []SlotReport  `json:"slots"`
}

// AdminDashboard is the administrator landing view.
type AdminDashboard struct {
	Totals   Totals        `json:"totals"`
	Slots    []SlotReport  `json:"slots"`
	Balances []BalanceLine `json:"balances"`
}

// StaffDashboard is the staff landing view.
type StaffDashboard struct {
	Totals              Totals               `json:"totals"`
	OutletCount         int64                `json:"outlet_count"`
	ProductCount        int64                `json:"product_count"`
	RecentDistributions []stock.Distribution `json:"recent_distributions"`
	RecentSales         []sales.Sale         `json:"recent_sales"`
}

// SlotOutlet is the raw input of a slot report.
type SlotOutlet struct {
	OutletID    int64
	OutletName  string
	SlotMax     int64
	Distributed int64
	Sold        int64
}

// BuildSlotReport floors used at zero and guards the percentage against a zero capacity.
func BuildSlotReport(o SlotOutlet) SlotReport {
	used := o.Distributed - o.Sold
	if used < 0 {
		used = 0
	}
	report := SlotReport{
		OutletID:    o.OutletID,
		OutletName:  o.OutletName,
		SlotMax:     o.SlotMax,
		Distributed: o.Distributed,
		Sold:        o.Sold,
		Used:        used,
		Available:   o.SlotMax - used,
	}
	if o.SlotMax > 0 {
		pct := decimal.NewFromInt(used).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(o.SlotMax)).Round(2)
		report.UsagePercentage = pct.InexactFloat64()
	}
	return report
}

func zeroSummary() DetailSummary {
	return DetailSummary{TotalGross: decimal.Zero, TotalCommission: decimal.Zero, TotalNet: decimal.Zero}
}

func zeroTotals() Totals {
	return Totals{TotalGross: decimal.Zero, TotalCommission: decimal.Zero, TotalNet: decimal.Zero, TotalOutstanding: decimal.Zero}
}
