// Package stock implements the stock ledger: distributions from central stock
// to outlets and the derived per-outlet stock aggregates.
package stock

import "time"

// Distribution is an immutable transfer of units from central stock to an outlet.
type Distribution struct {
	ID            int64     `json:"id"`
	OutletID      int64     `json:"outlet_id"`
	OutletName    string    `json:"outlet_name,omitempty"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name,omitempty"`
	Quantity      int64     `json:"quantity"`
	DistributedAt time.Time `json:"distributed_at"`
}

// DistributionInput is the request to move stock to an outlet.
type DistributionInput struct {
	OutletID       int64
	ProductID      int64
	Quantity       int64
	DistributedAt  time.Time
	IdempotencyKey string
	ActorID        int64
}

// ProductStock is a locked product row as seen by the distribution check.
type ProductStock struct {
	ID           int64
	Name         string
	CentralStock int64
}

// SlotUsage aggregates an outlet's virtual stock over every product.
type SlotUsage struct {
	OutletID    int64 `json:"outlet_id"`
	Distributed int64 `json:"distributed"`
	Sold        int64 `json:"sold"`
	Used        int64 `json:"used"`
}
