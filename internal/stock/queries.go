package stock

import (
	"context"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
)

const outletProductStockSQL = `SELECT
	(SELECT COALESCE(SUM(jumlah), 0) FROM distributions WHERE outlet_id = $1 AND produk_id = $2)
	- (SELECT COALESCE(SUM(jumlah_terjual), 0) FROM sales WHERE outlet_id = $1 AND produk_id = $2)`

const outletSlotUsageSQL = `SELECT
	(SELECT COALESCE(SUM(jumlah), 0) FROM distributions WHERE outlet_id = $1),
	(SELECT COALESCE(SUM(jumlah_terjual), 0) FROM sales WHERE outlet_id = $1)`

// OutletProductStock derives distributed minus sold for one outlet/product
// pair. Callers inside a ledger transaction pass the tx so the figure is read
// after their row locks were taken.
func OutletProductStock(ctx context.Context, q db.DBTX, outletID, productID int64) (int64, error) {
	var available int64
	if err := q.QueryRow(ctx, outletProductStockSQL, outletID, productID).Scan(&available); err != nil {
		return 0, err
	}
	return available, nil
}

// OutletSlotUsage derives distributed, sold and used units across all products of an outlet.
func OutletSlotUsage(ctx context.Context, q db.DBTX, outletID int64) (SlotUsage, error) {
	usage := SlotUsage{OutletID: outletID}
	if err := q.QueryRow(ctx, outletSlotUsageSQL, outletID).Scan(&usage.Distributed, &usage.Sold); err != nil {
		return SlotUsage{}, err
	}
	usage.Used = usage.Distributed - usage.Sold
	return usage, nil
}
