package sales

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
)

const outletBalanceSQL = `SELECT COALESCE(SUM(remaining_amount), 0) FROM sales WHERE outlet_id = $1 AND remaining_amount > 0`

// QueryOutletBalance sums the open remainder of an outlet's sales, floored at zero.
func QueryOutletBalance(ctx context.Context, q db.DBTX, outletID int64) (decimal.Decimal, error) {
	var total pgtype.Numeric
	if err := q.QueryRow(ctx, outletBalanceSQL, outletID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return floorZero(db.NumericToDecimal(total)), nil
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
