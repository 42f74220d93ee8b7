package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
	"github.com/odyssey-erp/distribusi/internal/sales"
	"github.com/odyssey-erp/distribusi/internal/shared"
	"github.com/odyssey-erp/distribusi/internal/stock"
)

// Repository runs the read-only report queries.
type Repository struct {
	pool  *pgxpool.Pool
	stock *stock.Repository
	sales *sales.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, stock: stock.NewRepository(pool), sales: sales.NewRepository(pool)}
}

// Totals sums distributions and sales inside the filter window.
func (r *Repository) Totals(ctx context.Context, filter shared.ListFilter) (Totals, error) {
	totals := zeroTotals()
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(jumlah), 0) FROM distributions
WHERE ($1::bigint = 0 OR outlet_id = $1)
  AND ($2::timestamp IS NULL OR tanggal >= $2)
  AND ($3::timestamp IS NULL OR tanggal <= $3)`,
		filter.OutletID, filter.FromParam(), filter.ToParam()).Scan(&totals.TotalDistributed)
	if err != nil {
		return Totals{}, err
	}
	var gross, commission, net, outstanding pgtype.Numeric
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(jumlah_terjual), 0), COALESCE(SUM(tagihan), 0), COALESCE(SUM(komisi), 0),
       COALESCE(SUM(yang_harus_dibayar), 0), COALESCE(SUM(remaining_amount), 0)
FROM sales
WHERE ($1::bigint = 0 OR outlet_id = $1)
  AND ($2::timestamp IS NULL OR tanggal >= $2)
  AND ($3::timestamp IS NULL OR tanggal <= $3)`,
		filter.OutletID, filter.FromParam(), filter.ToParam()).Scan(&totals.TotalSold, &gross, &commission, &net, &outstanding)
	if err != nil {
		return Totals{}, err
	}
	totals.TotalGross = db.NumericToDecimal(gross)
	totals.TotalCommission = db.NumericToDecimal(commission)
	totals.TotalNet = db.NumericToDecimal(net)
	totals.TotalOutstanding = db.NumericToDecimal(outstanding)
	return totals, nil
}

// DetailLines lists sales joined with per outlet/product distribution aggregates.
func (r *Repository) DetailLines(ctx context.Context, filter shared.ListFilter) ([]DetailLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.tanggal, s.outlet_id, COALESCE(o.nama, ''), s.produk_id, COALESCE(p.nama, ''),
       s.jumlah_terjual, COALESCE(p.harga, 0), s.tagihan, s.komisi, s.yang_harus_dibayar, s.remaining_amount, s.is_paid,
       COALESCE(d.total_distribusi, 0), COALESCE(d.total_distribusi, 0) - COALESCE(sold.total_sold, 0)
FROM sales s
LEFT JOIN outlets o ON o.id = s.outlet_id
LEFT JOIN products p ON p.id = s.produk_id
LEFT JOIN (
	SELECT outlet_id, produk_id, SUM(jumlah) AS total_distribusi
	FROM distributions GROUP BY outlet_id, produk_id
) d ON d.outlet_id = s.outlet_id AND d.produk_id = s.produk_id
LEFT JOIN (
	SELECT outlet_id, produk_id, SUM(jumlah_terjual) AS total_sold
	FROM sales GROUP BY outlet_id, produk_id
) sold ON sold.outlet_id = s.outlet_id AND sold.produk_id = s.produk_id
WHERE ($1::bigint = 0 OR s.outlet_id = $1)
  AND ($2::timestamp IS NULL OR s.tanggal >= $2)
  AND ($3::timestamp IS NULL OR s.tanggal <= $3)
ORDER BY s.tanggal DESC, s.id DESC
LIMIT $4`, filter.OutletID, filter.FromParam(), filter.ToParam(), filter.LimitOrDefault())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DetailLine
	for rows.Next() {
		var (
			l                                        DetailLine
			price, gross, commission, net, remaining pgtype.Numeric
		)
		if err := rows.Scan(&l.SaleID, &l.SoldAt, &l.OutletID, &l.OutletName, &l.ProductID, &l.ProductName,
			&l.Quantity, &price, &gross, &commission, &net, &remaining, &l.IsPaid, &l.Distributed, &l.StockLeft); err != nil {
			return nil, err
		}
		l.UnitPrice = db.NumericToDecimal(price)
		l.Gross = db.NumericToDecimal(gross)
		l.Commission = db.NumericToDecimal(commission)
		l.NetPayable = db.NumericToDecimal(net)
		l.RemainingAmount = db.NumericToDecimal(remaining)
		out = append(out, l)
	}
	return out, rows.Err()
}

// DetailSummary aggregates every sale in the filter window. The distributed
// total adds the outlet/product distribution figure once per sale line.
func (r *Repository) DetailSummary(ctx context.Context, filter shared.ListFilter) (DetailSummary, error) {
	summary := zeroSummary()
	var gross, commission, net pgtype.Numeric
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(s.jumlah_terjual), 0), COALESCE(SUM(s.tagihan), 0), COALESCE(SUM(s.komisi), 0),
       COALESCE(SUM(s.yang_harus_dibayar), 0), COALESCE(SUM(COALESCE(d.total_distribusi, 0)), 0)::bigint
FROM sales s
LEFT JOIN (
	SELECT outlet_id, produk_id, SUM(jumlah) AS total_distribusi
	FROM distributions GROUP BY outlet_id, produk_id
) d ON d.outlet_id = s.outlet_id AND d.produk_id = s.produk_id
WHERE ($1::bigint = 0 OR s.outlet_id = $1)
  AND ($2::timestamp IS NULL OR s.tanggal >= $2)
  AND ($3::timestamp IS NULL OR s.tanggal <= $3)`,
		filter.OutletID, filter.FromParam(), filter.ToParam()).
		Scan(&summary.TotalSold, &gross, &commission, &net, &summary.TotalDistributed)
	if err != nil {
		return DetailSummary{}, err
	}
	summary.TotalGross = db.NumericToDecimal(gross)
	summary.TotalCommission = db.NumericToDecimal(commission)
	summary.TotalNet = db.NumericToDecimal(net)
	return summary, nil
}

// SlotOutlets returns capacity inputs for one outlet, or all when outletID is zero.
func (r *Repository) SlotOutlets(ctx context.Context, outletID int64) ([]SlotOutlet, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.nama, o.slot_maksimal,
       COALESCE((SELECT SUM(jumlah) FROM distributions d WHERE d.outlet_id = o.id), 0),
       COALESCE((SELECT SUM(jumlah_terjual) FROM sales s WHERE s.outlet_id = o.id), 0)
FROM outlets o
WHERE ($1::bigint = 0 OR o.id = $1)
ORDER BY o.nama, o.id`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SlotOutlet
	for rows.Next() {
		var o SlotOutlet
		if err := rows.Scan(&o.OutletID, &o.OutletName, &o.SlotMax, &o.Distributed, &o.Sold); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Balances returns the outstanding balance of every outlet.
func (r *Repository) Balances(ctx context.Context) ([]BalanceLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.nama, COALESCE(SUM(s.remaining_amount) FILTER (WHERE s.remaining_amount > 0), 0)
FROM outlets o
LEFT JOIN sales s ON s.outlet_id = o.id
GROUP BY o.id, o.nama
ORDER BY o.nama, o.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BalanceLine
	for rows.Next() {
		var (
			b       BalanceLine
			balance pgtype.Numeric
		)
		if err := rows.Scan(&b.OutletID, &b.OutletName, &balance); err != nil {
			return nil, err
		}
		b.Balance = db.NumericToDecimal(balance)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Counts returns the number of outlets and products.
func (r *Repository) Counts(ctx context.Context) (outlets, products int64, err error) {
	err = r.pool.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM outlets), (SELECT COUNT(*) FROM products)`).Scan(&outlets, &products)
	return outlets, products, err
}

// RecentDistributions returns the latest distributions.
func (r *Repository) RecentDistributions(ctx context.Context, limit int) ([]stock.Distribution, error) {
	return r.stock.ListDistributions(ctx, shared.ListFilter{Limit: limit})
}

// RecentSales returns the latest sales.
func (r *Repository) RecentSales(ctx context.Context, limit int) ([]sales.Sale, error) {
	return r.sales.ListSales(ctx, shared.ListFilter{Limit: limit})
}
