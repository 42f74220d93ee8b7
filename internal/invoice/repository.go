package invoice

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Repository reads invoice data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Outlet loads the billed outlet.
func (r *Repository) Outlet(ctx context.Context, outletID int64) (Outlet, error) {
	var (
		o        Outlet
		location pgtype.Text
		contact  pgtype.Text
	)
	err := r.pool.QueryRow(ctx, `SELECT id, nama, lokasi, kontak FROM outlets WHERE id = $1`, outletID).
		Scan(&o.ID, &o.Name, &location, &contact)
	if errors.Is(err, pgx.ErrNoRows) {
		return Outlet{}, shared.ErrNotFound
	}
	if err != nil {
		return Outlet{}, err
	}
	o.Location, o.Contact = location.String, contact.String
	return o, nil
}

// UnpaidLines returns the outlet's sales with an open remainder, oldest
// first. The unit price is derived from the stored gross so later price
// changes do not alter past invoices.
func (r *Repository) UnpaidLines(ctx context.Context, filter shared.ListFilter) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.tanggal, COALESCE(p.nama, ''), s.jumlah_terjual,
       ROUND(s.tagihan / NULLIF(s.jumlah_terjual, 0), 2), s.tagihan, s.komisi, s.yang_harus_dibayar, s.remaining_amount
FROM sales s
LEFT JOIN products p ON p.id = s.produk_id
WHERE s.outlet_id = $1
  AND s.remaining_amount > 0
  AND ($2::timestamp IS NULL OR s.tanggal >= $2)
  AND ($3::timestamp IS NULL OR s.tanggal <= $3)
ORDER BY s.tanggal, s.id`, filter.OutletID, filter.FromParam(), filter.ToParam())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var (
			line                                    Line
			unit, gross, commission, net, remaining pgtype.Numeric
		)
		if err := rows.Scan(&line.SaleID, &line.SoldAt, &line.ProductName, &line.Quantity,
			&unit, &gross, &commission, &net, &remaining); err != nil {
			return nil, err
		}
		line.UnitPrice = db.NumericToDecimal(unit)
		line.Gross = db.NumericToDecimal(gross)
		line.Commission = db.NumericToDecimal(commission)
		line.NetPayable = db.NumericToDecimal(net)
		line.Remaining = db.NumericToDecimal(remaining)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
