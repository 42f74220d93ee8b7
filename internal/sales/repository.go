package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/billing"
	"github.com/odyssey-erp/distribusi/internal/platform/db"
	"github.com/odyssey-erp/distribusi/internal/shared"
	"github.com/odyssey-erp/distribusi/internal/stock"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockOutlet(ctx context.Context, outletID int64) error
	LockProductPricing(ctx context.Context, productID int64) (billing.Pricing, error)
	AvailableStock(ctx context.Context, outletID, productID int64) (int64, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	ClaimIdempotencyKey(ctx context.Context, key string) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a ledger transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// OutletExists reports whether the outlet row is present.
func (r *Repository) OutletExists(ctx context.Context, outletID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM outlets WHERE id = $1)`, outletID).Scan(&exists)
	return exists, err
}

// ProductPricing loads the price and commission rate of a product.
func (r *Repository) ProductPricing(ctx context.Context, productID int64) (billing.Pricing, error) {
	return scanPricing(r.pool.QueryRow(ctx, `SELECT id, nama, harga, persentase_komisi FROM products WHERE id = $1`, productID))
}

// OutletBalance sums the open remainder of an outlet's sales.
func (r *Repository) OutletBalance(ctx context.Context, outletID int64) (decimal.Decimal, error) {
	return QueryOutletBalance(ctx, r.pool, outletID)
}

// ListSales returns sales newest first.
func (r *Repository) ListSales(ctx context.Context, filter shared.ListFilter) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.outlet_id, COALESCE(o.nama, ''), s.produk_id, COALESCE(p.nama, ''), s.jumlah_terjual, s.tanggal,
       s.tagihan, s.komisi, s.yang_harus_dibayar, s.remaining_amount, s.is_paid
FROM sales s
LEFT JOIN outlets o ON o.id = s.outlet_id
LEFT JOIN products p ON p.id = s.produk_id
WHERE ($1::bigint = 0 OR s.outlet_id = $1)
  AND ($2::timestamp IS NULL OR s.tanggal >= $2)
  AND ($3::timestamp IS NULL OR s.tanggal <= $3)
ORDER BY s.tanggal DESC, s.id DESC
LIMIT $4 OFFSET $5`, filter.OutletID, filter.FromParam(), filter.ToParam(), filter.LimitOrDefault(), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		var (
			s                                 Sale
			gross, commission, net, remaining pgtype.Numeric
		)
		if err := rows.Scan(&s.ID, &s.OutletID, &s.OutletName, &s.ProductID, &s.ProductName, &s.Quantity, &s.SoldAt,
			&gross, &commission, &net, &remaining, &s.IsPaid); err != nil {
			return nil, err
		}
		s.Gross = db.NumericToDecimal(gross)
		s.Commission = db.NumericToDecimal(commission)
		s.NetPayable = db.NumericToDecimal(net)
		s.RemainingAmount = db.NumericToDecimal(remaining)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *txRepo) LockOutlet(ctx context.Context, outletID int64) error {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM outlets WHERE id = $1 FOR SHARE`, outletID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return err
}

func (r *txRepo) LockProductPricing(ctx context.Context, productID int64) (billing.Pricing, error) {
	return scanPricing(r.tx.QueryRow(ctx, `SELECT id, nama, harga, persentase_komisi FROM products WHERE id = $1 FOR UPDATE`, productID))
}

func (r *txRepo) AvailableStock(ctx context.Context, outletID, productID int64) (int64, error) {
	return stock.OutletProductStock(ctx, r.tx, outletID, productID)
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (outlet_id, produk_id, jumlah_terjual, tanggal, tagihan, komisi, yang_harus_dibayar, remaining_amount, is_paid)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		sale.OutletID, sale.ProductID, sale.Quantity, sale.SoldAt,
		db.DecimalToNumeric(sale.Gross), db.DecimalToNumeric(sale.Commission), db.DecimalToNumeric(sale.NetPayable),
		db.DecimalToNumeric(sale.RemainingAmount), sale.IsPaid).Scan(&id)
	return id, err
}

func (r *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.ClaimIdempotencyKey(ctx, r.tx, key, "sales")
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.tx, log)
}

func scanPricing(row pgx.Row) (billing.Pricing, error) {
	var (
		p           billing.Pricing
		price, rate pgtype.Numeric
	)
	if err := row.Scan(&p.ProductID, &p.Name, &price, &rate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.Pricing{}, shared.ErrNotFound
		}
		return billing.Pricing{}, err
	}
	p.UnitPrice = db.NumericToDecimal(price)
	p.CommissionRate = db.NumericToDecimal(rate)
	return p, nil
}
