package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Repository persists stock ledger data in PostgreSQL.
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
	LockProduct(ctx context.Context, productID int64) (ProductStock, error)
	DecrementCentralStock(ctx context.Context, productID, quantity int64) error
	InsertDistribution(ctx context.Context, d Distribution) (int64, error)
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

// ProductStock returns the derived stock for an outlet/product pair.
func (r *Repository) ProductStock(ctx context.Context, outletID, productID int64) (int64, error) {
	return OutletProductStock(ctx, r.pool, outletID, productID)
}

// SlotUsage returns the derived stock across every product of an outlet.
func (r *Repository) SlotUsage(ctx context.Context, outletID int64) (SlotUsage, error) {
	return OutletSlotUsage(ctx, r.pool, outletID)
}

// ListDistributions returns distributions newest first.
func (r *Repository) ListDistributions(ctx context.Context, filter shared.ListFilter) ([]Distribution, error) {
	rows, err := r.pool.Query(ctx, `SELECT d.id, d.outlet_id, COALESCE(o.nama, ''), d.produk_id, COALESCE(p.nama, ''), d.jumlah, d.tanggal
FROM distributions d
LEFT JOIN outlets o ON o.id = d.outlet_id
LEFT JOIN products p ON p.id = d.produk_id
WHERE ($1::bigint = 0 OR d.outlet_id = $1)
  AND ($2::timestamp IS NULL OR d.tanggal >= $2)
  AND ($3::timestamp IS NULL OR d.tanggal <= $3)
ORDER BY d.tanggal DESC, d.id DESC
LIMIT $4 OFFSET $5`, filter.OutletID, filter.FromParam(), filter.ToParam(), filter.LimitOrDefault(), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Distribution
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(&d.ID, &d.OutletID, &d.OutletName, &d.ProductID, &d.ProductName, &d.Quantity, &d.DistributedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
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

func (r *txRepo) LockProduct(ctx context.Context, productID int64) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx, `SELECT id, nama, stok_pusat FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&p.ID, &p.Name, &p.CentralStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductStock{}, shared.ErrNotFound
	}
	return p, err
}

func (r *txRepo) DecrementCentralStock(ctx context.Context, productID, quantity int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stok_pusat = stok_pusat - $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND stok_pusat >= $2`, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return shared.NewDomainError(shared.ErrInsufficientCentralStock, "Stok pusat tidak mencukupi")
	}
	return nil
}

func (r *txRepo) InsertDistribution(ctx context.Context, d Distribution) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO distributions (outlet_id, produk_id, jumlah, tanggal) VALUES ($1, $2, $3, $4) RETURNING id`,
		d.OutletID, d.ProductID, d.Quantity, d.DistributedAt).Scan(&id)
	return id, err
}

func (r *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.ClaimIdempotencyKey(ctx, r.tx, key, "distributions")
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.tx, log)
}
