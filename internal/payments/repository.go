package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
	"github.com/odyssey-erp/distribusi/internal/sales"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Repository persists payments in PostgreSQL.
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
	OutletBalance(ctx context.Context, outletID int64) (decimal.Decimal, error)
	OpenObligations(ctx context.Context, outletID int64) ([]Obligation, error)
	ApplyAllocation(ctx context.Context, a Allocation) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	InsertAllocations(ctx context.Context, paymentID int64, allocations []Allocation) error
	ClaimIdempotencyKey(ctx context.Context, key string) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx pgx.Tx
}

// ErrAllocationConflict signals that a sale changed under a held lock.
var ErrAllocationConflict = errors.New("payments: obligation changed during allocation")

// WithTx executes the callback inside a ledger transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const paymentColumns = `p.id, p.outlet_id, COALESCE(o.nama, ''), p.jumlah_bayar, p.tanggal_bayar, p.tanggal_pelunasan, p.status`

// ListPayments returns payments newest first with each outlet's current balance.
func (r *Repository) ListPayments(ctx context.Context, filter shared.ListFilter) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+`, COALESCE(b.balance, 0)
FROM payments p
LEFT JOIN outlets o ON o.id = p.outlet_id
LEFT JOIN (
	SELECT outlet_id, SUM(remaining_amount) AS balance
	FROM sales
	WHERE remaining_amount > 0
	GROUP BY outlet_id
) b ON b.outlet_id = p.outlet_id
WHERE ($1::bigint = 0 OR p.outlet_id = $1)
  AND ($2::timestamp IS NULL OR p.tanggal_bayar >= $2::date)
  AND ($3::timestamp IS NULL OR p.tanggal_bayar <= $3::date)
ORDER BY p.tanggal_bayar DESC, p.id DESC
LIMIT $4 OFFSET $5`, filter.OutletID, filter.FromParam(), filter.ToParam(), filter.LimitOrDefault(), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var balance pgtype.Numeric
		p, err := scanPayment(rows, &balance)
		if err != nil {
			return nil, err
		}
		b := db.NumericToDecimal(balance)
		p.OutletBalance = &b
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPayment loads one payment with its allocation lines.
func (r *Repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+`
FROM payments p
LEFT JOIN outlets o ON o.id = p.outlet_id
WHERE p.id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, shared.ErrNotFound
		}
		return Payment{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT sale_id, amount_applied, resulting_remaining, fully_paid
FROM payment_allocations WHERE payment_id = $1 ORDER BY id`, id)
	if err != nil {
		return Payment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a                  Allocation
			applied, remaining pgtype.Numeric
		)
		if err := rows.Scan(&a.SaleID, &applied, &remaining, &a.FullyPaid); err != nil {
			return Payment{}, err
		}
		a.AmountApplied = db.NumericToDecimal(applied)
		a.ResultingRemaining = db.NumericToDecimal(remaining)
		p.Allocations = append(p.Allocations, a)
	}
	return p, rows.Err()
}

func scanPayment(row pgx.Row, extra ...any) (Payment, error) {
	var (
		p       Payment
		amount  pgtype.Numeric
		settled pgtype.Date
	)
	dest := append([]any{&p.ID, &p.OutletID, &p.OutletName, &amount, &p.PaidOn, &settled, &p.Status}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Payment{}, err
	}
	p.Amount = db.NumericToDecimal(amount)
	if settled.Valid {
		t := settled.Time
		p.SettledOn = &t
	}
	return p, nil
}

// LockOutlet serialises payments of one outlet and blocks concurrent sales of it.
func (r *txRepo) LockOutlet(ctx context.Context, outletID int64) error {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM outlets WHERE id = $1 FOR UPDATE`, outletID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return err
}

func (r *txRepo) OutletBalance(ctx context.Context, outletID int64) (decimal.Decimal, error) {
	return sales.QueryOutletBalance(ctx, r.tx, outletID)
}

func (r *txRepo) OpenObligations(ctx context.Context, outletID int64) ([]Obligation, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, tanggal, remaining_amount
FROM sales
WHERE outlet_id = $1 AND remaining_amount > 0
ORDER BY tanggal ASC, id ASC
FOR UPDATE`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Obligation
	for rows.Next() {
		var (
			o         Obligation
			remaining pgtype.Numeric
		)
		if err := rows.Scan(&o.SaleID, &o.SoldAt, &remaining); err != nil {
			return nil, err
		}
		o.Remaining = db.NumericToDecimal(remaining)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *txRepo) ApplyAllocation(ctx context.Context, a Allocation) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales
SET remaining_amount = $2, is_paid = $3
WHERE id = $1 AND remaining_amount = $2::numeric + $4::numeric`,
		a.SaleID, db.DecimalToNumeric(a.ResultingRemaining), a.FullyPaid, db.DecimalToNumeric(a.AmountApplied))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: sale %d", ErrAllocationConflict, a.SaleID)
	}
	return nil
}

func (r *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	settled := pgtype.Date{}
	if p.SettledOn != nil {
		settled = pgtype.Date{Time: *p.SettledOn, Valid: true}
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (outlet_id, jumlah_bayar, tanggal_bayar, tanggal_pelunasan, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.OutletID, db.DecimalToNumeric(p.Amount), pgtype.Date{Time: p.PaidOn, Valid: true}, settled, p.Status).Scan(&id)
	return id, err
}

func (r *txRepo) InsertAllocations(ctx context.Context, paymentID int64, allocations []Allocation) error {
	batch := &pgx.Batch{}
	for _, a := range allocations {
		batch.Queue(`INSERT INTO payment_allocations (payment_id, sale_id, amount_applied, resulting_remaining, fully_paid)
VALUES ($1, $2, $3, $4, $5)`,
			paymentID, a.SaleID, db.DecimalToNumeric(a.AmountApplied), db.DecimalToNumeric(a.ResultingRemaining), a.FullyPaid)
	}
	results := r.tx.SendBatch(ctx, batch)
	for range allocations {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func (r *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.ClaimIdempotencyKey(ctx, r.tx, key, "payments")
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.tx, log)
}

