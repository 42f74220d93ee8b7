package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

type memorySale struct {
	ID        int64
	OutletID  int64
	SoldAt    time.Time
	Net       decimal.Decimal
	Remaining decimal.Decimal
	IsPaid    bool
}

type memoryRepo struct {
	outlets       map[int64]bool
	sales         map[int64]memorySale
	payments      []Payment
	allocations   map[int64][]Allocation
	keys          map[string]bool
	audits        []shared.AuditLog
	failOnPayment error
}

func newMemoryRepo(outletID int64, remaining ...string) *memoryRepo {
	repo := &memoryRepo{
		outlets:     map[int64]bool{outletID: true},
		sales:       map[int64]memorySale{},
		allocations: map[int64][]Allocation{},
		keys:        map[string]bool{},
	}
	for i, amount := range remaining {
		id := int64(i + 1)
		repo.sales[id] = memorySale{ID: id, OutletID: outletID, SoldAt: day(i + 1), Net: dec(amount), Remaining: dec(amount)}
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, sales: map[int64]memorySale{}, allocations: map[int64][]Allocation{}, keys: map[string]bool{}}
	for id, s := range r.sales {
		tx.sales[id] = s
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.sales = tx.sales
	r.payments = append(r.payments, tx.payments...)
	for id, a := range tx.allocations {
		r.allocations[id] = a
	}
	for k := range tx.keys {
		r.keys[k] = true
	}
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (r *memoryRepo) ListPayments(_ context.Context, _ shared.ListFilter) ([]Payment, error) {
	return append([]Payment(nil), r.payments...), nil
}

func (r *memoryRepo) GetPayment(_ context.Context, id int64) (Payment, error) {
	for _, p := range r.payments {
		if p.ID == id {
			p.Allocations = r.allocations[id]
			return p, nil
		}
	}
	return Payment{}, shared.ErrNotFound
}

func (r *memoryRepo) balance(outletID int64) decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.sales {
		if s.OutletID == outletID && s.Remaining.IsPositive() {
			total = total.Add(s.Remaining)
		}
	}
	return total
}

type memoryTx struct {
	repo        *memoryRepo
	sales       map[int64]memorySale
	payments    []Payment
	allocations map[int64][]Allocation
	keys        map[string]bool
	audits      []shared.AuditLog
}

func (tx *memoryTx) LockOutlet(_ context.Context, outletID int64) error {
	if !tx.repo.outlets[outletID] {
		return shared.ErrNotFound
	}
	return nil
}

func (tx *memoryTx) OutletBalance(_ context.Context, outletID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range tx.sales {
		if s.OutletID == outletID && s.Remaining.IsPositive() {
			total = total.Add(s.Remaining)
		}
	}
	return total, nil
}

func (tx *memoryTx) OpenObligations(_ context.Context, outletID int64) ([]Obligation, error) {
	var out []Obligation
	for _, s := range tx.sales {
		if s.OutletID == outletID && s.Remaining.IsPositive() {
			out = append(out, Obligation{SaleID: s.ID, SoldAt: s.SoldAt, Remaining: s.Remaining})
		}
	}
	return out, nil
}

func (tx *memoryTx) ApplyAllocation(_ context.Context, a Allocation) error {
	s, ok := tx.sales[a.SaleID]
	if !ok || !s.Remaining.Equal(a.ResultingRemaining.Add(a.AmountApplied)) {
		return fmt.Errorf("%w: sale %d", ErrAllocationConflict, a.SaleID)
	}
	s.Remaining = a.ResultingRemaining
	s.IsPaid = a.FullyPaid
	tx.sales[a.SaleID] = s
	return nil
}

func (tx *memoryTx) InsertPayment(_ context.Context, p Payment) (int64, error) {
	if tx.repo.failOnPayment != nil {
		return 0, tx.repo.failOnPayment
	}
	p.ID = int64(len(tx.repo.payments) + len(tx.payments) + 1)
	p.Allocations = nil
	tx.payments = append(tx.payments, p)
	return p.ID, nil
}

func (tx *memoryTx) InsertAllocations(_ context.Context, paymentID int64, allocations []Allocation) error {
	tx.allocations[paymentID] = append([]Allocation(nil), allocations...)
	return nil
}

func (tx *memoryTx) ClaimIdempotencyKey(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	if tx.repo.keys[key] || tx.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	tx.keys[key] = true
	return nil
}

func (tx *memoryTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	tx.audits = append(tx.audits, log)
	return nil
}

func TestRecordPaymentAllocatesOldestFirst(t *testing.T) {
	repo := newMemoryRepo(1, "100", "50", "30")
	svc := NewService(repo, nil, nil, nil)
	paidOn := time.Date(2024, 2, 10, 15, 30, 0, 0, time.UTC)

	result, err := svc.RecordPayment(context.Background(), PaymentInput{OutletID: 1, Amount: dec("120"), PaidOn: paidOn})
	require.NoError(t, err)
	require.Equal(t, StatusSebagian, result.Status)
	require.Nil(t, result.Payment.SettledOn)
	require.Equal(t, "60.00", result.NewBalance.StringFixed(2))
	require.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), result.Payment.PaidOn)

	require.True(t, repo.sales[1].Remaining.IsZero())
	require.True(t, repo.sales[1].IsPaid)
	require.Equal(t, "30.00", repo.sales[2].Remaining.StringFixed(2))
	require.False(t, repo.sales[2].IsPaid)
	require.Equal(t, "30.00", repo.sales[3].Remaining.StringFixed(2))
	require.False(t, repo.sales[3].IsPaid)

	stored, err := svc.GetPayment(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	require.Len(t, stored.Allocations, 2)
	require.EqualValues(t, 1, stored.Allocations[0].SaleID)
	require.EqualValues(t, 2, stored.Allocations[1].SaleID)
	require.Len(t, repo.audits, 1)
}

func TestRecordPaymentOverpaymentRejected(t *testing.T) {
	repo := newMemoryRepo(1, "30", "30")
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordPayment(context.Background(), PaymentInput{OutletID: 1, Amount: dec("61")})
	require.ErrorIs(t, err, shared.ErrOverpaymentRejected)
	require.Equal(t, "Jumlah pembayaran (Rp 61) melebihi total tagihan (Rp 60)", err.Error())
	require.Equal(t, "60.00", repo.balance(1).StringFixed(2))
	require.Empty(t, repo.payments)
}

func TestRecordPaymentFullSettlement(t *testing.T) {
	repo := newMemoryRepo(1, "45000")
	svc := NewService(repo, nil, nil, nil)
	paidOn := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	result, err := svc.RecordPayment(context.Background(), PaymentInput{OutletID: 1, Amount: dec("45000"), PaidOn: paidOn})
	require.NoError(t, err)
	require.Equal(t, StatusLunas, result.Status)
	require.NotNil(t, result.Payment.SettledOn)
	require.Equal(t, paidOn, *result.Payment.SettledOn)
	require.True(t, result.NewBalance.IsZero())
	require.True(t, repo.sales[1].IsPaid)
}

func TestRecordPaymentPreconditionOrder(t *testing.T) {
	ctx := context.Background()

	svc := NewService(newMemoryRepo(1), nil, nil, nil)
	_, err := svc.RecordPayment(ctx, PaymentInput{OutletID: 99, Amount: decimal.Zero})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	require.Equal(t, "Jumlah pembayaran harus lebih dari 0", err.Error())

	_, err = svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec("10")})
	require.ErrorIs(t, err, shared.ErrNoOutstandingBalance)
	require.Equal(t, "Outlet tidak memiliki tagihan", err.Error())

	_, err = svc.RecordPayment(ctx, PaymentInput{OutletID: 2, Amount: dec("10")})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec("0.001")})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestRecordPaymentSettledObligationsCountAsNoBalance(t *testing.T) {
	repo := newMemoryRepo(1, "20")
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec("20")})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec("1")})
	require.ErrorIs(t, err, shared.ErrNoOutstandingBalance)
}

func TestRecordPaymentRollsBackOnStorageFailure(t *testing.T) {
	repo := newMemoryRepo(1, "100", "50")
	repo.failOnPayment = errors.New("connection reset")
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordPayment(context.Background(), PaymentInput{OutletID: 1, Amount: dec("120"), IdempotencyKey: "pay-1"})
	require.ErrorIs(t, err, shared.ErrStorageFailure)
	require.Equal(t, "100.00", repo.sales[1].Remaining.StringFixed(2))
	require.Equal(t, "50.00", repo.sales[2].Remaining.StringFixed(2))
	require.False(t, repo.sales[1].IsPaid)
	require.Empty(t, repo.keys)
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(1, "100")
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec("40"), IdempotencyKey: "pay-1"})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec("40"), IdempotencyKey: "pay-1"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Equal(t, "60.00", repo.balance(1).StringFixed(2))
}

func TestRecordPaymentKeepsLedgerInvariants(t *testing.T) {
	repo := newMemoryRepo(1, "100", "50", "30", "12.35")
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	totalNet := decimal.Zero
	for _, s := range repo.sales {
		totalNet = totalNet.Add(s.Net)
	}
	paid := decimal.Zero
	for _, amount := range []string{"35.10", "0.01", "99.99", "40", "17.25"} {
		_, err := svc.RecordPayment(ctx, PaymentInput{OutletID: 1, Amount: dec(amount)})
		require.NoError(t, err)
		paid = paid.Add(dec(amount))

		for _, s := range repo.sales {
			require.False(t, s.Remaining.IsNegative(), "sale %d", s.ID)
			require.True(t, s.Remaining.LessThanOrEqual(s.Net), "sale %d", s.ID)
			require.Equal(t, s.Remaining.IsZero(), s.IsPaid, "sale %d", s.ID)
		}
		require.True(t, repo.balance(1).Equal(totalNet.Sub(paid)), "balance %s", repo.balance(1))
	}

	allocated := decimal.Zero
	for _, lines := range repo.allocations {
		allocated = allocated.Add(TotalApplied(lines))
	}
	require.True(t, allocated.Equal(paid))
}

func TestGetPaymentNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo(1), nil, nil, nil)
	_, err := svc.GetPayment(context.Background(), 5)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
