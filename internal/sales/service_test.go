package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/distribusi/internal/billing"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memoryRepo struct {
	outlets     map[int64]bool
	products    map[int64]billing.Pricing
	distributed map[string]int64
	sales       []Sale
	keys        map[string]bool
	audits      []shared.AuditLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		outlets: map[int64]bool{1: true, 2: true},
		products: map[int64]billing.Pricing{
			1: {ProductID: 1, Name: "Kopi", UnitPrice: dec("10000"), CommissionRate: dec("10")},
			2: {ProductID: 2, Name: "Sampel", UnitPrice: dec("0"), CommissionRate: dec("0")},
		},
		distributed: map[string]int64{"1:1": 10, "1:2": 10, "2:1": 3},
		keys:        map[string]bool{},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, keys: map[string]bool{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.sales = append(r.sales, tx.sales...)
	for k := range tx.keys {
		r.keys[k] = true
	}
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (r *memoryRepo) OutletExists(_ context.Context, outletID int64) (bool, error) {
	return r.outlets[outletID], nil
}

func (r *memoryRepo) ProductPricing(_ context.Context, productID int64) (billing.Pricing, error) {
	p, ok := r.products[productID]
	if !ok {
		return billing.Pricing{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) OutletBalance(_ context.Context, outletID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range r.sales {
		if s.OutletID == outletID && s.RemainingAmount.IsPositive() {
			total = total.Add(s.RemainingAmount)
		}
	}
	return total, nil
}

func (r *memoryRepo) ListSales(_ context.Context, filter shared.ListFilter) ([]Sale, error) {
	var out []Sale
	for i := len(r.sales) - 1; i >= 0; i-- {
		if filter.OutletID == 0 || r.sales[i].OutletID == filter.OutletID {
			out = append(out, r.sales[i])
		}
	}
	return out, nil
}

func (r *memoryRepo) sold(outletID, productID int64, pending []Sale) int64 {
	var total int64
	for _, s := range append(append([]Sale{}, r.sales...), pending...) {
		if s.OutletID == outletID && s.ProductID == productID {
			total += s.Quantity
		}
	}
	return total
}

type memoryTx struct {
	repo   *memoryRepo
	sales  []Sale
	keys   map[string]bool
	audits []shared.AuditLog
}

func (tx *memoryTx) LockOutlet(_ context.Context, outletID int64) error {
	if !tx.repo.outlets[outletID] {
		return shared.ErrNotFound
	}
	return nil
}

func (tx *memoryTx) LockProductPricing(ctx context.Context, productID int64) (billing.Pricing, error) {
	return tx.repo.ProductPricing(ctx, productID)
}

func (tx *memoryTx) AvailableStock(_ context.Context, outletID, productID int64) (int64, error) {
	key := fmt.Sprintf("%d:%d", outletID, productID)
	return tx.repo.distributed[key] - tx.repo.sold(outletID, productID, tx.sales), nil
}

func (tx *memoryTx) InsertSale(_ context.Context, sale Sale) (int64, error) {
	sale.ID = int64(len(tx.repo.sales) + len(tx.sales) + 1)
	tx.sales = append(tx.sales, sale)
	return sale.ID, nil
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

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestRecordSaleCreatesObligation(t *testing.T) {
	repo := newMemoryRepo()
	cache := &countingCache{}
	svc := NewService(repo, cache, nil, nil)
	soldAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	sale, err := svc.RecordSale(context.Background(), SaleInput{OutletID: 1, ProductID: 1, Quantity: 5, SoldAt: soldAt})
	require.NoError(t, err)
	require.Equal(t, "50000.00", sale.Gross.StringFixed(2))
	require.Equal(t, "5000.00", sale.Commission.StringFixed(2))
	require.Equal(t, "45000.00", sale.NetPayable.StringFixed(2))
	require.True(t, sale.RemainingAmount.Equal(sale.NetPayable))
	require.False(t, sale.IsPaid)
	require.Equal(t, soldAt, sale.SoldAt)
	require.Equal(t, 1, cache.bumps)
	require.Len(t, repo.audits, 1)
	require.Equal(t, "Penjualan berhasil dicatat. Tagihan: Rp 50.000", SuccessMessage(sale))

	balance, err := svc.OutletBalance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "45000.00", balance.StringFixed(2))
}

func TestRecordSaleInsufficientOutletStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, SaleInput{OutletID: 1, ProductID: 1, Quantity: 7})
	require.NoError(t, err)

	_, err = svc.RecordSale(ctx, SaleInput{OutletID: 1, ProductID: 1, Quantity: 4})
	require.ErrorIs(t, err, shared.ErrInsufficientOutletStock)
	require.Equal(t, "Stok tidak mencukupi. Tersedia: 3", err.Error())
	require.Len(t, repo.sales, 1)
}

func TestRecordSaleBillingError(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordSale(context.Background(), SaleInput{OutletID: 1, ProductID: 2, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrBillingError)
	require.Equal(t, "Tidak dapat menghitung tagihan", err.Error())
	require.Empty(t, repo.sales)
}

func TestRecordSaleBillingCheckedBeforeStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordSale(context.Background(), SaleInput{OutletID: 1, ProductID: 2, Quantity: 99})
	require.ErrorIs(t, err, shared.ErrBillingError)
}

func TestRecordSaleUnknownReferences(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, SaleInput{OutletID: 9, ProductID: 1, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.RecordSale(ctx, SaleInput{OutletID: 1, ProductID: 9, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.RecordSale(ctx, SaleInput{OutletID: 1, ProductID: 1, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestOutletBalanceIgnoresSettledSales(t *testing.T) {
	repo := newMemoryRepo()
	repo.sales = []Sale{
		{ID: 1, OutletID: 2, ProductID: 1, Quantity: 1, NetPayable: dec("100"), RemainingAmount: dec("0"), IsPaid: true},
		{ID: 2, OutletID: 2, ProductID: 1, Quantity: 1, NetPayable: dec("50"), RemainingAmount: dec("20")},
	}
	svc := NewService(repo, nil, nil, nil)

	first, err := svc.OutletBalance(context.Background(), 2)
	require.NoError(t, err)
	second, err := svc.OutletBalance(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, "20.00", first.StringFixed(2))
	require.True(t, first.Equal(second))

	_, err = svc.OutletBalance(context.Background(), 77)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPreviewBill(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	bill, err := svc.PreviewBill(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, "18000.00", bill.Net.StringFixed(2))

	_, err = svc.PreviewBill(context.Background(), 0, 2)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
