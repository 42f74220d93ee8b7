package stock

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

type memoryRepo struct {
	outlets       map[int64]bool
	products      map[int64]ProductStock
	distributions []Distribution
	sold          map[string]int64
	keys          map[string]bool
	audits        []shared.AuditLog
	failInsert    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		outlets:  map[int64]bool{1: true},
		products: map[int64]ProductStock{1: {ID: 1, Name: "Kopi", CentralStock: 10}},
		sold:     map[string]int64{},
		keys:     map[string]bool{},
	}
}

func pairKey(outletID, productID int64) string { return fmt.Sprintf("%d:%d", outletID, productID) }

// WithTx stages writes on a copy and applies them only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, products: map[int64]ProductStock{}, keys: map[string]bool{}}
	for id, p := range r.products {
		tx.products[id] = p
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.products = tx.products
	r.distributions = append(r.distributions, tx.distributions...)
	for k := range tx.keys {
		r.keys[k] = true
	}
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (r *memoryRepo) OutletExists(_ context.Context, outletID int64) (bool, error) {
	return r.outlets[outletID], nil
}

func (r *memoryRepo) ProductStock(_ context.Context, outletID, productID int64) (int64, error) {
	var total int64
	for _, d := range r.distributions {
		if d.OutletID == outletID && d.ProductID == productID {
			total += d.Quantity
		}
	}
	return total - r.sold[pairKey(outletID, productID)], nil
}

func (r *memoryRepo) SlotUsage(_ context.Context, outletID int64) (SlotUsage, error) {
	usage := SlotUsage{OutletID: outletID}
	for _, d := range r.distributions {
		if d.OutletID == outletID {
			usage.Distributed += d.Quantity
		}
	}
	for k, v := range r.sold {
		var o, p int64
		_, _ = fmt.Sscanf(k, "%d:%d", &o, &p)
		if o == outletID {
			usage.Sold += v
		}
	}
	usage.Used = usage.Distributed - usage.Sold
	return usage, nil
}

func (r *memoryRepo) ListDistributions(_ context.Context, filter shared.ListFilter) ([]Distribution, error) {
	var out []Distribution
	for i := len(r.distributions) - 1; i >= 0; i-- {
		d := r.distributions[i]
		if filter.OutletID != 0 && d.OutletID != filter.OutletID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type memoryTx struct {
	repo          *memoryRepo
	products      map[int64]ProductStock
	distributions []Distribution
	keys          map[string]bool
	audits        []shared.AuditLog
}

func (tx *memoryTx) LockOutlet(_ context.Context, outletID int64) error {
	if !tx.repo.outlets[outletID] {
		return shared.ErrNotFound
	}
	return nil
}

func (tx *memoryTx) LockProduct(_ context.Context, productID int64) (ProductStock, error) {
	p, ok := tx.products[productID]
	if !ok {
		return ProductStock{}, shared.ErrNotFound
	}
	return p, nil
}

func (tx *memoryTx) DecrementCentralStock(_ context.Context, productID, quantity int64) error {
	p := tx.products[productID]
	p.CentralStock -= quantity
	tx.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertDistribution(_ context.Context, d Distribution) (int64, error) {
	if tx.repo.failInsert != nil {
		return 0, tx.repo.failInsert
	}
	d.ID = int64(len(tx.repo.distributions) + len(tx.distributions) + 1)
	tx.distributions = append(tx.distributions, d)
	return d.ID, nil
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

type recordingObserver struct{ outcomes []string }

func (o *recordingObserver) ObserveLedgerOp(op, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, op+":"+outcome)
}

func TestRecordDistributionDecrementsCentralStock(t *testing.T) {
	repo := newMemoryRepo()
	cache := &countingCache{}
	obs := &recordingObserver{}
	svc := NewService(repo, cache, obs, nil)

	dist, err := svc.RecordDistribution(context.Background(), DistributionInput{OutletID: 1, ProductID: 1, Quantity: 4, ActorID: 9})
	require.NoError(t, err)
	require.EqualValues(t, 1, dist.ID)
	require.False(t, dist.DistributedAt.IsZero())
	require.EqualValues(t, 6, repo.products[1].CentralStock)
	require.Len(t, repo.audits, 1)
	require.EqualValues(t, 9, repo.audits[0].ActorID)
	require.Equal(t, 1, cache.bumps)
	require.Equal(t, []string{"distribution:ok"}, obs.outcomes)

	available, err := svc.OutletProductStock(context.Background(), 1, 1)
	require.NoError(t, err)
	require.EqualValues(t, 4, available)
}

func TestRecordDistributionInsufficientCentralStock(t *testing.T) {
	repo := newMemoryRepo()
	obs := &recordingObserver{}
	svc := NewService(repo, nil, obs, nil)

	_, err := svc.RecordDistribution(context.Background(), DistributionInput{OutletID: 1, ProductID: 1, Quantity: 11})
	require.ErrorIs(t, err, shared.ErrInsufficientCentralStock)
	require.Equal(t, "Stok pusat tidak mencukupi", err.Error())
	require.EqualValues(t, 10, repo.products[1].CentralStock)
	require.Empty(t, repo.distributions)
	require.Equal(t, []string{"distribution:rejected"}, obs.outcomes)
}

func TestRecordDistributionRollsBackOnInsertFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failInsert = errors.New("connection reset")
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordDistribution(context.Background(), DistributionInput{OutletID: 1, ProductID: 1, Quantity: 3, IdempotencyKey: "k1"})
	require.ErrorIs(t, err, shared.ErrStorageFailure)
	require.EqualValues(t, 10, repo.products[1].CentralStock)
	require.Empty(t, repo.keys)
}

func TestRecordDistributionValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordDistribution(ctx, DistributionInput{OutletID: 1, ProductID: 1, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.RecordDistribution(ctx, DistributionInput{OutletID: 2, ProductID: 1, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.RecordDistribution(ctx, DistributionInput{OutletID: 1, ProductID: 5, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordDistributionIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordDistribution(ctx, DistributionInput{OutletID: 1, ProductID: 1, Quantity: 2, IdempotencyKey: "retry-1"})
	require.NoError(t, err)
	_, err = svc.RecordDistribution(ctx, DistributionInput{OutletID: 1, ProductID: 1, Quantity: 2, IdempotencyKey: "retry-1"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.EqualValues(t, 8, repo.products[1].CentralStock)
	require.Len(t, repo.distributions, 1)
}

func TestOutletSlotUsage(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[2] = ProductStock{ID: 2, Name: "Teh", CentralStock: 20}
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordDistribution(ctx, DistributionInput{OutletID: 1, ProductID: 1, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.RecordDistribution(ctx, DistributionInput{OutletID: 1, ProductID: 2, Quantity: 7})
	require.NoError(t, err)
	repo.sold[pairKey(1, 2)] = 3

	usage, err := svc.OutletSlotUsage(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, SlotUsage{OutletID: 1, Distributed: 12, Sold: 3, Used: 9}, usage)

	_, err = svc.OutletSlotUsage(ctx, 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
