package stock

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	OutletExists(ctx context.Context, outletID int64) (bool, error)
	ProductStock(ctx context.Context, outletID, productID int64) (int64, error)
	SlotUsage(ctx context.Context, outletID int64) (SlotUsage, error)
	ListDistributions(ctx context.Context, filter shared.ListFilter) ([]Distribution, error)
}

// Service coordinates stock ledger operations.
type Service struct {
	repo    RepositoryPort
	cache   shared.CacheInvalidator
	metrics shared.LedgerObserver
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service. cache and metrics may be nil.
func NewService(repo RepositoryPort, cache shared.CacheInvalidator, metrics shared.LedgerObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// RecordDistribution moves quantity units of a product from central stock to
// an outlet. The central stock decrement and the distribution row commit together.
func (s *Service) RecordDistribution(ctx context.Context, input DistributionInput) (dist Distribution, err error) {
	started := s.now()
	defer func() { s.observe("distribution", started, err) }()

	if input.OutletID <= 0 || input.ProductID <= 0 {
		return Distribution{}, shared.NewDomainError(shared.ErrInvalidInput, "Outlet dan produk wajib diisi")
	}
	if input.Quantity <= 0 {
		return Distribution{}, shared.NewDomainError(shared.ErrInvalidInput, "Jumlah harus lebih dari 0")
	}
	distributedAt := input.DistributedAt
	if distributedAt.IsZero() {
		distributedAt = s.now()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockOutlet(ctx, input.OutletID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.ErrNotFound, "Outlet tidak ditemukan")
			}
			return shared.StorageFailure("stock: lock outlet", err)
		}
		product, err := tx.LockProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.ErrNotFound, "Produk tidak ditemukan")
			}
			return shared.StorageFailure("stock: lock product", err)
		}
		if product.CentralStock < input.Quantity {
			return shared.NewDomainError(shared.ErrInsufficientCentralStock, "Stok pusat tidak mencukupi")
		}
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
			return shared.StorageFailure("stock: idempotency", err)
		}
		if err := tx.DecrementCentralStock(ctx, input.ProductID, input.Quantity); err != nil {
			return shared.StorageFailure("stock: decrement central stock", err)
		}
		dist = Distribution{
			OutletID:      input.OutletID,
			ProductID:     input.ProductID,
			ProductName:   product.Name,
			Quantity:      input.Quantity,
			DistributedAt: distributedAt,
		}
		id, err := tx.InsertDistribution(ctx, dist)
		if err != nil {
			return shared.StorageFailure("stock: insert distribution", err)
		}
		dist.ID = id
		return shared.StorageFailure("stock: audit", tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "stock:distribute",
			Entity:   "distribution",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"outlet_id":  input.OutletID,
				"product_id": input.ProductID,
				"quantity":   input.Quantity,
				"stok_pusat": product.CentralStock - input.Quantity,
			},
		}))
	})
	if err != nil {
		err = shared.StorageFailure("stock: record distribution", err)
		s.logRejection("distribution rejected", err, slog.Int64("outlet_id", input.OutletID), slog.Int64("product_id", input.ProductID), slog.Int64("quantity", input.Quantity))
		return Distribution{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("distribution recorded",
		slog.Int64("distribution_id", dist.ID),
		slog.Int64("outlet_id", dist.OutletID),
		slog.Int64("product_id", dist.ProductID),
		slog.Int64("quantity", dist.Quantity))
	return dist, nil
}

// OutletProductStock returns distributed minus sold for an outlet/product pair.
func (s *Service) OutletProductStock(ctx context.Context, outletID, productID int64) (int64, error) {
	if err := s.requireOutlet(ctx, outletID); err != nil {
		return 0, err
	}
	available, err := s.repo.ProductStock(ctx, outletID, productID)
	if err != nil {
		return 0, shared.StorageFailure("stock: outlet product stock", err)
	}
	return available, nil
}

// OutletSlotUsage returns distributed, sold and used units for an outlet.
func (s *Service) OutletSlotUsage(ctx context.Context, outletID int64) (SlotUsage, error) {
	if err := s.requireOutlet(ctx, outletID); err != nil {
		return SlotUsage{}, err
	}
	usage, err := s.repo.SlotUsage(ctx, outletID)
	if err != nil {
		return SlotUsage{}, shared.StorageFailure("stock: outlet slot usage", err)
	}
	return usage, nil
}

// ListDistributions lists distributions newest first.
func (s *Service) ListDistributions(ctx context.Context, filter shared.ListFilter) ([]Distribution, error) {
	items, err := s.repo.ListDistributions(ctx, filter)
	if err != nil {
		return nil, shared.StorageFailure("stock: list distributions", err)
	}
	return items, nil
}

func (s *Service) requireOutlet(ctx context.Context, outletID int64) error {
	if outletID <= 0 {
		return shared.NewDomainError(shared.ErrInvalidInput, "Outlet tidak valid")
	}
	exists, err := s.repo.OutletExists(ctx, outletID)
	if err != nil {
		return shared.StorageFailure("stock: outlet lookup", err)
	}
	if !exists {
		return shared.NewDomainError(shared.ErrNotFound, "Outlet tidak ditemukan")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) observe(op string, started time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveLedgerOp(op, shared.OutcomeOf(err), s.now().Sub(started))
	}
}

func (s *Service) logRejection(msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.Any("error", err))
	if shared.IsDomainRejection(err) {
		s.logger.Warn(msg, attrs...)
		return
	}
	s.logger.Error(msg, attrs...)
}
