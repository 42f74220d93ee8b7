package sales

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/billing"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	OutletExists(ctx context.Context, outletID int64) (bool, error)
	ProductPricing(ctx context.Context, productID int64) (billing.Pricing, error)
	OutletBalance(ctx context.Context, outletID int64) (decimal.Decimal, error)
	ListSales(ctx context.Context, filter shared.ListFilter) ([]Sale, error)
}

// Service records sales and answers balance queries.
type Service struct {
	repo       RepositoryPort
	calculator *billing.Calculator
	cache      shared.CacheInvalidator
	metrics    shared.LedgerObserver
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds Service. cache and metrics may be nil.
func NewService(repo RepositoryPort, cache shared.CacheInvalidator, metrics shared.LedgerObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		calculator: billing.NewCalculator(repo),
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// RecordSale prices the sale, checks the outlet holds enough virtual stock
// and stores the sale as an open obligation for its net payable. The product
// row stays locked from the stock check until commit so concurrent sales of
// the same product are checked one after another.
func (s *Service) RecordSale(ctx context.Context, input SaleInput) (sale Sale, err error) {
	started := s.now()
	defer func() { s.observe("sale", started, err) }()

	if input.OutletID <= 0 || input.ProductID <= 0 {
		return Sale{}, shared.NewDomainError(shared.ErrInvalidInput, "Outlet dan produk wajib diisi")
	}
	if input.Quantity <= 0 {
		return Sale{}, shared.NewDomainError(shared.ErrInvalidInput, "Jumlah harus lebih dari 0")
	}
	soldAt := input.SoldAt
	if soldAt.IsZero() {
		soldAt = s.now()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockOutlet(ctx, input.OutletID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.ErrNotFound, "Outlet tidak ditemukan")
			}
			return shared.StorageFailure("sales: lock outlet", err)
		}
		pricing, err := tx.LockProductPricing(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.ErrNotFound, "Produk tidak ditemukan")
			}
			return shared.StorageFailure("sales: lock product", err)
		}
		bill, err := billing.Compute(pricing.UnitPrice, pricing.CommissionRate, input.Quantity)
		if err != nil {
			return err
		}
		if !bill.Payable() {
			return shared.NewDomainError(shared.ErrBillingError, "Tidak dapat menghitung tagihan")
		}
		available, err := tx.AvailableStock(ctx, input.OutletID, input.ProductID)
		if err != nil {
			return shared.StorageFailure("sales: outlet stock", err)
		}
		if available < input.Quantity {
			return shared.NewDomainError(shared.ErrInsufficientOutletStock, "Stok tidak mencukupi. Tersedia: %d", available)
		}
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
			return shared.StorageFailure("sales: idempotency", err)
		}
		sale = Sale{
			OutletID:        input.OutletID,
			ProductID:       input.ProductID,
			ProductName:     pricing.Name,
			Quantity:        input.Quantity,
			SoldAt:          soldAt,
			Gross:           bill.Gross,
			Commission:      bill.Commission,
			NetPayable:      bill.Net,
			RemainingAmount: bill.Net,
			IsPaid:          false,
		}
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return shared.StorageFailure("sales: insert sale", err)
		}
		sale.ID = id
		return shared.StorageFailure("sales: audit", tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "sales:record",
			Entity:   "sale",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"outlet_id":          input.OutletID,
				"product_id":         input.ProductID,
				"quantity":           input.Quantity,
				"tagihan":            bill.Gross.StringFixed(billing.MoneyPlaces),
				"komisi":             bill.Commission.StringFixed(billing.MoneyPlaces),
				"yang_harus_dibayar": bill.Net.StringFixed(billing.MoneyPlaces),
			},
		}))
	})
	if err != nil {
		err = shared.StorageFailure("sales: record sale", err)
		s.logRejection("sale rejected", err, slog.Int64("outlet_id", input.OutletID), slog.Int64("product_id", input.ProductID), slog.Int64("quantity", input.Quantity))
		return Sale{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("sale recorded",
		slog.Int64("sale_id", sale.ID),
		slog.Int64("outlet_id", sale.OutletID),
		slog.Int64("product_id", sale.ProductID),
		slog.Int64("quantity", sale.Quantity),
		slog.String("net_payable", sale.NetPayable.StringFixed(billing.MoneyPlaces)))
	return sale, nil
}

// SuccessMessage is the confirmation shown after a sale is recorded.
func SuccessMessage(sale Sale) string {
	return "Penjualan berhasil dicatat. Tagihan: " + billing.FormatRupiah(sale.Gross)
}

// PreviewBill prices quantity units of a product without recording anything.
func (s *Service) PreviewBill(ctx context.Context, productID, quantity int64) (billing.Bill, error) {
	if productID <= 0 {
		return billing.Bill{}, shared.NewDomainError(shared.ErrInvalidInput, "Produk tidak valid")
	}
	return s.calculator.ComputeForProduct(ctx, productID, quantity)
}

// OutletBalance returns the sum of open remainders of an outlet's sales.
func (s *Service) OutletBalance(ctx context.Context, outletID int64) (decimal.Decimal, error) {
	if outletID <= 0 {
		return decimal.Zero, shared.NewDomainError(shared.ErrInvalidInput, "Outlet tidak valid")
	}
	exists, err := s.repo.OutletExists(ctx, outletID)
	if err != nil {
		return decimal.Zero, shared.StorageFailure("sales: outlet lookup", err)
	}
	if !exists {
		return decimal.Zero, shared.NewDomainError(shared.ErrNotFound, "Outlet tidak ditemukan")
	}
	balance, err := s.repo.OutletBalance(ctx, outletID)
	if err != nil {
		return decimal.Zero, shared.StorageFailure("sales: outlet balance", err)
	}
	return floorZero(balance), nil
}

// ListSales lists sales newest first.
func (s *Service) ListSales(ctx context.Context, filter shared.ListFilter) ([]Sale, error) {
	items, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, shared.StorageFailure("sales: list sales", err)
	}
	return items, nil
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
