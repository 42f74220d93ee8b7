package payments

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/distribusi/internal/billing"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPayments(ctx context.Context, filter shared.ListFilter) ([]Payment, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
}

// Service records payments and exposes payment history.
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

// RecordPayment applies amount to the outlet's open obligations oldest first.
// Preconditions are checked in order: a positive amount, a positive balance,
// and an amount not above that balance. Obligation updates, the payment row
// and its allocation lines commit together or not at all.
func (s *Service) RecordPayment(ctx context.Context, input PaymentInput) (result Result, err error) {
	started := s.now()
	defer func() { s.observe("payment", started, err) }()

	if !input.Amount.IsPositive() {
		return Result{}, shared.NewDomainError(shared.ErrInvalidAmount, "Jumlah pembayaran harus lebih dari 0")
	}
	if !input.Amount.Equal(input.Amount.Round(billing.MoneyPlaces)) {
		return Result{}, shared.NewDomainError(shared.ErrInvalidAmount, "Jumlah pembayaran maksimal %d angka desimal", billing.MoneyPlaces)
	}
	if input.OutletID <= 0 {
		return Result{}, shared.NewDomainError(shared.ErrInvalidInput, "Outlet wajib diisi")
	}
	paidOn := input.PaidOn
	if paidOn.IsZero() {
		paidOn = s.now()
	}
	paidOn = calendarDate(paidOn)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockOutlet(ctx, input.OutletID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.ErrNotFound, "Outlet tidak ditemukan")
			}
			return shared.StorageFailure("payments: lock outlet", err)
		}
		balance, err := tx.OutletBalance(ctx, input.OutletID)
		if err != nil {
			return shared.StorageFailure("payments: outlet balance", err)
		}
		if !balance.IsPositive() {
			return shared.NewDomainError(shared.ErrNoOutstandingBalance, "Outlet tidak memiliki tagihan")
		}
		if input.Amount.GreaterThan(balance) {
			return shared.NewDomainError(shared.ErrOverpaymentRejected, "Jumlah pembayaran (%s) melebihi total tagihan (%s)",
				billing.FormatRupiah(input.Amount), billing.FormatRupiah(balance))
		}
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
			return shared.StorageFailure("payments: idempotency", err)
		}
		obligations, err := tx.OpenObligations(ctx, input.OutletID)
		if err != nil {
			return shared.StorageFailure("payments: open obligations", err)
		}
		allocations, err := AllocateFIFO(input.Amount, obligations)
		if err != nil {
			return err
		}
		if applied := TotalApplied(allocations); !applied.Equal(input.Amount) {
			return shared.NewDomainError(shared.ErrAllocationInvariant, "alokasi %s, seharusnya %s",
				applied.StringFixed(billing.MoneyPlaces), input.Amount.StringFixed(billing.MoneyPlaces))
		}
		for _, a := range allocations {
			if err := tx.ApplyAllocation(ctx, a); err != nil {
				return shared.StorageFailure("payments: apply allocation", err)
			}
		}
		newBalance, err := tx.OutletBalance(ctx, input.OutletID)
		if err != nil {
			return shared.StorageFailure("payments: outlet balance", err)
		}
		if expected := balance.Sub(input.Amount); !newBalance.Equal(expected) {
			return shared.NewDomainError(shared.ErrAllocationInvariant, "saldo setelah alokasi %s, seharusnya %s",
				newBalance.StringFixed(billing.MoneyPlaces), expected.StringFixed(billing.MoneyPlaces))
		}

		payment := Payment{
			OutletID:    input.OutletID,
			Amount:      input.Amount,
			PaidOn:      paidOn,
			Status:      StatusFor(newBalance),
			Allocations: allocations,
		}
		if payment.Status == StatusLunas {
			settled := paidOn
			payment.SettledOn = &settled
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return shared.StorageFailure("payments: insert payment", err)
		}
		payment.ID = id
		if err := tx.InsertAllocations(ctx, id, allocations); err != nil {
			return shared.StorageFailure("payments: insert allocations", err)
		}
		result = Result{Payment: payment, Status: payment.Status, NewBalance: newBalance, Allocations: allocations}
		return shared.StorageFailure("payments: audit", tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "payments:record",
			Entity:   "payment",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"outlet_id":      input.OutletID,
				"amount":         input.Amount.StringFixed(billing.MoneyPlaces),
				"balance_before": balance.StringFixed(billing.MoneyPlaces),
				"balance_after":  newBalance.StringFixed(billing.MoneyPlaces),
				"status":         payment.Status,
				"allocations":    allocationTrail(allocations),
			},
		}))
	})
	if err != nil {
		err = shared.StorageFailure("payments: record payment", err)
		s.logRejection("payment rejected", err, slog.Int64("outlet_id", input.OutletID), slog.String("amount", input.Amount.String()))
		return Result{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("payment recorded",
		slog.Int64("payment_id", result.Payment.ID),
		slog.Int64("outlet_id", input.OutletID),
		slog.String("amount", input.Amount.StringFixed(billing.MoneyPlaces)),
		slog.String("status", result.Status),
		slog.String("new_balance", result.NewBalance.StringFixed(billing.MoneyPlaces)),
		slog.Int("allocations", len(result.Allocations)))
	return result, nil
}

// ListPayments lists payments newest first.
func (s *Service) ListPayments(ctx context.Context, filter shared.ListFilter) ([]Payment, error) {
	items, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, shared.StorageFailure("payments: list payments", err)
	}
	return items, nil
}

// GetPayment returns a payment with its allocation lines.
func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return Payment{}, shared.NewDomainError(shared.ErrNotFound, "Pembayaran tidak ditemukan")
	}
	if err != nil {
		return Payment{}, shared.StorageFailure("payments: get payment", err)
	}
	return p, nil
}

func allocationTrail(allocations []Allocation) []map[string]any {
	trail := make([]map[string]any, 0, len(allocations))
	for _, a := range allocations {
		trail = append(trail, map[string]any{
			"sale_id":             a.SaleID,
			"amount_applied":      a.AmountApplied.StringFixed(billing.MoneyPlaces),
			"resulting_remaining": a.ResultingRemaining.StringFixed(billing.MoneyPlaces),
			"fully_paid":          a.FullyPaid,
		})
	}
	return trail
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
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
