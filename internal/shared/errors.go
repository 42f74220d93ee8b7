package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a malformed or out-of-range request value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientCentralStock occurs when a distribution exceeds central stock.
	ErrInsufficientCentralStock = errors.New("insufficient central stock")
	// ErrInsufficientOutletStock occurs when a sale exceeds the outlet's derived stock.
	ErrInsufficientOutletStock = errors.New("insufficient outlet stock")
	// ErrBillingError occurs when a sale would produce a non-positive net payable.
	ErrBillingError = errors.New("billing error")
	// ErrInvalidAmount occurs when a payment amount is not positive.
	ErrInvalidAmount = errors.New("invalid payment amount")
	// ErrNoOutstandingBalance occurs when an outlet owes nothing.
	ErrNoOutstandingBalance = errors.New("no outstanding balance")
	// ErrOverpaymentRejected occurs when a payment exceeds the outstanding balance.
	ErrOverpaymentRejected = errors.New("overpayment rejected")
	// ErrAllocationInvariant signals a FIFO allocation that did not consume the full amount.
	ErrAllocationInvariant = errors.New("allocation invariant violated")
	// ErrStorageFailure wraps persistence errors.
	ErrStorageFailure = errors.New("storage failure")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the actor lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// DomainError pairs an error kind with a user facing message.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Kind }

// NewDomainError builds a DomainError of the given kind.
func NewDomainError(kind error, format string, args ...any) error {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StorageFailure wraps a persistence error so callers can match ErrStorageFailure.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, ErrIdempotencyConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// UserSafeMessage returns text that can be shown to end users.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAllocationInvariant) || errors.Is(err, ErrStorageFailure) {
		return "Terjadi kesalahan pada server"
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "Data tidak ditemukan"
	case errors.Is(err, ErrInvalidInput):
		return "Input tidak valid"
	case errors.Is(err, ErrInvalidAmount):
		return "Jumlah pembayaran harus lebih dari 0"
	case errors.Is(err, ErrNoOutstandingBalance):
		return "Outlet tidak memiliki tagihan"
	case errors.Is(err, ErrBillingError):
		return "Tidak dapat menghitung tagihan"
	case errors.Is(err, ErrInsufficientCentralStock):
		return "Stok pusat tidak mencukupi"
	case errors.Is(err, ErrIdempotencyConflict):
		return "Permintaan sudah diproses"
	case errors.Is(err, ErrInvalidCredentials):
		return "Username atau password salah"
	case errors.Is(err, ErrForbidden):
		return "Akses ditolak"
	default:
		return "Terjadi kesalahan pada server"
	}
}

// IsDomainRejection reports whether err is a business rule refusal rather
// than an infrastructure failure.
func IsDomainRejection(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrStorageFailure) && !errors.Is(err, ErrAllocationInvariant) && hasKnownKind(err)
}

func hasKnownKind(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrInvalidInput, ErrInsufficientCentralStock, ErrInsufficientOutletStock,
		ErrBillingError, ErrInvalidAmount, ErrNoOutstandingBalance, ErrOverpaymentRejected,
		ErrIdempotencyConflict, ErrInvalidCredentials, ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
