package shared

import (
	"context"
	"time"
)

// CacheInvalidator drops cached report data after a committed ledger write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// LedgerObserver receives the outcome of each ledger mutation.
type LedgerObserver interface {
	ObserveLedgerOp(op, outcome string, elapsed time.Duration)
}

// Ledger operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// OutcomeOf classifies err for metrics.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case IsDomainRejection(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
