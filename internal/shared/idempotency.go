package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/distribusi/internal/platform/db"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// MaxIdempotencyKeyLen bounds client supplied keys.
const MaxIdempotencyKeyLen = 150

// ClaimIdempotencyKey records key for module within q. A second claim of the
// same key in the same module fails with ErrIdempotencyConflict. An empty key
// is a no-op.
func ClaimIdempotencyKey(ctx context.Context, q db.DBTX, key, module string) error {
	if key == "" {
		return nil
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	if len(key) > MaxIdempotencyKeyLen {
		return NewDomainError(ErrInvalidInput, "Idempotency-Key maksimal %d karakter", MaxIdempotencyKeyLen)
	}
	_, err := q.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, module+":"+key, module, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// IdempotencyStore maintains processed keys outside of request transactions.
type IdempotencyStore struct {
	q db.DBTX
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(q db.DBTX) *IdempotencyStore {
	return &IdempotencyStore{q: q}
}

// Cleanup removes entries older than retention and reports how many were dropped.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.q == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.q.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
