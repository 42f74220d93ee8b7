package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/distribusi/internal/jobmetrics"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	scanLockTTL      = 10 * time.Minute
	maxLoggedFinding = 20
)

// Integrity rules checked by the scan.
const (
	RuleRemainingRange  = "remaining_range"
	RulePaidFlag        = "paid_flag"
	RuleNegativeStock   = "negative_outlet_stock"
	RuleNegativeCentral = "negative_central_stock"
	RuleAllocationSum   = "allocation_sum"
)

// Violation is one row breaking an integrity rule.
type Violation struct {
	Rule     string
	Entity   string
	EntityID int64
	Detail   string
}

// IntegrityStore lists rows that break ledger invariants.
type IntegrityStore interface {
	FindViolations(ctx context.Context) ([]Violation, error)
}

// PGIntegrityStore runs the integrity queries against PostgreSQL.
type PGIntegrityStore struct {
	pool *pgxpool.Pool
}

// NewPGIntegrityStore constructs the store.
func NewPGIntegrityStore(pool *pgxpool.Pool) *PGIntegrityStore {
	return &PGIntegrityStore{pool: pool}
}

var integrityQueries = []struct {
	rule   string
	entity string
	sql    string
}{
	{RuleRemainingRange, "sale", `SELECT id, 'remaining=' || remaining_amount || ' net=' || yang_harus_dibayar
FROM sales WHERE remaining_amount < 0 OR remaining_amount > yang_harus_dibayar`},
	{RulePaidFlag, "sale", `SELECT id, 'remaining=' || remaining_amount || ' is_paid=' || is_paid
FROM sales WHERE is_paid <> (remaining_amount = 0)`},
	{RuleNegativeStock, "outlet", `SELECT COALESCE(d.outlet_id, s.outlet_id),
       'product=' || COALESCE(d.produk_id, s.produk_id) || ' stock=' || (COALESCE(d.total, 0) - COALESCE(s.total, 0))
FROM (SELECT outlet_id, produk_id, SUM(jumlah) AS total FROM distributions GROUP BY outlet_id, produk_id) d
FULL OUTER JOIN (SELECT outlet_id, produk_id, SUM(jumlah_terjual) AS total FROM sales GROUP BY outlet_id, produk_id) s
  ON s.outlet_id = d.outlet_id AND s.produk_id = d.produk_id
WHERE COALESCE(d.total, 0) - COALESCE(s.total, 0) < 0`},
	{RuleNegativeCentral, "product", `SELECT id, 'stok_pusat=' || stok_pusat FROM products WHERE stok_pusat < 0`},
	{RuleAllocationSum, "payment", `SELECT p.id, 'amount=' || p.jumlah_bayar || ' allocated=' || SUM(a.amount_applied)
FROM payments p
JOIN payment_allocations a ON a.payment_id = p.id
GROUP BY p.id, p.jumlah_bayar
HAVING SUM(a.amount_applied) <> p.jumlah_bayar`},
}

// FindViolations runs every rule and concatenates the findings.
func (s *PGIntegrityStore) FindViolations(ctx context.Context) ([]Violation, error) {
	var out []Violation
	for _, q := range integrityQueries {
		rows, err := s.pool.Query(ctx, q.sql)
		if err != nil {
			return nil, fmt.Errorf("integrity %s: %w", q.rule, err)
		}
		for rows.Next() {
			v := Violation{Rule: q.rule, Entity: q.entity}
			if err := rows.Scan(&v.EntityID, &v.Detail); err != nil {
				rows.Close()
				return nil, fmt.Errorf("integrity %s: %w", q.rule, err)
			}
			out = append(out, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("integrity %s: %w", q.rule, err)
		}
	}
	return out, nil
}

// IntegrityScanJob reports rows breaking ledger invariants. Only one worker
// scans at a time.
type IntegrityScanJob struct {
	Store   IntegrityStore
	Lock    Locker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob wires dependencies for the scan handler.
func NewIntegrityScanJob(store IntegrityStore, lock Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Store: store, Lock: lock, Logger: logger, Metrics: metrics}
}

// Handle executes the integrity scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics().Track(TaskLedgerIntegrityScan)
	logger := j.logger()

	if j.Lock != nil {
		release, ok, err := j.Lock.Acquire(ctx, shared.LedgerScanLockKey(), scanLockTTL)
		if err != nil {
			return tracker.End(fmt.Errorf("integrity scan: acquire lock: %w", err))
		}
		if !ok {
			tracker.Skip()
			logger.Info("integrity scan already running elsewhere")
			return nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release integrity scan lock", slog.Any("error", err))
			}
		}()
	}
	defer func() { resultErr = tracker.End(resultErr) }()

	started := time.Now()
	violations, err := j.Store.FindViolations(ctx)
	if err != nil {
		logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}

	perRule := make(map[string]int)
	for i, v := range violations {
		perRule[v.Rule]++
		if i < maxLoggedFinding {
			logger.Warn("ledger integrity violation",
				slog.String("rule", v.Rule),
				slog.String("entity", v.Entity),
				slog.Int64("entity_id", v.EntityID),
				slog.String("detail", v.Detail))
		}
	}
	for rule, count := range perRule {
		j.metrics().AddViolations(rule, count)
	}
	logger.Info("integrity scan completed",
		slog.Int("violations", len(violations)),
		slog.String("requested_by", payload.RequestedBy),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrityScan))
}

func (j *IntegrityScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
