package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan verifies obligation and stock invariants.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskReportsWarmup pre-populates the report cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// DefaultIdempotencyRetention is how long idempotency keys are kept.
const DefaultIdempotencyRetention = 72 * time.Hour

// IntegrityScanPayload identifies who requested a scan.
type IntegrityScanPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// IdempotencyCleanupPayload configures the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// Retention returns the configured window or the default.
func (p IdempotencyCleanupPayload) Retention() time.Duration {
	if p.RetentionHours <= 0 {
		return DefaultIdempotencyRetention
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewIntegrityScanTask creates the integrity scan task. Duplicates within
// the unique window are dropped by asynq.
func NewIntegrityScanTask(requestedBy string) (*asynq.Task, error) {
	body, err := json.Marshal(IntegrityScanPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1), asynq.Unique(5*time.Minute)), nil
}

// NewReportsWarmupTask creates the cache warm-up task.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(0))
}

// NewIdempotencyCleanupTask creates the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
