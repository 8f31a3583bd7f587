package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskIntegrityScan re-checks voucher balance, stored balances and the trial balance.
	TaskIntegrityScan = "ledger:integrity_scan"
	// TaskReportWarmup precomputes the cached financial statements.
	TaskReportWarmup = "ledger:report_warmup"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// IntegrityScanPayload configures an integrity scan run.
type IntegrityScanPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// ReportWarmupPayload configures a warmup run. Version is the cache version
// that triggered the run, zero for scheduled runs.
type ReportWarmupPayload struct {
	AsOf    string `json:"as_of,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// IdempotencyCleanupPayload configures the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIntegrityScanTask builds an integrity scan task. A zero asOf scans up to now.
func NewIntegrityScanTask(asOf time.Time) (*asynq.Task, error) {
	return newTask(TaskIntegrityScan, IntegrityScanPayload{AsOf: formatDate(asOf)})
}

// NewReportWarmupTask builds a report warmup task.
func NewReportWarmupTask(asOf time.Time, version int64) (*asynq.Task, error) {
	return newTask(TaskReportWarmup, ReportWarmupPayload{AsOf: formatDate(asOf), Version: version})
}

// NewIdempotencyCleanupTask builds a cleanup task for keys older than retention.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
}

// TaskByName builds a task with its default payload.
func TaskByName(name string) (*asynq.Task, error) {
	switch name {
	case TaskIntegrityScan:
		return NewIntegrityScanTask(time.Time{})
	case TaskReportWarmup:
		return NewReportWarmupTask(time.Time{}, 0)
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(7 * 24 * time.Hour)
	default:
		return nil, fmt.Errorf("jobs: unsupported task %s", name)
	}
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

// parseDate returns fallback for an empty value.
func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseInLocation(time.DateOnly, value, time.UTC)
}
