package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatehouse/gatehouse/internal/events"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeEventDeliver carries one session event to the audit recorder.
	TaskTypeEventDeliver = "event:deliver"
	// TaskTypeAuditPrune removes audit entries past the retention window.
	TaskTypeAuditPrune = "audit:prune"
)

// AuditPrunePayload parameterises an audit prune run.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewEventTask wraps ev in an asynq task. The event id doubles as the task id
// so a redelivered Notify is not enqueued twice.
func NewEventTask(ev events.Event) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeEventDeliver, data, asynq.TaskID(ev.ID), asynq.MaxRetry(10), asynq.Retention(time.Hour)), nil
}

// NewAuditPruneTask constructs the cron task that prunes audit_logs.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: int(retention / (24 * time.Hour))})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditPrune, data), nil
}
