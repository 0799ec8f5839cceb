package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatehouse/gatehouse/internal/audit"
	"github.com/gatehouse/gatehouse/internal/events"
	jobmetrics "github.com/gatehouse/gatehouse/internal/jobs"
)

// EventRecorder persists delivered events.
type EventRecorder interface {
	Record(ctx context.Context, ev events.Event) error
}

// AuditPruner deletes audit entries older than a cutoff.
type AuditPruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// EventDeliveryJob records queued session events.
type EventDeliveryJob struct {
	Recorder EventRecorder
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes TaskTypeEventDeliver tasks.
func (j *EventDeliveryJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Recorder == nil {
		return errors.New("event delivery: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTypeEventDeliver)
	defer func() { err = tracker.End(err) }()

	var ev events.Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("event delivery: decode: %v: %w", err, asynq.SkipRetry)
	}
	if err := j.Recorder.Record(ctx, ev); err != nil {
		if errors.Is(err, audit.ErrMalformedEvent) {
			j.logger().Warn("discard malformed event", slog.String("event_id", ev.ID), slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	j.logger().Debug("event recorded", slog.String("event_id", ev.ID), slog.String("routing_key", ev.RoutingKey))
	return nil
}

func (j *EventDeliveryJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

// AuditPruneJob applies the audit retention window.
type AuditPruneJob struct {
	Pruner  AuditPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Clock   func() time.Time
}

// Handle processes TaskTypeAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Pruner == nil {
		return errors.New("audit prune: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTypeAuditPrune)
	defer func() { err = tracker.End(err) }()

	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("audit prune: decode: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RetentionDays <= 0 {
		return nil
	}
	now := time.Now
	if j.Clock != nil {
		now = j.Clock
	}
	cutoff := now().UTC().AddDate(0, 0, -payload.RetentionDays)
	removed, err := j.Pruner.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("audit pruned", slog.Int64("removed", removed), slog.Time("before", cutoff))
	}
	return nil
}
