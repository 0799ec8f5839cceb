package events

import (
	"context"
	"errors"
	"log/slog"
)

// LogSink writes each event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, ev Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "event",
		slog.String("id", ev.ID),
		slog.String("routing_key", ev.RoutingKey),
		slog.Time("occurred_at", ev.OccurredAt),
		slog.String("record", string(ev.Record)),
	)
	return nil
}

// FanOut delivers to every sink and joins their errors.
type FanOut []Sink

func (f FanOut) Deliver(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Deliver(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
