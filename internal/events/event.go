// Package events publishes session lifecycle notifications without blocking
// the operation that raised them.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ScopeSystem is the scope of events raised by the service itself.
const ScopeSystem = "system"

// Event is one published notification.
type Event struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Scope      string          `json:"scope"`
	RoutingKey string          `json:"routing_key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Record     json.RawMessage `json:"record"`
}

// RoutingKey joins scope and name, e.g. "system.session.create".
func RoutingKey(scope, name string) string {
	return scope + "." + name
}

// Sink delivers events to a destination.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }
