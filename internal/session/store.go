package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned by a Store when no live record exists for an id.
var ErrNoSession = errors.New("session: no such session")

// Store persists session records with a time to live.
type Store interface {
	Put(ctx context.Context, sess Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, error)
	// Take atomically reads and removes a record.
	Take(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
