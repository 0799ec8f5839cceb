// Package session issues, validates and destroys login sessions.
package session

import (
	"time"

	"github.com/gatehouse/gatehouse/internal/users"
)

// State of a session as observed by a caller.
type State int

const (
	StateUnauthenticated State = iota
	StateActive
	StateExpired
	StateDestroyed
)

// Session is the stored record behind a session token.
type Session struct {
	ID        string        `json:"id"`
	UserUID   string        `json:"uid"`
	Email     string        `json:"email"`
	Role      string        `json:"role"`
	UserState users.State   `json:"state"`
	UserIP    string        `json:"user_ip"`
	UserAgent string        `json:"user_agent"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// ExpiresAt is the instant after which the session is no longer valid.
func (s Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(s.TTL)
}

// Valid reports whether created_at + ttl is still after now.
func (s Session) Valid(now time.Time) bool {
	return s.ExpiresAt().After(now)
}

// StateAt classifies the session at now.
func (s Session) StateAt(now time.Time) State {
	if s.ID == "" {
		return StateUnauthenticated
	}
	if !s.Valid(now) {
		return StateExpired
	}
	return StateActive
}

// CreateParams carries a login attempt.
type CreateParams struct {
	Email           string
	Password        string
	CaptchaResponse string
	ClientIP        string
	UserAgent       string
}

// Policy decides which account states may hold a session.
type Policy struct {
	AllowPending bool
}

// DefaultPolicy admits active and pending accounts.
func DefaultPolicy() Policy {
	return Policy{AllowPending: true}
}

// Admit maps an account state to nil or the matching AuthError.
func (p Policy) Admit(state users.State) error {
	switch state {
	case users.StateActive:
		return nil
	case users.StatePending:
		if p.AllowPending {
			return nil
		}
		return ErrAccountNotActive
	case users.StateBanned:
		return ErrAccountBanned
	default:
		return ErrAccountNotActive
	}
}
