package users

import (
	"strings"
	"time"
)

// State is the externally owned account status that gates login.
type State string

const (
	StateActive    State = "active"
	StatePending   State = "pending"
	StateBanned    State = "banned"
	StateNotActive State = "not-active"
)

// ParseState normalizes a stored state value. Unknown values are kept as-is
// so callers can treat them as not permitted.
func ParseState(raw string) State {
	return State(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether s is one of the enumerated states.
func (s State) Known() bool {
	switch s {
	case StateActive, StatePending, StateBanned, StateNotActive:
		return true
	}
	return false
}

// User represents an identity record as seen by the session layer.
type User struct {
	ID           int64
	UID          string
	Email        string
	PasswordHash string
	Role         string
	State        State
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
