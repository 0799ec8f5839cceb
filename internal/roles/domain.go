package roles

import (
	"strings"
	"time"
)

// Role is a named grouping that users belong to and permission rules target.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Normalize trims and lower-cases a role name for comparison.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
