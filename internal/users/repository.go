package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that no user matches the lookup key.
var ErrNotFound = errors.New("users: not found")

// Repository provides PostgreSQL backed identity lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, uid, email, password_hash, role, state, created_at, updated_at FROM users`

// FindByEmail fetches a user by email, compared case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// FindByUID fetches a user by its public identifier.
func (r *Repository) FindByUID(ctx context.Context, uid string) (*User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE uid = $1`, uid)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user  User
		state string
	)
	err := row.Scan(&user.ID, &user.UID, &user.Email, &user.PasswordHash, &user.Role, &state, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	user.State = ParseState(state)
	return &user, nil
}
