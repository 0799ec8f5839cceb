package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// RepositoryPort is the persistence contract behind Store and Cache.
type RepositoryPort interface {
	List(ctx context.Context) ([]Rule, error)
	ListPage(ctx context.Context, limit, offset int) ([]Rule, int, error)
	Insert(ctx context.Context, rule Rule) (Rule, error)
	Update(ctx context.Context, id int64, fields RuleFields) (Rule, error)
	Delete(ctx context.Context, id int64) error
}

// RuleFields holds validated column values; nil keeps the stored value.
type RuleFields struct {
	Role   *string
	Verb   *string
	Path   *string
	Action *string
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PGRepository stores rules in the permissions table.
type PGRepository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL repository over a pool or transaction.
func NewRepository(db dbtx) *PGRepository {
	return &PGRepository{db: db}
}

const ruleColumns = `id, role, verb, path, action, created_at, updated_at`

// List returns every rule ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("permission: list: %w", err)
	}
	rules, _, err := collectRules(rows, false)
	return rules, err
}

// ListPage returns one page of rules and the total row count.
func (r *PGRepository) ListPage(ctx context.Context, limit, offset int) ([]Rule, int, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+`, COUNT(*) OVER () FROM permissions ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("permission: list page: %w", err)
	}
	rules, total, err := collectRules(rows, true)
	if err != nil || len(rules) > 0 || offset == 0 {
		return rules, total, err
	}
	// Past the last page the window count is absent.
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM permissions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("permission: count: %w", err)
	}
	return rules, total, nil
}

// Insert stores a new rule and returns it with its id and timestamps.
func (r *PGRepository) Insert(ctx context.Context, rule Rule) (Rule, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO permissions (role, verb, path, action, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+ruleColumns, rule.Role, string(rule.Verb), rule.Path, string(rule.Action))
	out, err := scanRule(row)
	if err != nil {
		return Rule{}, fmt.Errorf("permission: insert: %w", err)
	}
	return out, nil
}

// Update applies the non-nil fields to rule id.
func (r *PGRepository) Update(ctx context.Context, id int64, fields RuleFields) (Rule, error) {
	row := r.db.QueryRow(ctx, `UPDATE permissions SET
			role = COALESCE($2, role),
			verb = COALESCE($3, verb),
			path = COALESCE($4, path),
			action = COALESCE($5, action),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+ruleColumns, id, fields.Role, fields.Verb, fields.Path, fields.Action)
	out, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotFound
		}
		return Rule{}, fmt.Errorf("permission: update: %w", err)
	}
	return out, nil
}

// Delete removes rule id. Returns ErrNotFound if nothing was deleted.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("permission: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (Rule, error) {
	var (
		rule         Rule
		verb, action string
	)
	if err := row.Scan(&rule.ID, &rule.Role, &verb, &rule.Path, &action, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return Rule{}, err
	}
	rule.Verb = Verb(verb)
	rule.Action = Action(action)
	return rule, nil
}

func collectRules(rows pgx.Rows, withTotal bool) ([]Rule, int, error) {
	defer rows.Close()
	var (
		rules []Rule
		total int
	)
	for rows.Next() {
		var (
			rule         Rule
			verb, action string
		)
		dest := []any{&rule.ID, &rule.Role, &verb, &rule.Path, &action, &rule.CreatedAt, &rule.UpdatedAt}
		if withTotal {
			dest = append(dest, &total)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("permission: scan: %w", err)
		}
		rule.Verb = Verb(verb)
		rule.Action = Action(action)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("permission: rows: %w", err)
	}
	return rules, total, nil
}

var _ RepositoryPort = (*PGRepository)(nil)
