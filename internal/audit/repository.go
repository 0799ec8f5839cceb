package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGRepository reads and writes audit_logs.
type PGRepository struct {
	db dbtx
}

// NewRepository constructs a PGRepository over a pool or transaction.
func NewRepository(db dbtx) *PGRepository {
	return &PGRepository{db: db}
}

// Insert stores e. A redelivered event with a known event_id is ignored.
func (r *PGRepository) Insert(ctx context.Context, e Entry) error {
	meta := e.Meta
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO audit_logs (event_id, routing_key, user_uid, user_ip, user_agent, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.RoutingKey, e.UserUID, e.UserIP, e.UserAgent, meta, toPgTime(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *PGRepository) List(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, event_id::text, routing_key, user_uid, user_ip, user_agent, meta, occurred_at
FROM audit_logs
WHERE ($1::text IS NULL OR user_uid = $1)
  AND ($2::text IS NULL OR routing_key = $2)
  AND ($3::timestamptz IS NULL OR occurred_at >= $3)
  AND ($4::timestamptz IS NULL OR occurred_at < $4)
ORDER BY occurred_at DESC, id DESC
LIMIT $5 OFFSET $6`,
		optionalText(f.UserUID), optionalText(f.RoutingKey), toPgTime(f.From), toPgTime(f.To), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.RoutingKey, &e.UserUID, &e.UserIP, &e.UserAgent, &e.Meta, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return out, nil
}

// Prune deletes entries that occurred before cutoff.
func (r *PGRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
