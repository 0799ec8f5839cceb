package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gatehouse/gatehouse/internal/events"
)

const (
	defaultPageSize = 100
	maxPageSize     = 100
)

// ErrMalformedEvent marks an event whose record cannot be parsed. Retrying it
// will not help.
var ErrMalformedEvent = errors.New("audit: malformed event")

// Repository is the storage used by Service.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Service records delivered events and serves the activity log.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores ev as an audit entry.
func (s *Service) Record(ctx context.Context, ev events.Event) error {
	if s.repo == nil {
		return fmt.Errorf("audit: repository not configured")
	}
	entry, err := EntryFromEvent(ev)
	if err != nil {
		return err
	}
	return s.repo.Insert(ctx, entry)
}

// Activities returns one page of entries matching f.
func (s *Service) Activities(ctx context.Context, f Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	rows, err := s.repo.List(ctx, f, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return Result{Rows: rows, Paging: PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}}, nil
}

// Prune removes entries older than before.
func (s *Service) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Prune(ctx, before)
}

// eventRecord is the subset of a session event record kept in columns.
type eventRecord struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	UserIP    string `json:"user_ip"`
	UserAgent string `json:"user_agent"`
}

// EntryFromEvent flattens ev into an Entry. The full record is kept as meta.
func EntryFromEvent(ev events.Event) (Entry, error) {
	if ev.ID == "" || ev.RoutingKey == "" {
		return Entry{}, fmt.Errorf("%w: missing id or routing key", ErrMalformedEvent)
	}
	var rec eventRecord
	if len(ev.Record) > 0 && string(ev.Record) != "null" {
		if err := json.Unmarshal(ev.Record, &rec); err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	return Entry{
		EventID:    ev.ID,
		RoutingKey: ev.RoutingKey,
		UserUID:    rec.User.UID,
		UserIP:     rec.UserIP,
		UserAgent:  rec.UserAgent,
		Meta:       ev.Record,
		OccurredAt: ev.OccurredAt,
	}, nil
}
