package audit

import (
	"encoding/json"
	"time"
)

// Entry is one row of audit_logs.
type Entry struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"event_id"`
	RoutingKey string          `json:"routing_key"`
	UserUID    string          `json:"user_uid"`
	UserIP     string          `json:"user_ip"`
	UserAgent  string          `json:"user_agent"`
	Meta       json.RawMessage `json:"meta"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Filters narrows an activity query.
type Filters struct {
	UserUID    string
	RoutingKey string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// PagingInfo describes the page returned by Activities.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"limit"`
	HasNext  bool `json:"has_next"`
}

// Result is one page of entries.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
