package shared

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageLimit is used when the client omits limit.
	DefaultPageLimit = 100
	// MaxPageLimit caps limit.
	MaxPageLimit = 100
)

// Pagination errors.
var (
	ErrInvalidPage  = errors.New("pagination: page must be a positive integer")
	ErrInvalidLimit = errors.New("pagination: limit must be between 1 and 100")
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageLimit
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ParsePage reads page and limit from a query string. Missing values take
// the defaults; malformed or out of range values are errors.
func ParsePage(q url.Values) (page, limit int, err error) {
	page, limit = 1, DefaultPageLimit
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, ErrInvalidPage
		}
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > MaxPageLimit {
			return 0, 0, ErrInvalidLimit
		}
	}
	return page, limit, nil
}
