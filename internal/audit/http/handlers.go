package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gatehouse/gatehouse/internal/audit"
	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/shared"
)

const (
	codeInvalidPage  = "admin.activity.invalid_page"
	codeInvalidLimit = "admin.activity.invalid_limit"
	codeInvalidRange = "admin.activity.invalid_range"
)

// ActivityService is the read side of the audit log.
type ActivityService interface {
	Activities(ctx context.Context, f audit.Filters) (audit.Result, error)
}

// Handler serves the admin activity log.
type Handler struct {
	logger  *slog.Logger
	service ActivityService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service ActivityService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, code := parseFilters(r)
	if code != "" {
		httpx.Errors(w, http.StatusUnprocessableEntity, code)
		return
	}
	result, err := h.service.Activities(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "list activities", err)
		return
	}
	if result.Rows == nil {
		result.Rows = []audit.Entry{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, code := parseFilters(r)
	if code != "" {
		httpx.Errors(w, http.StatusUnprocessableEntity, code)
		return
	}
	result, err := h.service.Activities(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export activities", err)
		return
	}
	data, err := audit.WriteCSV(result.Rows)
	if err != nil {
		h.handleServerError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"activities.csv\"")
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (audit.Filters, string) {
	q := r.URL.Query()
	page, limit, err := shared.ParsePage(q)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidLimit) {
			return audit.Filters{}, codeInvalidLimit
		}
		return audit.Filters{}, codeInvalidPage
	}
	f := audit.Filters{
		UserUID:    strings.TrimSpace(q.Get("uid")),
		RoutingKey: strings.TrimSpace(q.Get("topic")),
		Page:       page,
		PageSize:   limit,
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if f.From, err = time.Parse(time.RFC3339, v); err != nil {
			return audit.Filters{}, codeInvalidRange
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if f.To, err = time.Parse(time.RFC3339, v); err != nil {
			return audit.Filters{}, codeInvalidRange
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return audit.Filters{}, codeInvalidRange
	}
	return f, ""
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.RespondError(w, http.StatusInternalServerError, err)
}
