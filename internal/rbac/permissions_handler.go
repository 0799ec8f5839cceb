package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse/gatehouse/internal/permission"
	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Admin permissions API codes not owned by the permission package.
const (
	CodeInvalidBody  = "admin.permission.invalid_body"
	CodeInvalidID    = "admin.permission.invalid_id"
	CodeInvalidPage  = "admin.permissions.invalid_page"
	CodeInvalidLimit = "admin.permissions.invalid_limit"
)

// RuleStore is the administrative view of the permission table.
type RuleStore interface {
	Page(ctx context.Context, page, limit int) ([]permission.Rule, int, error)
	Create(ctx context.Context, in permission.RuleInput) (permission.Rule, error)
	Update(ctx context.Context, id int64, patch permission.RulePatch) (permission.Rule, error)
	Delete(ctx context.Context, id int64) error
}

// PermissionsHandler serves the admin CRUD API over permission rules.
type PermissionsHandler struct {
	logger *slog.Logger
	store  RuleStore
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, store RuleStore) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, store: store}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Post("/", h.createPermission)
	r.Put("/{id}", h.updatePermission)
	r.Delete("/{id}", h.deletePermission)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	page, limit, err := shared.ParsePage(r.URL.Query())
	if err != nil {
		code := CodeInvalidLimit
		if errors.Is(err, shared.ErrInvalidPage) {
			code = CodeInvalidPage
		}
		httpx.Errors(w, http.StatusUnprocessableEntity, code)
		return
	}
	rules, total, err := h.store.Page(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, "list permissions", err)
		return
	}
	if rules == nil {
		rules = []permission.Rule{}
	}
	w.Header().Set("Total", strconv.Itoa(total))
	w.Header().Set("Page", strconv.Itoa(page))
	w.Header().Set("Per-Page", strconv.Itoa(limit))
	httpx.JSON(w, http.StatusOK, rules)
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var in permission.RuleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Errors(w, http.StatusBadRequest, CodeInvalidBody)
		return
	}
	rule, err := h.store.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, "create permission", err)
		return
	}
	h.logAdmin(r, "permission created", rule)
	httpx.JSON(w, http.StatusCreated, rule)
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	var patch permission.RulePatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Errors(w, http.StatusBadRequest, CodeInvalidBody)
		return
	}
	rule, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.respondError(w, "update permission", err)
		return
	}
	h.logAdmin(r, "permission updated", rule)
	httpx.JSON(w, http.StatusOK, rule)
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete permission", err)
		return
	}
	h.logAdmin(r, "permission deleted", permission.Rule{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, permission.ErrValidation):
		httpx.RespondError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, permission.ErrNotFound):
		httpx.RespondError(w, http.StatusNotFound, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *PermissionsHandler) logAdmin(r *http.Request, msg string, rule permission.Rule) {
	attrs := []any{slog.Int64("rule_id", rule.ID)}
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		attrs = append(attrs, slog.String("admin_uid", p.UID))
	}
	h.logger.Info(msg, attrs...)
}

func ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Errors(w, http.StatusUnprocessableEntity, CodeInvalidID)
		return 0, false
	}
	return id, true
}
