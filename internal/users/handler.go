package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse/gatehouse/internal/platform/httpx"
)

// CodeNotFound is returned when no account has the requested uid.
const CodeNotFound = "admin.user.doesnt_exist"

// Finder resolves an account by uid.
type Finder interface {
	FindByUID(ctx context.Context, uid string) (*User, error)
}

// Handler exposes account lookups to administrators.
type Handler struct {
	logger  *slog.Logger
	service Finder
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Finder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{uid}", h.showUser)
}

type userView struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.FindByUID(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Errors(w, http.StatusNotFound, CodeNotFound)
			return
		}
		h.logger.Error("find user", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, userView{
		UID:       user.UID,
		Email:     user.Email,
		Role:      user.Role,
		State:     user.State,
		CreatedAt: user.CreatedAt,
	})
}
