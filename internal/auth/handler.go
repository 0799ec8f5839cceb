package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/session"
)

// SessionService is the session lifecycle used by Handler.
type SessionService interface {
	Create(ctx context.Context, p session.CreateParams) (session.Session, string, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

// Observer records session outcomes.
type Observer interface {
	ObserveSession(op, outcome string)
}

// Config tunes the identity endpoints.
type Config struct {
	Cookie session.Cookie
	// LoginRateLimit is the number of login attempts per IP per minute;
	// zero disables the limiter.
	LoginRateLimit int
}

// Handler wires HTTP endpoints for session creation and logout.
type Handler struct {
	logger    *slog.Logger
	sessions  SessionService
	cfg       Config
	observer  Observer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, sessions SessionService, cfg Config, observer Observer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		sessions:  sessions,
		cfg:       cfg,
		observer:  observer,
		validator: validator.New(),
	}
}

// MountRoutes registers the session routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(gr chi.Router) {
		if h.cfg.LoginRateLimit > 0 {
			gr.Use(httprate.Limit(h.cfg.LoginRateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					h.observe("create", "rate_limited")
					httpx.Errors(w, http.StatusTooManyRequests, "identity.session.too_many_requests")
				}),
			))
		}
		gr.Post("/sessions", h.handleCreate)
	})
	r.Delete("/sessions", h.handleDestroy)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		h.observe("create", "bad_request")
		httpx.Errors(w, http.StatusBadRequest, session.CodeInvalidCredentials)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.observe("create", "invalid")
		httpx.Errors(w, http.StatusUnprocessableEntity, session.CodeInvalidCredentials)
		return
	}

	sess, token, err := h.sessions.Create(r.Context(), session.CreateParams{
		Email:           req.Email,
		Password:        req.Password,
		CaptchaResponse: req.CaptchaResponse,
		ClientIP:        clientIP(r),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		h.respondSessionError(w, "create", err)
		return
	}

	h.cfg.Cookie.Write(w, token, h.sessions.TTL())
	h.observe("create", "ok")
	httpx.JSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) handleDestroy(w http.ResponseWriter, r *http.Request) {
	token := h.cfg.Cookie.Read(r)
	if token == "" {
		h.observe("destroy", "not_found")
		httpx.Errors(w, http.StatusNotFound, session.CodeNotFound)
		return
	}
	if err := h.sessions.Destroy(r.Context(), token); err != nil {
		h.cfg.Cookie.Clear(w)
		h.respondSessionError(w, "destroy", err)
		return
	}
	h.cfg.Cookie.Clear(w)
	h.observe("destroy", "ok")
	httpx.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) respondSessionError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	outcome := "error"
	switch {
	case errors.Is(err, session.ErrMissingField):
		status, outcome = http.StatusUnprocessableEntity, "missing_field"
	case errors.Is(err, session.ErrCaptchaFailed):
		status, outcome = http.StatusUnprocessableEntity, "captcha_failed"
	case errors.Is(err, session.ErrInvalidCredentials):
		status, outcome = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, session.ErrAccountBanned):
		status, outcome = http.StatusUnauthorized, "banned"
	case errors.Is(err, session.ErrAccountNotActive):
		status, outcome = http.StatusUnauthorized, "not_active"
	case errors.Is(err, session.ErrNotFound):
		status, outcome = http.StatusNotFound, "not_found"
	default:
		h.logger.Error("session "+op, slog.Any("error", err))
	}
	h.observe(op, outcome)
	httpx.RespondError(w, status, err)
}

func (h *Handler) observe(op, outcome string) {
	if h.observer != nil {
		h.observer.ObserveSession(op, outcome)
	}
}

func decodeLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			return loginRequest{}, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return loginRequest{}, err
	}
	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
	req.CaptchaResponse = r.PostFormValue("captcha_response")
	return req, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
