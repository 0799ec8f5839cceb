package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse/gatehouse/internal/permission"
	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Gate error codes.
const (
	CodeInvalidSession    = "authz.invalid_session"
	CodeInvalidPermission = "authz.invalid_permission"
	CodeUnavailable       = "authz.unavailable"
)

// EventAudit is emitted for requests matched by an audit rule.
const EventAudit = "authz.audit"

// Upstream identity headers set on allowed gate responses.
const (
	HeaderUID   = "X-Auth-Uid"
	HeaderRole  = "X-Auth-Role"
	HeaderEmail = "X-Auth-Email"
)

// SessionValidator resolves a session token.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (session.Session, error)
}

// Authorizer decides whether a role may call verb on path.
type Authorizer interface {
	Authorize(ctx context.Context, role, verb, path string) (permission.Decision, error)
}

// Observer records gate decisions.
type Observer interface {
	ObserveDecision(decision string)
}

// Notifier receives audit events.
type Notifier interface {
	Notify(name string, record any)
}

// GateConfig carries the optional collaborators of a Gate.
type GateConfig struct {
	Cookie   session.Cookie
	Signer   *Signer
	Observer Observer
	Notifier Notifier
}

// Gate authenticates requests by session cookie and authorizes them against
// the permission rules. It is used both as middleware for local routes and as
// the forward-auth endpoint for upstream services.
type Gate struct {
	logger     *slog.Logger
	sessions   SessionValidator
	authorizer Authorizer
	cfg        GateConfig
}

// NewGate constructs a Gate.
func NewGate(logger *slog.Logger, sessions SessionValidator, authorizer Authorizer, cfg GateConfig) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger, sessions: sessions, authorizer: authorizer, cfg: cfg}
}

// auditRecord is the payload of EventAudit.
type auditRecord struct {
	User   auditUser `json:"user"`
	Verb   string    `json:"verb"`
	Path   string    `json:"path"`
	UserIP string    `json:"user_ip"`
}

type auditUser struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Require authenticates the caller and authorizes the request's own method
// and path before calling next with the principal in context.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := g.authenticate(w, r)
		if !ok {
			return
		}
		if !g.authorize(w, r, principal, r.Method, r.URL.Path) {
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// ServeHTTP answers forward-auth checks mounted at a wildcard route. The
// target path is the wildcard remainder, or X-Forwarded-Uri when the proxy
// calls the gate root. The verb is taken from X-Forwarded-Method when set.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := g.authenticate(w, r)
	if !ok {
		return
	}
	verb, target := forwardedTarget(r)
	if !g.authorize(w, r, principal, verb, target) {
		return
	}
	if g.cfg.Signer != nil {
		token, err := g.cfg.Signer.Sign(*principal)
		if err != nil {
			g.logger.Error("sign upstream token", slog.Any("error", err))
			httpx.Errors(w, http.StatusInternalServerError, CodeUnavailable)
			return
		}
		w.Header().Set("Authorization", "Bearer "+token)
	}
	w.Header().Set(HeaderUID, principal.UID)
	w.Header().Set(HeaderRole, principal.Role)
	w.Header().Set(HeaderEmail, principal.Email)
	w.WriteHeader(http.StatusOK)
}

func (g *Gate) authenticate(w http.ResponseWriter, r *http.Request) (*shared.Principal, bool) {
	token := g.cfg.Cookie.Read(r)
	if token == "" {
		g.observe("unauthenticated")
		httpx.Errors(w, http.StatusUnauthorized, CodeInvalidSession)
		return nil, false
	}
	sess, err := g.sessions.Validate(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrNotFoundOrExpired) {
			g.observe("unauthenticated")
			httpx.Errors(w, http.StatusUnauthorized, CodeInvalidSession)
			return nil, false
		}
		g.logger.Error("validate session", slog.Any("error", err))
		g.observe("error")
		httpx.Errors(w, http.StatusInternalServerError, CodeUnavailable)
		return nil, false
	}
	return &shared.Principal{
		SessionID: sess.ID,
		UID:       sess.UserUID,
		Email:     sess.Email,
		Role:      sess.Role,
		State:     string(sess.UserState),
	}, true
}

func (g *Gate) authorize(w http.ResponseWriter, r *http.Request, p *shared.Principal, verb, target string) bool {
	decision, err := g.authorizer.Authorize(r.Context(), p.Role, verb, target)
	if err != nil {
		g.logger.Error("authorize request",
			slog.String("role", p.Role),
			slog.String("verb", verb),
			slog.String("path", target),
			slog.Any("error", err),
		)
		g.observe("error")
		httpx.Errors(w, http.StatusServiceUnavailable, CodeUnavailable)
		return false
	}
	g.observe(decision.String())
	if decision == permission.Audit {
		g.logger.Info("audited request",
			slog.String("uid", p.UID),
			slog.String("role", p.Role),
			slog.String("verb", verb),
			slog.String("path", target),
		)
		if g.cfg.Notifier != nil {
			g.cfg.Notifier.Notify(EventAudit, auditRecord{
				User:   auditUser{UID: p.UID, Email: p.Email, Role: p.Role},
				Verb:   strings.ToLower(verb),
				Path:   target,
				UserIP: clientIP(r),
			})
		}
	}
	if !decision.Allowed() {
		httpx.Errors(w, http.StatusForbidden, CodeInvalidPermission)
		return false
	}
	return true
}

func (g *Gate) observe(decision string) {
	if g.cfg.Observer != nil {
		g.cfg.Observer.ObserveDecision(decision)
	}
}

func forwardedTarget(r *http.Request) (verb, target string) {
	verb = r.Method
	for _, h := range []string{"X-Forwarded-Method", "X-Original-Method"} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			verb = v
			break
		}
	}
	rest := chi.URLParam(r, "*")
	if rest == "" {
		if uri := strings.TrimSpace(r.Header.Get("X-Forwarded-Uri")); uri != "" {
			return verb, uri
		}
	}
	return verb, "/" + strings.TrimPrefix(rest, "/")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
