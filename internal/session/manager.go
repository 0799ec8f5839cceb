package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/users"
)

// Event names emitted by the manager.
const (
	EventCreate  = "session.create"
	EventDestroy = "session.destroy"
)

// Directory resolves accounts from the identity system.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByUID(ctx context.Context, uid string) (*users.User, error)
}

// Notifier receives lifecycle events. Implementations must not block.
type Notifier interface {
	Notify(name string, record any)
}

// Config tunes a Manager.
type Config struct {
	TTL          time.Duration
	Policy       Policy
	RecheckState bool
	StoreTimeout time.Duration
}

// Record is the payload of session events.
type Record struct {
	User      RecordUser `json:"user"`
	UserIP    string     `json:"user_ip"`
	UserAgent string     `json:"user_agent"`
}

// RecordUser identifies the account in an event record.
type RecordUser struct {
	UID   string      `json:"uid"`
	Email string      `json:"email"`
	Role  string      `json:"role"`
	State users.State `json:"state"`
}

// Manager runs the session lifecycle.
type Manager struct {
	store    Store
	dir      Directory
	codec    *Codec
	captcha  CaptchaVerifier
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	ttl          time.Duration
	policy       Policy
	recheck      bool
	storeTimeout time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCaptcha enables captcha verification on Create.
func WithCaptcha(v CaptchaVerifier) Option {
	return func(m *Manager) { m.captcha = v }
}

// WithNotifier sets the event sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager constructs a Manager.
func NewManager(cfg Config, codec *Codec, store Store, dir Directory, opts ...Option) (*Manager, error) {
	if codec == nil || store == nil || dir == nil {
		return nil, errors.New("session: codec, store and directory are required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session: ttl must be positive, got %s", cfg.TTL)
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	m := &Manager{
		store:        store,
		dir:          dir,
		codec:        codec,
		captcha:      NoCaptcha{},
		notifier:     nopNotifier{},
		logger:       slog.Default(),
		now:          time.Now,
		ttl:          cfg.TTL,
		policy:       cfg.Policy,
		recheck:      cfg.RecheckState,
		storeTimeout: cfg.StoreTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL is the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create authenticates p and opens a session. It returns the stored session
// and its token.
func (m *Manager) Create(ctx context.Context, p CreateParams) (Session, string, error) {
	email := strings.TrimSpace(p.Email)
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if p.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return Session{}, "", &MissingFieldError{Fields: missing}
	}

	if err := m.captcha.Verify(ctx, p.CaptchaResponse, p.ClientIP); err != nil {
		if !errors.Is(err, ErrCaptchaFailed) {
			m.logger.Warn("captcha verification error", slog.Any("error", err))
		}
		return Session{}, "", ErrCaptchaFailed
	}

	user, err := m.authenticate(ctx, email, p.Password)
	if err != nil {
		return Session{}, "", err
	}
	if err := m.policy.Admit(user.State); err != nil {
		return Session{}, "", err
	}

	id, err := NewID()
	if err != nil {
		return Session{}, "", fmt.Errorf("session: allocate id: %w", err)
	}
	sess := Session{
		ID:        id,
		UserUID:   user.UID,
		Email:     user.Email,
		Role:      user.Role,
		UserState: user.State,
		UserIP:    p.ClientIP,
		UserAgent: p.UserAgent,
		CreatedAt: m.now(),
		TTL:       m.ttl,
	}

	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	if err := m.store.Put(storeCtx, sess, m.ttl); err != nil {
		return Session{}, "", fmt.Errorf("session: persist: %w", err)
	}

	m.notifier.Notify(EventCreate, recordOf(sess))
	return sess, m.codec.Encode(id), nil
}

// Validate returns the live session behind token. Every kind of miss is
// reported as ErrNotFoundOrExpired.
func (m *Manager) Validate(ctx context.Context, token string) (Session, error) {
	id, ok := m.codec.Decode(token)
	if !ok {
		return Session{}, ErrNotFoundOrExpired
	}

	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	sess, err := m.store.Get(storeCtx, id)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return Session{}, ErrNotFoundOrExpired
		}
		return Session{}, fmt.Errorf("session: load: %w", err)
	}
	if !sess.Valid(m.now()) {
		_ = m.store.Delete(storeCtx, id)
		return Session{}, ErrNotFoundOrExpired
	}

	if m.recheck {
		user, err := m.dir.FindByUID(ctx, sess.UserUID)
		switch {
		case errors.Is(err, users.ErrNotFound):
			_ = m.store.Delete(storeCtx, id)
			return Session{}, ErrNotFoundOrExpired
		case err != nil:
			return Session{}, fmt.Errorf("session: recheck account: %w", err)
		}
		if m.policy.Admit(user.State) != nil {
			_ = m.store.Delete(storeCtx, id)
			return Session{}, ErrNotFoundOrExpired
		}
		sess.Role = user.Role
		sess.UserState = user.State
	}
	return sess, nil
}

// Destroy ends the session behind token. A second Destroy returns ErrNotFound.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	id, ok := m.codec.Decode(token)
	if !ok {
		return ErrNotFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	sess, err := m.store.Take(storeCtx, id)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return ErrNotFound
		}
		return fmt.Errorf("session: take: %w", err)
	}
	if !sess.Valid(m.now()) {
		return ErrNotFound
	}

	m.notifier.Notify(EventDestroy, recordOf(sess))
	return nil
}

func (m *Manager) authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := m.dir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("session: lookup identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func recordOf(sess Session) Record {
	return Record{
		User: RecordUser{
			UID:   sess.UserUID,
			Email: sess.Email,
			Role:  sess.Role,
			State: sess.UserState,
		},
		UserIP:    sess.UserIP,
		UserAgent: sess.UserAgent,
	}
}

// dummyHash evens out response time for unknown accounts.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("gatehouse-unknown-account"), bcrypt.DefaultCost)
	if err != nil {
		return nil
	}
	return h
})

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}
