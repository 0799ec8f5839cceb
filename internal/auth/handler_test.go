package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/users"
	_ "github.com/gatehouse/gatehouse/testing"
)

type stubDirectory struct {
	accounts map[string]*users.User
}

func (s *stubDirectory) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	if u, ok := s.accounts[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (s *stubDirectory) FindByUID(ctx context.Context, uid string) (*users.User, error) {
	for _, u := range s.accounts {
		if u.UID == uid {
			return u, nil
		}
	}
	return nil, users.ErrNotFound
}

type countingNotifier struct {
	mu    sync.Mutex
	names []string
}

func (n *countingNotifier) Notify(name string, record any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names = append(n.names, name)
}

type outcomes struct {
	mu  sync.Mutex
	got []string
}

func (o *outcomes) ObserveSession(op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, op+":"+outcome)
}

const password = "testPassword111"

type harness struct {
	router   http.Handler
	notifier *countingNotifier
	outcomes *outcomes
	redis    *miniredis.Miniredis
}

func newHarness(t *testing.T, rateLimit int) *harness {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	dir := &stubDirectory{accounts: map[string]*users.User{
		"user@gmail.com":   {UID: "ID0000000001", Email: "user@gmail.com", PasswordHash: string(hash), Role: "member", State: users.StateActive},
		"banned@gmail.com": {UID: "ID0000000002", Email: "banned@gmail.com", PasswordHash: string(hash), Role: "member", State: users.StateBanned},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codec, err := session.NewCodec("secret")
	require.NoError(t, err)
	notifier := &countingNotifier{}
	manager, err := session.NewManager(session.Config{TTL: 1800 * time.Second, Policy: session.DefaultPolicy()},
		codec, session.NewRedisStore(client), dir, session.WithNotifier(notifier))
	require.NoError(t, err)

	obs := &outcomes{}
	h := auth.NewHandler(nil, manager, auth.Config{Cookie: session.Cookie{Name: "_test_session"}, LoginRateLimit: rateLimit}, obs)
	r := chi.NewRouter()
	r.Route("/api/v2/identity", h.MountRoutes)
	return &harness{router: r, notifier: notifier, outcomes: obs, redis: mr}
}

func (h *harness) postForm(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v2/identity/sessions", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "random-browser")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "_test_session" {
			return c
		}
	}
	return nil
}

func TestCreateSessionSetsCookie(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.postForm(url.Values{"email": {"user@gmail.com"}, "password": {password}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1800, cookie.MaxAge)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ID0000000001", body["uid"])
	assert.Equal(t, []string{session.EventCreate}, h.notifier.names)
	assert.Len(t, h.redis.Keys(), 1)
}

func TestCreateSessionAcceptsJSON(t *testing.T) {
	h := newHarness(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/identity/sessions",
		strings.NewReader(`{"email":"user@gmail.com","password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateSessionErrors(t *testing.T) {
	cases := []struct {
		name   string
		form   url.Values
		status int
		body   string
	}{
		{"missing both", url.Values{}, http.StatusUnprocessableEntity, `{"errors":["identity.session.missing_email","identity.session.missing_password"]}`},
		{"missing password", url.Values{"email": {"user@gmail.com"}}, http.StatusUnprocessableEntity, `{"errors":["identity.session.missing_password"]}`},
		{"wrong password", url.Values{"email": {"user@gmail.com"}, "password": {"password"}}, http.StatusUnauthorized, `{"errors":["identity.session.invalid_params"]}`},
		{"unknown user", url.Values{"email": {"nobody@gmail.com"}, "password": {password}}, http.StatusUnauthorized, `{"errors":["identity.session.invalid_params"]}`},
		{"banned", url.Values{"email": {"banned@gmail.com"}, "password": {password}}, http.StatusUnauthorized, `{"errors":["identity.session.banned"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 0)
			rr := h.postForm(tc.form)
			assert.Equal(t, tc.status, rr.Code)
			assert.JSONEq(t, tc.body, rr.Body.String())
			assert.Nil(t, sessionCookie(rr))
			assert.Empty(t, h.notifier.names)
		})
	}
}

func TestDestroySession(t *testing.T) {
	h := newHarness(t, 0)
	cookie := sessionCookie(h.postForm(url.Values{"email": {"user@gmail.com"}, "password": {password}}))
	require.NotNil(t, cookie)

	del := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v2/identity/sessions", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
		rr := httptest.NewRecorder()
		h.router.ServeHTTP(rr, req)
		return rr
	}

	rr := del()
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := sessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
	assert.Equal(t, []string{session.EventCreate, session.EventDestroy}, h.notifier.names)

	rr = del()
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"errors":["identity.session.not_found"]}`, rr.Body.String())
}

func TestDestroyWithoutCookie(t *testing.T) {
	h := newHarness(t, 0)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v2/identity/sessions", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"errors":["identity.session.not_found"]}`, rr.Body.String())
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, 2)
	form := url.Values{"email": {"user@gmail.com"}, "password": {"wrong"}}
	assert.Equal(t, http.StatusUnauthorized, h.postForm(form).Code)
	assert.Equal(t, http.StatusUnauthorized, h.postForm(form).Code)

	rr := h.postForm(form)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, h.outcomes.got, "create:rate_limited")
}
