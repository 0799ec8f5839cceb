package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFinder struct{}

func (failingFinder) FindByUID(context.Context, string) (*User, error) {
	return nil, errors.New("pool closed")
}

func userRouter(f Finder) http.Handler {
	r := chi.NewRouter()
	r.Route("/users", NewHandler(nil, f).MountRoutes)
	return r
}

func TestShowUserHidesPasswordHash(t *testing.T) {
	repo := &stubRepo{users: map[string]*User{"ID1": {
		UID: "ID1", Email: "a@b.c", PasswordHash: "$2a$10$secret", Role: "admin", State: StateActive, CreatedAt: time.Unix(0, 0).UTC(),
	}}}
	rr := httptest.NewRecorder()
	userRouter(NewService(repo, time.Second)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/ID1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"uid":"ID1","email":"a@b.c","role":"admin","state":"active","created_at":"1970-01-01T00:00:00Z"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "secret")
}

func TestShowUserNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	userRouter(NewService(&stubRepo{}, time.Second)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/ID404", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"errors":["admin.user.doesnt_exist"]}`, rr.Body.String())
}

func TestShowUserLookupFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	userRouter(failingFinder{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/ID1", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
