package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	users    map[string]*User
	deadline bool
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	_, s.deadline = ctx.Deadline()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubRepo) FindByUID(ctx context.Context, uid string) (*User, error) {
	_, s.deadline = ctx.Deadline()
	if u, ok := s.users[uid]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func TestServiceBoundsLookups(t *testing.T) {
	repo := &stubRepo{users: map[string]*User{"ID1": {UID: "ID1", Email: "a@b.c", State: StateActive}}}
	svc := NewService(repo, time.Second)

	user, err := svc.FindByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "ID1", user.UID)
	assert.True(t, repo.deadline)

	_, err = svc.FindByUID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceWithoutTimeout(t *testing.T) {
	repo := &stubRepo{users: map[string]*User{}}
	svc := NewService(repo, 0)

	_, err := svc.FindByEmail(context.Background(), "x@y.z")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, repo.deadline)
}

func TestParseState(t *testing.T) {
	assert.Equal(t, StateNotActive, ParseState(" Not-Active "))
	assert.True(t, ParseState("BANNED").Known())
	assert.False(t, ParseState("deleted").Known())
}
