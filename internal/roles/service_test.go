package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	names []string
	err   error
	calls int
}

func (s *stubRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(s.names))
	for i, n := range s.names {
		out = append(out, Role{ID: int64(i + 1), Name: n})
	}
	return out, s.err
}

func (s *stubRepo) Exists(ctx context.Context, name string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	for _, n := range s.names {
		if Normalize(n) == Normalize(name) {
			return true, nil
		}
	}
	return false, nil
}

func TestRoleExists(t *testing.T) {
	repo := &stubRepo{names: []string{"admin", "Member"}}
	svc := NewService(repo)

	ok, err := svc.RoleExists(context.Background(), "MEMBER")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.RoleExists(context.Background(), "trader")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleExistsBlankSkipsRepository(t *testing.T) {
	repo := &stubRepo{}
	ok, err := NewService(repo).RoleExists(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, repo.calls)
}

func TestRoleExistsWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(&stubRepo{err: boom}).RoleExists(context.Background(), "admin")
	assert.ErrorIs(t, err, boom)
}
