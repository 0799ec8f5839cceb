package rbac

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/shared"
)

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner("secret", 30*time.Second)
	require.NoError(t, err)

	raw, err := s.Sign(shared.Principal{UID: "ID1", Role: "admin", Email: "a@b.c", State: "active"})
	require.NoError(t, err)

	claims, err := s.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "ID1", claims.Subject)
	require.Equal(t, Issuer, claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, 30*time.Second, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	s, err := NewSigner("secret", time.Minute)
	require.NoError(t, err)
	issued := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return issued }
	raw, err := s.Sign(shared.Principal{UID: "ID1"})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Parse(raw)
	require.True(t, errors.Is(err, ErrInvalidToken))
}

func TestSignerRejectsForeignTokens(t *testing.T) {
	s, err := NewSigner("secret", time.Minute)
	require.NoError(t, err)
	other, err := NewSigner("other-secret", time.Minute)
	require.NoError(t, err)

	raw, err := other.Sign(shared.Principal{UID: "ID1"})
	require.NoError(t, err)
	_, err = s.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "ID1",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("", time.Minute)
	require.Error(t, err)
}
