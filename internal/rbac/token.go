package rbac

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// Issuer is the iss claim of every token minted by the gate.
const Issuer = "gatehouse"

// ErrInvalidToken is returned by Parse for any token it does not accept.
var ErrInvalidToken = errors.New("rbac: invalid token")

// Claims is the identity asserted to upstream services for an allowed request.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	State string `json:"state"`
	jwt.RegisteredClaims
}

// Signer mints short-lived HS256 tokens for principals that passed the gate.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a Signer. ttl defaults to one minute.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("rbac: jwt secret must be provided")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign returns the compact token for p.
func (s *Signer) Sign(p shared.Principal) (string, error) {
	now := s.now()
	claims := Claims{
		Email: p.Email,
		Role:  p.Role,
		State: p.State,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   p.UID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("rbac: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims.
func (s *Signer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
