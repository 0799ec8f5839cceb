package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Codec signs session ids into opaque tokens of the form "<id>.<mac>".
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec keyed with secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session: empty signing secret")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// NewID allocates a random session id.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Encode returns the token for id.
func (c *Codec) Encode(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(c.sign(id))
}

// Decode returns the id carried by token when its signature verifies.
func (c *Codec) Decode(token string) (string, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" || sig == "" {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(raw, c.sign(id)) {
		return "", false
	}
	return id, true
}

func (c *Codec) sign(id string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(id))
	return mac.Sum(nil)
}
