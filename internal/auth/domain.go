package auth

import (
	"time"

	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/users"
)

// loginRequest is accepted as JSON or as form values. Presence is checked by
// the session manager; the tags only bound sizes and shape.
type loginRequest struct {
	Email           string `json:"email" validate:"omitempty,max=255"`
	Password        string `json:"password" validate:"omitempty,max=72"`
	CaptchaResponse string `json:"captcha_response" validate:"omitempty,max=4096"`
}

// sessionResponse is the body of a successful login.
type sessionResponse struct {
	UID       string      `json:"uid"`
	Email     string      `json:"email"`
	Role      string      `json:"role"`
	State     users.State `json:"state"`
	ExpiresAt string      `json:"expires_at"`
}

func newSessionResponse(s session.Session) sessionResponse {
	return sessionResponse{
		UID:       s.UserUID,
		Email:     s.Email,
		Role:      s.Role,
		State:     s.UserState,
		ExpiresAt: s.ExpiresAt().UTC().Format(time.RFC3339),
	}
}
