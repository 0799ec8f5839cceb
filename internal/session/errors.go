package session

import (
	"errors"
	"strings"
)

// Error codes returned to clients.
const (
	CodeMissingEmail       = "identity.session.missing_email"
	CodeMissingPassword    = "identity.session.missing_password"
	CodeInvalidCredentials = "identity.session.invalid_params"
	CodeBanned             = "identity.session.banned"
	CodeNotActive          = "identity.session.not_active"
	CodeNotFound           = "identity.session.not_found"
	CodeCaptchaFailed      = "identity.captcha.verification_failed"
)

// AuthError is a session failure carrying a client-facing code. Two AuthErrors
// match under errors.Is when their codes are equal.
type AuthError struct {
	Code string
	msg  string
}

func (e *AuthError) Error() string   { return "session: " + e.msg }
func (e *AuthError) Codes() []string { return []string{e.Code} }

func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

var (
	ErrInvalidCredentials = &AuthError{Code: CodeInvalidCredentials, msg: "invalid credentials"}
	ErrAccountBanned      = &AuthError{Code: CodeBanned, msg: "account banned"}
	ErrAccountNotActive   = &AuthError{Code: CodeNotActive, msg: "account not active"}
	ErrNotFoundOrExpired  = &AuthError{Code: CodeNotFound, msg: "not found or expired"}
	ErrNotFound           = &AuthError{Code: CodeNotFound, msg: "not found"}
	ErrCaptchaFailed      = &AuthError{Code: CodeCaptchaFailed, msg: "captcha verification failed"}

	// ErrMissingField matches every *MissingFieldError.
	ErrMissingField = errors.New("session: missing field")
)

// MissingFieldError lists every required login field that was empty.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "session: missing " + strings.Join(e.Fields, ", ")
}

// Codes maps each missing field to its client code.
func (e *MissingFieldError) Codes() []string {
	codes := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		codes = append(codes, "identity.session.missing_"+f)
	}
	return codes
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
