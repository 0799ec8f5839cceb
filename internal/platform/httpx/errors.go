// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Coder is implemented by domain errors that carry a client-facing code such
// as "identity.session.not_found".
type Coder interface {
	Codes() []string
}

// RespondError writes err as an API error body. Domain errors implementing
// Coder are rendered with their codes; anything else falls back to the
// sentinel mapping and finally to an opaque 500.
func RespondError(w http.ResponseWriter, status int, err error) {
	var coder Coder
	if errors.As(err, &coder) {
		Errors(w, status, coder.Codes()...)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
