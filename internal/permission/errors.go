package permission

import (
	"errors"
	"strings"
)

// codedError is a sentinel that also exposes a client-facing code.
type codedError struct {
	msg  string
	code string
}

func (e *codedError) Error() string   { return e.msg }
func (e *codedError) Codes() []string { return []string{e.code} }

var (
	// ErrNotFound is returned when a rule id does not exist.
	ErrNotFound error = &codedError{msg: "permission: not found", code: "admin.permission.doesnt_exist"}
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("permission: validation failed")
)

// Validation codes.
const (
	CodeInvalidVerb   = "admin.permissions.invalid_verb"
	CodeInvalidAction = "admin.permissions.invalid_action"
	CodeInvalidPath   = "admin.permissions.invalid_path"
	CodeInvalidRole   = "admin.permissions.invalid_role"
	CodeRoleMissing   = "admin.permission.role_doesnt_exist"
	CodeEmptyUpdate   = "admin.permission.nothing_to_update"
)

// FieldError names one rejected field.
type FieldError struct {
	Field string
	Code  string
}

// ValidationError reports malformed rule fields. It is raised on writes only;
// stored rules are never re-validated on read.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Code)
	}
	return "permission: invalid rule (" + strings.Join(parts, ", ") + ")"
}

// Codes lists the client-facing codes in field order.
func (e *ValidationError) Codes() []string {
	codes := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		codes = append(codes, f.Code)
	}
	return codes
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, code string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Code: code}}}
}
