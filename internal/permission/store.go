package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RoleChecker reports whether a role exists in the identity system.
type RoleChecker interface {
	RoleExists(ctx context.Context, name string) (bool, error)
}

// Invalidator drops cached rules.
type Invalidator interface {
	Invalidate()
}

// Store is the administrative front of the rule table: it validates writes,
// persists them and invalidates the cache before returning.
type Store struct {
	repo     RepositoryPort
	roles    RoleChecker
	cache    Invalidator
	validate *validator.Validate
}

// NewStore constructs a Store.
func NewStore(repo RepositoryPort, roles RoleChecker, cache Invalidator) *Store {
	return &Store{repo: repo, roles: roles, cache: cache, validate: validator.New()}
}

type ruleCreate struct {
	Role   string `validate:"required,max=64"`
	Verb   string `validate:"required,oneof=get post delete put head patch all"`
	Path   string `validate:"required,startswith=/,max=255"`
	Action string `validate:"required,oneof=accept drop audit"`
}

type ruleUpdate struct {
	Role   *string `validate:"omitnil,min=1,max=64"`
	Verb   *string `validate:"omitnil,oneof=get post delete put head patch all"`
	Path   *string `validate:"omitnil,startswith=/,max=255"`
	Action *string `validate:"omitnil,oneof=accept drop audit"`
}

var fieldCodes = map[string]string{
	"Role":   CodeInvalidRole,
	"Verb":   CodeInvalidVerb,
	"Path":   CodeInvalidPath,
	"Action": CodeInvalidAction,
}

// List returns every rule.
func (s *Store) List(ctx context.Context) ([]Rule, error) {
	return s.repo.List(ctx)
}

// Page returns one page of rules (1-based) plus the total count.
func (s *Store) Page(ctx context.Context, page, limit int) ([]Rule, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return s.repo.ListPage(ctx, limit, (page-1)*limit)
}

// Create validates and stores a new rule.
func (s *Store) Create(ctx context.Context, in RuleInput) (Rule, error) {
	req := ruleCreate{
		Role:   strings.TrimSpace(in.Role),
		Verb:   strings.ToLower(strings.TrimSpace(in.Verb)),
		Path:   strings.TrimSpace(in.Path),
		Action: strings.ToLower(strings.TrimSpace(in.Action)),
	}
	if err := s.validate.Struct(req); err != nil {
		return Rule{}, toValidationError(err)
	}
	if err := s.requireRole(ctx, req.Role); err != nil {
		return Rule{}, err
	}
	verb, _ := ParseVerb(req.Verb)
	action, _ := ParseAction(req.Action)

	rule, err := s.repo.Insert(ctx, Rule{Role: req.Role, Verb: verb, Path: req.Path, Action: action})
	if err != nil {
		return Rule{}, err
	}
	s.cache.Invalidate()
	return rule, nil
}

// Update applies a partial change to rule id.
func (s *Store) Update(ctx context.Context, id int64, patch RulePatch) (Rule, error) {
	if patch.Empty() {
		return Rule{}, invalid("patch", CodeEmptyUpdate)
	}
	req := ruleUpdate{
		Role:   mapPtr(patch.Role, strings.TrimSpace),
		Verb:   mapPtr(patch.Verb, lowerTrim),
		Path:   mapPtr(patch.Path, strings.TrimSpace),
		Action: mapPtr(patch.Action, lowerTrim),
	}
	if err := s.validate.Struct(req); err != nil {
		return Rule{}, toValidationError(err)
	}
	if req.Role != nil {
		if err := s.requireRole(ctx, *req.Role); err != nil {
			return Rule{}, err
		}
	}

	rule, err := s.repo.Update(ctx, id, RuleFields(req))
	if err != nil {
		return Rule{}, err
	}
	s.cache.Invalidate()
	return rule, nil
}

// Delete removes rule id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *Store) requireRole(ctx context.Context, role string) error {
	if s.roles == nil {
		return nil
	}
	ok, err := s.roles.RoleExists(ctx, role)
	if err != nil {
		return fmt.Errorf("permission: check role: %w", err)
	}
	if !ok {
		return invalid("role", CodeRoleMissing)
	}
	return nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field: strings.ToLower(fe.Field()),
			Code:  fieldCodes[fe.Field()],
		})
	}
	return out
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func mapPtr(p *string, fn func(string) string) *string {
	if p == nil {
		return nil
	}
	v := fn(*p)
	return &v
}
