package roles

import (
	"context"
	"fmt"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// RoleExists reports whether name is a registered role. Blank names never exist.
func (s *Service) RoleExists(ctx context.Context, name string) (bool, error) {
	if Normalize(name) == "" {
		return false, nil
	}
	ok, err := s.repo.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("roles: exists: %w", err)
	}
	return ok, nil
}
