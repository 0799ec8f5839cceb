package users

import (
	"context"
	"fmt"
	"time"
)

// RepositoryPort defines data access methods for identity lookups.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUID(ctx context.Context, uid string) (*User, error)
}

// Service wraps identity lookups with the configured timeout.
type Service struct {
	repo    RepositoryPort
	timeout time.Duration
}

// NewService builds Service instance. A non-positive timeout disables the bound.
func NewService(repo RepositoryPort, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

// FindByEmail looks up an account by login identifier.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return user, nil
}

// FindByUID looks up an account by its public identifier.
func (s *Service) FindByUID(ctx context.Context, uid string) (*User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	user, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("users: find by uid: %w", err)
	}
	return user, nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
