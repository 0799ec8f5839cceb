package permission

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type memRepo struct {
	mu      sync.Mutex
	rules   map[int64]Rule
	nextID  int64
	listErr error
	lists   atomic.Int64
	gate    chan struct{}
}

func newMemRepo(rules ...Rule) *memRepo {
	r := &memRepo{rules: make(map[int64]Rule), nextID: 1}
	for _, rule := range rules {
		if rule.ID == 0 {
			rule.ID = r.nextID
		}
		if rule.ID >= r.nextID {
			r.nextID = rule.ID + 1
		}
		r.rules[rule.ID] = rule
	}
	return r
}

func (r *memRepo) List(ctx context.Context) ([]Rule, error) {
	r.lists.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) ListPage(ctx context.Context, limit, offset int) ([]Rule, int, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r *memRepo) Insert(ctx context.Context, rule Rule) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = r.nextID
	r.nextID++
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	r.rules[rule.ID] = rule
	return rule, nil
}

func (r *memRepo) Update(ctx context.Context, id int64, f RuleFields) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	if f.Role != nil {
		rule.Role = *f.Role
	}
	if f.Verb != nil {
		rule.Verb = Verb(*f.Verb)
	}
	if f.Path != nil {
		rule.Path = *f.Path
	}
	if f.Action != nil {
		rule.Action = Action(*f.Action)
	}
	rule.UpdatedAt = time.Now()
	r.rules[id] = rule
	return rule, nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

type staticRoles map[string]bool

func (s staticRoles) RoleExists(ctx context.Context, name string) (bool, error) {
	return s[roleKey(name)], nil
}

func strPtr(s string) *string { return &s }
