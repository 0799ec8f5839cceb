package permission

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
)

// Loader reads the full rule set from durable storage.
type Loader interface {
	List(ctx context.Context) ([]Rule, error)
}

// Cache holds the whole rule table in memory. Readers share an immutable
// RuleSet; Invalidate swaps the generation so the next reader reloads.
//
// A set loaded under an older generation is never served once Invalidate has
// returned, even if its load finishes afterwards.
type Cache struct {
	loader      Loader
	loadTimeout time.Duration
	hooks       []func()

	generation atomic.Uint64
	current    atomic.Pointer[RuleSet]
	loads      atomic.Uint64
	group      singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithInvalidationHook registers fn to run after every Invalidate call.
func WithInvalidationHook(fn func()) CacheOption {
	return func(c *Cache) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}

// WithLoadTimeout bounds a single reload from the loader.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.loadTimeout = d
	}
}

// NewCache constructs an empty cache in front of loader.
func NewCache(loader Loader, opts ...CacheOption) *Cache {
	c := &Cache{loader: loader, loadTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the cached rule set, loading it on a miss. Concurrent
// misses within one generation share a single load.
func (c *Cache) GetOrLoad(ctx context.Context) (*RuleSet, error) {
	gen := c.generation.Load()
	if set := c.current.Load(); set != nil && set.generation == gen {
		return set, nil
	}

	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		rules, err := c.loader.List(loadCtx)
		if err != nil {
			return nil, err
		}
		c.loads.Add(1)
		set := newRuleSet(gen, rules)
		if c.generation.Load() == gen {
			c.current.Store(set)
		}
		return set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("permission: load rules: %w", err)
	}
	return v.(*RuleSet), nil
}

// Invalidate drops the cached set and runs the invalidation hooks.
func (c *Cache) Invalidate() {
	c.InvalidateLocal()
	for _, hook := range c.hooks {
		hook()
	}
}

// InvalidateLocal drops the cached set without running hooks. It is used when
// the invalidation originated on another instance.
func (c *Cache) InvalidateLocal() {
	c.generation.Add(1)
	c.current.Store(nil)
}

// Loads reports how many times the loader has been read successfully.
func (c *Cache) Loads() uint64 {
	return c.loads.Load()
}

// RuleSet is an immutable snapshot of the rule table indexed by role.
type RuleSet struct {
	generation uint64
	byRole     map[string][]compiledRule
	size       int
}

type compiledRule struct {
	Rule
	base string
}

func newRuleSet(gen uint64, rules []Rule) *RuleSet {
	set := &RuleSet{generation: gen, byRole: make(map[string][]compiledRule), size: len(rules)}
	for _, rule := range rules {
		key := roleKey(rule.Role)
		set.byRole[key] = append(set.byRole[key], compiledRule{Rule: rule, base: rulePathBase(rule.Path)})
	}
	return set
}

// Len is the number of rules in the snapshot.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return s.size
}

// ForRole returns the rules whose role equals role under case folding.
func (s *RuleSet) ForRole(role string) []Rule {
	if s == nil {
		return nil
	}
	compiled := s.byRole[roleKey(role)]
	out := make([]Rule, 0, len(compiled))
	for _, c := range compiled {
		out = append(out, c.Rule)
	}
	return out
}

func roleKey(role string) string {
	// cases.Caser is stateful; build one per call.
	return cases.Fold().String(strings.TrimSpace(role))
}
