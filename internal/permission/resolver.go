package permission

import (
	"context"
	"path"
	"strings"
)

// RuleSource supplies the current rule snapshot.
type RuleSource interface {
	GetOrLoad(ctx context.Context) (*RuleSet, error)
}

// Resolver decides accept/drop/audit for a request from the cached rules.
//
// Path policy: a rule path is a segment-aware prefix. A trailing "*" is
// accepted and ignored, so "/api/v2/*" and "/api/v2" are the same rule. Both
// sides are cleaned before comparison, which keeps "/api/v2/../admin" from
// matching "/api/v2".
type Resolver struct {
	rules RuleSource
}

// NewResolver constructs a Resolver over the given rule source.
func NewResolver(rules RuleSource) *Resolver {
	return &Resolver{rules: rules}
}

// Match is the winning rule of a resolution, if any.
type Match struct {
	Decision Decision
	Rule     *Rule
}

// Authorize returns the decision for (role, verb, path). An error means the
// rule set could not be read and the caller must deny.
func (r *Resolver) Authorize(ctx context.Context, role, verb, requestPath string) (Decision, error) {
	m, err := r.Resolve(ctx, role, verb, requestPath)
	return m.Decision, err
}

// Resolve is Authorize plus the rule that produced the decision.
func (r *Resolver) Resolve(ctx context.Context, role, verb, requestPath string) (Match, error) {
	set, err := r.rules.GetOrLoad(ctx)
	if err != nil {
		return Match{Decision: NoMatch}, err
	}
	return resolve(set, role, verb, requestPath), nil
}

func resolve(set *RuleSet, role, verb, requestPath string) Match {
	if set == nil {
		return Match{Decision: NoMatch}
	}
	verb = strings.ToLower(strings.TrimSpace(verb))
	target := cleanPath(requestPath)

	var best *compiledRule
	candidates := set.byRole[roleKey(role)]
	for i := range candidates {
		c := &candidates[i]
		if c.Verb != VerbAll && string(c.Verb) != verb {
			continue
		}
		if !pathMatches(c.base, target) {
			continue
		}
		if best == nil || moreSpecific(c, best) {
			best = c
		}
	}
	if best == nil {
		return Match{Decision: NoMatch}
	}
	rule := best.Rule
	return Match{Decision: rule.Action.Decision(), Rule: &rule}
}

// moreSpecific orders candidates: longer path, exact verb over "all", more
// restrictive action, lower id.
func moreSpecific(a, b *compiledRule) bool {
	if len(a.base) != len(b.base) {
		return len(a.base) > len(b.base)
	}
	aExact, bExact := a.Verb != VerbAll, b.Verb != VerbAll
	if aExact != bExact {
		return aExact
	}
	if as, bs := a.Action.severity(), b.Action.severity(); as != bs {
		return as > bs
	}
	return a.ID < b.ID
}

func pathMatches(base, target string) bool {
	if base == "/" || target == base {
		return true
	}
	return strings.HasPrefix(target, base+"/")
}

func rulePathBase(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "*")
	return cleanPath(p)
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
