// Package permission holds the rule table that gates API routes: the
// persistence layer, the process-wide rule cache and the resolver that turns
// (role, verb, path) into a decision.
package permission

import (
	"strings"
	"time"
)

// Verb is the HTTP method a rule applies to. VerbAll matches any method.
type Verb string

const (
	VerbGet    Verb = "get"
	VerbPost   Verb = "post"
	VerbDelete Verb = "delete"
	VerbPut    Verb = "put"
	VerbHead   Verb = "head"
	VerbPatch  Verb = "patch"
	VerbAll    Verb = "all"
)

// Action is what happens to a request matched by a rule.
type Action string

const (
	ActionAccept Action = "accept"
	ActionDrop   Action = "drop"
	ActionAudit  Action = "audit"
)

// ParseVerb returns the typed verb for raw, compared case-insensitively.
func ParseVerb(raw string) (Verb, bool) {
	v := Verb(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case VerbGet, VerbPost, VerbDelete, VerbPut, VerbHead, VerbPatch, VerbAll:
		return v, true
	}
	return "", false
}

// ParseAction returns the typed action for raw, compared case-insensitively.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch a {
	case ActionAccept, ActionDrop, ActionAudit:
		return a, true
	}
	return "", false
}

// severity orders actions from least to most restrictive.
func (a Action) severity() int {
	switch a {
	case ActionDrop:
		return 2
	case ActionAudit:
		return 1
	}
	return 0
}

// Decision is the outcome of a single authorization check.
type Decision int

const (
	// NoMatch means no rule applies; callers enforce their default (deny).
	NoMatch Decision = iota
	Accept
	Drop
	Audit
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Drop:
		return "drop"
	case Audit:
		return "audit"
	}
	return "no_match"
}

// Allowed reports whether the request may proceed. Audit lets the request
// through after it has been recorded.
func (d Decision) Allowed() bool {
	return d == Accept || d == Audit
}

// Decision maps a rule action onto the resolver outcome.
func (a Action) Decision() Decision {
	switch a {
	case ActionAccept:
		return Accept
	case ActionDrop:
		return Drop
	case ActionAudit:
		return Audit
	}
	return NoMatch
}

// Rule is one (role, verb, path, action) row of the permission table.
type Rule struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Verb      Verb      `json:"verb"`
	Path      string    `json:"path"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleInput carries the raw fields of a rule to create.
type RuleInput struct {
	Role   string `json:"role"`
	Verb   string `json:"verb"`
	Path   string `json:"path"`
	Action string `json:"action"`
}

// RulePatch carries the fields of a rule to update; nil fields are kept.
type RulePatch struct {
	Role   *string `json:"role,omitempty"`
	Verb   *string `json:"verb,omitempty"`
	Path   *string `json:"path,omitempty"`
	Action *string `json:"action,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p RulePatch) Empty() bool {
	return p.Role == nil && p.Verb == nil && p.Path == nil && p.Action == nil
}
