// Package router resolves request paths to upstream target prefixes.
// Patterns are regular expressions tested for containment against the path,
// evaluated in configuration order; the first match wins.
package router

import (
	"fmt"
	"regexp"
)

// Route maps a path pattern to the origin that matching requests are forwarded to.
type Route struct {
	Pattern string // regular expression, unanchored unless the pattern anchors itself
	Target  string // origin prefix, e.g. "https://backend.internal"

	re *regexp.Regexp
}

// Table is an ordered, immutable set of routes.
type Table struct {
	routes []Route
}

// NewTable compiles the given routes in order. Patterns must be unique.
func NewTable(routes []Route) (*Table, error) {
	seen := make(map[string]struct{}, len(routes))
	compiled := make([]Route, 0, len(routes))

	for i, rt := range routes {
		if _, dup := seen[rt.Pattern]; dup {
			return nil, fmt.Errorf("routes[%d]: duplicate pattern %q", i, rt.Pattern)
		}
		seen[rt.Pattern] = struct{}{}

		re, err := regexp.Compile(rt.Pattern)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: compiling pattern %q: %w", i, rt.Pattern, err)
		}
		rt.re = re
		compiled = append(compiled, rt)
	}

	return &Table{routes: compiled}, nil
}

// MustNewTable is like NewTable but panics on error. Intended for tests and
// statically known route sets.
func MustNewTable(routes ...Route) *Table {
	t, err := NewTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the first route whose pattern matches anywhere in path.
func (t *Table) Match(path string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	for _, rt := range t.routes {
		if rt.re.MatchString(path) {
			return rt, true
		}
	}
	return Route{}, false
}

// Routes returns a copy of the routes in configuration order.
func (t *Table) Routes() []Route {
	if t == nil {
		return nil
	}
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of configured routes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}
