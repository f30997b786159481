package web

import "regexp"

// HandlerFactory builds a Handler for a single request, given the
// capture groups extracted by the route's regex against the request
// resource (or, for error routes, against the stringified status
// code).
type HandlerFactory func(groups map[string]string, positional []string) Handler

type routeEntry struct {
	pattern *regexp.Regexp
	factory HandlerFactory
}

// RouteTable is an ordered, first-match-wins mapping from anchored
// regex patterns to handler factories. Iteration and matching order
// is exactly the order routes were added in.
type RouteTable struct {
	entries []routeEntry
}

// NewRouteTable returns an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// Add compiles pattern anchored as ^pattern$ and appends it to the
// table. It panics if pattern does not compile, matching the
// "built at server construction, immutable thereafter" lifecycle —
// a bad route pattern is a construction-time programmer error.
func (rt *RouteTable) Add(pattern string, factory HandlerFactory) {
	re := regexp.MustCompile("^" + pattern + "$")
	rt.entries = append(rt.entries, routeEntry{pattern: re, factory: factory})
}

// Match walks the table in insertion order and returns the first
// factory whose pattern matches target, along with its named and
// positional capture groups. Positional entries that duplicate a
// named group's value are elided, per the parser contract. ok is
// false when no route matches.
func (rt *RouteTable) Match(target string) (factory HandlerFactory, named map[string]string, positional []string, ok bool) {
	for _, e := range rt.entries {
		m := e.pattern.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		named = make(map[string]string)
		namedValues := make(map[string]bool)
		for i, name := range e.pattern.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			named[name] = m[i]
			namedValues[m[i]] = true
		}
		for i, name := range e.pattern.SubexpNames() {
			if i == 0 || name != "" {
				continue
			}
			if namedValues[m[i]] {
				continue
			}
			positional = append(positional, m[i])
		}
		return e.factory, named, positional, true
	}
	return nil, nil, nil, false
}
