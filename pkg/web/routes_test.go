package web

import "testing"

func dummyFactory(name string) HandlerFactory {
	return func(map[string]string, []string) Handler {
		return &DummyHandler{Err: &Error{Code: 200, Phrase: name}}
	}
}

func TestRouteTableFirstMatchWins(t *testing.T) {
	rt := NewRouteTable()
	rt.Add("/a.*", dummyFactory("first"))
	rt.Add("/a/b", dummyFactory("second"))

	factory, _, _, ok := rt.Match("/a/b")
	if !ok {
		t.Fatal("expected a match")
	}
	h := factory(nil, nil).(*DummyHandler)
	if h.Err.(*Error).Phrase != "first" {
		t.Fatalf("matched route = %q, want first entry to win", h.Err.(*Error).Phrase)
	}
}

func TestRouteTableAnchorsPattern(t *testing.T) {
	rt := NewRouteTable()
	rt.Add("/a", dummyFactory("a"))

	if _, _, _, ok := rt.Match("/ab"); ok {
		t.Fatal("pattern should be anchored and not match a longer target")
	}
	if _, _, _, ok := rt.Match("/a"); !ok {
		t.Fatal("exact target should match")
	}
}

func TestRouteTableNamedGroups(t *testing.T) {
	rt := NewRouteTable()
	var gotNamed map[string]string
	rt.Add(`/users/(?P<id>[0-9]+)`, func(named map[string]string, _ []string) Handler {
		gotNamed = named
		return &DummyHandler{}
	})

	factory, named, _, ok := rt.Match("/users/42")
	if !ok {
		t.Fatal("expected a match")
	}
	factory(named, nil)
	if gotNamed["id"] != "42" {
		t.Fatalf("named group id = %q, want 42", gotNamed["id"])
	}
}

func TestRouteTablePositionalGroupsExcludeNamedDuplicates(t *testing.T) {
	rt := NewRouteTable()
	rt.Add(`/(foo)/(?P<tag>bar)`, func(_ map[string]string, positional []string) Handler {
		return &DummyHandler{Err: &Error{Code: len(positional)}}
	})

	factory, named, positional, ok := rt.Match("/foo/bar")
	if !ok {
		t.Fatal("expected a match")
	}
	if named["tag"] != "bar" {
		t.Fatalf("named[tag] = %q, want bar", named["tag"])
	}
	if len(positional) != 1 || positional[0] != "foo" {
		t.Fatalf("positional = %v, want [foo]", positional)
	}
	factory(named, positional)
}

func TestRouteTableNoMatch(t *testing.T) {
	rt := NewRouteTable()
	rt.Add("/known", dummyFactory("known"))
	if _, _, _, ok := rt.Match("/unknown"); ok {
		t.Fatal("expected no match for an unregistered target")
	}
}
