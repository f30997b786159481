// Package webjson supplies the handler decode/encode hooks (spec.md
// §4.5) for JSON request and response bodies, grounded on
// original_source/fooster/web/json.py. It uses
// github.com/goccy/go-json rather than encoding/json.
package webjson

import (
	"github.com/goccy/go-json"

	"github.com/yourusername/fooweb/pkg/web"
)

// Decode unmarshals body into v.
func Decode(body []byte, v any) error {
	return json.Unmarshal(body, v)
}

// Encode marshals v to a Result with status and the JSON bytes as its
// body. It does not set a Content-Type header.
func Encode(status int, v any) (web.Result, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return web.Result{}, err
	}
	return web.Result{Status: status, Body: b}, nil
}

// Mixin sets a MethodTable's Decode hook to pass raw bodies through
// DecodeInto, the same composition point the source's json.py mixin
// occupies. It leaves the Encode hook unchanged.
type Mixin struct {
	// DecodeInto, when non-nil, is called with the raw body; it
	// should unmarshal into whatever request-scoped value the
	// concrete handler expects.
	DecodeInto func(body []byte) ([]byte, error)
}

func (m *Mixin) Apply(t *web.MethodTable) {
	t.DecodeFunc = func(body []byte) ([]byte, error) {
		if m.DecodeInto != nil {
			return m.DecodeInto(body)
		}
		return body, nil
	}
}
