// Package webpage renders a handler's successful result through an
// html/template.Template, grounded on
// original_source/fooster/web/page.py. No templating engine appears
// anywhere in the example pack, so this mixin stays on the standard
// library.
package webpage

import (
	"bytes"
	"html/template"

	"github.com/yourusername/fooweb/pkg/web"
)

// Renderer renders named templates against arbitrary data.
type Renderer struct {
	templates *template.Template
}

// New parses every file matching glob into a single Renderer.
func New(glob string) (*Renderer, error) {
	t, err := template.ParseGlob(glob)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Render executes the named template against data and returns a
// Result with status and the rendered bytes as its body. It does not
// set a Content-Type header.
func (r *Renderer) Render(status int, name string, data any) (web.Result, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return web.Result{}, err
	}
	return web.Result{Status: status, Body: buf.Bytes()}, nil
}
