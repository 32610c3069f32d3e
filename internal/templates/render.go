// Package templates handles HTML template rendering for Datastar SSE responses
// and the atlas page.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
)

//go:embed fragments/*.html pages/*.html
var files embed.FS

// Patterns are the template globs parsed by Default.
var Patterns = []string{"fragments/*.html", "pages/*.html"}

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// css marks a palette color as safe for a style attribute.
	"css": func(s string) template.CSS { return template.CSS(s) },
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
}

// New parses the templates in fsys matching patterns.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	tmpl, err := parse(fsys, patterns)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Default returns a renderer over the embedded templates.
func Default() (*Renderer, error) {
	return New(files, Patterns...)
}

func parse(fsys fs.FS, patterns []string) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, patterns...)
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.Execute(buf, name, data)
}

// Execute renders a named template to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
