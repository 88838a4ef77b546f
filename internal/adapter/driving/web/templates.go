package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
)

// pageTemplates are the per-page template files combined with the layout.
var pageTemplates = []string{"dashboard.html", "quiz.html", "settings.html"}

// Renderer holds the parsed page templates. Each page is the shared layout
// plus one page file defining the "content" block.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates. It fails fast on any parse
// error so broken templates are caught at startup, not per request.
func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout.html").ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", page, err)
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+page); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		pages[page] = t
	}

	return &Renderer{pages: pages}, nil
}

// Render writes the named page to w with the given data. The page is rendered
// into a buffer first so template errors never produce a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page template %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}
