package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/mesh-intelligence/cabinet/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// renderer holds one parsed template set per page. Each set is the shared
// layout plus the page's "title" and "content" blocks.
type renderer struct {
	logger *log.Logger
	pages  map[string]*template.Template
}

func newRenderer(logger *log.Logger) (*renderer, error) {
	names := []string{"home"}
	for _, r := range types.StandardResourceNames {
		names = append(names, r+"_list", r+"_detail")
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = t
	}
	return &renderer{logger: logger, pages: pages}, nil
}

// render executes page into a buffer so a template error never leaves a
// half-written 200 response.
func (v *renderer) render(w http.ResponseWriter, page string, data any) {
	t, ok := v.pages[page]
	if !ok {
		v.logger.Printf("render: unknown page %q", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.logger.Printf("render %s: %v", page, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		v.logger.Printf("render %s: writing response: %v", page, err)
	}
}
