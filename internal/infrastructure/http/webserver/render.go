package webserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Renderer holds the parsed page templates. Each page is parsed into its
// own clone of the layout so pages can all define "content".
type Renderer struct {
	mu    sync.RWMutex
	fsys  fs.FS
	base  *template.Template
	pages map[string]*template.Template
}

// EmbeddedTemplates returns the templates compiled into the binary
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewRenderer parses layout.html, partials/*.html and pages/*.html from fsys
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{fsys: fsys}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every template. On error the previous set stays active.
func (r *Renderer) Reload() error {
	base, err := template.New("layout.html").Funcs(templateFuncs()).ParseFS(r.fsys, "layout.html", "partials/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(r.fsys, "pages/*.html")
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone layout: %w", err)
		}
		if _, err := clone.ParseFS(r.fsys, file); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = clone
	}

	r.mu.Lock()
	r.base = base
	r.pages = pages
	r.mu.Unlock()
	return nil
}

// Pages returns the number of parsed pages
func (r *Renderer) Pages() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// Page renders a full page through the layout
func (r *Renderer) Page(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	t, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return execute(w, t, "layout", data)
}

// Partial renders one named partial without the layout
func (r *Renderer) Partial(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	t := r.base
	r.mu.RUnlock()
	return execute(w, t, name, data)
}

// execute renders into a buffer first so a failing template never leaves a
// half-written response
func execute(w io.Writer, t *template.Template, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"dayLabel": func(l *i18n.Localizer, day string) string {
			return l.TOr("day."+strings.ToLower(strings.TrimSpace(day)), day)
		},
		"slotLabel": func(l *i18n.Localizer, slot mealplan.Slot) string {
			return l.T("planner.slot." + string(slot))
		},
		"formatCost": mealplan.FormatCost,
		"round": func(v float64) int {
			if v < 0 {
				return int(v - 0.5)
			}
			return int(v + 0.5)
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"has": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
		"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict needs an even number of arguments")
			}
			m := make(map[string]interface{}, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
	}
}

// withQuery returns base with key set to value, removing key when value is
// empty. page is reset whenever another filter changes.
func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	if key != "page" {
		q.Del("page")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
