package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// page is the value every template renders.
type page struct {
	Data      any
	Principal *models.Principal
	Error     string
	Path      string
	RequestID string
}

func pageData(c echo.Context, data any) *page {
	return &page{
		Data:      data,
		Principal: pkgmdw.GetPrincipal(c),
		Path:      c.Path(),
		RequestID: pkgmdw.GetRequestID(c),
	}
}

var templateFuncs = template.FuncMap{
	"brl": util.FormatBRL,
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		return strings.Repeat("★", min(n, 5)) + strings.Repeat("☆", 5-min(n, 5))
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("02/01/2006 15:04")
	},
	"cfg": func(config map[string]string, key string) string {
		return config[key]
	},
}

// Renderer renders each page inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	layout, err := template.New(path.Base(layoutFile)).Funcs(templateFuncs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		r.pages[path.Base(f)] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
