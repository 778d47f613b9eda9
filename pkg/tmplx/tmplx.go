package tmplx

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/goccy/go-json"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

var (
	ErrRenderTemplate = errors.New("tmplx: render error")
	ErrParseTemplate  = errors.New("tmplx: parse error")
	ErrUnknownName    = errors.New("tmplx: unknown template")
)

type Template struct {
	tmpl   *template.Template
	fields []string
}

type Options struct {
	validate ValidateFunc
	testData any
	funcs    template.FuncMap
}

type Option func(*Options) error

type ValidateFunc func(*bytes.Buffer) error

// defaultFuncs returns the default template functions
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"quote":     quoteFunc,
		"default":   defaultFunc,
		"json":      jsonFunc,
		"hasPrefix": hasPrefix,
		"jsonGet":   jsonGet,
		"brl":       brlFunc,
		"date":      dateFunc,
		"upper":     upperFunc,
	}
}

// WithTemplateFunc adds a single custom template function
func WithTemplateFunc(name string, fn any) Option {
	return func(t *Options) error {
		t.funcs[name] = fn
		return nil
	}
}

// WithValidate renders testData once at parse time and checks the output.
func WithValidate(testData any, validateFn ValidateFunc) Option {
	return func(t *Options) error {
		t.validate = validateFn
		t.testData = testData
		return nil
	}
}

func MustParse(name string, text string, opts ...Option) *Template {
	t, err := Parse(name, text, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse creates a new Template with the given name and text, applying any options
func Parse(name string, text string, args ...Option) (*Template, error) {
	opts := &Options{
		funcs: defaultFuncs(),
	}
	for _, arg := range args {
		if err := arg(opts); err != nil {
			return nil, err
		}
	}

	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(opts.funcs).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseTemplate, err)
	}

	t := &Template{
		tmpl:   tmpl,
		fields: ExtractFields(text),
	}
	if opts.validate != nil {
		if err := t.validate(opts.testData, opts.validate); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Template) validate(data any, validate ValidateFunc) error {
	buf := new(bytes.Buffer)
	if err := t.tmpl.Execute(buf, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	if err := validate(buf); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}
	return nil
}

func (t *Template) Render(data any) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := t.tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderTemplate, err)
	}
	return buf, nil
}

// Fields lists the top level data keys referenced by the template.
func (t *Template) Fields() []string {
	return t.fields
}

// Set is a collection of templates addressed by file name without extension.
type Set struct {
	templates map[string]*Template
}

// ParseFS parses every file matching pattern in fsys.
func ParseFS(fsys fs.FS, pattern string, opts ...Option) (*Set, error) {
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseTemplate, err)
	}
	s := &Set{templates: make(map[string]*Template, len(files))}
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		t, err := Parse(name, string(content), opts...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		s.templates[name] = t
	}
	return s, nil
}

func (s *Set) Lookup(name string) (*Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	return t, nil
}

func (s *Set) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Set) Render(name string, data any) (*bytes.Buffer, error) {
	t, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.Render(data)
}

func hasPrefix(a, b any) bool {
	s1 := cast.ToString(a)
	s2 := cast.ToString(b)
	return strings.HasPrefix(s1, s2)
}

func quoteFunc(s string) (string, error) {
	return jsonFunc(s)
}

func defaultFunc(def any, value any) any {
	if value != nil && value != "" {
		return value
	}
	return def
}

func jsonFunc(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func jsonGet(path string, raw string) string {
	return gjson.Get(raw, path).String()
}

func brlFunc(v any) string {
	return "R$ " + util.FormatBRL(cast.ToFloat64(v))
}

// dateFunc accepts time.Time values as well as RFC3339 strings, which is
// what time values become after a JSON round trip.
func dateFunc(layout string, v any) string {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return ""
		}
		t = *val
	default:
		parsed, err := cast.ToTimeE(v)
		if err != nil {
			return cast.ToString(v)
		}
		t = parsed
	}
	return t.Format(layout)
}

func upperFunc(v any) string {
	return strings.ToUpper(cast.ToString(v))
}

var fieldsRegexp = regexp.MustCompile(`{{[^{}]*\.(\w+)[^{}]*}}`)

func ExtractFields(content string) []string {
	matches := fieldsRegexp.FindAllStringSubmatch(content, -1)
	fields := make([]string, 0)
	dict := make(map[string]struct{})
	for _, match := range matches {
		if len(match) == 2 && match[1] != "" {
			if _, ok := dict[match[1]]; !ok {
				fields = append(fields, match[1])
				dict[match[1]] = struct{}{}
			}
		}
	}
	return fields
}
