package emitter

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
)

// TemplateError reports a template that could not be read, parsed or
// executed. It is fatal for the run.
type TemplateError struct {
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Templates loads text templates from an embedded filesystem. A file with
// the same name in the override directory replaces the embedded one.
type Templates struct {
	fs          fs.FS
	overrideDir string
	helpers     template.FuncMap
	parsed      map[string]*template.Template
}

func NewTemplates(base fs.FS, overrideDir string, helpers template.FuncMap) (*Templates, error) {
	if overrideDir != "" {
		st, err := os.Stat(overrideDir)
		if err != nil {
			return nil, &TemplateError{Name: overrideDir, Err: err}
		}
		if !st.IsDir() {
			return nil, &TemplateError{Name: overrideDir, Err: errors.New("override path is not a directory")}
		}
	}
	return &Templates{fs: base, overrideDir: overrideDir, helpers: helpers, parsed: map[string]*template.Template{}}, nil
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data any) ([]byte, error) {
	tpl, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	return buf.Bytes(), nil
}

func (t *Templates) lookup(name string) (*template.Template, error) {
	if tpl, ok := t.parsed[name]; ok {
		return tpl, nil
	}
	src, err := t.source(name)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	tpl, err := template.New(name).Funcs(t.helpers).Parse(string(src))
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	t.parsed[name] = tpl
	return tpl, nil
}

func (t *Templates) source(name string) ([]byte, error) {
	if t.overrideDir != "" {
		data, err := os.ReadFile(filepath.Join(t.overrideDir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return fs.ReadFile(t.fs, name)
}
