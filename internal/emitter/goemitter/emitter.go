// Package goemitter renders a compiled document as a Go client module: one
// struct per model, one API type per group and a shared net/http Client.
package goemitter

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/mark3labs/refitgen/internal/compiler"
	"github.com/mark3labs/refitgen/internal/emitter"
	"github.com/mark3labs/refitgen/internal/spec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const defaultModule = "apiclient"

// Target is the Go client target.
type Target struct{}

func New() Target { return Target{} }

func (Target) Name() string { return "go" }

// ReservedWord covers Go keywords, predeclared identifiers, the package
// names generated files import and the locals of every generated method.
func (Target) ReservedWord(ident string) bool { return reserved[ident] }

func (Target) ReservedType(name string) bool { return declaredTypes[name] }

type modelsView struct {
	Package string
	Types   []structView
}

type structView struct {
	Doc    []string
	Name   string
	Fields []structField
}

type structField struct {
	Doc  []string
	Name string
	Type string
	Tag  string
}

type apiView struct {
	Package    string
	Key        string
	Name       string
	Operations []methodView
}

type methodView struct {
	Doc     []string
	Name    string
	Method  string
	Path    string
	Params  []string
	Results string
	Stmts   []string
	Tail    []string
}

type projectView struct {
	Module   string
	Package  string
	Project  string
	Combined string
	Groups   []string
	BaseURL  string
}

func (t Target) Render(res *compiler.Result, opts emitter.RenderOptions) (emitter.Files, error) {
	if res == nil {
		return nil, fmt.Errorf("goemitter: nil result")
	}
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	tpls, err := emitter.NewTemplates(sub, opts.TemplateDir, template.FuncMap{"quote": strconv.Quote})
	if err != nil {
		return nil, err
	}

	module := emitter.SanitizeModuleName(opts.Project)
	if module == "" {
		module = defaultModule
	}
	pkg := packageName(module)
	files := emitter.Files{}

	mv := modelsView{Package: pkg}
	for _, nt := range res.Types {
		mv.Types = append(mv.Types, structOf(nt))
	}
	if err := renderGo(tpls, files, "models.go.tmpl", "models.go", mv); err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(res.Groups))
	taken := map[string]bool{"models.go": true, "client.go": true}
	for _, g := range res.Groups {
		av := apiView{Package: pkg, Key: g.Key, Name: g.Name}
		methods := map[string]bool{}
		for _, sig := range g.Operations {
			m := method(sig)
			m.Name = uniqueName(m.Name, methods)
			av.Operations = append(av.Operations, m)
		}
		file := uniqueName(strings.ToLower(g.Name)+"_api", taken) + ".go"
		if err := renderGo(tpls, files, "api.go.tmpl", file, av); err != nil {
			return nil, err
		}
		groups = append(groups, g.Name)
	}

	pv := projectView{
		Module:   module,
		Package:  pkg,
		Project:  path.Base(module),
		Combined: emitter.CombinedName(res.Groups),
		Groups:   groups,
		BaseURL:  res.BaseURL(),
	}
	if pv.BaseURL == "" {
		pv.BaseURL = emitter.MissingURL
	}
	if err := renderGo(tpls, files, "client.go.tmpl", "client.go", pv); err != nil {
		return nil, err
	}
	out, err := tpls.Render("gomod.tmpl", pv)
	if err != nil {
		return nil, err
	}
	files.Add("go.mod", out)

	if opts.Executable {
		if err := renderGo(tpls, files, "main.go.tmpl", "cmd/"+pv.Project+"/main.go", pv); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// renderGo executes a template and runs the output through goimports, which
// also drops imports the file does not use.
func renderGo(tpls *emitter.Templates, files emitter.Files, name, rel string, data any) error {
	src, err := tpls.Render(name, data)
	if err != nil {
		return err
	}
	formatted, err := imports.Process(rel, src, &imports.Options{Comments: true, TabIndent: true, TabWidth: 8})
	if err != nil {
		return &emitter.TemplateError{Name: name, Err: fmt.Errorf("format %s: %w", rel, err)}
	}
	files.Add(rel, formatted)
	return nil
}

func structOf(nt compiler.NamedType) structView {
	sv := structView{Name: nt.Name, Doc: comment(nt.Description)}
	for _, f := range nt.Fields {
		opt := ""
		if !f.Required {
			opt = ",omitempty"
		}
		sv.Fields = append(sv.Fields, structField{
			Doc:  comment(f.Description),
			Name: f.Name,
			Type: goType(f.Type, true),
			Tag:  structTag(`json:` + strconv.Quote(f.WireName+opt)),
		})
	}
	return sv
}

func structTag(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

// comment turns text into // lines. Blank lines become bare "//".
func comment(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \r\t")
		if line == "" {
			out = append(out, "//")
			continue
		}
		out = append(out, "// "+line)
	}
	return out
}

func method(sig compiler.Signature) methodView {
	verb := strings.ToUpper(string(sig.Method))
	m := methodView{Name: sig.Name, Method: verb, Path: sig.Path}

	doc := sig.Name + " sends " + verb + " " + sig.Path + "."
	if s := strings.TrimSpace(sig.Summary); s != "" {
		doc += "\n\n" + s
	}
	if sig.Deprecated {
		doc += "\n\nDeprecated: the API marks this operation as deprecated."
	}
	m.Doc = comment(doc)

	if sig.Multipart {
		m.Stmts = append(m.Stmts, fmt.Sprintf("req.useForm(%t)", sig.BodyKind == spec.ContentMultipart))
	}
	for _, p := range sig.Params {
		m.Params = append(m.Params, p.Name+" "+goType(p.Type, true))
		m.Stmts = append(m.Stmts, paramStmt(p, sig.BodyMime))
	}

	switch sig.Return.Kind {
	case compiler.TypeVoid:
		m.Results = "error"
		m.Tail = []string{"return a.c.do(ctx, req, nil)"}
	case compiler.TypeStream:
		m.Results = "(io.ReadCloser, error)"
		m.Tail = []string{"return a.c.stream(ctx, req)"}
	default:
		rt := goType(sig.Return, true)
		m.Results = "(" + rt + ", error)"
		m.Tail = []string{"var out " + rt, "err := a.c.do(ctx, req, &out)", "return out, err"}
	}
	return m
}

func paramStmt(p compiler.Param, mime string) string {
	wire := strconv.Quote(p.WireName)
	var call string
	switch p.Location {
	case compiler.ParamPath:
		call = "req.setPath(" + wire + ", " + p.Name + ")"
	case compiler.ParamQuery:
		call = "req.addQuery(" + wire + ", " + p.Name + ")"
	case compiler.ParamHeader:
		call = "req.addHeader(" + wire + ", " + p.Name + ")"
	case compiler.ParamForm:
		call = "req.formValue(" + wire + ", " + p.Name + ")"
	case compiler.ParamBody:
		if p.Type.Kind == compiler.TypeStream {
			return "req.rawBody(" + p.Name + ", " + strconv.Quote(mime) + ")"
		}
		return "req.jsonBody(" + p.Name + ")"
	}
	// An unset optional string is left off the request.
	if !p.Required && p.Type.Kind == compiler.TypePrimitive && p.Type.Primitive == compiler.PrimString && !p.Type.Nullable {
		return "if " + p.Name + " != \"\" {\n\t\t" + call + "\n\t}"
	}
	return call
}

// goType spells t in Go. Named types are pointers at the top level so that
// recursive models stay finite and unset values stay nil.
func goType(t compiler.TypeExpr, top bool) string {
	switch t.Kind {
	case compiler.TypePrimitive:
		name := primitives[t.Primitive]
		if t.Nullable {
			return "*" + name
		}
		return name
	case compiler.TypeNamed:
		if top {
			return "*" + t.Name
		}
		return t.Name
	case compiler.TypeArray:
		return "[]" + goType(*t.Elem, false)
	case compiler.TypeMap:
		return "map[string]" + goType(*t.Elem, false)
	case compiler.TypeStream:
		return "io.Reader"
	case compiler.TypeStreamPart:
		return "StreamPart"
	case compiler.TypeStreamPartList:
		return "[]StreamPart"
	default:
		return "any"
	}
}

var primitives = map[compiler.Primitive]string{
	compiler.PrimString:   "string",
	compiler.PrimBool:     "bool",
	compiler.PrimInt32:    "int32",
	compiler.PrimInt64:    "int64",
	compiler.PrimFloat32:  "float32",
	compiler.PrimFloat64:  "float64",
	compiler.PrimDateTime: "time.Time",
}

// packageName derives a Go package name from the last module path element.
func packageName(module string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(path.Base(module)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	switch {
	case name == "":
		return "client"
	case unicode.IsDigit(rune(name[0])):
		return "api" + name
	case keywords[name] || name == "main":
		return name + "api"
	}
	return name
}

func uniqueName(base string, seen map[string]bool) string {
	name := base
	for i := 2; seen[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	seen[name] = true
	return name
}

var keywords = toSet(
	"break", "case", "chan", "const", "continue", "default", "defer", "else",
	"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
	"map", "package", "range", "return", "select", "struct", "switch", "type", "var",
)

var reserved = union(keywords, toSet(
	// predeclared
	"any", "append", "bool", "byte", "cap", "clear", "close", "comparable",
	"complex", "complex64", "complex128", "copy", "delete", "error", "false",
	"float32", "float64", "imag", "int", "int8", "int16", "int32", "int64",
	"iota", "len", "make", "max", "min", "new", "nil", "panic", "print",
	"println", "real", "recover", "rune", "string", "true", "uint", "uint8",
	"uint16", "uint32", "uint64", "uintptr",
	// imported packages
	"context", "io", "time",
	// method locals
	"a", "ctx", "req", "out", "err",
))

var declaredTypes = toSet(
	"Client", "ClientOption", "APIError", "StreamPart", "DefaultBaseURL",
	"NewClient", "WithHTTPClient", "WithHeader",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func union(sets ...map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

var _ emitter.Target = Target{}
