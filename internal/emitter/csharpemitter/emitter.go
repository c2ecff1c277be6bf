// Package csharpemitter renders a compiled document as a C# project: Refit
// interfaces per group, System.Text.Json model classes and an aggregate
// client exposing every interface.
package csharpemitter

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/mark3labs/refitgen/internal/compiler"
	"github.com/mark3labs/refitgen/internal/emitter"
	"github.com/mark3labs/refitgen/internal/naming"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	ModelsDirectory = "Models"
	ApisDirectory   = "Apis"
	defaultProject  = "ApiClient"
)

// Target is the C# Refit target.
type Target struct{}

func New() Target { return Target{} }

func (Target) Name() string { return "csharp" }

func (Target) ReservedWord(ident string) bool { return keywords[ident] }

// ReservedType reports names that would shadow a type every generated file
// already imports.
func (Target) ReservedType(name string) bool { return importedTypes[name] }

type modelView struct {
	Namespace   string
	Name        string
	Description string
	Fields      []fieldView
}

type fieldView struct {
	Wire        string
	Name        string
	Type        string
	Description string
}

type interfaceView struct {
	Namespace  string
	Name       string
	Operations []operationView
}

type operationView struct {
	Name       string
	Verb       string
	Path       string
	Summary    string
	Deprecated bool
	Multipart  bool
	Return     string
	Params     string
}

type projectView struct {
	Namespace  string
	Project    string
	Combined   string
	Groups     []string
	BaseURL    string
	Executable bool
}

func (t Target) Render(res *compiler.Result, opts emitter.RenderOptions) (emitter.Files, error) {
	if res == nil {
		return nil, fmt.Errorf("csharpemitter: nil result")
	}
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	tpls, err := emitter.NewTemplates(sub, opts.TemplateDir, template.FuncMap{
		"str":      quote,
		"docLines": docLines,
	})
	if err != nil {
		return nil, err
	}

	ns := emitter.SanitizeIdentifier(opts.Project)
	if ns == "" {
		ns = defaultProject
	}
	files := emitter.Files{}

	for _, nt := range res.Types {
		v := modelView{Namespace: ns, Name: nt.Name, Description: nt.Description}
		for _, f := range nt.Fields {
			v.Fields = append(v.Fields, fieldView{Wire: f.WireName, Name: f.Name, Type: typeName(f.Type), Description: f.Description})
		}
		out, err := tpls.Render("model.cs.tmpl", v)
		if err != nil {
			return nil, err
		}
		files.Add(ModelsDirectory+"/"+nt.Name+".cs", out)
	}

	groups := make([]string, 0, len(res.Groups))
	for _, g := range res.Groups {
		v := interfaceView{Namespace: ns, Name: g.Name}
		for _, sig := range g.Operations {
			v.Operations = append(v.Operations, operation(sig))
		}
		out, err := tpls.Render("interface.cs.tmpl", v)
		if err != nil {
			return nil, err
		}
		files.Add(ApisDirectory+"/I"+g.Name+"Api.cs", out)
		groups = append(groups, g.Name)
	}

	pv := projectView{
		Namespace:  ns,
		Project:    ns,
		Combined:   emitter.CombinedName(res.Groups),
		Groups:     groups,
		BaseURL:    res.BaseURL(),
		Executable: opts.Executable,
	}
	if pv.BaseURL == "" {
		pv.BaseURL = emitter.MissingURL
	}

	out, err := tpls.Render("client.cs.tmpl", pv)
	if err != nil {
		return nil, err
	}
	files.Add(pv.Combined+"Client.cs", out)

	if out, err = tpls.Render("csproj.tmpl", pv); err != nil {
		return nil, err
	}
	files.Add(ns+".csproj", out)

	if opts.Executable {
		if out, err = tpls.Render("program.cs.tmpl", pv); err != nil {
			return nil, err
		}
		files.Add("Program.cs", out)
	}
	return files, nil
}

func operation(sig compiler.Signature) operationView {
	ret := "Task"
	if sig.Return.Kind != compiler.TypeVoid {
		ret = "Task<" + typeName(sig.Return) + ">"
	}
	params := make([]string, 0, len(sig.Params))
	for _, p := range sig.Params {
		params = append(params, parameter(p))
	}
	return operationView{
		Name:       sig.Name,
		Verb:       naming.Capitalize(string(sig.Method)),
		Path:       sig.Path,
		Summary:    sig.Summary,
		Deprecated: sig.Deprecated,
		Multipart:  sig.Multipart,
		Return:     ret,
		Params:     strings.Join(params, ", "),
	}
}

// parameter spells one Refit method parameter with its attributes.
func parameter(p compiler.Param) string {
	var parts []string
	switch p.Location {
	case compiler.ParamHeader:
		parts = append(parts, "[Header("+quote(p.WireName)+")]")
	case compiler.ParamQuery:
		// arrays repeat the key (ids=1&ids=2), matching the Go client;
		// objects keep Refit's property flattening
		if p.QueryObject && p.Type.Kind == compiler.TypeArray {
			parts = append(parts, "[Query(CollectionFormat.Multi)]")
		} else {
			parts = append(parts, "[Query]")
		}
	case compiler.ParamBody:
		parts = append(parts, "[Body]")
	}
	if p.Location != compiler.ParamHeader && p.Location != compiler.ParamBody && p.Name != p.WireName {
		parts = append(parts, "[AliasAs("+quote(p.WireName)+")]")
	}
	parts = append(parts, typeName(p.Type), p.Name)
	decl := strings.Join(parts, " ")
	if p.DefaultNull {
		decl += " = null"
	}
	return decl
}

// typeName spells a type expression in C#.
func typeName(t compiler.TypeExpr) string {
	switch t.Kind {
	case compiler.TypePrimitive:
		name := primitives[t.Primitive]
		if t.Nullable && t.IsValueType() {
			name += "?"
		}
		return name
	case compiler.TypeNamed:
		return t.Name
	case compiler.TypeArray:
		return typeName(*t.Elem) + "[]"
	case compiler.TypeMap:
		return "Dictionary<string, " + typeName(*t.Elem) + ">"
	case compiler.TypeStream:
		return "Stream"
	case compiler.TypeStreamPart:
		return "StreamPart"
	case compiler.TypeStreamPartList:
		return "IEnumerable<StreamPart>"
	case compiler.TypeVoid:
		return "void"
	default:
		return "object"
	}
}

var primitives = map[compiler.Primitive]string{
	compiler.PrimString:   "string",
	compiler.PrimBool:     "bool",
	compiler.PrimInt32:    "int",
	compiler.PrimInt64:    "long",
	compiler.PrimFloat32:  "float",
	compiler.PrimFloat64:  "double",
	compiler.PrimDateTime: "DateTime",
}

// quote renders s as a C# regular string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// docLines splits text into XML-escaped lines for a summary block.
func docLines(text string) []string {
	esc := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		lines = append(lines, esc.Replace(strings.TrimRight(line, " \r\t")))
	}
	return lines
}

var importedTypes = map[string]bool{
	"Task":        true,
	"Stream":      true,
	"StreamPart":  true,
	"DateTime":    true,
	"Dictionary":  true,
	"IEnumerable": true,
	"Uri":         true,
	"HttpClient":  true,
	"Program":     true,
}

var keywords = toSet(
	"abstract", "as", "base", "bool", "break", "byte", "case", "catch", "char",
	"checked", "class", "const", "continue", "decimal", "default", "delegate",
	"do", "double", "else", "enum", "event", "explicit", "extern", "false",
	"finally", "fixed", "float", "for", "foreach", "goto", "if", "implicit",
	"in", "int", "interface", "internal", "is", "lock", "long", "namespace",
	"new", "null", "object", "operator", "out", "override", "params", "private",
	"protected", "public", "readonly", "ref", "return", "sbyte", "sealed",
	"short", "sizeof", "stackalloc", "static", "string", "struct", "switch",
	"this", "throw", "true", "try", "typeof", "uint", "ulong", "unchecked",
	"unsafe", "ushort", "using", "virtual", "void", "volatile", "while",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var _ emitter.Target = Target{}
