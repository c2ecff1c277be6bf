package compiler

import (
	"strings"

	"github.com/mark3labs/refitgen/internal/spec"
)

// TypeKind is the shape of a target-independent type expression.
type TypeKind int

const (
	TypeUntyped TypeKind = iota
	TypePrimitive
	TypeNamed
	TypeArray
	TypeMap
	TypeStream
	TypeStreamPart
	TypeStreamPartList
	TypeVoid
)

type Primitive int

const (
	PrimNone Primitive = iota
	PrimString
	PrimBool
	PrimInt32
	PrimInt64
	PrimFloat32
	PrimFloat64
	PrimDateTime
)

var primitiveNames = map[Primitive]string{
	PrimString:   "string",
	PrimBool:     "bool",
	PrimInt32:    "int32",
	PrimInt64:    "int64",
	PrimFloat32:  "float32",
	PrimFloat64:  "float64",
	PrimDateTime: "datetime",
}

func (p Primitive) String() string { return primitiveNames[p] }

// TypeExpr is a resolved type. Emitters spell it in their target language.
type TypeExpr struct {
	Kind      TypeKind
	Primitive Primitive
	Name      string    // TypeNamed
	Elem      *TypeExpr // TypeArray, TypeMap
	Nullable  bool
}

func Untyped() TypeExpr { return TypeExpr{Kind: TypeUntyped} }
func Void() TypeExpr { return TypeExpr{Kind: TypeVoid} }
func Stream() TypeExpr { return TypeExpr{Kind: TypeStream} }
func Named(name string) TypeExpr { return TypeExpr{Kind: TypeNamed, Name: name} }
func Prim(p Primitive) TypeExpr { return TypeExpr{Kind: TypePrimitive, Primitive: p} }
func ArrayOf(elem TypeExpr) TypeExpr { return TypeExpr{Kind: TypeArray, Elem: &elem} }
func MapOf(elem TypeExpr) TypeExpr { return TypeExpr{Kind: TypeMap, Elem: &elem} }

// IsValueType reports whether the expression is a non-reference primitive:
// everything primitive except string.
func (t TypeExpr) IsValueType() bool {
	return t.Kind == TypePrimitive && t.Primitive != PrimString
}

// String renders a language-neutral form, e.g. "array<map<int32?>>".
func (t TypeExpr) String() string {
	var b strings.Builder
	switch t.Kind {
	case TypePrimitive:
		b.WriteString(t.Primitive.String())
	case TypeNamed:
		b.WriteString(t.Name)
	case TypeArray:
		b.WriteString("array<" + t.Elem.String() + ">")
	case TypeMap:
		b.WriteString("map<" + t.Elem.String() + ">")
	case TypeStream:
		b.WriteString("stream")
	case TypeStreamPart:
		b.WriteString("streampart")
	case TypeStreamPartList:
		b.WriteString("array<streampart>")
	case TypeVoid:
		b.WriteString("void")
	default:
		b.WriteString("any")
	}
	if t.Nullable {
		b.WriteString("?")
	}
	return b.String()
}

// Field is one property of a NamedType.
type Field struct {
	WireName    string
	Name        string
	Type        TypeExpr
	Required    bool
	Description string
}

// NamedType is a materialized model. Registered types are never mutated.
type NamedType struct {
	Name        string
	Description string
	Fields      []Field
	Origin      spec.NodeID
}

// ParamKind places a parameter in the request.
type ParamKind int

const (
	ParamPath ParamKind = iota
	ParamQuery
	ParamHeader
	ParamBody
	ParamForm
)

func (k ParamKind) String() string {
	switch k {
	case ParamPath:
		return "path"
	case ParamQuery:
		return "query"
	case ParamHeader:
		return "header"
	case ParamBody:
		return "body"
	default:
		return "form"
	}
}

type Param struct {
	WireName    string
	Name        string
	Location    ParamKind
	Type        TypeExpr
	Required    bool
	DefaultNull bool
	QueryObject bool
}

// Signature is the compiled form of one operation.
type Signature struct {
	Name       string
	Method     spec.HttpMethod
	Path       string
	Summary    string
	Deprecated bool
	Multipart  bool
	BodyKind   spec.ContentKind
	BodyMime   string
	Params     []Param
	Return     TypeExpr
}

// HasBody reports whether any parameter travels in the request body.
func (s Signature) HasBody() bool {
	for _, p := range s.Params {
		if p.Location == ParamBody || p.Location == ParamForm {
			return true
		}
	}
	return false
}

// Group is one API surface ready for emission.
type Group struct {
	Key        string
	Name       string
	Operations []Signature
}

// Alias maps a trivially-typed component to its resolved expression.
type Alias struct {
	ID   string
	Type TypeExpr
}

// Result is the output of Compile.
type Result struct {
	Title   string
	Version string
	Servers []string
	Types   []NamedType
	Aliases []Alias
	Groups  []Group
}

// Type returns the registered model with the given name.
func (r *Result) Type(name string) (NamedType, bool) {
	for _, t := range r.Types {
		if t.Name == name {
			return t, true
		}
	}
	return NamedType{}, false
}

// BaseURL returns the first declared server URL, or "".
func (r *Result) BaseURL() string {
	if len(r.Servers) == 0 {
		return ""
	}
	return r.Servers[0]
}
