package compiler

import (
	"sort"
	"strings"

	"github.com/mark3labs/refitgen/internal/naming"
	"github.com/mark3labs/refitgen/internal/spec"
)

func (c *compilation) buildSignature(op spec.Operation) Signature {
	sig := Signature{
		Name:       operationName(op),
		Method:     op.Method,
		Path:       op.Path,
		Summary:    op.Summary,
		Deprecated: op.Deprecated,
	}
	sig.Return = c.returnType(op, sig.Name)

	seen := map[string]bool{}
	params := c.bodyParams(op.RequestBody, &sig, seen)

	var rest []Param
	for _, p := range op.Parameters {
		var loc ParamKind
		switch p.In {
		case spec.InPath:
			loc = ParamPath
		case spec.InQuery:
			loc = ParamQuery
		case spec.InHeader:
			if c.opts.headerIgnored(p.Name) {
				continue
			}
			loc = ParamHeader
		default:
			c.log.Debug("skipping parameter", "operation", sig.Name, "name", p.Name, "in", p.In)
			continue
		}
		t := c.resolve(p.Schema, typeContext{Enclosing: sig.Name, Field: "Parameter"})
		if !p.Required && t.IsValueType() {
			t.Nullable = true
		}
		rest = append(rest, Param{
			WireName:    p.Name,
			Name:        c.paramIdent(p.Name, sig.Name, seen),
			Location:    loc,
			Type:        t,
			Required:    p.Required,
			DefaultNull: !p.Required && c.opts.OptionalNullDefault,
			QueryObject: loc == ParamQuery && isStructured(t),
		})
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Required && !rest[j].Required })
	sig.Params = append(params, rest...)
	return sig
}

// operationName is the Pascal-cased operationId, or VERB__Seg_Seg built from
// the static path segments.
func operationName(op spec.Operation) string {
	if op.OperationID != "" {
		if name, err := naming.PascalCase(op.OperationID); err == nil {
			if !naming.StartsWithLetter(name) {
				name = strings.ToUpper(string(op.Method)) + "__" + name
			}
			return name
		}
	}
	var segs []string
	for _, seg := range strings.Split(op.Path, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		if s, err := naming.PascalCase(seg); err == nil {
			segs = append(segs, s)
		}
	}
	return strings.ToUpper(string(op.Method)) + "__" + strings.Join(segs, "_")
}

// returnType inspects the first 2xx response in document order.
func (c *compilation) returnType(op spec.Operation, opName string) TypeExpr {
	for _, r := range op.Responses {
		if !strings.HasPrefix(r.Status, "2") {
			continue
		}
		if len(r.Content) == 0 || r.Content[0].Schema == spec.NoNode {
			return Void()
		}
		id := r.Content[0].Schema
		n := c.graph.Node(id)
		if n == nil {
			return Void()
		}
		if n.Kind == spec.KindReference || len(n.Properties) == 0 {
			return c.resolve(id, typeContext{Enclosing: opName, Field: "Response"})
		}
		if t, ok := c.materialize(opName+"Response", id); ok {
			return t
		}
		return Untyped()
	}
	return Void()
}

// bodyParams expands form bodies into one parameter per property; any other
// body becomes a single "body" parameter.
func (c *compilation) bodyParams(rb *spec.RequestBody, sig *Signature, seen map[string]bool) []Param {
	if rb == nil || len(rb.Content) == 0 {
		return nil
	}
	media := rb.Content[0]
	for _, m := range rb.Content {
		if k := m.Kind(c.graph); k == spec.ContentMultipart || k == spec.ContentFormURLEncoded {
			media = m
			break
		}
	}
	sig.BodyMime = media.Mime
	sig.BodyKind = media.Kind(c.graph)

	if sig.BodyKind != spec.ContentMultipart && sig.BodyKind != spec.ContentFormURLEncoded {
		return []Param{{
			WireName: "body",
			Name:     uniqueIdent("body", seen),
			Location: ParamBody,
			Type:     c.resolve(media.Schema, typeContext{Enclosing: sig.Name, Field: "Body"}),
			Required: true,
		}}
	}

	sig.Multipart = true
	props, required := c.flatten(media.Schema)
	var out []Param
	for _, p := range props {
		pn := c.graph.Node(c.deref(p.Schema))
		var t TypeExpr
		switch {
		case pn != nil && pn.Kind == spec.KindArray && isBinary(c.graph.Node(c.deref(pn.Items))):
			t = TypeExpr{Kind: TypeStreamPartList}
		case isBinary(pn):
			t = TypeExpr{Kind: TypeStreamPart}
		default:
			t = c.resolve(p.Schema, typeContext{Enclosing: sig.Name, Field: "Parameter"})
		}
		out = append(out, Param{
			WireName: p.Name,
			Name:     c.paramIdent(p.Name, sig.Name, seen),
			Location: ParamForm,
			Type:     t,
			Required: required[p.Name],
		})
	}
	return out
}

func (c *compilation) paramIdent(wire, opName string, seen map[string]bool) string {
	ident, err := naming.CamelCase(wire)
	switch {
	case err != nil:
		ident = ParamMarker
	case !naming.StartsWithLetter(ident) || c.opts.Reserved(ident):
		ident = ParamMarker + naming.Capitalize(ident)
	}
	if ident == opName {
		ident = c.opts.applyAffix(ident)
	}
	return uniqueIdent(ident, seen)
}

func isStructured(t TypeExpr) bool {
	switch t.Kind {
	case TypeNamed, TypeArray, TypeMap:
		return true
	}
	return false
}
