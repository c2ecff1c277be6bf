package compiler

import (
	"github.com/mark3labs/refitgen/internal/naming"
	"github.com/mark3labs/refitgen/internal/spec"
)

// typeContext names the slot a schema is resolved for. Inline objects found
// there are materialized as "{Enclosing}_{Field}".
type typeContext struct {
	Enclosing string
	Field     string
}

func (ctx typeContext) syntheticName() string {
	return ctx.Enclosing + "_" + ctx.Field
}

// resolve maps a schema node to a type expression. It never fails: anything
// it cannot type becomes Untyped.
func (c *compilation) resolve(id spec.NodeID, ctx typeContext) TypeExpr {
	n := c.graph.Node(id)
	if n == nil {
		return Untyped()
	}
	switch n.Kind {
	case spec.KindArray:
		return ArrayOf(c.resolve(n.Items, ctx))
	case spec.KindPrimitive:
		return primitiveType(n)
	case spec.KindMap:
		return MapOf(c.resolve(n.AdditionalProperties, ctx))
	case spec.KindReference:
		return c.resolveRef(n.Ref)
	case spec.KindObject, spec.KindComposed:
		if t, ok := c.materialize(ctx.syntheticName(), id); ok {
			return t
		}
	}
	return Untyped()
}

func primitiveType(n *spec.SchemaNode) TypeExpr {
	var t TypeExpr
	switch {
	case isBinary(n):
		return Stream()
	case n.Type == "string" && (n.Format == "date" || n.Format == "date-time"):
		t = Prim(PrimDateTime)
	case n.Type == "string":
		return Prim(PrimString)
	case n.Type == "boolean":
		t = Prim(PrimBool)
	case n.Type == "number" && n.Format == "float":
		t = Prim(PrimFloat32)
	case n.Type == "number":
		t = Prim(PrimFloat64)
	case n.Type == "integer" && n.Format == "int64":
		t = Prim(PrimInt64)
	case n.Type == "integer":
		t = Prim(PrimInt32)
	default:
		return Untyped()
	}
	t.Nullable = n.Nullable
	return t
}

// isBinary matches a binary string or a Swagger 2 file.
func isBinary(n *spec.SchemaNode) bool {
	if n == nil || n.Kind != spec.KindPrimitive {
		return false
	}
	return n.Type == "file" || (n.Type == "string" && n.Format == "binary")
}

func (c *compilation) resolveRef(id string) TypeExpr {
	if t, ok := c.alias(id); ok {
		return t
	}
	if _, ok := c.graph.Lookup(id); !ok {
		c.log.Warn("reference to unknown schema", "ref", id)
		return Untyped()
	}
	return Named(c.typeName(id))
}

// alias returns the expression for a trivially-typed component, resolving it
// on first use.
func (c *compilation) alias(id string) (TypeExpr, bool) {
	if t, ok := c.aliases.Get(id); ok {
		return t, true
	}
	if !c.trivial[id] {
		return TypeExpr{}, false
	}
	if c.resolving[id] {
		return Untyped(), true
	}
	node, _ := c.graph.Lookup(id)
	c.resolving[id] = true
	t := c.resolve(node, typeContext{Enclosing: c.typeName(id), Field: "Item"})
	delete(c.resolving, id)
	c.aliases.Set(id, t)
	return t, true
}

// typeName turns a component id into a legal type identifier.
func (c *compilation) typeName(id string) string {
	name, err := naming.PascalCase(id)
	if err != nil {
		return TypeMarker
	}
	if !naming.StartsWithLetter(name) || c.opts.ReservedTypes(name) {
		return TypeMarker + name
	}
	return name
}
