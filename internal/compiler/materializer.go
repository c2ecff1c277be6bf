package compiler

import (
	"strconv"

	"github.com/mark3labs/refitgen/internal/naming"
	"github.com/mark3labs/refitgen/internal/spec"
)

// materialize registers a NamedType for an object or composed schema. It
// reports false, registering nothing, when the schema has no properties
// after flattening.
func (c *compilation) materialize(name string, id spec.NodeID) (TypeExpr, bool) {
	props, required := c.flatten(id)
	if len(props) == 0 {
		return Untyped(), false
	}
	nt := NamedType{Name: name, Origin: id}
	if n := c.graph.Node(c.deref(id)); n != nil {
		nt.Description = n.Description
	}

	seen := map[string]bool{}
	for i, p := range props {
		base, err := naming.PascalCase(p.Name)
		ident := base
		switch {
		case err != nil:
			base = FieldMarker + strconv.Itoa(i+1)
			ident = base
		case !naming.StartsWithLetter(ident) || c.opts.Reserved(ident):
			ident = FieldMarker + ident
		}
		if ident == name {
			ident = c.opts.applyAffix(ident)
		}
		f := Field{
			WireName: p.Name,
			Name:     uniqueIdent(ident, seen),
			Required: required[p.Name],
			Type:     c.resolve(p.Schema, typeContext{Enclosing: name, Field: base}),
		}
		if pn := c.graph.Node(p.Schema); pn != nil {
			f.Description = pn.Description
		}
		nt.Fields = append(nt.Fields, f)
	}

	if err := c.types.Register(nt); err != nil {
		c.fail(err)
	}
	return Named(name), true
}

// flatten merges the properties of every allOf/anyOf member, depth-first and
// first-seen-wins, then applies the schema's own properties on top. An own
// property replaces a flattened one with the same wire name in place.
func (c *compilation) flatten(id spec.NodeID) ([]spec.Property, map[string]bool) {
	id = c.deref(id)
	n := c.graph.Node(id)
	if n == nil {
		return nil, nil
	}
	props := newPropertySet()
	required := map[string]bool{}
	visited := map[spec.NodeID]bool{id: true}
	for _, m := range n.Composition {
		c.collect(m, props, required, visited)
	}
	for _, p := range n.Properties {
		props.put(p)
	}
	for _, r := range n.Required {
		required[r] = true
	}
	return props.list, required
}

func (c *compilation) collect(id spec.NodeID, props *propertySet, required map[string]bool, visited map[spec.NodeID]bool) {
	id = c.deref(id)
	n := c.graph.Node(id)
	if n == nil || visited[id] {
		return
	}
	visited[id] = true
	for _, m := range n.Composition {
		c.collect(m, props, required, visited)
	}
	for _, p := range n.Properties {
		props.add(p)
	}
	for _, r := range n.Required {
		required[r] = true
	}
}

// deref follows component references until it reaches a non-reference node.
func (c *compilation) deref(id spec.NodeID) spec.NodeID {
	for hops := 0; hops <= len(c.graph.Components); hops++ {
		n := c.graph.Node(id)
		if n == nil || n.Kind != spec.KindReference {
			return id
		}
		target, ok := c.graph.Lookup(n.Ref)
		if !ok {
			return spec.NoNode
		}
		id = target
	}
	return spec.NoNode
}

type propertySet struct {
	list  []spec.Property
	index map[string]int
}

func newPropertySet() *propertySet {
	return &propertySet{index: map[string]int{}}
}

func (s *propertySet) add(p spec.Property) {
	if _, ok := s.index[p.Name]; ok {
		return
	}
	s.index[p.Name] = len(s.list)
	s.list = append(s.list, p)
}

func (s *propertySet) put(p spec.Property) {
	if i, ok := s.index[p.Name]; ok {
		s.list[i] = p
		return
	}
	s.add(p)
}

// uniqueIdent returns ident, or ident with the smallest numeric suffix not
// yet in seen, and records the result.
func uniqueIdent(ident string, seen map[string]bool) string {
	out := ident
	for i := 2; seen[out]; i++ {
		out = ident + strconv.Itoa(i)
	}
	seen[out] = true
	return out
}
