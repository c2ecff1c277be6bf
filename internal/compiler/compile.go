// Package compiler turns the schema graph and operations of a document into
// named model types and per-group operation signatures.
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/refitgen/internal/grouping"
	"github.com/mark3labs/refitgen/internal/naming"
	"github.com/mark3labs/refitgen/internal/spec"
)

// compilation owns all mutable state of one Compile call.
type compilation struct {
	graph     *spec.Graph
	opts      Options
	log       *slog.Logger
	types     *Registry
	aliases   *AliasTable
	trivial   map[string]bool
	resolving map[string]bool
	err       error
}

func (c *compilation) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Compile resolves every component schema and operation of doc. Components
// are processed in document order; the first collision error in strict mode
// aborts the run.
func Compile(doc *spec.Document, opts Options) (*Result, error) {
	if doc == nil || doc.Graph == nil {
		return nil, fmt.Errorf("compiler: nil document")
	}
	opts = opts.withDefaults()
	groups, err := grouping.Partition(doc.Paths, opts.Grouping)
	if err != nil {
		return nil, err
	}

	c := newCompilation(doc.Graph, opts)
	c.prepass()

	res := &Result{Title: doc.Title, Version: doc.Version}
	for _, s := range doc.Servers {
		res.Servers = append(res.Servers, s.URL)
	}
	names := map[string]bool{}
	for _, g := range groups {
		out := Group{Key: g.Key, Name: uniqueIdent(groupName(g.Key), names)}
		for _, p := range g.Paths {
			for _, op := range p.Operations {
				out.Operations = append(out.Operations, c.buildSignature(op))
			}
		}
		res.Groups = append(res.Groups, out)
	}
	if c.err != nil {
		return nil, c.err
	}
	res.Types = c.types.Types()
	res.Aliases = c.aliases.Aliases()
	c.log.Debug("compiled document", "types", len(res.Types), "aliases", len(res.Aliases), "groups", len(res.Groups))
	return res, nil
}

func newCompilation(g *spec.Graph, opts Options) *compilation {
	opts = opts.withDefaults()
	return &compilation{
		graph:     g,
		opts:      opts,
		log:       opts.Logger,
		types:     newRegistry(opts.StrictNames, opts.Logger),
		aliases:   newAliasTable(),
		trivial:   map[string]bool{},
		resolving: map[string]bool{},
	}
}

// prepass classifies every component. Trivial ones (primitives, arrays of
// non-objects, maps, references, and objects without properties) become
// aliases; the rest are materialized under their own name.
func (c *compilation) prepass() {
	for _, comp := range c.graph.Components {
		c.trivial[comp.ID] = !c.isCompound(comp.Node)
	}
	for _, comp := range c.graph.Components {
		if c.trivial[comp.ID] {
			c.alias(comp.ID)
		}
	}
	for _, comp := range c.graph.Components {
		if !c.trivial[comp.ID] {
			c.materialize(c.typeName(comp.ID), comp.Node)
		}
	}
}

func (c *compilation) isCompound(id spec.NodeID) bool {
	n := c.graph.Node(id)
	if n == nil {
		return false
	}
	if n.Kind != spec.KindObject && n.Kind != spec.KindComposed {
		return false
	}
	props, _ := c.flatten(id)
	return len(props) > 0
}

func groupName(key string) string {
	name, err := naming.PascalCase(key)
	if err != nil {
		return grouping.DefaultGroup
	}
	if !naming.StartsWithLetter(name) {
		return TypeMarker + name
	}
	return name
}
