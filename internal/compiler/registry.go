package compiler

import "log/slog"

// Registry holds materialized types in first-registration order. A repeated
// name replaces the earlier definition in place.
type Registry struct {
	types  []NamedType
	index  map[string]int
	strict bool
	log    *slog.Logger
}

func newRegistry(strict bool, log *slog.Logger) *Registry {
	return &Registry{index: map[string]int{}, strict: strict, log: log}
}

func (r *Registry) Register(t NamedType) error {
	i, ok := r.index[t.Name]
	if !ok {
		r.index[t.Name] = len(r.types)
		r.types = append(r.types, t)
		return nil
	}
	prev := r.types[i]
	if prev.Origin != t.Origin {
		if r.strict {
			return &NameCollisionError{Name: t.Name}
		}
		r.log.Warn("type name reused, later definition wins", "type", t.Name)
	}
	r.types[i] = t
	return nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

func (r *Registry) lookup(name string) (NamedType, bool) {
	i, ok := r.index[name]
	if !ok {
		return NamedType{}, false
	}
	return r.types[i], true
}

func (r *Registry) Types() []NamedType {
	return append([]NamedType(nil), r.types...)
}

// AliasTable maps component ids to their pre-resolved expression. The first
// write for a key wins.
type AliasTable struct {
	order []string
	byID  map[string]TypeExpr
}

func newAliasTable() *AliasTable {
	return &AliasTable{byID: map[string]TypeExpr{}}
}

func (a *AliasTable) Set(id string, t TypeExpr) bool {
	if _, ok := a.byID[id]; ok {
		return false
	}
	a.byID[id] = t
	a.order = append(a.order, id)
	return true
}

func (a *AliasTable) Get(id string) (TypeExpr, bool) {
	t, ok := a.byID[id]
	return t, ok
}

func (a *AliasTable) Aliases() []Alias {
	out := make([]Alias, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, Alias{ID: id, Type: a.byID[id]})
	}
	return out
}
