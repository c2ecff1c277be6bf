package spec

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyOrder records the order in which mapping keys appear in the source
// document, addressed by JSON Pointer ("/paths/~1pets/get/responses").
// kin-openapi exposes unordered maps; this index restores document order.
type KeyOrder struct {
	keys map[string][]string
	// scalars holds leaf values; Swagger 2 aliasing needs parameter "in",
	// "name" and "$ref".
	scalars map[string]string
}

// IndexKeyOrder parses raw (YAML or JSON) and records every mapping's keys.
// Swagger 2 pointers are aliased to where openapi2conv puts the same
// mappings in the v3 model; see aliasSwagger2.
func IndexKeyOrder(raw []byte, swagger2 bool) *KeyOrder {
	ko := &KeyOrder{keys: map[string][]string{}, scalars: map[string]string{}}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return ko
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		ko.walk(root.Content[0], "")
	}
	if swagger2 {
		ko.aliasSwagger2()
	}
	return ko
}

func (ko *KeyOrder) walk(n *yaml.Node, ptr string) {
	switch n.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i].Value
			if k == "<<" {
				continue
			}
			keys = append(keys, k)
			ko.walk(n.Content[i+1], ptr+"/"+escapePointer(k))
		}
		ko.keys[ptr] = keys
	case yaml.SequenceNode:
		for i, c := range n.Content {
			ko.walk(c, ptr+"/"+strconv.Itoa(i))
		}
	case yaml.ScalarNode:
		ko.scalars[ptr] = n.Value
	}
}

// aliasSwagger2 maps v2 pointers onto their converted v3 locations:
//
//	/definitions/X...                  -> /components/schemas/X...
//	/responses/R/schema...             -> /components/responses/R/content/*/schema...
//	/parameters/B/schema... (in: body) -> /components/requestBodies/B/content/*/schema...
//	/paths/P/V/responses/S/schema...   -> /paths/P/V/responses/S/content/*/schema...
//	/paths/P/V/parameters/i/schema... (in: body)
//	                                   -> /paths/P/V/requestBody/content/*/schema...
//
// An operation's formData parameters become the properties of its request
// body schema, in declaration order. The converter rejects body and formData
// parameters at path level, so only operations are scanned. Media types are
// replaced by "*" because the converter picks them from produces/consumes;
// Keys falls back to that form.
func (ko *KeyOrder) aliasSwagger2() {
	aliases := map[string][]string{}
	for ptr, keys := range ko.keys {
		toks := strings.Split(ptr, "/")
		switch {
		case len(toks) >= 2 && toks[1] == "definitions":
			aliases["/components/schemas"+strings.TrimPrefix(ptr, "/definitions")] = keys
		case len(toks) >= 4 && toks[1] == "responses" && toks[3] == "schema":
			aliases[pointerJoin("/components/responses", toks[2], "content/*/schema", toks[4:])] = keys
		case len(toks) >= 4 && toks[1] == "parameters" && toks[3] == "schema":
			if ko.scalars["/parameters/"+toks[2]+"/in"] == "body" {
				aliases[pointerJoin("/components/requestBodies", toks[2], "content/*/schema", toks[4:])] = keys
			}
		case len(toks) >= 7 && toks[1] == "paths" && toks[4] == "responses" && toks[6] == "schema":
			aliases[pointerJoin("/paths/"+toks[2]+"/"+toks[3]+"/responses", toks[5], "content/*/schema", toks[7:])] = keys
		case len(toks) >= 7 && toks[1] == "paths" && toks[4] == "parameters" && toks[6] == "schema":
			if ko.paramField(strings.Join(toks[:6], "/"), "in") == "body" {
				aliases[pointerJoin("/paths/"+toks[2]+"/"+toks[3], "requestBody", "content/*/schema", toks[7:])] = keys
			}
		}
	}

	for _, path := range ko.keys["/paths"] {
		p := escapePointer(path)
		for _, verb := range ko.verbs(p) {
			var names []string
			for i := 0; ; i++ {
				pp := "/paths/" + p + "/" + verb + "/parameters/" + strconv.Itoa(i)
				if _, ok := ko.keys[pp]; !ok {
					break
				}
				if ko.paramField(pp, "in") == "formData" {
					names = append(names, ko.paramField(pp, "name"))
				}
			}
			if len(names) > 0 {
				aliases["/paths/"+p+"/"+verb+"/requestBody/content/*/schema/properties"] = names
			}
		}
	}

	for ptr, keys := range aliases {
		if _, exists := ko.keys[ptr]; !exists {
			ko.keys[ptr] = keys
		}
	}
}

// paramField reads a field of the parameter at ptr, following a local
// "#/parameters/..." reference.
func (ko *KeyOrder) paramField(ptr, field string) string {
	if ref, ok := ko.scalars[ptr+"/$ref"]; ok {
		if rp := refPointer(ref); rp != "" {
			ptr = rp
		}
	}
	return ko.scalars[ptr+"/"+field]
}

// verbs lists the operation keys of the path item at the escaped path p.
func (ko *KeyOrder) verbs(p string) []string {
	var out []string
	for _, k := range ko.keys["/paths/"+p] {
		if isV2Verb(k) {
			out = append(out, k)
		}
	}
	return out
}

func pointerJoin(prefix, tok, mid string, rest []string) string {
	s := prefix + "/" + tok + "/" + mid
	if len(rest) > 0 {
		s += "/" + strings.Join(rest, "/")
	}
	return s
}

// Keys returns the recorded keys at ptr, or nil. A pointer through a
// media type also matches the "*" entry Swagger 2 aliasing records.
func (ko *KeyOrder) Keys(ptr string) []string {
	if ko == nil {
		return nil
	}
	if keys, ok := ko.keys[ptr]; ok {
		return keys
	}
	return ko.keys[anyMediaType(ptr)]
}

// anyMediaType replaces the token after every "content" that is followed by
// "schema" with "*".
func anyMediaType(ptr string) string {
	toks := strings.Split(ptr, "/")
	for i := 0; i+2 < len(toks); i++ {
		if toks[i] == "content" && toks[i+2] == "schema" {
			toks[i+1] = "*"
		}
	}
	return strings.Join(toks, "/")
}

// orderedKeys returns the keys of m in document order; keys the index does
// not know about follow in lexical order.
func orderedKeys[V any](ko *KeyOrder, ptr string, m map[string]V) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, k := range ko.Keys(ptr) {
		if _, ok := m[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	var rest []string
	for k := range m {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func escapePointer(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	return strings.ReplaceAll(tok, "/", "~1")
}

// refPointer turns "#/components/schemas/Pet" into "/components/schemas/Pet".
// External refs yield "".
func refPointer(ref string) string {
	if !strings.HasPrefix(ref, "#") {
		return ""
	}
	return strings.TrimPrefix(ref, "#")
}
