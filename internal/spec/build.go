package spec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentSchemaPrefix = "#/components/schemas/"

// Build converts a loaded document into the IR. Paths, operations,
// properties, responses and media types keep their document order.
func Build(src *Source) (*Document, error) {
	if src == nil || src.Doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	doc := src.Doc
	hasSchemas := doc.Components != nil && len(doc.Components.Schemas) > 0
	if !hasSchemas && len(doc.Paths) == 0 {
		return nil, &SpecError{
			Code:     UnsupportedDocument,
			Message:  "spec: document declares neither components nor paths",
			Location: src.Location,
		}
	}

	b := &builder{
		order:      IndexKeyOrder(src.Raw, src.Swagger2),
		graph:      NewGraph(),
		inProgress: map[*openapi3.Schema]bool{},
	}
	out := &Document{Graph: b.graph}
	if doc.Info != nil {
		out.Title = safeStr(doc.Info.Title)
		out.Version = safeStr(doc.Info.Version)
	}
	for _, s := range doc.Servers {
		if s == nil {
			continue
		}
		out.Servers = append(out.Servers, Server{URL: safeStr(s.URL), Description: safeStr(s.Description)})
	}

	if hasSchemas {
		for _, name := range orderedKeys(b.order, "/components/schemas", doc.Components.Schemas) {
			id := b.schema(doc.Components.Schemas[name], "/components/schemas/"+escapePointer(name))
			b.graph.AddComponent(name, id)
		}
	}

	for _, p := range orderedKeys(b.order, "/paths", doc.Paths) {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		out.Paths = append(out.Paths, b.pathItem(p, item))
	}
	return out, nil
}

type builder struct {
	order      *KeyOrder
	graph      *Graph
	inProgress map[*openapi3.Schema]bool
}

func (b *builder) pathItem(path string, item *openapi3.PathItem) PathItem {
	itemPtr := "/paths/" + escapePointer(path)
	pi := PathItem{Path: path}

	byVerb := map[string]*openapi3.Operation{}
	for _, m := range Methods {
		if op := item.GetOperation(strings.ToUpper(string(m))); op != nil {
			byVerb[string(m)] = op
		}
	}
	// document keys are case-sensitive lowercase verbs; orderedKeys appends
	// anything the index misses in lexical order
	verbs := orderedKeys(b.order, itemPtr, byVerb)

	base := b.parameters(item.Parameters, itemPtr+"/parameters")
	for _, verb := range verbs {
		op := byVerb[verb]
		opPtr := itemPtr + "/" + verb
		o := Operation{
			Method:      HttpMethod(verb),
			Path:        path,
			OperationID: safeStr(op.OperationID),
			Summary:     safeStr(op.Summary),
			Deprecated:  op.Deprecated,
			Parameters:  mergeParameters(base, b.parameters(op.Parameters, opPtr+"/parameters")),
		}
		for _, t := range op.Tags {
			if t = strings.TrimSpace(t); t != "" {
				o.Tags = append(o.Tags, t)
			}
		}
		if op.RequestBody != nil && op.RequestBody.Value != nil {
			ptr := opPtr + "/requestBody"
			if rp := refPointer(op.RequestBody.Ref); rp != "" {
				ptr = rp
			}
			o.RequestBody = &RequestBody{
				Required: op.RequestBody.Value.Required,
				Content:  b.content(op.RequestBody.Value.Content, ptr+"/content"),
			}
		}
		if op.Responses != nil {
			respPtr := opPtr + "/responses"
			for _, status := range orderedKeys(b.order, respPtr, op.Responses) {
				rref := op.Responses[status]
				if rref == nil || rref.Value == nil {
					continue
				}
				ptr := respPtr + "/" + escapePointer(status)
				if rp := refPointer(rref.Ref); rp != "" {
					ptr = rp
				}
				o.Responses = append(o.Responses, Response{
					Status:  status,
					Content: b.content(rref.Value.Content, ptr+"/content"),
				})
			}
		}
		pi.Operations = append(pi.Operations, o)
	}
	return pi
}

func (b *builder) parameters(refs openapi3.Parameters, ptr string) []Parameter {
	var out []Parameter
	for i, pref := range refs {
		if pref == nil || pref.Value == nil {
			continue
		}
		p := pref.Value
		pp := ptr + "/" + strconv.Itoa(i)
		if rp := refPointer(pref.Ref); rp != "" {
			pp = rp
		}
		param := Parameter{
			Name:     safeStr(p.Name),
			In:       strings.ToLower(safeStr(p.In)),
			Required: p.Required,
			Schema:   NoNode,
		}
		switch {
		case p.Schema != nil:
			param.Schema = b.schema(p.Schema, pp+"/schema")
		case len(p.Content) > 0:
			// content-style parameters carry their schema under one media type
			for _, mime := range orderedKeys(b.order, pp+"/content", p.Content) {
				if mt := p.Content[mime]; mt != nil && mt.Schema != nil {
					param.Schema = b.schema(mt.Schema, pp+"/content/"+escapePointer(mime)+"/schema")
					break
				}
			}
		}
		out = append(out, param)
	}
	return out
}

// mergeParameters applies operation-level parameters over path-level ones.
// An override keeps the path-level position; new parameters are appended.
func mergeParameters(base, own []Parameter) []Parameter {
	out := append([]Parameter(nil), base...)
	for _, p := range own {
		replaced := false
		for i := range out {
			if out[i].In == p.In && out[i].Name == p.Name {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

func (b *builder) content(c openapi3.Content, ptr string) []Media {
	if len(c) == 0 {
		return nil
	}
	var out []Media
	for _, mime := range orderedKeys(b.order, ptr, c) {
		mt := c[mime]
		if mt == nil {
			continue
		}
		out = append(out, Media{Mime: mime, Schema: b.schema(mt.Schema, ptr+"/"+escapePointer(mime)+"/schema")})
	}
	return out
}

// schema adds ref (and everything reachable without crossing a component
// reference) to the arena.
func (b *builder) schema(ref *openapi3.SchemaRef, ptr string) NodeID {
	if ref == nil {
		return NoNode
	}
	if ref.Ref != "" {
		if id, ok := componentID(ref.Ref); ok {
			return b.graph.Add(SchemaNode{Kind: KindReference, Ref: id, Items: NoNode, AdditionalProperties: NoNode})
		}
		if rp := refPointer(ref.Ref); rp != "" {
			ptr = rp
		}
	}
	s := ref.Value
	if s == nil || b.inProgress[s] {
		return b.graph.Add(SchemaNode{Kind: KindEmpty, Items: NoNode, AdditionalProperties: NoNode})
	}
	b.inProgress[s] = true
	defer delete(b.inProgress, s)

	n := SchemaNode{
		Type:                 safeStr(s.Type),
		Format:               safeStr(s.Format),
		Nullable:             s.Nullable,
		Description:          safeStr(s.Description),
		Required:             append([]string(nil), s.Required...),
		Items:                NoNode,
		AdditionalProperties: NoNode,
	}
	if len(s.Enum) > 0 {
		n.Enum = append([]any(nil), s.Enum...)
	}
	// reserve the slot so parents precede children in the arena
	id := b.graph.Add(SchemaNode{})

	for i, m := range s.AllOf {
		n.Composition = append(n.Composition, b.schema(m, ptr+"/allOf/"+strconv.Itoa(i)))
	}
	for i, m := range s.AnyOf {
		n.Composition = append(n.Composition, b.schema(m, ptr+"/anyOf/"+strconv.Itoa(i)))
	}
	for _, name := range orderedKeys(b.order, ptr+"/properties", s.Properties) {
		n.Properties = append(n.Properties, Property{
			Name:   name,
			Schema: b.schema(s.Properties[name], ptr+"/properties/"+escapePointer(name)),
		})
	}
	if s.Items != nil {
		n.Items = b.schema(s.Items, ptr+"/items")
	}
	hasMap := false
	if ap := s.AdditionalProperties; ap.Schema != nil {
		n.AdditionalProperties = b.schema(ap.Schema, ptr+"/additionalProperties")
		hasMap = true
	} else if ap.Has != nil && *ap.Has {
		hasMap = true
	}

	switch {
	case n.Type == "array":
		n.Kind = KindArray
	case isPrimitiveType(n.Type):
		n.Kind = KindPrimitive
	case len(n.Composition) > 0:
		n.Kind = KindComposed
	case len(n.Properties) > 0:
		n.Kind = KindObject
	case hasMap:
		n.Kind = KindMap
	default:
		n.Kind = KindEmpty
	}
	b.graph.Nodes[id] = n
	return id
}

func isPrimitiveType(t string) bool {
	switch t {
	case "string", "integer", "number", "boolean", "file":
		return true
	}
	return false
}

// componentID extracts "Pet" from "#/components/schemas/Pet". Refs into a
// component's interior, or into other documents, are not component refs.
func componentID(ref string) (string, bool) {
	i := strings.Index(ref, componentSchemaPrefix)
	if i != 0 {
		return "", false
	}
	name := strings.TrimPrefix(ref, componentSchemaPrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return unescapePointer(name), true
}

func unescapePointer(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	return strings.ReplaceAll(tok, "~0", "~")
}

func safeStr(s string) string { return strings.TrimSpace(s) }
