package spec

import "strings"

// Internal representation (IR) of an API description consumed by the compiler.
// Schemas live in an arena and reference each other by NodeID, so cyclic
// graphs never expand.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	PUT     HttpMethod = "put"
	POST    HttpMethod = "post"
	DELETE  HttpMethod = "delete"
	OPTIONS HttpMethod = "options"
	HEAD    HttpMethod = "head"
	PATCH   HttpMethod = "patch"
	TRACE   HttpMethod = "trace"
)

// Methods lists the verbs a path item may carry, in the fallback order used
// when the document's own key order is unknown.
var Methods = []HttpMethod{GET, PUT, POST, DELETE, OPTIONS, HEAD, PATCH, TRACE}

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

type Document struct {
	Title   string
	Version string
	Servers []Server
	Graph   *Graph
	Paths   []PathItem
}

type Server struct {
	URL         string
	Description string
}

type PathItem struct {
	Path       string
	Operations []Operation
}

type Operation struct {
	Method      HttpMethod
	Path        string
	OperationID string
	Summary     string
	Tags        []string
	Deprecated  bool
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   []Response
}

type Parameter struct {
	Name     string
	In       string // path|query|header|cookie
	Required bool
	Schema   NodeID
}

type RequestBody struct {
	Required bool
	Content  []Media
}

type Response struct {
	Status  string // 200, 4XX, default
	Content []Media
}

type Media struct {
	Mime   string
	Schema NodeID
}

// ContentKind classifies a body by media type.
type ContentKind int

const (
	ContentJSON ContentKind = iota
	ContentMultipart
	ContentFormURLEncoded
	ContentBinary
)

const (
	MimeMultipart = "multipart/form-data"
	MimeForm      = "application/x-www-form-urlencoded"
	MimeOctet     = "application/octet-stream"
)

// Kind classifies the entry by media type. Octet streams and media whose
// schema is a binary string count as raw binary.
func (m Media) Kind(g *Graph) ContentKind {
	mime := strings.ToLower(strings.TrimSpace(m.Mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case strings.HasPrefix(mime, "multipart/"):
		return ContentMultipart
	case mime == MimeForm:
		return ContentFormURLEncoded
	case mime == MimeOctet:
		return ContentBinary
	}
	if n := g.Node(m.Schema); n != nil && n.Kind == KindPrimitive && (n.Type == "file" || n.Format == "binary") {
		return ContentBinary
	}
	return ContentJSON
}

// NodeID addresses a SchemaNode inside a Graph.
type NodeID int

// NoNode marks an absent schema.
const NoNode NodeID = -1

// Kind is the single active shape of a SchemaNode.
type Kind int

const (
	KindEmpty Kind = iota
	KindPrimitive
	KindArray
	KindObject
	KindReference
	KindMap
	KindComposed
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindReference:
		return "reference"
	case KindMap:
		return "map"
	case KindComposed:
		return "composed"
	default:
		return "empty"
	}
}

type SchemaNode struct {
	Kind        Kind
	Type        string // string|integer|number|boolean|file for primitives
	Format      string
	Nullable    bool
	Description string
	Enum        []any

	Items                NodeID // KindArray
	AdditionalProperties NodeID // KindMap; NoNode means untyped values
	Properties           []Property
	Required             []string
	Ref                  string   // KindReference: component id
	Composition          []NodeID // allOf members, then anyOf members
}

type Property struct {
	Name   string
	Schema NodeID
}

// IsRequired reports whether name is listed in the node's required set.
func (n *SchemaNode) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

type Component struct {
	ID   string
	Node NodeID
}

// Graph is the schema arena plus the ordered component table.
type Graph struct {
	Nodes      []SchemaNode
	Components []Component
	index      map[string]NodeID
}

func NewGraph() *Graph {
	return &Graph{index: map[string]NodeID{}}
}

// Add appends n to the arena and returns its id.
func (g *Graph) Add(n SchemaNode) NodeID {
	g.Nodes = append(g.Nodes, n)
	return NodeID(len(g.Nodes) - 1)
}

// Node returns the node for id, or nil for NoNode and out-of-range ids.
func (g *Graph) Node(id NodeID) *SchemaNode {
	if id < 0 || int(id) >= len(g.Nodes) {
		return nil
	}
	return &g.Nodes[id]
}

// AddComponent registers a named top-level schema. A repeated id replaces
// the earlier node but keeps its position.
func (g *Graph) AddComponent(id string, node NodeID) {
	if g.index == nil {
		g.index = map[string]NodeID{}
	}
	if _, ok := g.index[id]; ok {
		for i := range g.Components {
			if g.Components[i].ID == id {
				g.Components[i].Node = node
			}
		}
	} else {
		g.Components = append(g.Components, Component{ID: id, Node: node})
	}
	g.index[id] = node
}

// Lookup resolves a component id to its root node.
func (g *Graph) Lookup(id string) (NodeID, bool) {
	n, ok := g.index[id]
	return n, ok
}
