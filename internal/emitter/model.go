package emitter

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/mark3labs/refitgen/internal/compiler"
)

// ModelFile is the file DumpModel output is written to.
const ModelFile = "model.json"

type modelDump struct {
	Title   string      `json:"title,omitempty"`
	Version string      `json:"version,omitempty"`
	Servers []string    `json:"servers,omitempty"`
	Aliases []aliasDump `json:"aliases,omitempty"`
	Types   []typeDump  `json:"types,omitempty"`
	Groups  []groupDump `json:"groups,omitempty"`
}

type aliasDump struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type typeDump struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Fields      []fieldDump `json:"fields"`
}

type fieldDump struct {
	WireName string `json:"wireName"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

type groupDump struct {
	Key        string          `json:"key"`
	Name       string          `json:"name"`
	Operations []operationDump `json:"operations"`
}

type operationDump struct {
	Name       string      `json:"name"`
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	Deprecated bool        `json:"deprecated,omitempty"`
	Multipart  bool        `json:"multipart,omitempty"`
	Params     []paramDump `json:"params,omitempty"`
	Return     string      `json:"return"`
}

type paramDump struct {
	WireName    string `json:"wireName"`
	Name        string `json:"name"`
	In          string `json:"in"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	DefaultNull bool   `json:"defaultNull,omitempty"`
	QueryObject bool   `json:"queryObject,omitempty"`
}

// DumpModel serializes the compiled result with types spelled in their
// language-neutral form. Output is indented and stable across runs.
func DumpModel(res *compiler.Result) ([]byte, error) {
	d := modelDump{Title: res.Title, Version: res.Version, Servers: res.Servers}
	for _, a := range res.Aliases {
		d.Aliases = append(d.Aliases, aliasDump{ID: a.ID, Type: a.Type.String()})
	}
	for _, t := range res.Types {
		td := typeDump{Name: t.Name, Description: t.Description, Fields: []fieldDump{}}
		for _, f := range t.Fields {
			td.Fields = append(td.Fields, fieldDump{WireName: f.WireName, Name: f.Name, Type: f.Type.String(), Required: f.Required})
		}
		d.Types = append(d.Types, td)
	}
	for _, g := range res.Groups {
		gd := groupDump{Key: g.Key, Name: g.Name, Operations: []operationDump{}}
		for _, op := range g.Operations {
			od := operationDump{
				Name:       op.Name,
				Method:     string(op.Method),
				Path:       op.Path,
				Deprecated: op.Deprecated,
				Multipart:  op.Multipart,
				Return:     op.Return.String(),
			}
			for _, p := range op.Params {
				od.Params = append(od.Params, paramDump{
					WireName:    p.WireName,
					Name:        p.Name,
					In:          p.Location.String(),
					Type:        p.Type.String(),
					Required:    p.Required,
					DefaultNull: p.DefaultNull,
					QueryObject: p.QueryObject,
				})
			}
			gd.Operations = append(gd.Operations, od)
		}
		d.Groups = append(d.Groups, gd)
	}

	out, err := json.Marshal(d, jsontext.WithIndent("  "), json.Deterministic(true))
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
