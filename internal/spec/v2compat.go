package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// preprocessV2ForCompatibility rewrites Swagger 2 operations that
// openapi2conv rejects:
//   - several "in: body" parameters are merged into one object body;
//   - body parameters mixed with formData become formData fields and the
//     operation consumes multipart/form-data.
//
// On any error the input is returned unchanged with modified=false.
func preprocessV2ForCompatibility(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, _ := doc["paths"].(map[string]any)
	modified := false
	for _, raw := range paths {
		item, _ := raw.(map[string]any)
		for verb, rawOp := range item {
			if !isV2Verb(verb) {
				continue
			}
			if op, ok := rawOp.(map[string]any); ok && fixV2Operation(op) {
				modified = true
			}
		}
	}
	if !modified {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func isV2Verb(v string) bool {
	switch strings.ToLower(v) {
	case "get", "put", "post", "delete", "options", "head", "patch":
		return true
	}
	return false
}

func fixV2Operation(op map[string]any) bool {
	params, _ := op["parameters"].([]any)
	var bodies, others []map[string]any
	hasForm := false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil {
			continue
		}
		switch strings.ToLower(stringValue(pm["in"])) {
		case "body":
			bodies = append(bodies, pm)
			continue
		case "formdata":
			hasForm = true
		}
		others = append(others, pm)
	}
	if len(bodies) == 0 || (len(bodies) == 1 && !hasForm) {
		return false
	}

	rebuilt := make([]any, 0, len(params))
	if hasForm {
		for _, b := range bodies {
			rebuilt = append(rebuilt, bodyToFormField(b))
		}
		for _, o := range others {
			rebuilt = append(rebuilt, o)
		}
		consumes, _ := op["consumes"].([]any)
		if !containsValue(consumes, MimeMultipart) {
			op["consumes"] = append(consumes, MimeMultipart)
		}
		op["parameters"] = rebuilt
		return true
	}

	props := map[string]any{}
	var required []any
	for _, b := range bodies {
		name := stringValue(b["name"])
		if name == "" {
			name = "field"
		}
		schema := paramSchema(b)
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		props[name] = schema
		if req, _ := b["required"].(bool); req {
			required = append(required, name)
		}
	}
	merged := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		merged["required"] = required
	}
	rebuilt = append(rebuilt, map[string]any{"in": "body", "name": "body", "schema": merged})
	for _, o := range others {
		rebuilt = append(rebuilt, o)
	}
	op["parameters"] = rebuilt
	return true
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func containsValue(list []any, want string) bool {
	for _, v := range list {
		if stringValue(v) == want {
			return true
		}
	}
	return false
}

// paramSchema returns the body schema of a parameter, synthesizing one from
// type/items/format when the parameter is written in non-body style.
func paramSchema(pm map[string]any) map[string]any {
	if s, ok := pm["schema"].(map[string]any); ok {
		return s
	}
	typ := stringValue(pm["type"])
	if typ == "" {
		return nil
	}
	s := map[string]any{"type": typ}
	if items, ok := pm["items"].(map[string]any); ok {
		s["items"] = items
	}
	if f := stringValue(pm["format"]); f != "" {
		s["format"] = f
	}
	return s
}

func bodyToFormField(pm map[string]any) map[string]any {
	name := stringValue(pm["name"])
	if name == "" {
		name = "field"
	}
	field := map[string]any{"in": "formData", "name": name}
	if d := stringValue(pm["description"]); d != "" {
		field["description"] = d
	}
	if req, ok := pm["required"].(bool); ok {
		field["required"] = req
	}
	src := paramSchema(pm)
	typ := ""
	if src != nil {
		typ = stringValue(src["type"])
		if items, ok := src["items"]; ok {
			field["items"] = items
		}
		if f := stringValue(src["format"]); f != "" {
			field["format"] = f
		}
	}
	if typ == "" {
		// referenced objects have no formData representation
		typ = "string"
	}
	field["type"] = typ
	return field
}
