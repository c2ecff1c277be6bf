package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/refitgen/internal/grouping"
	"github.com/mark3labs/refitgen/internal/spec"
)

func buildYAML(t *testing.T, raw string) *spec.Document {
	t.Helper()
	raw = strings.TrimSpace(raw) + "\n"
	d, err := openapi3.NewLoader().LoadFromData([]byte(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc, err := spec.Build(&spec.Source{Doc: d, Raw: []byte(raw)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func compileYAML(t *testing.T, raw string, opts Options) *Result {
	t.Helper()
	res, err := Compile(buildYAML(t, raw), opts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return res
}

func mustType(t *testing.T, res *Result, name string) NamedType {
	t.Helper()
	nt, ok := res.Type(name)
	if !ok {
		var names []string
		for _, x := range res.Types {
			names = append(names, x.Name)
		}
		t.Fatalf("type %s not registered; have %v", name, names)
	}
	return nt
}

func mustSig(t *testing.T, res *Result, name string) Signature {
	t.Helper()
	for _, g := range res.Groups {
		for _, s := range g.Operations {
			if s.Name == name {
				return s
			}
		}
	}
	t.Fatalf("operation %s not found", name)
	return Signature{}
}

func fieldTypes(nt NamedType) map[string]string {
	out := map[string]string{}
	for _, f := range nt.Fields {
		out[f.WireName] = f.Type.String()
	}
	return out
}

const petstore = `
openapi: 3.0.0
info:
  title: Petstore
  version: "1.0.0"
servers:
  - url: https://petstore.example.com/api
paths:
  /pets:
    get:
      operationId: listPets
      tags: [pets]
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/Pet'
  /store/orders:
    post:
      tags: [store]
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Order'
      responses:
        "204":
          description: empty
components:
  schemas:
    PetId:
      type: string
      format: uuid
    Tags:
      type: array
      items:
        type: string
    Pet:
      type: object
      properties:
        id:
          $ref: '#/components/schemas/PetId'
        tags:
          $ref: '#/components/schemas/Tags'
        owner:
          type: object
          properties:
            name:
              type: string
    Order:
      type: object
      properties:
        pet:
          $ref: '#/components/schemas/Pet'
        quantity:
          type: integer
    Blank:
      type: object
`

func TestCompile_AliasesAndModels(t *testing.T) {
	t.Parallel()
	res := compileYAML(t, petstore, Options{})

	var aliasIDs []string
	for _, a := range res.Aliases {
		aliasIDs = append(aliasIDs, a.ID+"="+a.Type.String())
	}
	if got := strings.Join(aliasIDs, ","); got != "PetId=string,Tags=array<string>,Blank=any" {
		t.Fatalf("aliases: %s", got)
	}
	if _, ok := res.Type("PetId"); ok {
		t.Fatalf("uuid alias must not become a model")
	}
	if _, ok := res.Type("Blank"); ok {
		t.Fatalf("object without properties must not become a model")
	}

	pet := mustType(t, res, "Pet")
	want := map[string]string{"id": "string", "tags": "array<string>", "owner": "Pet_Owner"}
	for k, v := range want {
		if got := fieldTypes(pet)[k]; got != v {
			t.Errorf("Pet.%s: %s, want %s", k, got, v)
		}
	}
	owner := mustType(t, res, "Pet_Owner")
	if len(owner.Fields) != 1 || owner.Fields[0].Name != "Name" {
		t.Fatalf("nested owner: %+v", owner)
	}
	if got := fieldTypes(mustType(t, res, "Order"))["pet"]; got != "Pet" {
		t.Fatalf("Order.pet: %s", got)
	}
}

func TestCompile_GroupsAndSignatures(t *testing.T) {
	t.Parallel()
	res := compileYAML(t, petstore, Options{})
	if len(res.Groups) != 2 || res.Groups[0].Name != "Pets" || res.Groups[1].Name != "Store" {
		t.Fatalf("groups: %+v", res.Groups)
	}
	if res.BaseURL() != "https://petstore.example.com/api" || res.Title != "Petstore" {
		t.Fatalf("metadata: %+v", res)
	}
	list := mustSig(t, res, "ListPets")
	if list.Return.String() != "array<Pet>" {
		t.Fatalf("ListPets return: %s", list.Return)
	}
	post := mustSig(t, res, "POST__Store_Orders")
	if post.Return.Kind != TypeVoid {
		t.Fatalf("204 without content must be void, got %s", post.Return)
	}
	if len(post.Params) != 1 || post.Params[0].Location != ParamBody || post.Params[0].Type.String() != "Order" {
		t.Fatalf("body param: %+v", post.Params)
	}
}

func TestCompile_UnsupportedGrouping(t *testing.T) {
	t.Parallel()
	_, err := Compile(buildYAML(t, petstore), Options{Grouping: "alphabetical"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCompile_MostCommonTagGrouping(t *testing.T) {
	t.Parallel()
	res := compileYAML(t, `
openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /a:
    get:
      tags: [x, y]
      responses: {"200": {description: ok}}
  /b:
    get:
      tags: [y]
      responses: {"200": {description: ok}}
`, Options{Grouping: grouping.MostCommonTag})
	if len(res.Groups) != 1 || res.Groups[0].Name != "Y" || len(res.Groups[0].Operations) != 2 {
		t.Fatalf("groups: %+v", res.Groups)
	}
}

func TestCompile_GroupNamesAreUnique(t *testing.T) {
	t.Parallel()
	res := compileYAML(t, `
openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /a:
    get:
      tags: [pets]
      responses: {"200": {description: ok}}
  /b:
    get:
      tags: [Pets]
      responses: {"200": {description: ok}}
`, Options{})
	if len(res.Groups) != 2 || res.Groups[0].Name != "Pets" || res.Groups[1].Name != "Pets2" {
		t.Fatalf("groups: %+v", res.Groups)
	}
}
