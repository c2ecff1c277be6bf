package goemitter

import (
	"bytes"
	"go/format"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/refitgen/internal/compiler"
	"github.com/mark3labs/refitgen/internal/emitter"
	"github.com/mark3labs/refitgen/internal/spec"
)

const petstore = `
openapi: 3.0.0
info:
  title: Pet Store
  version: "1.0"
servers:
  - url: https://petstore.example.com/v1
paths:
  /pets:
    get:
      tags: [pets]
      operationId: list_pets
      summary: List all pets
      parameters:
        - name: page_size
          in: query
          schema:
            type: integer
        - name: X-Trace
          in: header
          required: true
          schema:
            type: string
        - name: type
          in: query
          schema:
            type: string
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/Pet'
    post:
      tags: [pets]
      operationId: createPet
      deprecated: true
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        "201":
          description: created
  /pets/{petId}/photo:
    post:
      tags: [photos]
      operationId: uploadPhoto
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: integer
            format: int64
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              properties:
                file:
                  type: string
                  format: binary
      responses:
        "204":
          description: no content
    get:
      tags: [photos]
      operationId: downloadPhoto
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: integer
            format: int64
      responses:
        "200":
          description: the photo
          content:
            application/octet-stream:
              schema:
                type: string
                format: binary
components:
  schemas:
    Pet:
      type: object
      description: A pet.
      required: [id]
      properties:
        id:
          type: integer
          format: int64
        name:
          type: string
        labels:
          type: object
          additionalProperties:
            type: string
    Client:
      type: object
      properties:
        id:
          type: string
`

func compilePetstore(t *testing.T) *compiler.Result {
	t.Helper()
	raw := strings.TrimSpace(petstore) + "\n"
	d, err := openapi3.NewLoader().LoadFromData([]byte(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc, err := spec.Build(&spec.Source{Doc: d, Raw: []byte(raw)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	target := New()
	res, err := compiler.Compile(doc, compiler.Options{Reserved: target.ReservedWord, ReservedTypes: target.ReservedType})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return res
}

// squash collapses runs of whitespace so assertions ignore gofmt alignment.
func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

func assertContains(t *testing.T, files emitter.Files, path string, wants ...string) {
	t.Helper()
	content, ok := files[path]
	if !ok {
		var have []string
		for p := range files {
			have = append(have, p)
		}
		t.Fatalf("missing %s; have %v", path, have)
	}
	got := squash(string(content))
	for _, want := range wants {
		if !strings.Contains(got, squash(want)) {
			t.Errorf("%s: expected to contain %q\n---\n%s", path, want, content)
		}
	}
}

func TestRender_Layout(t *testing.T) {
	files, err := New().Render(compilePetstore(t), emitter.RenderOptions{Project: "example.com/petstore", Executable: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{"go.mod", "models.go", "client.go", "pets_api.go", "photos_api.go", "cmd/petstore/main.go"}
	for _, p := range want {
		if _, ok := files[p]; !ok {
			t.Errorf("expected file %s", p)
		}
	}
	if got := string(files["go.mod"]); !strings.HasPrefix(got, "module example.com/petstore\n") {
		t.Errorf("unexpected go.mod:\n%s", got)
	}
	assertContains(t, files, "cmd/petstore/main.go", `client "example.com/petstore"`, "client.NewCombinedClient(baseURL)")
}

func TestRender_OutputIsGofmtClean(t *testing.T) {
	files, err := New().Render(compilePetstore(t), emitter.RenderOptions{Project: "petstore", Executable: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for rel, content := range files {
		if !strings.HasSuffix(rel, ".go") {
			continue
		}
		formatted, err := format.Source(content)
		if err != nil {
			t.Errorf("%s does not parse: %v\n%s", rel, err, content)
			continue
		}
		if !bytes.Equal(formatted, content) {
			t.Errorf("%s is not gofmt-clean", rel)
		}
	}
}

func TestRender_Models(t *testing.T) {
	files, err := New().Render(compilePetstore(t), emitter.RenderOptions{Project: "petstore"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertContains(t, files, "models.go",
		"package petstore",
		"// A pet.\ntype Pet struct {",
		"Id int64 `json:\"id\"`",
		"Name string `json:\"name,omitempty\"`",
		"Labels map[string]string `json:\"labels,omitempty\"`",
		"type ModelClient struct {",
	)
	if strings.Contains(string(files["models.go"]), "\"time\"") {
		t.Errorf("unused time import kept in models.go")
	}
}

func TestRender_GroupAPIs(t *testing.T) {
	files, err := New().Render(compilePetstore(t), emitter.RenderOptions{Project: "petstore"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertContains(t, files, "pets_api.go",
		"type PetsAPI struct {",
		"// List all pets",
		"func (a *PetsAPI) ListPets(ctx context.Context, XTrace string, pageSize *int32, paramType string) ([]Pet, error) {",
		`req := newRequest("GET", "/pets")`,
		`req.addHeader("X-Trace", XTrace)`,
		`req.addQuery("page_size", pageSize)`,
		"if paramType != \"\" {\nreq.addQuery(\"type\", paramType)\n}",
		"// Deprecated:",
		"func (a *PetsAPI) CreatePet(ctx context.Context, body *Pet) error {",
		"req.jsonBody(body)",
		"return a.c.do(ctx, req, nil)",
	)
	assertContains(t, files, "photos_api.go",
		"func (a *PhotosAPI) UploadPhoto(ctx context.Context, file StreamPart, petId int64) error {",
		"req.useForm(true)",
		`req.formValue("file", file)`,
		`req.setPath("petId", petId)`,
		"func (a *PhotosAPI) DownloadPhoto(ctx context.Context, petId int64) (io.ReadCloser, error) {",
		"return a.c.stream(ctx, req)",
	)
}

func TestRender_ClientAggregate(t *testing.T) {
	res := compilePetstore(t)
	files, err := New().Render(res, emitter.RenderOptions{Project: "petstore"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertContains(t, files, "client.go",
		`const DefaultBaseURL = "https://petstore.example.com/v1"`,
		"type CombinedClient struct {",
		"Pets *PetsAPI",
		"Photos: &PhotosAPI{c: c},",
	)

	res.Servers = nil
	files, err = New().Render(res, emitter.RenderOptions{Project: "petstore"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertContains(t, files, "client.go", `const DefaultBaseURL = "url missing!"`)
}

func TestRender_DuplicateOperationNames(t *testing.T) {
	sig := compiler.Signature{Name: "Ping", Method: spec.GET, Path: "/ping", Return: compiler.Void()}
	res := &compiler.Result{Groups: []compiler.Group{{Key: "ops", Name: "Ops", Operations: []compiler.Signature{sig, sig}}}}
	files, err := New().Render(res, emitter.RenderOptions{Project: "ops"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertContains(t, files, "ops_api.go", "func (a *OpsAPI) Ping(", "func (a *OpsAPI) Ping2(")
}

func TestGoType(t *testing.T) {
	optional := compiler.Prim(compiler.PrimFloat64)
	optional.Nullable = true
	cases := []struct {
		in   compiler.TypeExpr
		want string
	}{
		{compiler.Prim(compiler.PrimDateTime), "time.Time"},
		{optional, "*float64"},
		{compiler.Named("Pet"), "*Pet"},
		{compiler.ArrayOf(compiler.Named("Pet")), "[]Pet"},
		{compiler.MapOf(compiler.ArrayOf(compiler.Prim(compiler.PrimInt32))), "map[string][]int32"},
		{compiler.Stream(), "io.Reader"},
		{compiler.TypeExpr{Kind: compiler.TypeStreamPartList}, "[]StreamPart"},
		{compiler.Untyped(), "any"},
	}
	for _, tc := range cases {
		if got := goType(tc.in, true); got != tc.want {
			t.Errorf("goType(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPackageName(t *testing.T) {
	cases := map[string]string{
		"example.com/pet-store": "petstore",
		"apiclient":             "apiclient",
		"example.com/2fa":       "api2fa",
		"type":                  "typeapi",
		"main":                  "mainapi",
		"---":                   "client",
	}
	for in, want := range cases {
		if got := packageName(in); got != want {
			t.Errorf("packageName(%q) = %q, want %q", in, got, want)
		}
	}
}
