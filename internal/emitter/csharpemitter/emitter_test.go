package csharpemitter

import (
	"errors"
	"os"
	"path/filepath"
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
components:
  schemas:
    Pet:
      type: object
      description: A pet & its <tags>.
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

func render(t *testing.T, res *compiler.Result, opts emitter.RenderOptions) emitter.Files {
	t.Helper()
	files, err := New().Render(res, opts)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return files
}

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
	for _, want := range wants {
		if !strings.Contains(string(content), want) {
			t.Errorf("%s: expected to contain %q\n---\n%s", path, want, content)
		}
	}
}

func TestRender_ProjectLayout(t *testing.T) {
	files := render(t, compilePetstore(t), emitter.RenderOptions{Project: "PetStore"})

	for _, p := range []string{"Models/Pet.cs", "Apis/IPetsApi.cs", "Apis/IPhotosApi.cs", "CombinedClient.cs", "PetStore.csproj"} {
		if _, ok := files[p]; !ok {
			t.Errorf("expected file %s", p)
		}
	}
	if _, ok := files["Program.cs"]; ok {
		t.Errorf("Program.cs should only be emitted for executables")
	}
	assertContains(t, files, "PetStore.csproj", "<OutputType>Library</OutputType>", `<PackageReference Include="Refit"`)
}

func TestRender_Model(t *testing.T) {
	files := render(t, compilePetstore(t), emitter.RenderOptions{Project: "PetStore"})
	assertContains(t, files, "Models/Pet.cs",
		"namespace PetStore.Models",
		"/// A pet &amp; its &lt;tags&gt;.",
		"    public class Pet\n    {\n        [JsonPropertyName(\"id\")]\n        public long Id { get; set; }\n\n",
		"public string Name { get; set; }",
		"public Dictionary<string, string> Labels { get; set; }",
	)
}

func TestRender_Interfaces(t *testing.T) {
	files := render(t, compilePetstore(t), emitter.RenderOptions{Project: "PetStore"})
	assertContains(t, files, "Apis/IPetsApi.cs",
		"using PetStore.Models;",
		"public interface IPetsApi",
		"/// List all pets",
		`[Get("/pets")]`,
		`Task<Pet[]> ListPets([Header("X-Trace")] string XTrace, [Query] [AliasAs("page_size")] int? pageSize);`,
		"[Obsolete]\n        [Post(\"/pets\")]\n        Task CreatePet([Body] Pet body);",
	)
	assertContains(t, files, "Apis/IPhotosApi.cs",
		"[Multipart]\n        [Post(\"/pets/{petId}/photo\")]",
		"Task UploadPhoto(StreamPart file, long petId);",
	)
}

func TestRender_OptionalNullDefault(t *testing.T) {
	res := &compiler.Result{Groups: []compiler.Group{{
		Name: "Search",
		Operations: []compiler.Signature{{
			Name:   "Find",
			Method: spec.GET,
			Path:   "/find",
			Params: []compiler.Param{{
				WireName:    "q",
				Name:        "q",
				Location:    compiler.ParamQuery,
				Type:        compiler.Prim(compiler.PrimString),
				DefaultNull: true,
			}},
			Return: compiler.MapOf(compiler.Untyped()),
		}},
	}}}
	files := render(t, res, emitter.RenderOptions{Project: "Search"})
	assertContains(t, files, "Apis/ISearchApi.cs", "Task<Dictionary<string, object>> Find([Query] string q = null);")
}

func TestRender_QueryObjects(t *testing.T) {
	res := &compiler.Result{Groups: []compiler.Group{{
		Name: "Search",
		Operations: []compiler.Signature{{
			Name:   "Find",
			Method: spec.GET,
			Path:   "/find",
			Params: []compiler.Param{
				{WireName: "ids", Name: "ids", Location: compiler.ParamQuery, Type: compiler.ArrayOf(compiler.Prim(compiler.PrimInt64)), Required: true, QueryObject: true},
				{WireName: "filter", Name: "filter", Location: compiler.ParamQuery, Type: compiler.Named("Filter"), Required: true, QueryObject: true},
				{WireName: "q", Name: "q", Location: compiler.ParamQuery, Type: compiler.Prim(compiler.PrimString), Required: true},
			},
			Return: compiler.MapOf(compiler.Untyped()),
		}},
	}}}
	files := render(t, res, emitter.RenderOptions{Project: "Search"})
	assertContains(t, files, "Apis/ISearchApi.cs",
		"Find([Query(CollectionFormat.Multi)] long[] ids, [Query] Filter filter, [Query] string q);")
}

func TestRender_ClientAndProgram(t *testing.T) {
	res := compilePetstore(t)
	files := render(t, res, emitter.RenderOptions{Project: "PetStore", Executable: true})

	assertContains(t, files, "CombinedClient.cs",
		"public class CombinedClient",
		"PetsApi = RestService.For<IPetsApi>(httpClient);",
		"public IPhotosApi PhotosApi { get; }",
	)
	assertContains(t, files, "PetStore.csproj", "<OutputType>Exe</OutputType>")
	assertContains(t, files, "Program.cs", `"https://petstore.example.com/v1"`, "new CombinedClient(")

	res.Servers = nil
	files = render(t, res, emitter.RenderOptions{Project: "PetStore", Executable: true})
	assertContains(t, files, "Program.cs", `"url missing!"`)
}

func TestRender_CombinedNameAvoidsGroups(t *testing.T) {
	res := &compiler.Result{Groups: []compiler.Group{{Name: "Combined"}}}
	files := render(t, res, emitter.RenderOptions{Project: "X"})
	assertContains(t, files, "Combined1Client.cs", "public ICombinedApi CombinedApi { get; }")
}

func TestRender_TemplateOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.cs.tmpl"), []byte("// {{.Name}} in {{.Namespace}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	files := render(t, compilePetstore(t), emitter.RenderOptions{Project: "PetStore", TemplateDir: dir})
	if got := string(files["Models/Pet.cs"]); got != "// Pet in PetStore\n" {
		t.Errorf("override not applied: %q", got)
	}
	assertContains(t, files, "Apis/IPetsApi.cs", "public interface IPetsApi")

	if err := os.WriteFile(filepath.Join(dir, "client.cs.tmpl"), []byte("{{ .Nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New().Render(compilePetstore(t), emitter.RenderOptions{Project: "PetStore", TemplateDir: dir})
	var terr *emitter.TemplateError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TemplateError, got %v", err)
	}
}

func TestTypeName(t *testing.T) {
	nullableInt := compiler.Prim(compiler.PrimInt32)
	nullableInt.Nullable = true
	nullableString := compiler.Prim(compiler.PrimString)
	nullableString.Nullable = true

	cases := []struct {
		in   compiler.TypeExpr
		want string
	}{
		{compiler.Prim(compiler.PrimDateTime), "DateTime"},
		{compiler.Prim(compiler.PrimFloat32), "float"},
		{nullableInt, "int?"},
		{nullableString, "string"},
		{compiler.ArrayOf(compiler.ArrayOf(compiler.Named("Pet"))), "Pet[][]"},
		{compiler.MapOf(compiler.ArrayOf(compiler.Prim(compiler.PrimBool))), "Dictionary<string, bool[]>"},
		{compiler.Stream(), "Stream"},
		{compiler.TypeExpr{Kind: compiler.TypeStreamPartList}, "IEnumerable<StreamPart>"},
		{compiler.Untyped(), "object"},
	}
	for _, tc := range cases {
		if got := typeName(tc.in); got != tc.want {
			t.Errorf("typeName(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReservedWords(t *testing.T) {
	target := New()
	if !target.ReservedWord("class") || target.ReservedWord("Class") {
		t.Errorf("keyword set should be case-sensitive")
	}
	if !target.ReservedType("StreamPart") || target.ReservedType("Pet") {
		t.Errorf("unexpected reserved type answers")
	}
}
