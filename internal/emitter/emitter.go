// Package emitter holds what every output target shares: the in-memory file
// set, the deterministic write plan, template loading and the atomic writer.
// Target packages (csharpemitter, goemitter) only turn a compiled Result
// into Files.
package emitter

import (
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mark3labs/refitgen/internal/compiler"
)

// MissingURL stands in for the base address when the document declares no
// servers.
const MissingURL = "url missing!"

// Files maps slash-separated relative paths to file contents.
type Files map[string][]byte

func (f Files) Add(rel string, content []byte) {
	f[path.Clean(strings.ReplaceAll(rel, "\\", "/"))] = content
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath   string
	Size      int
	Mode      os.FileMode
	Unchanged bool // set by WriteFiles when the file already had this content
}

// Plan lists files in deterministic order.
func Plan(files Files) []PlannedFile {
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}
	return planned
}

// RenderOptions carries the project-level settings every target needs.
type RenderOptions struct {
	Project     string // project, namespace or module name
	Executable  bool   // also emit an entry point
	TemplateDir string // optional directory overriding embedded templates
}

// Target renders a compiled document in one output language.
type Target interface {
	Name() string
	// ReservedWord reports identifiers the language forbids for fields and
	// parameters.
	ReservedWord(ident string) bool
	// ReservedType reports type names the target emits itself.
	ReservedType(name string) bool
	Render(res *compiler.Result, opts RenderOptions) (Files, error)
}

// CombinedName picks the aggregate surface name: "Combined", then
// "Combined1", "Combined2"... until it differs from every group name.
func CombinedName(groups []compiler.Group) string {
	taken := map[string]bool{}
	for _, g := range groups {
		taken[g.Name] = true
	}
	name := "Combined"
	for i := 1; taken[name]; i++ {
		name = "Combined" + strconv.Itoa(i)
	}
	return name
}

// SanitizeIdentifier keeps letters, digits and underscores, replaces
// everything else with '_' and prefixes a leading digit with '_'.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return ""
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "_" + out
	}
	return out
}

// SanitizeModuleName lowercases name and keeps alnum, dash, underscore,
// dot and slash.
func SanitizeModuleName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' || r == '/' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-./")
}

// DeriveProjectName turns a document title into a project name.
func DeriveProjectName(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	parts := strings.Fields(repl.Replace(t))
	return strings.Join(parts, "-")
}
