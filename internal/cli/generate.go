package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/refitgen/internal/compiler"
	"github.com/mark3labs/refitgen/internal/emitter"
	"github.com/mark3labs/refitgen/internal/emitter/csharpemitter"
	"github.com/mark3labs/refitgen/internal/emitter/goemitter"
	"github.com/mark3labs/refitgen/internal/grouping"
	"github.com/mark3labs/refitgen/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	URL     string
	File    string
	Output  string
	Project string
	Target  string

	Grouping            string
	IgnoreAllHeaders    bool
	IgnoredHeaders      []string
	OptionalNullDefault bool
	Affix               string
	AffixSuffix         bool
	StrictNames         bool

	Force      bool
	Executable bool
	Templates  string
	EmitModel  bool
	DryRun     bool
	Check      bool

	Lenient bool
	Timeout time.Duration

	ConfigPath string
	Verbose    bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Output:   ".",
		Target:   "csharp",
		Grouping: string(grouping.FirstTag),
		Affix:    compiler.DefaultAffix,
		Timeout:  spec.DefaultSettings().HTTPTimeout,
	}
}

// targets lists the emitters generate can render with.
var targets = map[string]emitter.Target{
	csharpemitter.New().Name(): csharpemitter.New(),
	goemitter.New().Name():     goemitter.New(),
}

func targetNames() string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a typed client from a Swagger/OpenAPI document",
		Long: "Generate typed client bindings from a Swagger 2.0 or OpenAPI 3.x document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  refitgen generate --file petstore.yaml --output ./PetStore
  refitgen generate -u https://petstore3.swagger.io/api/v3/openapi.json --target go -p example.com/petstore
  refitgen --config refitgen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("url", "u", "", "URL of the Swagger/OpenAPI document")
	flags.StringP("file", "f", "", "Path to a local Swagger/OpenAPI document")
	flags.StringP("output", "o", "", "Output directory (defaults to the current directory)")
	flags.StringP("project", "p", "", "Project name; the C# namespace or Go module path (defaults to the output directory name)")
	flags.String("target", "", "Target to emit ("+targetNames()+"); defaults to csharp")
	flags.String("grouping", "", "Grouping strategy (first-tag|most-common-tag|least-common-tag)")
	flags.Bool("ignore-all-headers", false, "Drop every header parameter from generated signatures")
	flags.StringSlice("ignore-headers", nil, "Header names to drop from generated signatures (case-insensitive)")
	flags.Bool("optional-null-default", false, "Give optional parameters a null default value")
	flags.String("affix", "", "Affix for properties named like their enclosing type (default \"Prop\")")
	flags.Bool("affix-suffix", false, "Append the affix instead of prepending it")
	flags.BoolP("force", "r", false, "Remove the output directory before writing")
	flags.Bool("executable", false, "Emit a runnable program instead of a library")
	flags.Bool("strict-names", false, "Fail when two schemas materialize under the same type name")
	flags.String("templates", "", "Directory with template overrides")
	flags.Bool("emit-model", false, "Also write the compiled model as model.json")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("check", false, "Fail when the output directory differs from what would be generated")
	flags.Bool("lenient", false, "Continue past document validation errors")
	flags.Duration("timeout", 0, "Timeout for each HTTP request when loading from --url")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"output":    &cfg.Output,
		"project":   &cfg.Project,
		"target":    &cfg.Target,
		"grouping":  &cfg.Grouping,
		"affix":     &cfg.Affix,
		"templates": &cfg.Templates,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	// A source given on the command line replaces whichever source the
	// config file named.
	if flags.Changed("url") || flags.Changed("file") {
		cfg.URL, cfg.File = "", ""
		for name, dst := range map[string]*string{"url": &cfg.URL, "file": &cfg.File} {
			if !flags.Changed(name) {
				continue
			}
			value, err := flags.GetString(name)
			if err != nil {
				return err
			}
			*dst = strings.TrimSpace(value)
		}
	}

	bools := map[string]*bool{
		"ignore-all-headers":    &cfg.IgnoreAllHeaders,
		"optional-null-default": &cfg.OptionalNullDefault,
		"affix-suffix":          &cfg.AffixSuffix,
		"force":                 &cfg.Force,
		"executable":            &cfg.Executable,
		"strict-names":          &cfg.StrictNames,
		"emit-model":            &cfg.EmitModel,
		"dry-run":               &cfg.DryRun,
		"check":                 &cfg.Check,
		"lenient":               &cfg.Lenient,
		"verbose":               &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("ignore-headers") {
		value, err := flags.GetStringSlice("ignore-headers")
		if err != nil {
			return err
		}
		cfg.IgnoredHeaders = sanitizeList(value)
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.File = strings.TrimSpace(c.File)
	c.Output = strings.TrimSpace(c.Output)
	if c.Output == "" {
		c.Output = "."
	}
	c.Project = strings.TrimSpace(c.Project)
	if c.Project == "" {
		if abs, err := filepath.Abs(c.Output); err == nil {
			c.Project = filepath.Base(abs)
		}
	}
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
	c.Grouping = strings.TrimSpace(c.Grouping)
	if c.Grouping == "" {
		c.Grouping = string(grouping.FirstTag)
	}
	c.Affix = strings.TrimSpace(c.Affix)
	c.Templates = strings.TrimSpace(c.Templates)
	c.IgnoredHeaders = sanitizeList(c.IgnoredHeaders)
}

func (c *GenerateConfig) validate() error {
	switch {
	case c.URL == "" && c.File == "":
		return newUsageError("generate: one of --url or --file is required (set via flag or config file)")
	case c.URL != "" && c.File != "":
		return newUsageError("generate: --url and --file are mutually exclusive")
	}

	if c.Target == "" {
		c.Target = "csharp"
	}
	if _, ok := targets[c.Target]; !ok {
		return newUsageError(fmt.Sprintf("generate: unsupported --target %q (allowed: %s)", c.Target, targetNames()))
	}

	strategy, err := grouping.ParseStrategy(c.Grouping)
	if err != nil {
		return wrapUsageError(fmt.Sprintf("generate: %v", err), err)
	}
	c.Grouping = string(strategy)

	if c.Check && c.Force {
		return newUsageError("generate: --check cannot be combined with --force")
	}
	if c.Check && c.DryRun {
		return newUsageError("generate: --check cannot be combined with --dry-run")
	}
	if c.Timeout < 0 {
		return newUsageError("generate: --timeout must not be negative")
	}

	return nil
}

func (c *GenerateConfig) source() string {
	if c.URL != "" {
		return c.URL
	}
	return c.File
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(os.Stderr, cfg.Verbose)
	target := targets[cfg.Target]

	// 1) Load the document (file or http/https URL), converting Swagger 2.0
	opts := []spec.Option{
		spec.WithLogger(logger),
		spec.WithLenientValidation(cfg.Lenient),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, spec.WithHTTPTimeout(cfg.Timeout))
	}
	src, err := spec.Load(ctx, cfg.source(), opts...)
	if err != nil {
		return specUsageError(err)
	}

	// 2) Normalize into the schema graph and compile signatures
	doc, err := spec.Build(src)
	if err != nil {
		return specUsageError(err)
	}
	position := compiler.AffixPrefix
	if cfg.AffixSuffix {
		position = compiler.AffixSuffix
	}
	res, err := compiler.Compile(doc, compiler.Options{
		Grouping:            grouping.Strategy(cfg.Grouping),
		IgnoreAllHeaders:    cfg.IgnoreAllHeaders,
		IgnoredHeaders:      cfg.IgnoredHeaders,
		OptionalNullDefault: cfg.OptionalNullDefault,
		Affix:               cfg.Affix,
		AffixPosition:       position,
		StrictNames:         cfg.StrictNames,
		Reserved:            target.ReservedWord,
		ReservedTypes:       target.ReservedType,
		Logger:              logger,
	})
	if err != nil {
		var collision *compiler.NameCollisionError
		if errors.Is(err, compiler.ErrConfiguration) || errors.As(err, &collision) {
			return wrapUsageError(err.Error(), err)
		}
		return fmt.Errorf("compile: %w", err)
	}
	logger.Debug("compiled document",
		"title", res.Title,
		"types", len(res.Types),
		"aliases", len(res.Aliases),
		"groups", len(res.Groups))

	// 3) Render the target
	files, err := target.Render(res, emitter.RenderOptions{
		Project:     cfg.Project,
		Executable:  cfg.Executable,
		TemplateDir: cfg.Templates,
	})
	if err != nil {
		var terr *emitter.TemplateError
		if errors.As(err, &terr) {
			return wrapUsageError(err.Error(), err)
		}
		return fmt.Errorf("render: %w", err)
	}
	if cfg.EmitModel {
		model, err := emitter.DumpModel(res)
		if err != nil {
			return fmt.Errorf("dump model: %w", err)
		}
		files.Add(emitter.ModelFile, model)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	absOut := cfg.Output
	if ap, err := filepath.Abs(cfg.Output); err == nil {
		absOut = ap
	}

	// 4) Preview, verify or write
	if cfg.DryRun {
		planned := emitter.Plan(files)
		paths := make([]string, 0, len(planned))
		for _, p := range planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, len(paths), paths)
		return nil
	}

	planned, err := emitter.WriteFiles(absOut, files, emitter.WriteOptions{Force: cfg.Force, Check: cfg.Check})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.Check {
		fmt.Fprintf(os.Stdout, "%s is up to date (%d files)\n", absOut, len(planned))
		return nil
	}
	written := 0
	for _, p := range planned {
		if !p.Unchanged {
			written++
		}
	}
	logger.Info("generated client", "target", cfg.Target, "output", absOut, "files", len(planned), "written", written)
	return nil
}

// specUsageError maps structured loader errors into friendly messages.
func specUsageError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return wrapUsageError(msg, err)
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	var werr *emitter.WriteError
	var cerr *emitter.CheckError
	switch {
	case errors.As(err, &cerr):
		return fmt.Errorf("%s is out of date: %w", outDir, err)
	case errors.Is(err, emitter.ErrUnsafeRemoval):
		return wrapUsageError(fmt.Sprintf("could not write to destination %s: %v\nHint: choose a dedicated --output directory when using --force.", outDir, err), err)
	case errors.As(err, &werr):
		return wrapUsageError(fmt.Sprintf("could not write to destination %s: %v", outDir, err), err)
	}
	return err
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"url":       &cfg.URL,
		"file":      &cfg.File,
		"output":    &cfg.Output,
		"project":   &cfg.Project,
		"target":    &cfg.Target,
		"grouping":  &cfg.Grouping,
		"affix":     &cfg.Affix,
		"templates": &cfg.Templates,
	}
	bools := map[string]*bool{
		"ignoreallheaders":    &cfg.IgnoreAllHeaders,
		"optionalnulldefault": &cfg.OptionalNullDefault,
		"affixsuffix":         &cfg.AffixSuffix,
		"force":               &cfg.Force,
		"executable":          &cfg.Executable,
		"strictnames":         &cfg.StrictNames,
		"emitmodel":           &cfg.EmitModel,
		"dryrun":              &cfg.DryRun,
		"check":               &cfg.Check,
		"lenient":             &cfg.Lenient,
		"verbose":             &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		switch normalized {
		case "ignoreheaders":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.IgnoredHeaders = sanitizeList(list)
		case "timeout":
			d, err := valueAsDuration(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Timeout = d
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// valueAsDuration accepts Go duration strings ("30s") or a bare number of
// seconds.
func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
