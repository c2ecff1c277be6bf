package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/refitgen/internal/emitter"
)

const defaultConfigFile = "refitgen.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample refitgen configuration file",
		Long:  "Scaffold a commented refitgen configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	files := emitter.Files{filepath.Base(absPath): []byte(content)}
	if _, err := emitter.WriteFiles(filepath.Dir(absPath), files, emitter.WriteOptions{}); err != nil {
		var werr *emitter.WriteError
		if errors.As(err, &werr) {
			return wrapUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err), err)
		}
		return err
	}
	newLogger(os.Stderr, cfg.Verbose).Debug("wrote sample config", "path", absPath)
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# refitgen configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Document source: exactly one of url or file.
# url: https://petstore3.swagger.io/api/v3/openapi.json
# file: ./openapi.yaml

# Output directory. Defaults to the current directory.
# output: ./PetStore

# Project name: the C# namespace or the Go module path.
# Defaults to the output directory name.
# project: PetStore

# Target to emit (csharp|go). Defaults to csharp.
# target: csharp

# How operations are split into client interfaces
# (first-tag|most-common-tag|least-common-tag).
# grouping: first-tag

# Drop header parameters from generated signatures.
# ignoreAllHeaders: false
# ignoreHeaders: [Authorization, X-Request-Id]

# Give optional parameters a null default value.
# optionalNullDefault: false

# Affix for properties named like their enclosing type, and whether it is
# appended instead of prepended.
# affix: Prop
# affixSuffix: false

# Fail when two schemas materialize under the same type name.
# strictNames: false

# Remove the output directory before writing.
# force: false

# Emit a runnable program instead of a library.
# executable: false

# Directory with template overrides (same file names as the built-in ones).
# templates: ./templates

# Also write the compiled model as model.json.
# emitModel: false

# Preview planned outputs without writing files.
# dryRun: false

# Fail instead of writing when generated files differ from the output directory.
# check: false

# Continue past document validation errors.
# lenient: false

# Timeout for each HTTP request when loading from url.
# timeout: 10s

# Enable verbose logging.
# verbose: false
`
