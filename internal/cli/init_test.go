package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInit_WritesSampleConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path})

	captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("init execute: %v", err)
		}
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "refitgen configuration") {
		t.Fatalf("unexpected config contents: %s", s)
	}
}

// Every commented key in the sample must be accepted by the config loader.
func TestInit_SampleKeysAreKnown(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(sampleConfigYAML, "\n") {
		rest, ok := strings.CutPrefix(line, "# ")
		if !ok {
			continue
		}
		key, _, found := strings.Cut(rest, ":")
		if !found || strings.ContainsAny(key, " ()") {
			continue
		}
		lines = append(lines, rest)
	}
	if len(lines) == 0 {
		t.Fatal("no sample keys found")
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &raw); err != nil {
		t.Fatalf("sample keys do not parse: %v", err)
	}
	path := filepath.Join(t.TempDir(), "all.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := defaultGenerateConfig()
	if err := applyGenerateConfigFromFile(&cfg, path); err != nil {
		t.Fatalf("sample config rejected: %v", err)
	}
	if cfg.Target != "csharp" || cfg.Project != "PetStore" {
		t.Errorf("unexpected values from sample: %+v", cfg)
	}
}

func TestInit_ExistingWithoutForce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for existing file without --force")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path, "--force"})
	captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("init --force: %v", err)
		}
	})
	data, _ := os.ReadFile(path)
	if string(data) == "x" {
		t.Errorf("--force did not overwrite the existing file")
	}
}
