package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AndreyAkinshin/phpbc/internal/report"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidMinimal(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"workers": 8}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Ctrl.Binary != "" {
		t.Errorf("Load() must not apply defaults, Ctrl.Binary = %q", cfg.Ctrl.Binary)
	}
}

func TestLoad_ValidFull(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"tests": ["Zend/tests/**"],
		"skip": ["ext/standard/tests/network/*"],
		"timeout": 60,
		"workers": 2,
		"context_lines": 3,
		"lookahead": 5,
		"outputs": ["out.json", {"type": "markdown", "name": "out.md", "sames": true}],
		"ctrl": {"binary": "sapi/cli/php", "workdir": "/src/a", "args": ["-d", "x=1"], "env": {"A": "1"}},
		"expr": {"binary": "sapi/cli/php", "workdir": "/src/b"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Tests) != 1 || cfg.Tests[0] != "Zend/tests/**" {
		t.Errorf("Tests = %v", cfg.Tests)
	}
	if cfg.TimeoutDuration() != time.Minute {
		t.Errorf("TimeoutDuration() = %v, want 1m", cfg.TimeoutDuration())
	}
	if cfg.ContextLines != 3 || cfg.Lookahead != 5 {
		t.Errorf("ContextLines, Lookahead = %d, %d", cfg.ContextLines, cfg.Lookahead)
	}
	if len(cfg.Outputs) != 2 {
		t.Fatalf("len(Outputs) = %d, want 2", len(cfg.Outputs))
	}
	if cfg.Outputs[0].Type != report.TypeJSON {
		t.Errorf("Outputs[0].Type = %q, want json", cfg.Outputs[0].Type)
	}
	if !cfg.Outputs[1].Sames {
		t.Error("Outputs[1].Sames = false, want true")
	}
	if cfg.Ctrl.Env["A"] != "1" {
		t.Errorf("Ctrl.Env = %v", cfg.Ctrl.Env)
	}
	if cfg.Expr.WorkDir != "/src/b" {
		t.Errorf("Expr.WorkDir = %q", cfg.Expr.WorkDir)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "phpbc.yaml", `
workers: 3
tests:
  - "Zend/**"
ctrl:
  workdir: php-a
outputs:
  - result.html
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.Ctrl.WorkDir != "php-a" {
		t.Errorf("Ctrl.WorkDir = %q, want php-a", cfg.Ctrl.WorkDir)
	}
	if len(cfg.Outputs) != 1 || cfg.Outputs[0].Type != report.TypeHTML {
		t.Errorf("Outputs = %+v", cfg.Outputs)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("error = %q, want to contain file path", err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"workers": }`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid JSON")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yml", "workers: [1, 2\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestLoadAndValidate_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, warnings, err := LoadAndValidate(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "not found") {
		t.Errorf("warnings = %v, want one not-found warning", warnings)
	}
}

func TestLoadAndValidate_AppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"expr": {"binary": "/opt/php/bin/php"}}`)

	cfg, _, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg.TimeoutDuration() != DefaultTimeout*time.Second {
		t.Errorf("TimeoutDuration() = %v", cfg.TimeoutDuration())
	}
	if cfg.Ctrl.Binary != DefaultBinary {
		t.Errorf("Ctrl.Binary = %q, want %q", cfg.Ctrl.Binary, DefaultBinary)
	}
	if cfg.Expr.Binary != "/opt/php/bin/php" {
		t.Errorf("Expr.Binary = %q", cfg.Expr.Binary)
	}
	if cfg.Ctrl.WorkDir != DefaultCtrlWorkDir || cfg.Expr.WorkDir != DefaultExprWorkDir {
		t.Errorf("workdirs = %q, %q", cfg.Ctrl.WorkDir, cfg.Expr.WorkDir)
	}
	if len(cfg.Outputs) != 2 || cfg.Outputs[0].Name != DefaultJSONOutput || !cfg.Outputs[0].Pretty {
		t.Errorf("Outputs = %+v", cfg.Outputs)
	}
}

func TestLoadAndValidate_ZeroTimeoutKept(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"timeout": 0}`)

	cfg, _, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg.TimeoutDuration() != 0 {
		t.Errorf("TimeoutDuration() = %v, want 0", cfg.TimeoutDuration())
	}
}

func TestLoadAndValidate_EmptyOutputsDisablesReports(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"outputs": []}`)

	cfg, warnings, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if len(cfg.Outputs) != 0 {
		t.Errorf("Outputs = %+v, want none", cfg.Outputs)
	}
	if !containsWarning(warnings, "no outputs") {
		t.Errorf("warnings = %v, want no-outputs warning", warnings)
	}
}

func TestLoadAndValidate_SchemaError(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"workers": "four"}`)
	if _, _, err := LoadAndValidate(path); err == nil {
		t.Fatal("LoadAndValidate() expected schema error")
	}
}

func TestLoadAndValidate_ValidationError(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"tests": ["[abc"]}`)

	_, _, err := LoadAndValidate(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if ve.Field != "tests[0]" {
		t.Errorf("Field = %q, want tests[0]", ve.Field)
	}
}

func TestLoadAndValidate_UnknownFieldWarning(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"patches": ["a.patch"]}`)

	_, warnings, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if !containsWarning(warnings, `"patches"`) {
		t.Errorf("warnings = %v, want patches warning", warnings)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Ctrl.Binary = "sapi/cli/php"
	cfg.Expr.WorkDir = "/abs/expr"

	if err := Resolve(cfg, "/base"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ctrl workdir", cfg.Ctrl.WorkDir, filepath.Join("/base", DefaultCtrlWorkDir)},
		{"expr workdir", cfg.Expr.WorkDir, "/abs/expr"},
		{"ctrl binary path", cfg.Ctrl.Binary, "/base/sapi/cli/php"},
		{"expr binary on PATH", cfg.Expr.Binary, DefaultBinary},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestDiffOptions(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.ContextLines = 2

	opts := cfg.DiffOptions()
	if opts.ContextLines != 2 {
		t.Errorf("ContextLines = %d, want 2", opts.ContextLines)
	}
	if opts.Lookahead != cfg.Lookahead {
		t.Errorf("Lookahead = %d, want %d", opts.Lookahead, cfg.Lookahead)
	}
}

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
