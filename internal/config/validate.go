package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	minWorkers = 1
	maxWorkers = 256
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration for errors and returns warnings for non-fatal issues.
func Validate(cfg *Config) (warnings []string, err error) {
	if err := validateRun(cfg); err != nil {
		return nil, err
	}

	if err := validatePatterns("tests", cfg.Tests); err != nil {
		return nil, err
	}
	if err := validatePatterns("skip", cfg.Skip); err != nil {
		return nil, err
	}

	if err := validateSide("ctrl", cfg.Ctrl); err != nil {
		return nil, err
	}
	if err := validateSide("expr", cfg.Expr); err != nil {
		return nil, err
	}

	if err := validateOutputs(cfg); err != nil {
		return nil, err
	}

	if cfg.Ctrl.WorkDir == cfg.Expr.WorkDir && cfg.Ctrl.Binary == cfg.Expr.Binary {
		warnings = append(warnings, "ctrl and expr use the same binary and working directory; no difference is expected")
	}
	if len(cfg.Outputs) == 0 {
		warnings = append(warnings, "no outputs configured; results are only summarized on the console")
	}

	return warnings, nil
}

func validateRun(cfg *Config) error {
	if cfg.Workers < minWorkers || cfg.Workers > maxWorkers {
		return &ValidationError{
			Field:   "workers",
			Message: fmt.Sprintf("must be between %d and %d", minWorkers, maxWorkers),
		}
	}
	if cfg.Timeout != nil && *cfg.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "must not be negative"}
	}
	if cfg.ContextLines < 0 {
		return &ValidationError{Field: "context_lines", Message: "must not be negative"}
	}
	if cfg.Lookahead < 1 {
		return &ValidationError{Field: "lookahead", Message: "must be positive"}
	}
	if cfg.Runner == "" {
		return &ValidationError{Field: "runner", Message: "is required"}
	}
	return nil
}

func validatePatterns(field string, patterns []string) error {
	for i, p := range patterns {
		if p == "" || !doublestar.ValidatePattern(p) {
			return &ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("invalid glob pattern %q", p),
			}
		}
	}
	return nil
}

func validateSide(name string, side SideConfig) error {
	if side.Binary == "" {
		return &ValidationError{Field: name + ".binary", Message: "is required"}
	}
	if side.WorkDir == "" {
		return &ValidationError{Field: name + ".workdir", Message: "is required"}
	}
	for k := range side.Env {
		if k == "" {
			return &ValidationError{Field: name + ".env", Message: "variable names must not be empty"}
		}
	}
	return nil
}

func validateOutputs(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Outputs))
	for i, out := range cfg.Outputs {
		if err := out.Validate(); err != nil {
			return &ValidationError{Field: fmt.Sprintf("outputs[%d]", i), Message: err.Error()}
		}
		if seen[out.Name] {
			return &ValidationError{
				Field:   fmt.Sprintf("outputs[%d].name", i),
				Message: fmt.Sprintf("duplicate output %q", out.Name),
			}
		}
		seen[out.Name] = true
	}
	return nil
}
