// Package config provides configuration loading and validation for phpbc.
package config

import (
	"time"

	"github.com/AndreyAkinshin/phpbc/internal/diff"
	"github.com/AndreyAkinshin/phpbc/internal/report"
)

// Config represents the complete phpbc configuration.
type Config struct {
	// Tests are doublestar globs selecting test files, relative to the
	// control working directory. Empty means every test.
	Tests []string `json:"tests,omitempty"`
	// Skip are doublestar globs removing test files after Tests applied.
	Skip []string `json:"skip,omitempty"`
	// Timeout is the per-test timeout in seconds passed to run-tests.php.
	Timeout *int `json:"timeout,omitempty"`
	// Workers is the number of run-tests.php processes running at once.
	Workers int `json:"workers,omitempty"`
	// ContextLines is the number of unchanged lines printed around edits.
	ContextLines int `json:"context_lines,omitempty"`
	// Lookahead is the diff realignment budget.
	Lookahead int `json:"lookahead,omitempty"`
	// Runner is the test runner script relative to each working directory.
	Runner string `json:"runner,omitempty"`
	// Outputs are the report files to write.
	Outputs []report.Spec `json:"outputs,omitempty"`

	Ctrl SideConfig `json:"ctrl"`
	Expr SideConfig `json:"expr"`
}

// SideConfig configures the control or the experiment side.
type SideConfig struct {
	Binary  string            `json:"binary,omitempty"`
	Args    []string          `json:"args,omitempty"`
	WorkDir string            `json:"workdir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// TimeoutDuration returns the per-test timeout.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == nil {
		return DefaultTimeout * time.Second
	}
	return time.Duration(*c.Timeout) * time.Second
}

// DiffOptions returns the options used to render output differences.
func (c *Config) DiffOptions() diff.Options {
	return diff.Options{
		Lookahead:    c.Lookahead,
		ContextLines: c.ContextLines,
	}
}
