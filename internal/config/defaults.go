package config

import (
	"github.com/AndreyAkinshin/phpbc/internal/diff"
	"github.com/AndreyAkinshin/phpbc/internal/report"
	"github.com/AndreyAkinshin/phpbc/internal/task"
)

// Default configuration values.
const (
	DefaultTimeout     = 30
	DefaultWorkers     = 4
	DefaultBinary      = "php"
	DefaultCtrlWorkDir = "php-src"
	DefaultExprWorkDir = "php-src-expr"
	DefaultJSONOutput  = "phpbc_result.json"
	DefaultMDOutput    = "phpbc_result.md"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(cfg *Config) {
	applyRunDefaults(cfg)
	applySideDefaults(&cfg.Ctrl, DefaultCtrlWorkDir)
	applySideDefaults(&cfg.Expr, DefaultExprWorkDir)
	applyOutputDefaults(cfg)
}

func applyRunDefaults(cfg *Config) {
	if cfg.Timeout == nil {
		timeout := DefaultTimeout
		cfg.Timeout = &timeout
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Lookahead == 0 {
		cfg.Lookahead = diff.DefaultLookahead
	}
	if cfg.Runner == "" {
		cfg.Runner = task.DefaultRunner
	}
}

func applySideDefaults(side *SideConfig, workDir string) {
	if side.Binary == "" {
		side.Binary = DefaultBinary
	}
	if side.WorkDir == "" {
		side.WorkDir = workDir
	}
}

func applyOutputDefaults(cfg *Config) {
	if cfg.Outputs != nil {
		return // an explicit empty list disables reports
	}
	cfg.Outputs = []report.Spec{
		{Type: report.TypeJSON, Name: DefaultJSONOutput, Pretty: true},
		{Type: report.TypeMarkdown, Name: DefaultMDOutput},
	}
}
