package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/phpbc/internal/schema"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "config.json"

// ErrNotFound is wrapped by load errors for a missing configuration file.
var ErrNotFound = errors.New("config file not found")

// Load reads and parses a configuration file without applying defaults.
// Files ending in .yaml or .yml are read as YAML; anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := readJSON(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadAndValidate reads a config file, checks it against the schema,
// applies defaults, validates, and returns warnings. A missing file yields
// the default configuration and a warning.
func LoadAndValidate(path string) (*Config, []string, error) {
	data, err := readJSON(path)
	if errors.Is(err, ErrNotFound) {
		return Default(), []string{fmt.Sprintf("config file %s not found, using defaults", path)}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if err := schema.ValidateConfig(data); err != nil {
		return nil, nil, err
	}

	cfg, unknownWarnings, err := LoadWithWarnings(path, data)
	if err != nil {
		return nil, nil, err
	}

	applyDefaults(cfg)

	validationWarnings, err := Validate(cfg)

	// Combine warnings from both sources.
	allWarnings := make([]string, 0, len(unknownWarnings)+len(validationWarnings))
	allWarnings = append(allWarnings, unknownWarnings...)
	allWarnings = append(allWarnings, validationWarnings...)

	if err != nil {
		return nil, allWarnings, err
	}

	return cfg, allWarnings, nil
}

// readJSON returns the file content as JSON, converting YAML input.
func readJSON(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		return data, nil
	}
}

// yamlToJSON re-encodes a YAML document in the JSON data model so the same
// schema, decoder and unknown-field checks apply to both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML config: %w", err)
	}
	return out, nil
}

// Resolve turns relative working directories, and binaries given as a
// path, into absolute paths against base.
func Resolve(cfg *Config, base string) error {
	for _, side := range []*SideConfig{&cfg.Ctrl, &cfg.Expr} {
		dir, err := absolute(base, side.WorkDir)
		if err != nil {
			return err
		}
		side.WorkDir = dir
		if strings.ContainsRune(side.Binary, '/') || strings.ContainsRune(side.Binary, filepath.Separator) {
			bin, err := absolute(base, side.Binary)
			if err != nil {
				return err
			}
			side.Binary = bin
		}
	}
	return nil
}

func absolute(base, path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Abs(filepath.Join(base, path))
}
