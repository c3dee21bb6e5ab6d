package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/acksell/tablekit/dynamodb/ddbui"
	"gopkg.in/yaml.v3"
)

const configFilename = "ddb.yaml"

// Config holds configuration for the ddb serve command.
// Loaded from ddb.yaml if present; flags override it.
type Config struct {
	// Port is the HTTP port for the debug API.
	Port int `yaml:"port"`

	// LogLevel is a zap level name: debug, info, warn or error.
	LogLevel string `yaml:"logLevel"`

	// Table describes the table layout. Omitted fields default to the
	// standard single-table layout.
	Table ddbui.TableSchema `yaml:"table"`

	// Seed is a YAML file of records loaded at startup. Relative paths are
	// resolved against the directory of ddb.yaml.
	Seed string `yaml:"seed"`
}

func defaultConfig() Config {
	return Config{
		Port:     3070,
		LogLevel: "info",
		Table:    ddbui.TableSchema{Name: "local"},
	}
}

// LoadConfig searches for ddb.yaml starting from dir and walking up to the
// filesystem root. Returns the defaults if there is none.
func LoadConfig(dir string) (Config, error) {
	cfg := defaultConfig()

	path := findConfigFile(dir)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Seed != "" && !filepath.IsAbs(cfg.Seed) {
		cfg.Seed = filepath.Join(filepath.Dir(path), cfg.Seed)
	}
	return cfg, nil
}

// findConfigFile searches for ddb.yaml walking up from dir.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, configFilename)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
