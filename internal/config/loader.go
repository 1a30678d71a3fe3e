package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the config file at path. JSON and JSON5 parse with
// the json5 decoder; anything else is treated as YAML. $VAR references in
// the raw text are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes config bytes, using pathHint's extension to pick the format.
func Parse(data []byte, pathHint string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	switch strings.ToLower(filepath.Ext(pathHint)) {
	case ".json", ".json5":
		if err := json5.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and returns an empty config when
// it does not. Parse failures are still errors; a broken config must not
// silently degrade to defaults at startup.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return &Config{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}
	return Load(path)
}

// DefaultPath returns the conventional config location under the state dir.
func DefaultPath(stateDir string) string {
	return filepath.Join(stateDir, "config.json")
}
