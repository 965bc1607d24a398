package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Overrides holds command-line flag overrides.
type Overrides struct {
	ConfigFile string
	Model      *string
	OllamaURL  *string
	Editor     *string
}

// Load resolves the effective configuration with precedence:
// CLI flags > Environment variables > YAML config > Defaults.
//
// A missing file at DefaultPath is not an error (defaults apply); a missing
// file at an explicitly chosen path is.
func Load(overrides *Overrides) (Config, error) {
	cfg := defaultConfig()

	path := DefaultPath
	if overrides != nil && overrides.ConfigFile != "" {
		path = overrides.ConfigFile
	}

	doc, err := LoadDocument(path)
	switch {
	case err == nil:
		if err := doc.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		// No file, defaults apply.
	default:
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil {
		applyOverrides(&cfg, overrides)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDocument parses the YAML document at path, preserving its full
// structure for round-trip serialization.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// applyOverrides applies command-line flag overrides.
func applyOverrides(cfg *Config, overrides *Overrides) {
	if overrides.Model != nil && *overrides.Model != "" {
		cfg.Model = *overrides.Model
	}
	if overrides.OllamaURL != nil && *overrides.OllamaURL != "" {
		cfg.OllamaURL = *overrides.OllamaURL
	}
	if overrides.Editor != nil && *overrides.Editor != "" {
		cfg.Preferences.Editor = *overrides.Editor
	}
}
