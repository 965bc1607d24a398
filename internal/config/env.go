package config

import (
	"fmt"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// envNamespace prefixes every environment override, e.g. AIAS_MODEL.
const envNamespace = "AIAS"

// Numeric overrides are declared as strings because envconfig parses any set
// variable, and an exported-but-empty AIAS_LEARNING_RATE must count as
// unset rather than fail the load.
type envOverrides struct {
	Model         string `envconfig:"MODEL"`
	OllamaURL     string `envconfig:"OLLAMA_URL"`
	Editor        string `envconfig:"EDITOR"`
	LearningRate  string `envconfig:"LEARNING_RATE"`
	MaxIterations string `envconfig:"MAX_ITERATIONS"`
}

// applyEnv applies AIAS_* environment variables on top of cfg. Unset and
// empty variables leave the current values untouched.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envNamespace, &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	if env.Model != "" {
		cfg.Model = env.Model
	}
	if env.OllamaURL != "" {
		cfg.OllamaURL = env.OllamaURL
	}
	if env.Editor != "" {
		cfg.Preferences.Editor = env.Editor
	}

	if env.LearningRate != "" {
		value, err := strconv.ParseFloat(env.LearningRate, 64)
		if err != nil {
			return fmt.Errorf("parse AIAS_LEARNING_RATE: %w", err)
		}
		cfg.LearningRate = value
	}
	if env.MaxIterations != "" {
		value, err := strconv.Atoi(env.MaxIterations)
		if err != nil {
			return fmt.Errorf("parse AIAS_MAX_ITERATIONS: %w", err)
		}
		cfg.MaxIterations = value
	}

	return nil
}
