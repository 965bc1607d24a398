package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AIAS_MODEL", "AIAS_OLLAMA_URL", "AIAS_EDITOR", "AIAS_LEARNING_RATE", "AIAS_MAX_ITERATIONS"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Model != defaultModel {
		t.Fatalf("expected default model %q, got %q", defaultModel, cfg.Model)
	}
	if cfg.OllamaURL != defaultOllamaURL {
		t.Fatalf("unexpected ollama_url: %s", cfg.OllamaURL)
	}
	if !cfg.Modes.PatchApproval {
		t.Fatalf("expected patch_approval to default to true")
	}
	if cfg.LearningRate != defaultLearningRate {
		t.Fatalf("unexpected learning_rate: %g", cfg.LearningRate)
	}
	if cfg.StateSize != defaultStateSize {
		t.Fatalf("unexpected state_size: %d", cfg.StateSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "model: llama3\nmodes:\n  conversational: true\n")

	cfg, err := Load(&Overrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Model != "llama3" {
		t.Fatalf("expected file model, got %q", cfg.Model)
	}
	if !cfg.Modes.Conversational {
		t.Fatalf("expected conversational mode from file")
	}
	// Keys absent from the file keep their defaults.
	if !cfg.Modes.PatchApproval {
		t.Fatalf("expected patch_approval default to survive partial file")
	}
	if cfg.MaxIterations != defaultMaxIterations {
		t.Fatalf("expected default max_iterations, got %d", cfg.MaxIterations)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "model: from-file\npreferences:\n  editor: vim\n")

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv("AIAS_MODEL", "from-env")
		t.Setenv("AIAS_LEARNING_RATE", "0.01")

		cfg, err := Load(&Overrides{ConfigFile: path})
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Model != "from-env" {
			t.Fatalf("expected env model, got %q", cfg.Model)
		}
		if cfg.LearningRate != 0.01 {
			t.Fatalf("expected env learning rate, got %g", cfg.LearningRate)
		}
		if cfg.Preferences.Editor != "vim" {
			t.Fatalf("expected file editor, got %q", cfg.Preferences.Editor)
		}
	})

	t.Run("flags beat env", func(t *testing.T) {
		t.Setenv("AIAS_MODEL", "from-env")

		model := "from-flag"
		cfg, err := Load(&Overrides{ConfigFile: path, Model: &model})
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Model != "from-flag" {
			t.Fatalf("expected flag model, got %q", cfg.Model)
		}
	})
}

func TestLoadEmptyNumericEnvVars(t *testing.T) {
	// Shells export empty variables all the time; set-but-empty must mean
	// unset, not a parse failure.
	clearEnv(t)
	t.Setenv("AIAS_LEARNING_RATE", "")
	t.Setenv("AIAS_MAX_ITERATIONS", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error for empty numeric env vars: %v", err)
	}
	if cfg.LearningRate != defaultLearningRate {
		t.Fatalf("expected default learning_rate, got %g", cfg.LearningRate)
	}
	if cfg.MaxIterations != defaultMaxIterations {
		t.Fatalf("expected default max_iterations, got %d", cfg.MaxIterations)
	}
}

func TestLoadMalformedNumericEnvVars(t *testing.T) {
	clearEnv(t)

	t.Run("learning rate", func(t *testing.T) {
		t.Setenv("AIAS_LEARNING_RATE", "fast")
		if _, err := Load(nil); err == nil || !strings.Contains(err.Error(), "AIAS_LEARNING_RATE") {
			t.Fatalf("expected AIAS_LEARNING_RATE parse error, got %v", err)
		}
	})

	t.Run("max iterations", func(t *testing.T) {
		t.Setenv("AIAS_MAX_ITERATIONS", "many")
		if _, err := Load(nil); err == nil || !strings.Contains(err.Error(), "AIAS_MAX_ITERATIONS") {
			t.Fatalf("expected AIAS_MAX_ITERATIONS parse error, got %v", err)
		}
	})
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := Load(&Overrides{ConfigFile: path}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist for missing explicit file, got %v", err)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "model: ''\nlearning_rate: -1\n")
	_, err := Load(&Overrides{ConfigFile: path})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "model") || !strings.Contains(err.Error(), "learning_rate") {
		t.Fatalf("expected both findings reported, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty model", func(c *Config) { c.Model = " " }, "model"},
		{"bad scheme", func(c *Config) { c.OllamaURL = "ftp://host" }, "ollama_url"},
		{"missing host", func(c *Config) { c.OllamaURL = "http://" }, "ollama_url"},
		{"extension without dot", func(c *Config) { c.Access.RestrictedExtensions = []string{"exe"} }, "restricted_extensions"},
		{"learning rate too high", func(c *Config) { c.LearningRate = 2 }, "learning_rate"},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, "max_iterations"},
		{"zero state size", func(c *Config) { c.StateSize = 0 }, "state_size"},
		{"zero action size", func(c *Config) { c.ActionSize = 0 }, "action_size"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got: %v", tc.want, err)
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Fatalf("default config should validate, got: %v", err)
		}
	})
}
