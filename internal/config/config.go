package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultPath is where the assistant expects its configuration file.
const DefaultPath = "aias/config.yaml"

const (
	defaultModel         = "mistral"
	defaultOllamaURL     = "http://localhost:11434"
	defaultLearningRate  = 0.001
	defaultMaxIterations = 2000
	defaultStateSize     = 768
	defaultActionSize    = 8
)

// Config is the typed view of the AIAS configuration document.
type Config struct {
	Model           string          `yaml:"model"`
	OllamaURL       string          `yaml:"ollama_url"`
	Access          Access          `yaml:"access"`
	ScreenAwareness ScreenAwareness `yaml:"screen_awareness"`
	Modes           Modes           `yaml:"modes"`
	Identity        Identity        `yaml:"identity"`
	Preferences     Preferences     `yaml:"preferences"`
	LearningRate    float64         `yaml:"learning_rate"`
	MaxIterations   int             `yaml:"max_iterations"`
	MLAlgorithms    []string        `yaml:"ml_algorithms"`
	AI              map[string]any  `yaml:"ai"`
	StateSize       int             `yaml:"state_size"`
	ActionSize      int             `yaml:"action_size"`
}

// Access describes the filesystem policy the assistant is asked to honour.
type Access struct {
	ReadOnlyPaths        []string `yaml:"read_only_paths"`
	WriteAllowedPaths    []string `yaml:"write_allowed_paths"`
	RestrictedExtensions []string `yaml:"restricted_extensions"`
}

// ScreenAwareness holds the screen capture and OCR feature toggles.
type ScreenAwareness struct {
	Enabled    bool `yaml:"enabled"`
	OCREnabled bool `yaml:"ocr_enabled"`
}

// Modes holds the assistant behaviour toggles.
type Modes struct {
	Conversational bool `yaml:"conversational"`
	PatchApproval  bool `yaml:"patch_approval"`
}

// Identity holds free-form metadata about the assistant instance.
type Identity struct {
	Name     string `yaml:"name"`
	Creator  string `yaml:"creator"`
	RootPath string `yaml:"root_path"`
}

// Preferences holds user-level tool preferences.
type Preferences struct {
	Editor string `yaml:"editor"`
}

// defaultConfig returns a Config with default values. The defaults match the
// values the assistant assumes when a key is absent.
func defaultConfig() Config {
	return Config{
		Model:     defaultModel,
		OllamaURL: defaultOllamaURL,
		Access: Access{
			ReadOnlyPaths:        []string{"C:/"},
			WriteAllowedPaths:    []string{},
			RestrictedExtensions: []string{".exe", ".dll", ".sys"},
		},
		Modes: Modes{
			PatchApproval: true,
		},
		Identity: Identity{
			Name: "AIAS",
		},
		LearningRate:  defaultLearningRate,
		MaxIterations: defaultMaxIterations,
		MLAlgorithms:  []string{"q_learning", "dqn"},
		AI:            map[string]any{},
		StateSize:     defaultStateSize,
		ActionSize:    defaultActionSize,
	}
}

// Default returns a copy of the built-in default configuration.
func Default() Config {
	return cloneConfig(defaultConfig())
}

// Validate checks the configuration and reports every finding as a joined
// error, or nil when the configuration is valid.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}

	if err := validateEndpointURL(c.OllamaURL); err != nil {
		errs = append(errs, fmt.Errorf("ollama_url: %w", err))
	}

	for _, ext := range c.Access.RestrictedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("access.restricted_extensions: %q must start with a dot", ext))
		}
	}

	if c.LearningRate <= 0 || c.LearningRate > 1 {
		errs = append(errs, fmt.Errorf("learning_rate must be in (0, 1], got %g", c.LearningRate))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations))
	}
	if c.StateSize <= 0 {
		errs = append(errs, fmt.Errorf("state_size must be positive, got %d", c.StateSize))
	}
	if c.ActionSize <= 0 {
		errs = append(errs, fmt.Errorf("action_size must be positive, got %d", c.ActionSize))
	}

	return errors.Join(errs...)
}

func validateEndpointURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Access.ReadOnlyPaths = cloneStrings(c.Access.ReadOnlyPaths)
	out.Access.WriteAllowedPaths = cloneStrings(c.Access.WriteAllowedPaths)
	out.Access.RestrictedExtensions = cloneStrings(c.Access.RestrictedExtensions)
	out.MLAlgorithms = cloneStrings(c.MLAlgorithms)
	if c.AI != nil {
		out.AI = make(map[string]any, len(c.AI))
		for k, v := range c.AI {
			out.AI[k] = v
		}
	}
	return out
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
