package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// ErrConfigExists indicates an init would overwrite an existing file.
var ErrConfigExists = errors.New("config file already exists")

// defaultDocument is the commented configuration written by "aias init".
// Its values must agree with defaultConfig.
const defaultDocument = `# AIAS assistant configuration.

# Model served by the local Ollama instance.
model: mistral
ollama_url: http://localhost:11434

# Filesystem policy the assistant is asked to honour.
access:
  read_only_paths:
    - "C:/"
  write_allowed_paths: []
  restricted_extensions:
    - .exe
    - .dll
    - .sys

# Screen capture and OCR toggles.
screen_awareness:
  enabled: false
  ocr_enabled: false

modes:
  conversational: false
  patch_approval: true

identity:
  name: AIAS
  creator: ""
  root_path: ""

preferences:
  editor: ""

# Training parameters, consumed by the RL tooling rather than this tool.
learning_rate: 0.001
max_iterations: 2000
ml_algorithms:
  - q_learning
  - dqn

# Uninterpreted assistant metadata.
ai: {}

state_size: 768
action_size: 8
`

// Save writes the document to path atomically: the data reaches a temporary
// file first, is fsynced, and then replaces the target in a single rename.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteDefault writes the commented default configuration to path. It
// refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	return writeAtomic(path, []byte(defaultDocument))
}

func writeAtomic(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
