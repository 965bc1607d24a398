package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aias-labs/aias/internal/config"
	"github.com/aias-labs/aias/internal/ollama"
	"github.com/aias-labs/aias/internal/watcher"
)

// Requests per second against the local model server. Generation is slow
// anyway; the throttle only matters for tight polling loops.
const (
	ollamaRateLimitRPS   = 2.0
	ollamaRateLimitBurst = 4
)

// App encapsulates the application dependencies behind the CLI commands.
type App struct {
	cfg    config.Config
	store  *config.Store
	client *ollama.Client
	logger *zap.Logger
}

// New initializes the application with all dependencies from the provided
// configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	client, err := ollama.New(cfg.OllamaURL, cfg.Model,
		ollama.WithThrottle(ollamaRateLimitRPS, ollamaRateLimitBurst),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	return &App{
		cfg:    cfg,
		store:  config.NewStore(cfg),
		client: client,
		logger: logger,
	}, nil
}

// Config returns the effective configuration the app was built from.
func (a *App) Config() config.Config {
	return a.store.Current()
}

// Store returns the live configuration store.
func (a *App) Store() *config.Store {
	return a.store
}

// Ping checks that the Ollama server is reachable and returns its version.
func (a *App) Ping(ctx context.Context) (string, error) {
	version, err := a.client.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("ollama unreachable at %s: %w", a.cfg.OllamaURL, err)
	}
	return version, nil
}

// ModelStatus is the result of checking the configured model against the
// server's inventory.
type ModelStatus struct {
	Configured string
	Installed  []string
	Found      bool
}

// CheckModel lists the models installed on the Ollama server and reports
// whether the configured one is among them.
func (a *App) CheckModel(ctx context.Context) (ModelStatus, error) {
	models, err := a.client.ListModels(ctx)
	if err != nil {
		return ModelStatus{}, fmt.Errorf("list models: %w", err)
	}

	status := ModelStatus{
		Configured: a.cfg.Model,
		Installed:  make([]string, 0, len(models)),
	}
	for _, m := range models {
		status.Installed = append(status.Installed, m.Name)
	}

	status.Found, err = a.client.HasModel(ctx, a.cfg.Model)
	if err != nil {
		return ModelStatus{}, fmt.Errorf("check model: %w", err)
	}
	return status, nil
}

// Ask sends a one-shot generate request to the configured model and returns
// the full response. Deltas stream to onDelta as they arrive.
func (a *App) Ask(ctx context.Context, prompt string, onDelta func(string)) (string, error) {
	reply, err := a.client.Generate(ctx, prompt, onDelta)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return reply, nil
}

// Watch blocks reloading the configuration file into the store until ctx is
// cancelled. The overrides travel into every reload so flag precedence
// survives file changes.
func (a *App) Watch(ctx context.Context, overrides *config.Overrides) error {
	path := config.DefaultPath
	if overrides != nil && overrides.ConfigFile != "" {
		path = overrides.ConfigFile
	}
	return watcher.New(path, a.store, a.logger, watcher.WithOverrides(overrides)).Run(ctx)
}
