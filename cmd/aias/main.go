package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aias-labs/aias/internal/application"
	"github.com/aias-labs/aias/internal/config"
	"github.com/aias-labs/aias/internal/logging"
)

func main() {
	app := kingpin.New("aias", "AIAS assistant configuration tool - validates, inspects, and edits the assistant's config file")
	configFile := app.Flag("config", "Path to the AIAS YAML configuration file").Default(config.DefaultPath).String()
	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").Default("info").String()
	modelFlag := app.Flag("model", "Override the configured model").String()
	ollamaURLFlag := app.Flag("ollama-url", "Override the configured Ollama endpoint").String()
	editorFlag := app.Flag("editor", "Override the preferred editor").String()

	validateCmd := app.Command("validate", "Parse the configuration and report every validation finding")

	showCmd := app.Command("show", "Print the effective configuration after merging all sources")
	showFormat := showCmd.Flag("format", "Output format").Default("yaml").Enum("yaml", "json")

	initCmd := app.Command("init", "Write the commented default configuration file")
	initForce := initCmd.Flag("force", "Overwrite an existing file").Bool()

	getCmd := app.Command("get", "Read a value from the configuration document by dotted key path")
	getKey := getCmd.Arg("key", "Dotted key path, e.g. access.restricted_extensions").Required().String()

	setCmd := app.Command("set", "Write a value into the configuration document by dotted key path")
	setKey := setCmd.Arg("key", "Dotted key path, e.g. modes.conversational").Required().String()
	setValue := setCmd.Arg("value", "New value, typed by YAML rules").Required().String()

	pingCmd := app.Command("ping", "Check the configured Ollama endpoint is reachable")

	modelsCmd := app.Command("models", "List models installed on the Ollama server and check the configured one")

	askCmd := app.Command("ask", "Send a one-shot prompt to the configured model")
	askPrompt := askCmd.Arg("prompt", "Prompt text").Required().String()

	watchCmd := app.Command("watch", "Watch the configuration file and reload it on change until interrupted")

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	overrides := &config.Overrides{ConfigFile: *configFile}
	if *modelFlag != "" {
		overrides.Model = modelFlag
	}
	if *ollamaURLFlag != "" {
		overrides.OllamaURL = ollamaURLFlag
	}
	if *editorFlag != "" {
		overrides.Editor = editorFlag
	}

	switch command {
	case initCmd.FullCommand():
		runInit(*configFile, *initForce)
	case getCmd.FullCommand():
		runGet(*configFile, *getKey)
	case setCmd.FullCommand():
		runSet(*configFile, *setKey, *setValue)
	case validateCmd.FullCommand():
		runValidate(overrides)
	case showCmd.FullCommand():
		runShow(overrides, *showFormat)
	case pingCmd.FullCommand():
		runPing(overrides, *logLevel)
	case modelsCmd.FullCommand():
		runModels(overrides, *logLevel)
	case askCmd.FullCommand():
		runAsk(overrides, *logLevel, *askPrompt)
	case watchCmd.FullCommand():
		runWatch(overrides, *logLevel)
	}
}

func runInit(path string, force bool) {
	if err := config.WriteDefault(path, force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			fatalf("%v (use --force to overwrite)", err)
		}
		fatalf("init config: %v", err)
	}
	fmt.Printf("wrote %s\n", path)
}

func runValidate(overrides *config.Overrides) {
	if _, err := config.Load(overrides); err != nil {
		fatalf("invalid configuration:\n%v", err)
	}
	fmt.Println("configuration OK")
}

func runShow(overrides *config.Overrides, format string) {
	cfg, err := config.Load(overrides)
	if err != nil {
		fatalf("load configuration: %v", err)
	}

	out, err := formatConfig(cfg, format)
	if err != nil {
		fatalf("format configuration: %v", err)
	}
	fmt.Print(string(out))
}

func runGet(path, key string) {
	doc, err := config.LoadDocument(path)
	if err != nil {
		fatalf("load %s: %v", path, err)
	}

	value, err := doc.Get(key)
	if err != nil {
		fatalf("get %s: %v", key, err)
	}

	out, err := yaml.Marshal(value)
	if err != nil {
		fatalf("encode value: %v", err)
	}
	fmt.Print(string(out))
}

func runSet(path, key, value string) {
	doc, err := config.LoadDocument(path)
	if err != nil {
		fatalf("load %s (run \"aias init\" to create it): %v", path, err)
	}

	if err := doc.Set(key, value); err != nil {
		fatalf("set %s: %v", key, err)
	}

	// The edited document must still decode to a valid Config.
	cfg := config.Default()
	if err := doc.Decode(&cfg); err != nil {
		fatalf("rejected: %s no longer decodes: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("rejected: change leaves configuration invalid:\n%v", err)
	}

	if err := doc.Save(path); err != nil {
		fatalf("save %s: %v", path, err)
	}
	fmt.Printf("%s = %s\n", key, value)
}

func runPing(overrides *config.Overrides, logLevel string) {
	app, ctx, cleanup := buildApp(overrides, logLevel)
	defer cleanup()

	version, err := app.Ping(ctx)
	if err != nil {
		fatalf("ping: %v", err)
	}
	fmt.Printf("ollama %s at %s\n", version, app.Config().OllamaURL)
}

func runModels(overrides *config.Overrides, logLevel string) {
	app, ctx, cleanup := buildApp(overrides, logLevel)
	defer cleanup()

	status, err := app.CheckModel(ctx)
	if err != nil {
		fatalf("check models: %v", err)
	}

	for _, name := range status.Installed {
		fmt.Println(name)
	}
	if !status.Found {
		fatalf("configured model %q is not installed", status.Configured)
	}
	fmt.Printf("configured model %q is installed\n", status.Configured)
}

func runAsk(overrides *config.Overrides, logLevel, prompt string) {
	app, ctx, cleanup := buildApp(overrides, logLevel)
	defer cleanup()

	_, err := app.Ask(ctx, prompt, func(delta string) {
		fmt.Print(delta)
	})
	if err != nil {
		fatalf("ask: %v", err)
	}
	fmt.Println()
}

func runWatch(overrides *config.Overrides, logLevel string) {
	app, ctx, cleanup := buildApp(overrides, logLevel)
	defer cleanup()

	if err := app.Watch(ctx, overrides); err != nil && !errors.Is(err, context.Canceled) {
		fatalf("watch: %v", err)
	}
}

// buildApp loads configuration, builds the logger, and wires the
// application. The returned context ends on SIGINT/SIGTERM.
func buildApp(overrides *config.Overrides, logLevel string) (*application.App, context.Context, func()) {
	cfg, err := config.Load(overrides)
	if err != nil {
		fatalf("load configuration: %v", err)
	}

	logger, err := logging.New(logLevel)
	if err != nil {
		fatalf("initialize logger: %v", err)
	}

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cleanup := func() {
		stop()
		_ = logger.Sync()
	}
	return app, ctx, cleanup
}

// formatConfig renders the effective configuration as YAML or JSON.
func formatConfig(cfg config.Config, format string) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	if format == "yaml" {
		return data, nil
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("rebuild tree: %w", err)
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode JSON: %w", err)
	}
	return append(out, '\n'), nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
