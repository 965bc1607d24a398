package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/aias-labs/aias/internal/config"
)

func newApp(t *testing.T, handler http.Handler) *App {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.OllamaURL = server.URL

	app, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return app
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.OllamaURL = "not a url"

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for malformed endpoint")
	}
}

func TestCheckModel(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		app := newApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest"}]}`))
		}))

		status, err := app.CheckModel(context.Background())
		if err != nil {
			t.Fatalf("CheckModel returned error: %v", err)
		}
		if !status.Found {
			t.Fatalf("expected configured model to be found, status: %+v", status)
		}
		if len(status.Installed) != 1 || status.Installed[0] != "mistral:latest" {
			t.Fatalf("unexpected inventory: %v", status.Installed)
		}
	})

	t.Run("missing", func(t *testing.T) {
		app := newApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:8b"}]}`))
		}))

		status, err := app.CheckModel(context.Background())
		if err != nil {
			t.Fatalf("CheckModel returned error: %v", err)
		}
		if status.Found {
			t.Fatalf("did not expect configured model in inventory: %+v", status)
		}
	})
}

func TestPing(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		app := newApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/version" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(`{"version":"0.5.1"}`))
		}))

		version, err := app.Ping(context.Background())
		if err != nil {
			t.Fatalf("Ping returned error: %v", err)
		}
		if version != "0.5.1" {
			t.Fatalf("unexpected version: %q", version)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		app := newApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down for maintenance", http.StatusBadGateway)
		}))

		if _, err := app.Ping(context.Background()); err == nil {
			t.Fatalf("expected error from unreachable server")
		}
	})
}

func TestAsk(t *testing.T) {
	app := newApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"response":"4","done":true}` + "\n"))
	}))

	reply, err := app.Ask(context.Background(), "2+2?", nil)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if reply != "4" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestConfigSnapshot(t *testing.T) {
	app := newApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	cfg := app.Config()
	if cfg.Model != config.Default().Model {
		t.Fatalf("unexpected model in snapshot: %q", cfg.Model)
	}

	next := cfg
	next.Model = "llama3"
	app.Store().Replace(next)
	if got := app.Config().Model; got != "llama3" {
		t.Fatalf("expected store replacement to be visible, got %q", got)
	}
}
