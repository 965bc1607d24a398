package logging

import "testing"

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			logger, err := New(level)
			if err != nil {
				t.Fatalf("New(%q) returned error: %v", level, err)
			}
			if logger == nil {
				t.Fatalf("New(%q) returned nil logger", level)
			}
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
