package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/salahayoub/bonsai/pkg/logging"
)

// TestConfigWatcher_ReloadsLevel verifies a config write changes the log level.
func TestConfigWatcher_ReloadsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	old := logging.Level()
	logging.SetLevel(slog.LevelInfo)
	t.Cleanup(func() { logging.SetLevel(old) })

	w, err := watchConfig(path)
	if err != nil {
		t.Fatalf("watchConfig: %v", err)
	}
	defer w.Close()

	cfg.Log.Level = "debug"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for logging.Level() != slog.LevelDebug {
		if time.Now().After(deadline) {
			t.Fatalf("Expected level debug after reload, got %v", logging.Level())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// TestConfigWatcher_MissingFile verifies a deleted file reloads the default level.
func TestConfigWatcher_MissingFile(t *testing.T) {
	cw := &configWatcher{path: filepath.Join(t.TempDir(), "missing", "config.yaml")}

	old := logging.Level()
	logging.SetLevel(slog.LevelWarn)
	t.Cleanup(func() { logging.SetLevel(old) })

	cw.reload()
	if logging.Level() != slog.LevelInfo {
		t.Errorf("Expected default level info, got %v", logging.Level())
	}
}
