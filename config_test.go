package landkeeper

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLandConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "land.yaml")
	content := "defaultTickInterval: 200ms\nactionQueueSize: 64\nlogLevel: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadLandConfig(path)
	if err != nil {
		t.Fatalf("LoadLandConfig: %v", err)
	}
	if cfg.DefaultTickInterval != 200*time.Millisecond {
		t.Fatalf("DefaultTickInterval = %v, want 200ms", cfg.DefaultTickInterval)
	}
	if cfg.ActionQueueSize != 64 {
		t.Fatalf("ActionQueueSize = %d, want 64", cfg.ActionQueueSize)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Fields absent from the file keep their defaults.
	if cfg.RecordingDir != DefaultLandConfig().RecordingDir {
		t.Fatalf("RecordingDir = %q, want default", cfg.RecordingDir)
	}
}

func TestLoadLandConfigUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "land.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadLandConfig(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
