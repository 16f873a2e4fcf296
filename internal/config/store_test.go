package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadMissingFileReturnsDefaults checks first launch behavior.
func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", cfg)
	}
}

// TestSaveThenLoadRoundTrip checks persistence across store instances.
func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "settings.json")
	store := NewJSONStore(path)

	cfg := DefaultSettings()
	cfg.OutputFolder = "/videos"
	cfg.Resolution = "1920x1080"
	cfg.MaxConcurrent = 4
	cfg.AutoClearOnComplete = true

	if err := store.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("loaded = %+v, want %+v", loaded, cfg)
	}
}

// TestLoadPartialFileKeepsDefaults checks fields absent from an older
// settings file fall back to defaults instead of zero values.
func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"outputFolder": "/videos"}`), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	cfg, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputFolder != "/videos" {
		t.Fatalf("output folder = %q", cfg.OutputFolder)
	}
	defaults := DefaultSettings()
	if cfg.Resolution != defaults.Resolution || cfg.FrameRate != defaults.FrameRate {
		t.Fatalf("settings = %+v, missing fields should keep defaults", cfg)
	}
	if cfg.MaxConcurrent != defaults.MaxConcurrent {
		t.Fatalf("max concurrent = %d, want %d", cfg.MaxConcurrent, defaults.MaxConcurrent)
	}
}

// TestLoadCorruptFileReturnsError checks malformed JSON is an error, not
// silent defaults.
func TestLoadCorruptFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	if _, err := NewJSONStore(path).Load(); err == nil {
		t.Fatal("expected error for corrupt settings file")
	}
}
