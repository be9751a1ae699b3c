package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != "8085" {
		t.Errorf("Port = %q, want 8085", cfg.Port)
	}
	if cfg.ImagesDir != "images" {
		t.Errorf("ImagesDir = %q, want images", cfg.ImagesDir)
	}
	if cfg.Browser.WindowWidth != 2000 || cfg.Browser.WindowHeight != 6000 {
		t.Errorf("window = %dx%d, want 2000x6000", cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
	}
	if len(cfg.CustomSites) == 0 {
		t.Error("expected seeded custom sites")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
port: "9000"
images_dir: /tmp/captures
browser:
  remote: ws://chrome:9222
  window_width: 1280
custom_sites:
  1: https://example.org
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.ImagesDir != "/tmp/captures" {
		t.Errorf("ImagesDir = %q", cfg.ImagesDir)
	}
	if cfg.Browser.Remote != "ws://chrome:9222" {
		t.Errorf("Browser.Remote = %q", cfg.Browser.Remote)
	}
	if cfg.Browser.WindowWidth != 1280 {
		t.Errorf("WindowWidth = %d, want 1280", cfg.Browser.WindowWidth)
	}
	// Unset fields still get defaults.
	if cfg.Browser.WindowHeight != 6000 {
		t.Errorf("WindowHeight = %d, want default 6000", cfg.Browser.WindowHeight)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
	if url := cfg.CustomSites[1]; url != "https://example.org" {
		t.Errorf("CustomSites[1] = %q", url)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
