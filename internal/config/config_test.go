package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load() with missing file = %+v, want defaults %+v", cfg, Defaults())
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "lock_timeout_minutes: 15\nclipboard_ttl_seconds: 10\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LockTimeoutMinutes != 15 {
		t.Errorf("LockTimeoutMinutes = %d, want 15", cfg.LockTimeoutMinutes)
	}
	if cfg.ClipboardTTLSeconds != 10 {
		t.Errorf("ClipboardTTLSeconds = %d, want 10", cfg.ClipboardTTLSeconds)
	}
	// Untouched fields keep their defaults
	if cfg.KDFIterations != Defaults().KDFIterations {
		t.Errorf("KDFIterations = %d, want default %d", cfg.KDFIterations, Defaults().KDFIterations)
	}
}

func TestLoadRejectsWeakPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("kdf_iterations: 1000\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject a KDF iteration count below the floor")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject malformed YAML")
	}
}
