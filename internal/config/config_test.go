package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() failed validation: %v", err)
	}
}

func TestLoadFileOverlaysDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("branching: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Branching != 8 {
		t.Fatalf("Branching = %d, want 8", cfg.Branching)
	}
	if cfg.PageSize != Default().PageSize {
		t.Fatalf("PageSize = %d, want default %d", cfg.PageSize, Default().PageSize)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadPageSize(t *testing.T) {
	cfg := Default()
	cfg.PageSize = 1000 // not a power of two
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-power-of-two page size")
	}
}

func TestValidateRejectsOversizedBranching(t *testing.T) {
	cfg := Default()
	cfg.PageSize = 512
	cfg.Branching = 1000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for branching that overflows the page")
	}
}
