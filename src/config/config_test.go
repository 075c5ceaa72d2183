package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image.BuilderBase != "docker.io/rust:1.70-bookworm" {
		t.Errorf("BuilderBase = %q", cfg.Image.BuilderBase)
	}
	if cfg.Toolchain.LLVMMajor != 15 {
		t.Errorf("LLVMMajor = %d", cfg.Toolchain.LLVMMajor)
	}
	if !cfg.Scan.Active() {
		t.Error("scan gate should default to active")
	}
	if cfg.Mirrors.Active() {
		t.Error("mirrors should default to unconfigured")
	}
}

func TestLoadOverridesPreserveDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".slipway.yml")
	data := `
image:
  repository: acme/vector
  builder_base: docker.io/rust:1.71-bookworm
mirrors:
  apt: mirror.internal.example
toolchain:
  rust_version: "1.71.0"
scan:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image.Repository != "acme/vector" {
		t.Errorf("Repository = %q", cfg.Image.Repository)
	}
	if cfg.Image.BuilderBase != "docker.io/rust:1.71-bookworm" {
		t.Errorf("BuilderBase = %q", cfg.Image.BuilderBase)
	}
	// untouched keys keep their defaults
	if cfg.Image.RuntimeBase != "docker.io/debian:bookworm-slim" {
		t.Errorf("RuntimeBase = %q", cfg.Image.RuntimeBase)
	}
	if cfg.Toolchain.RustVersion != "1.71.0" {
		t.Errorf("RustVersion = %q", cfg.Toolchain.RustVersion)
	}
	if cfg.Toolchain.LLVMMajor != 15 {
		t.Errorf("LLVMMajor = %d", cfg.Toolchain.LLVMMajor)
	}
	if !cfg.Mirrors.Active() {
		t.Error("apt mirror override should activate mirror config")
	}
	if cfg.Scan.Active() {
		t.Error("scan gate should be disabled")
	}
}
