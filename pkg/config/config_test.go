package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/providers/homebrew"
	"github.com/rsdeploy/rsd/pkg/providers/pipx"
)

func TestDefaultConfigCarriesBuiltins(t *testing.T) {
	cfg := Default()
	if !cfg.Providers[homebrew.Type].Builtin {
		t.Errorf("expected the homebrew builtin")
	}
	if !cfg.Providers[pipx.Type].Builtin {
		t.Errorf("expected the pipx builtin")
	}
}

func TestBuildRegistryRegistersBuiltins(t *testing.T) {
	registry, err := BuildRegistry(Default(), providers.ExecRunner{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, id := range []string{homebrew.Type, pipx.Type} {
		provider, err := registry.Get(id)
		if err != nil {
			t.Fatalf("expected %s registered: %v", id, err)
		}
		if provider.Type() != id {
			t.Errorf("provider id mismatch: %s", provider.Type())
		}
	}
}

func TestBuildRegistryWiresExternalProviders(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.yaml")
	content := `
type: team.dotfiles
elements:
  - name: files
    kind: set
`
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg := Default()
	cfg.Providers["team.dotfiles"] = ProviderSpec{
		Command:  "/usr/local/bin/rsd-dotfiles",
		Manifest: manifest,
	}
	registry, err := BuildRegistry(cfg, providers.ExecRunner{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	provider, err := registry.Get("team.dotfiles")
	if err != nil {
		t.Fatalf("expected the external provider registered: %v", err)
	}
	if provider.Schema().Type != "team.dotfiles" {
		t.Errorf("manifest schema not attached: %+v", provider.Schema())
	}
}

func TestBuildRegistryRejectsUnknownBuiltin(t *testing.T) {
	cfg := Default()
	cfg.Providers["packages.imaginary"] = ProviderSpec{Builtin: true}
	if _, err := BuildRegistry(cfg, providers.ExecRunner{}); err == nil {
		t.Errorf("expected an error for an unknown builtin id")
	}
}

func TestBuildRegistryRejectsManifestTypeMismatch(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.yaml")
	content := "type: some.other\nelements: []\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg := Default()
	cfg.Providers["team.dotfiles"] = ProviderSpec{Command: "/bin/true", Manifest: manifest}
	if _, err := BuildRegistry(cfg, providers.ExecRunner{}); err == nil {
		t.Errorf("expected an error for a manifest type mismatch")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rsd.toml")
	content := `
[providers."team.dotfiles"]
command = "/usr/local/bin/rsd-dotfiles"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	spec, ok := cfg.Providers["team.dotfiles"]
	if !ok {
		t.Fatalf("expected the configured provider, got %v", cfg.Providers)
	}
	if spec.Command != "/usr/local/bin/rsd-dotfiles" {
		t.Errorf("unexpected command: %q", spec.Command)
	}
	// The builtin defaults stay present underneath the file.
	if !cfg.Providers[homebrew.Type].Builtin {
		t.Errorf("expected the builtin defaults to survive merging")
	}
}

func TestLoadRejectsInvalidSpecs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rsd.toml")
	// Neither builtin nor a command: the entry is unusable.
	content := `
[providers."team.broken"]
manifest = "/tmp/whatever.yaml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected a validation error")
	}
}

func TestEnsureDefaultWritesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := EnsureDefault()
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if path != filepath.Join(dir, "rsd", "config.toml") {
		t.Errorf("unexpected path: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("expected a non-empty default config")
	}

	// A second run leaves the existing file alone.
	if _, err := EnsureDefault(); err != nil {
		t.Errorf("ensure should be idempotent: %v", err)
	}
}
