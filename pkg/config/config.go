// Package config loads the rsd configuration: which providers exist and
// how each is implemented (builtin or an external executable), plus the
// telemetry settings. Configuration is discovered from the XDG config
// directory, the working directory, and RSD_-prefixed environment
// variables, later sources winning.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/providers/homebrew"
	"github.com/rsdeploy/rsd/pkg/providers/pipx"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/telemetry"
)

// ProviderSpec wires one provider id to an implementation.
type ProviderSpec struct {
	// Builtin selects the compiled-in implementation for the id.
	Builtin bool `mapstructure:"builtin" toml:"builtin,omitempty"`

	// Command is the path to an external provider executable.
	Command string `mapstructure:"command" toml:"command,omitempty" validate:"required_without=Builtin"`

	// Manifest is the path to the external provider's schema manifest.
	// Optional; without it the provider's components are not
	// schema-checked.
	Manifest string `mapstructure:"manifest" toml:"manifest,omitempty"`
}

// Config is the effective rsd configuration.
type Config struct {
	// Telemetry holds logging, metrics, and tracing settings.
	Telemetry telemetry.Config `mapstructure:"telemetry" toml:"-"`

	// Providers maps provider ids to their implementations.
	Providers map[string]ProviderSpec `mapstructure:"providers" toml:"providers" validate:"dive"`
}

// Default returns the builtin configuration: the compiled-in providers
// and default telemetry.
func Default() *Config {
	return &Config{
		Telemetry: telemetry.DefaultConfig(),
		Providers: map[string]ProviderSpec{
			homebrew.Type: {Builtin: true},
			pipx.Type:     {Builtin: true},
		},
	}
}

// xdgConfigPath returns $XDG_CONFIG_HOME/rsd/config.toml, falling back
// to ~/.config.
func xdgConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rsd", "config.toml")
}

// EnsureDefault writes the builtin configuration to the XDG config path
// if no file exists there yet, and returns the path.
func EnsureDefault() (string, error) {
	path := xdgConfigPath()
	if path == "" {
		return "", fmt.Errorf("cannot resolve the user config directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("rendering default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// Load reads the effective configuration. With an explicit path only
// that file is read (and must exist); otherwise the XDG config file and
// ./rsd.toml merge over the builtin defaults, in that order.
func Load(explicitPath string) (*Config, error) {
	// Provider ids contain dots, so nested keys are split on "::" rather
	// than viper's default ".".
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigType("toml")

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", explicitPath, err)
		}
	} else {
		if path, err := EnsureDefault(); err == nil {
			mergeFile(v, path)
		}
		mergeFile(v, "rsd.toml")
	}

	v.SetEnvPrefix("RSD")
	v.AutomaticEnv()

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// mergeFile merges a config file into v if the file exists.
func mergeFile(v *viper.Viper, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	v.SetConfigFile(path)
	_ = v.MergeInConfig()
}

// BuildRegistry turns the configuration into a provider registry. The
// runner is injected into builtin providers so gather subprocesses can
// be faked in tests.
func BuildRegistry(cfg *Config, runner providers.CommandRunner) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		spec := cfg.Providers[id]
		provider, err := buildProvider(id, spec, runner)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildProvider(id string, spec ProviderSpec, runner providers.CommandRunner) (providers.Provider, error) {
	if spec.Builtin {
		switch id {
		case homebrew.Type:
			return homebrew.New(runner), nil
		case pipx.Type:
			return pipx.New(runner), nil
		default:
			return nil, rsderr.Newf(rsderr.KindUnknownProvider, "no builtin provider for %q", id).
				WithKey(id, nil)
		}
	}
	schema := providers.Schema{}
	if spec.Manifest != "" {
		loaded, err := providers.LoadManifest(spec.Manifest)
		if err != nil {
			return nil, err
		}
		if loaded.Type != id {
			return nil, rsderr.Newf(rsderr.KindSchemaMismatch,
				"manifest declares type %q for provider %q", loaded.Type, id).
				WithKey(id, nil)
		}
		schema = loaded
	}
	return providers.NewExecProvider(id, spec.Command, schema), nil
}
