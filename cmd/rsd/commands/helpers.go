package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/rsdeploy/rsd/pkg/config"
	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/state"
	"github.com/rsdeploy/rsd/pkg/telemetry"
)

// loadRegistry loads the effective configuration and builds the provider
// registry with the real command runner.
func loadRegistry() (*config.Config, *providers.Registry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	registry, err := config.BuildRegistry(cfg, providers.ExecRunner{})
	if err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}

// setupTelemetry installs the configured logger, metrics collector, and
// tracer, returning a shutdown to flush on exit.
func setupTelemetry(cfg *config.Config, version string) (func(), error) {
	logging := cfg.Telemetry.Logging
	if verbose {
		logging.Level = "debug"
	}
	log.Logger = telemetry.NewLogger(logging).Zerolog()

	telemetry.SetDefaultMetrics(telemetry.NewMetrics(cfg.Telemetry.Metrics))
	shutdown, err := telemetry.InitTracer(cfg.Telemetry.Tracing, version)
	if err != nil {
		return nil, err
	}
	return func() { _ = shutdown(context.Background()) }, nil
}

// readSystem reads a state document from a file, or from stdin when the
// path is "-".
func readSystem(path string) (*state.System, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading state %s: %w", path, err)
	}
	return state.UnmarshalSystem(data)
}

// writeSystem writes a state document to stdout.
func writeSystem(s *state.System) error {
	data, err := state.MarshalSystem(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
