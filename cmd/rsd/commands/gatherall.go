package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rsdeploy/rsd/pkg/pipeline"
	"github.com/rsdeploy/rsd/pkg/state"
)

func newGatherAllCommand(version string) *cobra.Command {
	var maxParallel int

	cmd := &cobra.Command{
		Use:   "gather-all",
		Short: "Gather every provider/qualifier pair read from stdin",
		Long: `Gather each provider/qualifier pair read from stdin and combine the
results into one host state. Pairs arrive as alternating lines:

  p=packages.homebrew
  q=

Intended for use with the providers subcommand:

  rsd providers role.rsd.json | rsd gather-all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			requests, err := parseRequests(os.Stdin)
			if err != nil {
				return err
			}
			cfg, registry, err := loadRegistry()
			if err != nil {
				return err
			}
			shutdown, err := setupTelemetry(cfg, version)
			if err != nil {
				return err
			}
			defer shutdown()

			result, err := pipeline.GatherAll(cmd.Context(), registry, requests, pipeline.GatherOptions{
				MaxParallel: maxParallel,
			})
			if err != nil {
				return err
			}
			if err := writeSystem(result.System); err != nil {
				return err
			}
			// The combined state of the providers that completed is still
			// written; a skip is reported through the exit code.
			for _, skipped := range result.Skipped {
				log.Warn().
					Err(skipped.Err).
					Str("provider", skipped.Request.Provider).
					Str("qualifier", skipped.Request.Qualifier.String()).
					Msg("provider did not complete")
			}
			if len(result.Skipped) > 0 {
				return result.Skipped[0].Err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "maximum concurrent provider gathers (0 = default)")

	return cmd
}

// parseRequests reads alternating p=/q= line pairs.
func parseRequests(r io.Reader) ([]pipeline.Request, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading provider list: %w", err)
	}
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("provider list has an unpaired line: %q", lines[len(lines)-1])
	}
	var requests []pipeline.Request
	for i := 0; i < len(lines); i += 2 {
		provider, ok := strings.CutPrefix(lines[i], "p=")
		if !ok {
			return nil, fmt.Errorf("expected a p= line, got %q", lines[i])
		}
		qualifier, ok := strings.CutPrefix(lines[i+1], "q=")
		if !ok {
			return nil, fmt.Errorf("expected a q= line, got %q", lines[i+1])
		}
		requests = append(requests, pipeline.Request{
			Provider:  provider,
			Qualifier: state.ParseQualifier(qualifier),
		})
	}
	return requests, nil
}
