package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsdeploy/rsd/pkg/pipeline"
	"github.com/rsdeploy/rsd/pkg/state"
)

func newApplyLocalCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-local ROLE",
		Short: "Render the commands moving this host to ROLE",
		Long: `Gather the local state for every provider named in ROLE, diff it
against ROLE, and render the difference as commands. Equivalent to
gather-all | diff | commands in one invocation.

ROLE may also be a diff-mode plan: the plan is applied to the
gathered local state first and the commands for the resulting
difference are rendered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := readSystem(args[0])
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

			var requests []pipeline.Request
			seen := make(map[string]struct{})
			for _, component := range role.Components() {
				request := pipeline.Request{Provider: component.Type(), Qualifier: component.Qualifier()}
				id := component.Key().String()
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				requests = append(requests, request)
			}

			result, err := pipeline.GatherAll(cmd.Context(), registry, requests, pipeline.GatherOptions{})
			if err != nil {
				return err
			}
			if len(result.Skipped) > 0 {
				return result.Skipped[0].Err
			}
			local := result.System

			goal := role
			if !allFull(role) {
				// ROLE is a plan: materialize the goal state by applying it
				// to what the host has now.
				goal, err = local.Apply(role)
				if err != nil {
					return err
				}
			}
			delta, err := local.Diff(goal)
			if err != nil {
				return err
			}
			commands, err := pipeline.Commands(cmd.Context(), registry, delta, local)
			if err != nil {
				return err
			}
			for _, command := range commands {
				fmt.Fprintln(os.Stdout, command)
			}
			return nil
		},
	}
}

func allFull(s *state.System) bool {
	for _, component := range s.Components() {
		if component.Mode() != state.ModeFull {
			return false
		}
	}
	return true
}
