// Package pipeline implements the state-manipulation pipeline around the
// algebra: parallel gather fan-out with deterministic combining, and
// dependency-ordered command rendering.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
	"github.com/rsdeploy/rsd/pkg/telemetry"
)

const tracerName = "github.com/rsdeploy/rsd/pkg/pipeline"

// DefaultMaxParallel bounds concurrent provider gathers when no explicit
// limit is given.
const DefaultMaxParallel = 4

// Request names one provider invocation for a gather run.
type Request struct {
	// Provider is the provider id to invoke.
	Provider string

	// Qualifier restricts the gather to one component instance; empty
	// gathers all instances.
	Qualifier state.Qualifier
}

// Skipped records a provider that did not contribute to a gather run,
// either because it failed or because the run was cancelled first.
type Skipped struct {
	// Request is the invocation that was skipped.
	Request Request

	// Err is the classified failure.
	Err error
}

// GatherResult is the outcome of a gather-all run.
type GatherResult struct {
	// RunID uniquely identifies the run in logs and metrics.
	RunID string

	// System is the combined host state from the providers that
	// completed.
	System *state.System

	// Skipped lists providers that did not complete.
	Skipped []Skipped
}

// GatherOptions tune a gather-all run.
type GatherOptions struct {
	// MaxParallel bounds concurrent provider gathers. Zero or negative
	// selects DefaultMaxParallel.
	MaxParallel int
}

// GatherAll invokes every requested provider, isolating per-provider
// failures, and combines the gathered components into one host state.
// Results are folded in canonical order (provider id, then qualifier) so
// the combine outcome is deterministic regardless of completion order.
// Cancelling the context aborts outstanding gathers; requests that did
// not complete are recorded as skipped.
func GatherAll(ctx context.Context, registry *providers.Registry, requests []Request, opts GatherOptions) (*GatherResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gather-all")
	defer span.End()

	runID := uuid.New().String()
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("requests", len(requests)))
	logger := log.With().Str("run_id", runID).Logger()
	logger.Debug().Int("requests", len(requests)).Msg("starting gather run")

	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}

	type outcome struct {
		components []*state.Component
		err        error
	}
	outcomes := make([]outcome, len(requests))

	var wg sync.WaitGroup
	slots := make(chan struct{}, maxParallel)
	for i, request := range requests {
		wg.Add(1)
		go func(i int, request Request) {
			defer wg.Done()
			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
			case <-ctx.Done():
				outcomes[i].err = rsderr.Wrap(rsderr.KindGatherFailed, "gather cancelled", ctx.Err()).
					WithKey(request.Provider, request.Qualifier)
				return
			}
			outcomes[i].components, outcomes[i].err = gatherOne(ctx, registry, request)
		}(i, request)
	}
	wg.Wait()

	// Fold successes in canonical order so Atom right-bias stays
	// deterministic under parallel completion.
	order := make([]int, len(requests))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ra, rb := requests[order[a]], requests[order[b]]
		if ra.Provider != rb.Provider {
			return ra.Provider < rb.Provider
		}
		return ra.Qualifier.Compare(rb.Qualifier) < 0
	})

	result := &GatherResult{RunID: runID, System: state.NewSystem()}
	for _, i := range order {
		if err := outcomes[i].err; err != nil {
			logger.Warn().Err(err).Str("provider", requests[i].Provider).Msg("provider skipped")
			result.Skipped = append(result.Skipped, Skipped{Request: requests[i], Err: err})
			continue
		}
		combined, err := result.System.Combine(state.NewSystem(outcomes[i].components...))
		if err != nil {
			return nil, err
		}
		result.System = combined
	}
	result.System = MarkAutoDependencies(result.System)

	logger.Debug().
		Int("components", result.System.Len()).
		Int("skipped", len(result.Skipped)).
		Msg("gather run complete")
	return result, nil
}

// gatherOne runs a single provider gather and validates its output
// against the provider's declared schema.
func gatherOne(ctx context.Context, registry *providers.Registry, request Request) ([]*state.Component, error) {
	started := time.Now()
	provider, err := registry.Get(request.Provider)
	if err != nil {
		telemetry.ObserveGather(request.Provider, "unknown", time.Since(started))
		return nil, err
	}
	components, err := provider.Gather(ctx, request.Qualifier)
	if err != nil {
		telemetry.ObserveGather(request.Provider, "error", time.Since(started))
		if rsderr.KindOf(err) == "" {
			err = rsderr.Wrap(rsderr.KindGatherFailed, "provider gather failed", err).
				WithKey(request.Provider, request.Qualifier)
		}
		return nil, err
	}
	schema := provider.Schema()
	for _, component := range components {
		if err := schema.Validate(component); err != nil {
			telemetry.ObserveGather(request.Provider, "invalid", time.Since(started))
			return nil, rsderr.Wrap(rsderr.KindGatherFailed, "provider emitted an off-schema component", err).
				WithKey(request.Provider, request.Qualifier)
		}
	}
	telemetry.ObserveGather(request.Provider, "ok", time.Since(started))
	return components, nil
}
