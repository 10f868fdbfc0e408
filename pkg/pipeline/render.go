package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/state"
	"github.com/rsdeploy/rsd/pkg/telemetry"
)

// Commands renders a diff system into a linear command stream honoring
// the dependency relation: creations and updates emit in topological
// order (dependencies first), then removals emit in reverse topological
// order (dependents first). Ties within a level break by the total order
// on (type, qualifier).
//
// initial optionally carries the full state the diff was computed
// against; renderers use it to reconstruct the content of absent
// components.
func Commands(ctx context.Context, registry *providers.Registry, delta *state.System, initial *state.System) ([]string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "render")
	defer span.End()
	span.SetAttributes(attribute.Int("components", delta.Len()))

	keys := delta.Keys()
	graph := newKeyGraph(keys)
	for _, component := range delta.Components() {
		for _, dep := range component.Dependencies() {
			graph.addEdge(dep, component.Key())
		}
	}
	levels, err := graph.levels()
	if err != nil {
		return nil, err
	}

	var ordered []*state.Component
	for _, level := range levels {
		for _, key := range level {
			component, _ := delta.Get(key)
			if component.Mode() != state.ModeAbsent {
				ordered = append(ordered, component)
			}
		}
	}
	for i := len(levels) - 1; i >= 0; i-- {
		for _, key := range levels[i] {
			component, _ := delta.Get(key)
			if component.Mode() == state.ModeAbsent {
				ordered = append(ordered, component)
			}
		}
	}

	var commands []string
	for _, component := range ordered {
		provider, err := registry.Get(component.Type())
		if err != nil {
			return nil, err
		}
		var initialComponent *state.Component
		if initial != nil {
			if found, ok := initial.Get(component.Key()); ok {
				initialComponent = found
			}
		}
		rendered, err := provider.Render(ctx, component, initialComponent)
		if err != nil {
			telemetry.ObserveRender(component.Type(), "error", 0)
			return nil, err
		}
		telemetry.ObserveRender(component.Type(), "ok", len(rendered))
		commands = append(commands, rendered...)
	}
	return commands, nil
}
