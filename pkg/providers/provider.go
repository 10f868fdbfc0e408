// Package providers defines the provider contract: a pluggable pair of
// capabilities (gather, render) tied to a component type, plus the
// registry that dispatches on provider ids and the adapter for external
// provider executables.
package providers

import (
	"context"

	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// Provider is one pluggable subsystem handler. Gather inspects the host
// and emits full components; Render translates a component of a diff
// system into the shell commands that would effect the change. Render is
// pure with respect to host state; Gather's side effects are limited to
// reading host state.
type Provider interface {
	// Type returns the stable provider id, which is also the provider
	// type of every component it owns.
	Type() string

	// Schema returns the declared element schema for this provider's
	// components. A zero schema means the provider does not constrain its
	// elements.
	Schema() Schema

	// Gather inspects the host and returns full components. With a
	// non-empty qualifier only the matching component is returned;
	// otherwise all instances are.
	Gather(ctx context.Context, qualifier state.Qualifier) ([]*state.Component, error)

	// Render translates a diff, full-marker, or absent component into an
	// ordered list of shell command lines. initial is the matching full
	// component from the state the diff was computed against, or nil when
	// no such context is available; absent components cannot be rendered
	// without it.
	Render(ctx context.Context, component *state.Component, initial *state.Component) ([]string, error)
}

// NormalizeForRender rewrites any renderable component into diff mode:
// diff components pass through, full creation markers become the diff
// from zero, and absent tombstones become the diff from the initial full
// component to the schema's empty shape. Absent components cannot be
// normalized without initial context and fail with render-failed.
func NormalizeForRender(c, initial *state.Component, schema Schema) (*state.Component, error) {
	switch c.Mode() {
	case state.ModeDiff:
		return c, nil
	case state.ModeFull:
		return c.ZeroDiff()
	default:
		if initial == nil || initial.Mode() != state.ModeFull {
			return nil, rsderr.New(rsderr.KindRenderFailed,
				"absent component requires initial state context to render").
				WithKey(c.Type(), c.Qualifier())
		}
		empty, err := schema.ZeroComponent(c.Qualifier())
		if err != nil {
			return nil, err
		}
		return initial.DiffAgainst(empty)
	}
}
