package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// fakeProvider emits canned components on gather and one line per
// rendered component, tagged with its mode and key.
type fakeProvider struct {
	id         string
	components []*state.Component
	gatherErr  error
}

func (f *fakeProvider) Type() string             { return f.id }
func (f *fakeProvider) Schema() providers.Schema { return providers.Schema{} }

func (f *fakeProvider) Gather(ctx context.Context, qualifier state.Qualifier) ([]*state.Component, error) {
	if f.gatherErr != nil {
		return nil, f.gatherErr
	}
	return f.components, nil
}

func (f *fakeProvider) Render(ctx context.Context, c, initial *state.Component) ([]string, error) {
	return []string{fmt.Sprintf("%s %s", c.Mode(), c.Key())}, nil
}

func fullComponent(id string, deps ...state.Key) *state.Component {
	return state.NewFull(state.Key{Type: id}, map[string]elements.Full{
		"value": elements.Atom("v"),
	}, deps)
}

func registryWith(t *testing.T, ids ...string) *providers.Registry {
	t.Helper()
	registry := providers.NewRegistry()
	for _, id := range ids {
		if err := registry.Register(&fakeProvider{id: id}); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	return registry
}

func TestCommandsOrdersCreationsDependenciesFirst(t *testing.T) {
	q := state.Key{Type: "q"}
	delta := state.NewSystem(
		fullComponent("p", q),
		fullComponent("q"),
	)
	commands, err := Commands(context.Background(), registryWith(t, "p", "q"), delta, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	expected := []string{"full q", "full p"}
	if !reflect.DeepEqual(commands, expected) {
		t.Errorf("expected %v, got %v", expected, commands)
	}
}

func TestCommandsOrdersRemovalsDependentsFirst(t *testing.T) {
	q := state.Key{Type: "q"}
	delta := state.NewSystem(
		state.NewAbsent(state.Key{Type: "p"}, []state.Key{q}),
		state.NewAbsent(q, nil),
	)
	commands, err := Commands(context.Background(), registryWith(t, "p", "q"), delta, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	expected := []string{"absent p", "absent q"}
	if !reflect.DeepEqual(commands, expected) {
		t.Errorf("expected %v, got %v", expected, commands)
	}
}

func TestCommandsEmitsCreationsBeforeRemovals(t *testing.T) {
	delta := state.NewSystem(
		state.NewAbsent(state.Key{Type: "gone"}, nil),
		fullComponent("fresh"),
	)
	commands, err := Commands(context.Background(), registryWith(t, "gone", "fresh"), delta, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	expected := []string{"full fresh", "absent gone"}
	if !reflect.DeepEqual(commands, expected) {
		t.Errorf("expected %v, got %v", expected, commands)
	}
}

func TestCommandsBreaksTiesByKeyOrder(t *testing.T) {
	delta := state.NewSystem(
		fullComponent("zzz"),
		fullComponent("aaa"),
		fullComponent("mmm"),
	)
	commands, err := Commands(context.Background(), registryWith(t, "zzz", "aaa", "mmm"), delta, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	expected := []string{"full aaa", "full mmm", "full zzz"}
	if !reflect.DeepEqual(commands, expected) {
		t.Errorf("expected %v, got %v", expected, commands)
	}
}

func TestCommandsRejectsDependencyCycles(t *testing.T) {
	a := state.Key{Type: "a"}
	b := state.Key{Type: "b"}
	delta := state.NewSystem(
		fullComponent("a", b),
		fullComponent("b", a),
	)
	_, err := Commands(context.Background(), registryWith(t, "a", "b"), delta, nil)
	if !rsderr.IsKind(err, rsderr.KindInvalidSystem) {
		t.Errorf("expected invalid-system, got %v", err)
	}
}

func TestCommandsIgnoresEdgesToUnaffectedComponents(t *testing.T) {
	elsewhere := state.Key{Type: "unaffected"}
	delta := state.NewSystem(fullComponent("p", elsewhere))
	commands, err := Commands(context.Background(), registryWith(t, "p"), delta, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(commands) != 1 {
		t.Errorf("expected one command, got %v", commands)
	}
}

func TestCommandsFailsOnUnknownProvider(t *testing.T) {
	delta := state.NewSystem(fullComponent("mystery"))
	_, err := Commands(context.Background(), providers.NewRegistry(), delta, nil)
	if !rsderr.IsKind(err, rsderr.KindUnknownProvider) {
		t.Errorf("expected unknown-provider, got %v", err)
	}
}
