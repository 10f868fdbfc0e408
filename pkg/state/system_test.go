package state

import (
	"testing"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
)

func atomComponent(name, value string) *Component {
	return NewFull(Key{Type: name}, map[string]elements.Full{
		"value": elements.Atom(value),
	}, nil)
}

func buildSystems() (*System, *System) {
	host := NewSystem(
		atomComponent("only.host", "foobar"),
		atomComponent("unchanged", "foobar"),
		atomComponent("changed", "foobar"),
	)
	role := NewSystem(
		atomComponent("unchanged", "foobar"),
		atomComponent("changed", "barbaz"),
		atomComponent("only.role", "barbaz"),
	)
	return host, role
}

func TestSystemDiffApplyRoundTrip(t *testing.T) {
	host, role := buildSystems()

	delta, err := host.Diff(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	applied, err := host.Apply(delta)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(role) {
		t.Errorf("apply(host, diff(host, role)) != role")
	}
}

func TestSystemDiffEmitsMarkers(t *testing.T) {
	host, role := buildSystems()
	delta, err := host.Diff(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	if _, ok := delta.Get(Key{Type: "unchanged"}); ok {
		t.Errorf("unchanged components should be omitted from the diff")
	}
	if c, ok := delta.Get(Key{Type: "only.role"}); !ok || c.Mode() != ModeFull {
		t.Errorf("role-only components should appear as full creation markers")
	}
	if c, ok := delta.Get(Key{Type: "only.host"}); !ok || c.Mode() != ModeAbsent {
		t.Errorf("host-only components should appear as absent tombstones")
	}
	if c, ok := delta.Get(Key{Type: "changed"}); !ok || c.Mode() != ModeDiff {
		t.Errorf("changed components should appear as diffs")
	}
	if ModeOf(delta) != SystemPartial {
		t.Errorf("a diff system is partial")
	}
}

func TestSystemApplyMissingBase(t *testing.T) {
	host := NewSystem()
	diffComponent, err := atomComponent("x", "v").DiffAgainst(atomComponent("x", "w"))
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	_, err = host.Apply(NewSystem(diffComponent))
	if !rsderr.IsKind(err, rsderr.KindMissingBase) {
		t.Errorf("expected missing-base, got %v", err)
	}
}

func TestSystemApplyAbsentForMissingKeyIsNoop(t *testing.T) {
	host := NewSystem(atomComponent("keep", "v"))
	delta := NewSystem(NewAbsent(Key{Type: "gone"}, nil))
	applied, err := host.Apply(delta)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(host) {
		t.Errorf("removing a missing component should change nothing")
	}
}

func TestSystemCombineDisjointIsOrderInsensitive(t *testing.T) {
	a := NewSystem(atomComponent("a", "1"))
	b := NewSystem(atomComponent("b", "2"))

	ab, err := a.Combine(b)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	ba, err := b.Combine(a)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !ab.Equal(ba) {
		t.Errorf("disjoint combine should not depend on operand order")
	}
	if ab.Len() != 2 {
		t.Errorf("expected the union, got %d components", ab.Len())
	}
}

func TestSystemCombineIsIdempotentAndAssociative(t *testing.T) {
	a := NewSystem(atomComponent("a", "1"))
	b := NewSystem(atomComponent("b", "2"))
	c := NewSystem(atomComponent("c", "3"))

	same, err := a.Combine(a)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !same.Equal(a) {
		t.Errorf("combine(A, A) != A")
	}

	ab, _ := a.Combine(b)
	left, err := ab.Combine(c)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	bc, _ := b.Combine(c)
	right, err := a.Combine(bc)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !left.Equal(right) {
		t.Errorf("combine should be associative over disjoint systems")
	}
}

func TestSystemValidate(t *testing.T) {
	dependent := NewFull(Key{Type: "needs.base"}, map[string]elements.Full{
		"value": elements.Atom("x"),
	}, []Key{{Type: "the.base"}})

	invalid := NewSystem(dependent)
	if err := invalid.Validate(); !rsderr.IsKind(err, rsderr.KindInvalidSystem) {
		t.Errorf("expected invalid-system, got %v", err)
	}
	if invalid.IsFull() {
		t.Errorf("a system with dangling dependencies is not full")
	}

	valid := NewSystem(dependent, atomComponent("the.base", "v"))
	if err := valid.Validate(); err != nil {
		t.Errorf("expected a valid system, got %v", err)
	}
	if !valid.IsFull() {
		t.Errorf("expected a full system")
	}
}

func TestSystemDiffRequiresFullOperands(t *testing.T) {
	partial := NewSystem(NewAbsent(Key{Type: "x"}, nil))
	full := NewSystem(atomComponent("x", "v"))
	if _, err := partial.Diff(full); !rsderr.IsKind(err, rsderr.KindInvalidSystem) {
		t.Errorf("expected invalid-system, got %v", err)
	}
	if _, err := full.Diff(partial); !rsderr.IsKind(err, rsderr.KindInvalidSystem) {
		t.Errorf("expected invalid-system, got %v", err)
	}
}

func TestSystemComponentsAreCanonicallyOrdered(t *testing.T) {
	s := NewSystem(
		atomComponent("zzz", "1"),
		atomComponent("aaa", "2"),
		NewFull(Key{Type: "aaa", Qualifier: Qualifier{"sub"}}, map[string]elements.Full{
			"value": elements.Atom("3"),
		}, nil),
	)
	components := s.Components()
	if components[0].Key().String() != "aaa" ||
		components[1].Key().String() != "aaa.sub" ||
		components[2].Key().String() != "zzz" {
		t.Errorf("unexpected order: %v, %v, %v",
			components[0].Key(), components[1].Key(), components[2].Key())
	}
}
