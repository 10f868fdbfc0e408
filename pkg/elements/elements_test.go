package elements

import (
	"errors"
	"testing"

	"github.com/rsdeploy/rsd/pkg/rsderr"
)

func mustMap(t *testing.T, entries map[string]Full) Map {
	t.Helper()
	m, err := NewMap(entries)
	if err != nil {
		t.Fatalf("NewMap failed: %v", err)
	}
	return m
}

func TestAtomDiffApplyRoundTrip(t *testing.T) {
	a := Atom("A")
	b := Atom("B")

	diff, err := a.Diff(b)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	applied, err := a.Apply(diff)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(b) {
		t.Errorf("expected %v, got %v", b, applied)
	}
}

func TestAtomNullDiffIsIdempotent(t *testing.T) {
	a := Atom("same")
	diff, err := a.Diff(a)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	applied, err := a.Apply(diff)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(a) {
		t.Errorf("null diff changed the value: %v", applied)
	}
}

func TestAtomCombineIsRightBiased(t *testing.T) {
	combined, err := Atom("left").Combine(Atom("right"))
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !combined.Equal(Atom("right")) {
		t.Errorf("expected right operand, got %v", combined)
	}
}

func TestSetDiffScenario(t *testing.T) {
	host := NewSet("git", "curl")
	role := NewSet("git", "htop")

	diff, err := host.Diff(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	setDiff := diff.(SetDiff)
	if got := setDiff.ToAdd(); len(got) != 1 || got[0] != "htop" {
		t.Errorf("expected add=[htop], got %v", got)
	}
	if got := setDiff.ToRemove(); len(got) != 1 || got[0] != "curl" {
		t.Errorf("expected remove=[curl], got %v", got)
	}

	applied, err := host.Apply(diff)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(role) {
		t.Errorf("apply(host, diff) != role: got %v", applied)
	}
}

func TestSetApplyRemoveWinsOverAdd(t *testing.T) {
	applied, err := NewSet("a").Apply(NewSetDiff([]string{"x"}, []string{"x"}))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if applied.(Set).Contains("x") {
		t.Errorf("expected the removal to win for atoms in both add and remove")
	}
}

func TestSetCombineIsUnionAndIdempotent(t *testing.T) {
	a := NewSet("git", "curl")
	b := NewSet("git", "htop")

	combined, err := a.Combine(b)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !combined.Equal(NewSet("git", "curl", "htop")) {
		t.Errorf("expected union, got %v", combined.(Set).Items())
	}

	same, err := a.Combine(a)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !same.Equal(a) {
		t.Errorf("combine(A, A) != A: got %v", same)
	}
}

func TestMapDiffScenario(t *testing.T) {
	host := mustMap(t, map[string]Full{"a": Atom("1"), "b": Atom("2")})
	role := mustMap(t, map[string]Full{"b": Atom("2"), "c": Atom("3")})

	diff, err := host.Diff(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	mapDiff := diff.(MapDiff)
	if got := mapDiff.KeysToRemove(); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected remove=[a], got %v", got)
	}
	if got := mapDiff.SetKeys(); len(got) != 1 || got[0] != "c" {
		t.Errorf("expected set keys=[c], got %v", got)
	}
	value, _ := mapDiff.SetValue("c")
	if !value.Equal(Atom("3")) {
		t.Errorf("expected set value 3, got %v", value)
	}

	applied, err := host.Apply(diff)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(role) {
		t.Errorf("apply(host, diff) != role")
	}
}

func TestMapDiffCarriesFullReplacementValues(t *testing.T) {
	host := mustMap(t, map[string]Full{"pkg": NewSet("1.0")})
	role := mustMap(t, map[string]Full{"pkg": NewSet("1.0", "2.0")})

	diff, err := host.Diff(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	value, ok := diff.(MapDiff).SetValue("pkg")
	if !ok {
		t.Fatalf("expected the changed key in entries-to-set")
	}
	if !value.Equal(NewSet("1.0", "2.0")) {
		t.Errorf("expected a full replacement value, got %v", value)
	}
}

func TestMapCombineRecursesOnSharedKeys(t *testing.T) {
	a := mustMap(t, map[string]Full{"shared": NewSet("x"), "left": NewSet("l")})
	b := mustMap(t, map[string]Full{"shared": NewSet("y"), "right": NewSet("r")})

	combined, err := a.Combine(b)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	expected := mustMap(t, map[string]Full{
		"shared": NewSet("x", "y"),
		"left":   NewSet("l"),
		"right":  NewSet("r"),
	})
	if !combined.Equal(expected) {
		t.Errorf("unexpected combine result")
	}

	same, err := a.Combine(a)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !same.Equal(a) {
		t.Errorf("combine(A, A) != A")
	}
}

func TestMapRejectsMixedValueKinds(t *testing.T) {
	_, err := NewMap(map[string]Full{"a": Atom("x"), "b": NewSet("y")})
	if !rsderr.IsKind(err, rsderr.KindKindMismatch) {
		t.Errorf("expected kind-mismatch, got %v", err)
	}
}

func TestCrossKindOperationsFail(t *testing.T) {
	cases := []struct {
		name string
		run  func() error
	}{
		{"diff", func() error { _, err := Atom("a").Diff(NewSet("a")); return err }},
		{"apply", func() error { _, err := Atom("a").Apply(NewSetDiff(nil, nil)); return err }},
		{"combine", func() error { _, err := NewList("a").Combine(Atom("a")); return err }},
		{"compare", func() error { _, err := Compare(NewSet("a"), NewList("a")); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if !rsderr.IsKind(err, rsderr.KindKindMismatch) {
				t.Errorf("expected kind-mismatch, got %v", err)
			}
		})
	}
}

func TestNullDiffAppliesToAnyCompatibleValue(t *testing.T) {
	base := NewSet("a", "b")
	diff, err := base.Diff(base)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	other := NewSet("c")
	applied, err := other.Apply(diff)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !applied.Equal(other) {
		t.Errorf("null diff changed an unrelated value: %v", applied)
	}
}

func TestCompareWithinKinds(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Full
		expected int
	}{
		{"atoms order lexicographically", Atom("a"), Atom("b"), -1},
		{"equal atoms", Atom("a"), Atom("a"), 0},
		{"absence before presence in sets", NewSet("a"), NewSet("a", "b"), -1},
		{"sets compare sorted item-wise", NewSet("b"), NewSet("a", "z"), 1},
		{"lists compare positionally", NewList("a", "b"), NewList("a", "c"), -1},
		{"shorter list first", NewList("a"), NewList("a", "b"), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.a, tc.b)
			if err != nil {
				t.Fatalf("compare failed: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestZeroOf(t *testing.T) {
	for _, kind := range []Kind{KindAtom, KindSet, KindMap, KindList} {
		zero, err := ZeroOf(kind)
		if err != nil {
			t.Fatalf("ZeroOf(%s) failed: %v", kind, err)
		}
		if zero.Kind() != kind {
			t.Errorf("ZeroOf(%s) has kind %s", kind, zero.Kind())
		}
	}
	if _, err := ZeroOf(KindInvalid); err == nil {
		t.Errorf("expected an error for the invalid kind")
	}
}

func TestClassifiedErrorsUnwrap(t *testing.T) {
	_, err := Atom("a").Diff(NewSet("b"))
	var classified *rsderr.Error
	if !errors.As(err, &classified) {
		t.Fatalf("expected a classified error, got %T", err)
	}
	if classified.Kind != rsderr.KindKindMismatch {
		t.Errorf("expected kind-mismatch, got %s", classified.Kind)
	}
}
