package state

import (
	"sort"

	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// System is a collection of components keyed by (type, qualifier). A
// system is full iff every component is full-mode and every declared
// dependency resolves within it; otherwise it is partial.
type System struct {
	components map[string]*Component
}

// NewSystem builds a system from the given components. A later component
// with the same key replaces an earlier one.
func NewSystem(components ...*Component) *System {
	s := &System{components: make(map[string]*Component, len(components))}
	for _, component := range components {
		s.put(component.Clone())
	}
	return s
}

func (s *System) put(component *Component) {
	s.components[component.Key().String()] = component
}

// Len returns the number of components.
func (s *System) Len() int { return len(s.components) }

// Get returns the component with the given key, if present.
func (s *System) Get(key Key) (*Component, bool) {
	component, ok := s.components[key.String()]
	return component, ok
}

// Keys returns the component keys in canonical (type, qualifier) order.
func (s *System) Keys() []Key {
	keys := make([]Key, 0, len(s.components))
	for _, component := range s.components {
		keys = append(keys, component.Key())
	}
	SortKeys(keys)
	return keys
}

// Components returns the components in canonical key order.
func (s *System) Components() []*Component {
	components := make([]*Component, 0, len(s.components))
	for _, component := range s.components {
		components = append(components, component)
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i].Key().Compare(components[j].Key()) < 0
	})
	return components
}

// IsFull reports whether every component is full-mode and every declared
// dependency resolves within the system. Fullness is derived, never
// stored.
func (s *System) IsFull() bool {
	for _, component := range s.components {
		if component.Mode() != ModeFull {
			return false
		}
	}
	return s.Validate() == nil
}

// Validate checks that every dependency edge resolves to a component in
// the system, failing with invalid-system on the first dangling edge.
func (s *System) Validate() error {
	for _, component := range s.Components() {
		for _, dep := range component.Dependencies() {
			if _, ok := s.Get(dep); !ok {
				return rsderr.Newf(rsderr.KindInvalidSystem,
					"dependency %s is not present in the system", dep).
					WithKey(component.Type(), component.Qualifier())
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *System) Clone() *System {
	clone := &System{components: make(map[string]*Component, len(s.components))}
	for _, component := range s.components {
		clone.put(component.Clone())
	}
	return clone
}

// Equal reports whether both systems hold equal components under the
// same keys.
func (s *System) Equal(other *System) bool {
	if len(s.components) != len(other.components) {
		return false
	}
	for _, component := range s.components {
		theirs, ok := other.Get(component.Key())
		if !ok || !component.Equal(theirs) {
			return false
		}
	}
	return true
}

// requireAllFull rejects systems containing non-full components.
func (s *System) requireAllFull(op string) error {
	for _, component := range s.Components() {
		if component.Mode() != ModeFull {
			return rsderr.Newf(rsderr.KindInvalidSystem,
				"%s requires full systems, component is %s", op, component.Mode()).
				WithKey(component.Type(), component.Qualifier())
		}
	}
	return nil
}

// Diff computes the partial diff system that transforms this system into
// role. Components only in role become full-mode creation markers;
// components only in this system become absent tombstones; shared keys
// with differing state diff component-wise. Unchanged components are
// omitted.
func (s *System) Diff(role *System) (*System, error) {
	if err := s.requireAllFull("diff"); err != nil {
		return nil, err
	}
	if err := role.requireAllFull("diff"); err != nil {
		return nil, err
	}
	delta := NewSystem()
	for _, key := range unionKeys(s, role) {
		host, inHost := s.Get(key)
		desired, inRole := role.Get(key)
		switch {
		case inHost && inRole:
			if host.Equal(desired) {
				continue
			}
			d, err := host.DiffAgainst(desired)
			if err != nil {
				return nil, err
			}
			delta.put(d)
		case inRole:
			delta.put(desired.Clone())
		default:
			delta.put(NewAbsent(key, host.Dependencies()))
		}
	}
	return delta, nil
}

// Apply applies a diff system to this full system. Full-mode components
// in delta replace or create; absent tombstones delete (a tombstone for
// a missing key is a no-op); diff components require a matching full
// component, failing with missing-base otherwise.
func (s *System) Apply(delta *System) (*System, error) {
	if err := s.requireAllFull("apply"); err != nil {
		return nil, err
	}
	result := s.Clone()
	for _, component := range delta.Components() {
		switch component.Mode() {
		case ModeFull:
			result.put(component.Clone())
		case ModeAbsent:
			delete(result.components, component.Key().String())
		case ModeDiff:
			base, ok := result.Get(component.Key())
			if !ok {
				return nil, rsderr.Newf(rsderr.KindMissingBase,
					"no full component to apply the diff to").
					WithKey(component.Type(), component.Qualifier())
			}
			applied, err := base.ApplyDiff(component)
			if err != nil {
				return nil, err
			}
			result.put(applied)
		}
	}
	return result, nil
}

// Combine folds another full system into this one: shared keys combine
// component-wise, disjoint keys pass through. Used to merge per-provider
// gather outputs into one host state.
func (s *System) Combine(other *System) (*System, error) {
	if err := s.requireAllFull("combine"); err != nil {
		return nil, err
	}
	if err := other.requireAllFull("combine"); err != nil {
		return nil, err
	}
	result := s.Clone()
	for _, component := range other.Components() {
		base, ok := result.Get(component.Key())
		if !ok {
			result.put(component.Clone())
			continue
		}
		combined, err := base.Combine(component)
		if err != nil {
			return nil, err
		}
		result.put(combined)
	}
	return result, nil
}

// unionKeys returns the keys present in either system, in canonical
// order.
func unionKeys(a, b *System) []Key {
	seen := make(map[string]struct{})
	var keys []Key
	for _, s := range []*System{a, b} {
		for _, key := range s.Keys() {
			if _, ok := seen[key.String()]; ok {
				continue
			}
			seen[key.String()] = struct{}{}
			keys = append(keys, key)
		}
	}
	SortKeys(keys)
	return keys
}
