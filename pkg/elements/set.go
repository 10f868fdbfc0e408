package elements

import "sort"

// Set is an unordered collection of unique atoms.
type Set struct {
	members map[string]struct{}
}

// NewSet builds a set from the given atoms, dropping duplicates.
func NewSet(items ...string) Set {
	members := make(map[string]struct{}, len(items))
	for _, item := range items {
		members[item] = struct{}{}
	}
	return Set{members: members}
}

// Kind returns KindSet.
func (Set) Kind() Kind { return KindSet }

// Zero returns the empty set.
func (Set) Zero() Full { return NewSet() }

// Len returns the number of members.
func (s Set) Len() int { return len(s.members) }

// Contains reports membership.
func (s Set) Contains(item string) bool {
	_, ok := s.members[item]
	return ok
}

// Items returns the members in sorted order.
func (s Set) Items() []string {
	return sortedKeys(s.members)
}

// Diff returns (other minus this, this minus other).
func (s Set) Diff(other Full) (Diff, error) {
	o, ok := other.(Set)
	if !ok {
		return nil, kindMismatch("diff", KindSet, other.Kind())
	}
	add := make(map[string]struct{})
	for item := range o.members {
		if !s.Contains(item) {
			add[item] = struct{}{}
		}
	}
	remove := make(map[string]struct{})
	for item := range s.members {
		if !o.Contains(item) {
			remove[item] = struct{}{}
		}
	}
	return SetDiff{add: add, remove: remove}, nil
}

// Apply returns (this union add) minus remove. Removals are applied last,
// so an atom present in both add and remove ends up removed.
func (s Set) Apply(d Diff) (Full, error) {
	sd, ok := d.(SetDiff)
	if !ok {
		return nil, kindMismatch("apply", KindSet, d.Kind())
	}
	members := make(map[string]struct{}, len(s.members)+len(sd.add))
	for item := range s.members {
		members[item] = struct{}{}
	}
	for item := range sd.add {
		members[item] = struct{}{}
	}
	for item := range sd.remove {
		delete(members, item)
	}
	return Set{members: members}, nil
}

// Combine returns the union of both sets.
func (s Set) Combine(other Full) (Full, error) {
	o, ok := other.(Set)
	if !ok {
		return nil, kindMismatch("combine", KindSet, other.Kind())
	}
	members := make(map[string]struct{}, len(s.members)+len(o.members))
	for item := range s.members {
		members[item] = struct{}{}
	}
	for item := range o.members {
		members[item] = struct{}{}
	}
	return Set{members: members}, nil
}

// Equal reports whether other is a set with the same members.
func (s Set) Equal(other Full) bool {
	o, ok := other.(Set)
	if !ok || len(o.members) != len(s.members) {
		return false
	}
	for item := range s.members {
		if !o.Contains(item) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s Set) Clone() Full {
	return NewSet(s.Items()...)
}

func (s Set) compare(other Set) int {
	return compareSorted(s.Items(), other.Items())
}

// SetDiff is the diff form of a set: atoms to add and atoms to remove.
type SetDiff struct {
	add    map[string]struct{}
	remove map[string]struct{}
}

// NewSetDiff builds a set diff from the given add and remove atoms.
func NewSetDiff(add, remove []string) SetDiff {
	d := SetDiff{
		add:    make(map[string]struct{}, len(add)),
		remove: make(map[string]struct{}, len(remove)),
	}
	for _, item := range add {
		d.add[item] = struct{}{}
	}
	for _, item := range remove {
		d.remove[item] = struct{}{}
	}
	return d
}

// Kind returns KindSet.
func (SetDiff) Kind() Kind { return KindSet }

// ToAdd returns the atoms to add in sorted order.
func (d SetDiff) ToAdd() []string { return sortedKeys(d.add) }

// ToRemove returns the atoms to remove in sorted order.
func (d SetDiff) ToRemove() []string { return sortedKeys(d.remove) }

// Empty reports whether the diff changes nothing.
func (d SetDiff) Empty() bool { return len(d.add) == 0 && len(d.remove) == 0 }

// Clone returns a deep copy.
func (d SetDiff) Clone() Diff {
	return NewSetDiff(d.ToAdd(), d.ToRemove())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compareSorted compares two sorted string slices item-wise, with absence
// ordering before presence.
func compareSorted(a, b []string) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}
