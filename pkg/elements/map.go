package elements

import "github.com/rsdeploy/rsd/pkg/rsderr"

// Map is a mapping of atoms to elements. All values in one map share a
// single kind; the invariant is enforced on construction and on apply.
type Map struct {
	entries   map[string]Full
	valueKind Kind
}

// NewMap builds a map from the given entries. All values must share one
// kind; a mixed-kind map fails with kind-mismatch.
func NewMap(entries map[string]Full) (Map, error) {
	m := Map{entries: make(map[string]Full, len(entries))}
	for key, value := range entries {
		if m.valueKind == KindInvalid {
			m.valueKind = value.Kind()
		} else if value.Kind() != m.valueKind {
			return Map{}, rsderr.Newf(rsderr.KindKindMismatch,
				"map value for %q is %s, but the map holds %s values", key, value.Kind(), m.valueKind)
		}
		m.entries[key] = value.Clone()
	}
	return m, nil
}

// Kind returns KindMap.
func (Map) Kind() Kind { return KindMap }

// ValueKind returns the shared kind of the map's values, or KindInvalid
// for an empty map.
func (m Map) ValueKind() Kind { return m.valueKind }

// Zero returns the empty map.
func (Map) Zero() Full { return Map{entries: map[string]Full{}} }

// Len returns the number of entries.
func (m Map) Len() int { return len(m.entries) }

// Get returns the value for key, if present.
func (m Map) Get(key string) (Full, bool) {
	value, ok := m.entries[key]
	return value, ok
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string { return sortedKeys(m.entries) }

// Diff returns (keys to remove, entries to set). A changed value appears
// in entries-to-set as a full replacement, not a nested element diff.
func (m Map) Diff(other Full) (Diff, error) {
	o, ok := other.(Map)
	if !ok {
		return nil, kindMismatch("diff", KindMap, other.Kind())
	}
	remove := make(map[string]struct{})
	for key := range m.entries {
		if _, present := o.entries[key]; !present {
			remove[key] = struct{}{}
		}
	}
	set := make(map[string]Full)
	for key, value := range o.entries {
		base, present := m.entries[key]
		if !present || !base.Equal(value) {
			set[key] = value.Clone()
		}
	}
	return MapDiff{remove: remove, set: set, valueKind: o.valueKind}, nil
}

// Apply removes keys first, then inserts or overwrites the entries to
// set. Incoming values must match the map's value kind.
func (m Map) Apply(d Diff) (Full, error) {
	md, ok := d.(MapDiff)
	if !ok {
		return nil, kindMismatch("apply", KindMap, d.Kind())
	}
	result := Map{entries: make(map[string]Full, len(m.entries)+len(md.set)), valueKind: m.valueKind}
	for key, value := range m.entries {
		result.entries[key] = value.Clone()
	}
	for key := range md.remove {
		delete(result.entries, key)
	}
	for key, value := range md.set {
		if result.valueKind == KindInvalid {
			result.valueKind = value.Kind()
		} else if value.Kind() != result.valueKind {
			return nil, rsderr.Newf(rsderr.KindKindMismatch,
				"map diff sets %q to %s, but the map holds %s values", key, value.Kind(), result.valueKind)
		}
		result.entries[key] = value.Clone()
	}
	if len(result.entries) == 0 {
		result.valueKind = KindInvalid
	}
	return result, nil
}

// Combine recurses on shared keys using the values' own Combine, and
// takes the union of disjoint keys.
func (m Map) Combine(other Full) (Full, error) {
	o, ok := other.(Map)
	if !ok {
		return nil, kindMismatch("combine", KindMap, other.Kind())
	}
	result := Map{entries: make(map[string]Full, len(m.entries)+len(o.entries)), valueKind: m.valueKind}
	if result.valueKind == KindInvalid {
		result.valueKind = o.valueKind
	}
	for key, value := range m.entries {
		result.entries[key] = value.Clone()
	}
	for key, value := range o.entries {
		base, present := result.entries[key]
		if !present {
			result.entries[key] = value.Clone()
			continue
		}
		merged, err := base.Combine(value)
		if err != nil {
			return nil, err
		}
		result.entries[key] = merged
	}
	return result, nil
}

// Equal reports whether other is a map with equal entries.
func (m Map) Equal(other Full) bool {
	o, ok := other.(Map)
	if !ok || len(o.entries) != len(m.entries) {
		return false
	}
	for key, value := range m.entries {
		theirs, present := o.entries[key]
		if !present || !value.Equal(theirs) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m Map) Clone() Full {
	entries := make(map[string]Full, len(m.entries))
	for key, value := range m.entries {
		entries[key] = value.Clone()
	}
	return Map{entries: entries, valueKind: m.valueKind}
}

func (m Map) compare(other Map) (int, error) {
	keys := m.Keys()
	otherKeys := other.Keys()
	for i, key := range keys {
		if i >= len(otherKeys) {
			return 1, nil
		}
		if key != otherKeys[i] {
			if key < otherKeys[i] {
				return -1, nil
			}
			return 1, nil
		}
		cmp, err := Compare(m.entries[key], other.entries[otherKeys[i]])
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	if len(keys) < len(otherKeys) {
		return -1, nil
	}
	return 0, nil
}

// MapDiff is the diff form of a map: keys to remove and entries to set.
// Entries to set carry full replacement values.
type MapDiff struct {
	remove    map[string]struct{}
	set       map[string]Full
	valueKind Kind
}

// NewMapDiff builds a map diff. All values to set must share one kind.
func NewMapDiff(remove []string, set map[string]Full) (MapDiff, error) {
	d := MapDiff{
		remove: make(map[string]struct{}, len(remove)),
		set:    make(map[string]Full, len(set)),
	}
	for _, key := range remove {
		d.remove[key] = struct{}{}
	}
	for key, value := range set {
		if d.valueKind == KindInvalid {
			d.valueKind = value.Kind()
		} else if value.Kind() != d.valueKind {
			return MapDiff{}, rsderr.Newf(rsderr.KindKindMismatch,
				"map diff value for %q is %s, but the diff holds %s values", key, value.Kind(), d.valueKind)
		}
		d.set[key] = value.Clone()
	}
	return d, nil
}

// Kind returns KindMap.
func (MapDiff) Kind() Kind { return KindMap }

// KeysToRemove returns the keys to remove in sorted order.
func (d MapDiff) KeysToRemove() []string { return sortedKeys(d.remove) }

// SetKeys returns the keys of the entries to set in sorted order.
func (d MapDiff) SetKeys() []string { return sortedKeys(d.set) }

// SetValue returns the replacement value for key, if present.
func (d MapDiff) SetValue(key string) (Full, bool) {
	value, ok := d.set[key]
	return value, ok
}

// Empty reports whether the diff changes nothing.
func (d MapDiff) Empty() bool { return len(d.remove) == 0 && len(d.set) == 0 }

// Clone returns a deep copy.
func (d MapDiff) Clone() Diff {
	set := make(map[string]Full, len(d.set))
	for key, value := range d.set {
		set[key] = value.Clone()
	}
	clone, _ := NewMapDiff(d.KeysToRemove(), set)
	return clone
}
