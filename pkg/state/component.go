// Package state implements the component and system layers of the state
// algebra, and the canonical on-disk document form. Components bundle
// named elements under a (provider type, qualifier) key; systems are
// keyed collections of components with partial/full semantics.
package state

import (
	"errors"
	"sort"
	"strings"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// Mode is the state mode a component occupies.
type Mode string

const (
	// ModeFull marks a component carrying the entire state of its subsystem.
	ModeFull Mode = "full"

	// ModeDiff marks a component carrying changes to apply.
	ModeDiff Mode = "diff"

	// ModeAbsent is a tombstone: the component is to be removed.
	ModeAbsent Mode = "absent"
)

// ParseMode resolves a wire mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeDiff, ModeAbsent:
		return Mode(s), nil
	default:
		return "", rsderr.Newf(rsderr.KindParse, "unknown component mode %q", s)
	}
}

// Qualifier is the ordered path distinguishing sibling components of the
// same provider type.
type Qualifier []string

// ParseQualifier splits a /-separated qualifier string into segments.
// The empty string is the empty qualifier.
func ParseQualifier(s string) Qualifier {
	if s == "" {
		return nil
	}
	return Qualifier(strings.Split(s, "/"))
}

// String joins the segments with /.
func (q Qualifier) String() string { return strings.Join(q, "/") }

// Equal reports segment-wise equality.
func (q Qualifier) Equal(other Qualifier) bool {
	if len(q) != len(other) {
		return false
	}
	for i, segment := range q {
		if other[i] != segment {
			return false
		}
	}
	return true
}

// Compare orders qualifiers segment-wise, shorter first on shared prefix.
func (q Qualifier) Compare(other Qualifier) int {
	for i, segment := range q {
		if i >= len(other) {
			return 1
		}
		if segment != other[i] {
			if segment < other[i] {
				return -1
			}
			return 1
		}
	}
	if len(q) < len(other) {
		return -1
	}
	return 0
}

// Clone returns a copy of the qualifier.
func (q Qualifier) Clone() Qualifier {
	if q == nil {
		return nil
	}
	copied := make(Qualifier, len(q))
	copy(copied, q)
	return copied
}

// Key is a component's identity: its provider type plus qualifier.
type Key struct {
	// Type is the provider type owning the component.
	Type string

	// Qualifier distinguishes sibling components of the same type.
	Qualifier Qualifier
}

// String renders the key as type or type.seg/seg.
func (k Key) String() string {
	if len(k.Qualifier) == 0 {
		return k.Type
	}
	return k.Type + "." + k.Qualifier.String()
}

// Compare orders keys by type, then qualifier.
func (k Key) Compare(other Key) int {
	if k.Type != other.Type {
		if k.Type < other.Type {
			return -1
		}
		return 1
	}
	return k.Qualifier.Compare(other.Qualifier)
}

// Equal reports key equality.
func (k Key) Equal(other Key) bool { return k.Compare(other) == 0 }

// Clone returns a copy of the key.
func (k Key) Clone() Key {
	return Key{Type: k.Type, Qualifier: k.Qualifier.Clone()}
}

// SortKeys sorts keys in place by the (type, qualifier) total order.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
}

// Component is a keyed bundle of named elements with a mode and
// dependencies. Full components hold full elements, diff components hold
// diff elements, and absent components hold none.
type Component struct {
	key          Key
	mode         Mode
	dependencies []Key
	full         map[string]elements.Full
	diff         map[string]elements.Diff
}

// NewFull builds a full-mode component.
func NewFull(key Key, elems map[string]elements.Full, dependencies []Key) *Component {
	full := make(map[string]elements.Full, len(elems))
	for name, element := range elems {
		full[name] = element.Clone()
	}
	return &Component{key: key.Clone(), mode: ModeFull, dependencies: cloneKeys(dependencies), full: full}
}

// NewDiff builds a diff-mode component.
func NewDiff(key Key, elems map[string]elements.Diff, dependencies []Key) *Component {
	diff := make(map[string]elements.Diff, len(elems))
	for name, element := range elems {
		diff[name] = element.Clone()
	}
	return &Component{key: key.Clone(), mode: ModeDiff, dependencies: cloneKeys(dependencies), diff: diff}
}

// NewAbsent builds an absent-mode tombstone.
func NewAbsent(key Key, dependencies []Key) *Component {
	return &Component{key: key.Clone(), mode: ModeAbsent, dependencies: cloneKeys(dependencies)}
}

// Key returns the component's identity key.
func (c *Component) Key() Key { return c.key }

// Type returns the owning provider type.
func (c *Component) Type() string { return c.key.Type }

// Qualifier returns the component's qualifier.
func (c *Component) Qualifier() Qualifier { return c.key.Qualifier }

// Mode returns the component's state mode.
func (c *Component) Mode() Mode { return c.mode }

// Dependencies returns the component keys this component requires.
func (c *Component) Dependencies() []Key { return cloneKeys(c.dependencies) }

// ElementNames returns the named elements in sorted order.
func (c *Component) ElementNames() []string {
	var names []string
	switch c.mode {
	case ModeFull:
		for name := range c.full {
			names = append(names, name)
		}
	case ModeDiff:
		for name := range c.diff {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FullElement returns the named full element of a full-mode component.
func (c *Component) FullElement(name string) (elements.Full, bool) {
	element, ok := c.full[name]
	return element, ok
}

// DiffElement returns the named diff element of a diff-mode component.
func (c *Component) DiffElement(name string) (elements.Diff, bool) {
	element, ok := c.diff[name]
	return element, ok
}

// Equal reports equality of key, mode, and dependencies, and for full
// components also deep equality of the elements. The elements of diff
// components are not compared.
func (c *Component) Equal(other *Component) bool {
	if !c.key.Equal(other.key) || c.mode != other.mode {
		return false
	}
	if len(c.dependencies) != len(other.dependencies) {
		return false
	}
	for i, dep := range c.dependencies {
		if !dep.Equal(other.dependencies[i]) {
			return false
		}
	}
	if c.mode != ModeFull {
		// Diff and absent components compare by key, mode, and
		// dependencies only.
		return true
	}
	if len(c.full) != len(other.full) {
		return false
	}
	for name, element := range c.full {
		theirs, ok := other.full[name]
		if !ok || !element.Equal(theirs) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (c *Component) Clone() *Component {
	switch c.mode {
	case ModeFull:
		return NewFull(c.key, c.full, c.dependencies)
	case ModeDiff:
		return NewDiff(c.key, c.diff, c.dependencies)
	default:
		return NewAbsent(c.key, c.dependencies)
	}
}

// WithDependencies returns a copy of the component with its dependency
// list replaced.
func (c *Component) WithDependencies(dependencies []Key) *Component {
	clone := c.Clone()
	clone.dependencies = cloneKeys(dependencies)
	return clone
}

// checkOperand verifies that two components share an identity key and
// that their element schemas agree.
func (c *Component) checkOperand(op string, other *Component) error {
	if !c.key.Equal(other.key) {
		return rsderr.Newf(rsderr.KindComponentMismatch,
			"cannot %s component %s with %s", op, c.key, other.key).
			WithKey(c.key.Type, c.key.Qualifier)
	}
	mine := c.ElementNames()
	theirs := other.ElementNames()
	if len(mine) != len(theirs) {
		return schemaNamesMismatch(c.key, mine, theirs)
	}
	for i, name := range mine {
		if theirs[i] != name {
			return schemaNamesMismatch(c.key, mine, theirs)
		}
	}
	return nil
}

func schemaNamesMismatch(key Key, mine, theirs []string) error {
	return rsderr.Newf(rsderr.KindSchemaMismatch,
		"element names differ: [%s] vs [%s]", strings.Join(mine, " "), strings.Join(theirs, " ")).
		WithKey(key.Type, key.Qualifier)
}

// DiffAgainst computes the diff component that transforms this full
// component into other. The result's dependencies are the union of both
// operands' dependencies.
func (c *Component) DiffAgainst(other *Component) (*Component, error) {
	if c.mode != ModeFull || other.mode != ModeFull {
		return nil, rsderr.Newf(rsderr.KindComponentMismatch, "can only diff full components").
			WithKey(c.key.Type, c.key.Qualifier)
	}
	if err := c.checkOperand("diff", other); err != nil {
		return nil, err
	}
	diff := make(map[string]elements.Diff, len(c.full))
	for name, element := range c.full {
		d, err := element.Diff(other.full[name])
		if err != nil {
			return nil, annotate(err, c.key, name)
		}
		diff[name] = d
	}
	return NewDiff(c.key, diff, unionDependencies(c.dependencies, other.dependencies)), nil
}

// ApplyDiff applies a diff component to this full component.
func (c *Component) ApplyDiff(delta *Component) (*Component, error) {
	if c.mode != ModeFull || delta.mode != ModeDiff {
		return nil, rsderr.Newf(rsderr.KindComponentMismatch, "can only apply a diff component to a full component").
			WithKey(c.key.Type, c.key.Qualifier)
	}
	if err := c.checkOperand("apply", delta); err != nil {
		return nil, err
	}
	full := make(map[string]elements.Full, len(c.full))
	for name, element := range c.full {
		applied, err := element.Apply(delta.diff[name])
		if err != nil {
			return nil, annotate(err, c.key, name)
		}
		full[name] = applied
	}
	return NewFull(c.key, full, c.dependencies), nil
}

// Combine merges another full component into this one, element-wise.
func (c *Component) Combine(other *Component) (*Component, error) {
	if c.mode != ModeFull || other.mode != ModeFull {
		return nil, rsderr.Newf(rsderr.KindComponentMismatch, "can only combine full components").
			WithKey(c.key.Type, c.key.Qualifier)
	}
	if err := c.checkOperand("combine", other); err != nil {
		return nil, err
	}
	full := make(map[string]elements.Full, len(c.full))
	for name, element := range c.full {
		combined, err := element.Combine(other.full[name])
		if err != nil {
			return nil, annotate(err, c.key, name)
		}
		full[name] = combined
	}
	return NewFull(c.key, full, unionDependencies(c.dependencies, other.dependencies)), nil
}

// ZeroDiff rewrites a full component as the diff from the zero state,
// so downstream consumers see pure diff elements for a creation.
func (c *Component) ZeroDiff() (*Component, error) {
	if c.mode != ModeFull {
		return nil, rsderr.Newf(rsderr.KindComponentMismatch, "can only zero-diff a full component").
			WithKey(c.key.Type, c.key.Qualifier)
	}
	diff := make(map[string]elements.Diff, len(c.full))
	for name, element := range c.full {
		d, err := element.Zero().Diff(element)
		if err != nil {
			return nil, annotate(err, c.key, name)
		}
		diff[name] = d
	}
	return NewDiff(c.key, diff, c.dependencies), nil
}

// ZeroApply materializes a diff component against the zero state.
func (c *Component) ZeroApply() (*Component, error) {
	if c.mode != ModeDiff {
		return nil, rsderr.Newf(rsderr.KindComponentMismatch, "can only zero-apply a diff component").
			WithKey(c.key.Type, c.key.Qualifier)
	}
	full := make(map[string]elements.Full, len(c.diff))
	for name, d := range c.diff {
		zero, err := elements.ZeroOf(d.Kind())
		if err != nil {
			return nil, annotate(err, c.key, name)
		}
		applied, err := zero.Apply(d)
		if err != nil {
			return nil, annotate(err, c.key, name)
		}
		full[name] = applied
	}
	return NewFull(c.key, full, c.dependencies), nil
}

// annotate attaches the component key and element name to a classified
// element error.
func annotate(err error, key Key, element string) error {
	var e *rsderr.Error
	if errors.As(err, &e) && e.Key.IsZero() {
		return e.WithKey(key.Type, key.Qualifier).WithElement(element)
	}
	return err
}

func cloneKeys(keys []Key) []Key {
	if keys == nil {
		return nil
	}
	copied := make([]Key, len(keys))
	for i, key := range keys {
		copied[i] = key.Clone()
	}
	return copied
}

// unionDependencies merges two dependency lists, keeping first-seen order
// and dropping duplicates.
func unionDependencies(a, b []Key) []Key {
	var union []Key
	seen := func(key Key) bool {
		for _, existing := range union {
			if existing.Equal(key) {
				return true
			}
		}
		return false
	}
	for _, key := range a {
		if !seen(key) {
			union = append(union, key.Clone())
		}
	}
	for _, key := range b {
		if !seen(key) {
			union = append(union, key.Clone())
		}
	}
	return union
}
