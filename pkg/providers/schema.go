package providers

import (
	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// ElementSpec declares one named element of a provider's component type.
type ElementSpec struct {
	// Name is the element's name within the component.
	Name string

	// Kind is the element's kind.
	Kind elements.Kind

	// ValueKind constrains the value kind of a map element. KindInvalid
	// leaves it unconstrained.
	ValueKind elements.Kind
}

// Schema is the ordered element schema for a provider type. It is
// uniform across all components of the type.
type Schema struct {
	// Type is the provider type the schema describes.
	Type string

	// Elements are the declared elements, in schema order.
	Elements []ElementSpec
}

// IsZero reports whether the schema declares nothing.
func (s Schema) IsZero() bool { return len(s.Elements) == 0 }

// Validate checks a component against the schema: the provider type must
// match, an absent component must carry no elements, and a full or diff
// component must carry exactly the declared elements with the declared
// kinds. Violations fail with schema-mismatch.
func (s Schema) Validate(c *state.Component) error {
	if s.IsZero() {
		return nil
	}
	if c.Type() != s.Type {
		return rsderr.Newf(rsderr.KindSchemaMismatch,
			"component type %q does not match schema type %q", c.Type(), s.Type).
			WithKey(c.Type(), c.Qualifier())
	}
	if c.Mode() == state.ModeAbsent {
		return nil
	}
	declared := make(map[string]ElementSpec, len(s.Elements))
	for _, spec := range s.Elements {
		declared[spec.Name] = spec
	}
	names := c.ElementNames()
	if len(names) != len(s.Elements) {
		return rsderr.Newf(rsderr.KindSchemaMismatch,
			"component has %d elements, schema declares %d", len(names), len(s.Elements)).
			WithKey(c.Type(), c.Qualifier())
	}
	for _, name := range names {
		spec, ok := declared[name]
		if !ok {
			return rsderr.Newf(rsderr.KindSchemaMismatch, "element is not declared by the schema").
				WithKey(c.Type(), c.Qualifier()).WithElement(name)
		}
		kind, valueKind, err := elementKinds(c, name)
		if err != nil {
			return err
		}
		if kind != spec.Kind {
			return rsderr.Newf(rsderr.KindSchemaMismatch,
				"element is %s, schema declares %s", kind, spec.Kind).
				WithKey(c.Type(), c.Qualifier()).WithElement(name)
		}
		if spec.Kind == elements.KindMap && spec.ValueKind != elements.KindInvalid &&
			valueKind != elements.KindInvalid && valueKind != spec.ValueKind {
			return rsderr.Newf(rsderr.KindSchemaMismatch,
				"map element holds %s values, schema declares %s", valueKind, spec.ValueKind).
				WithKey(c.Type(), c.Qualifier()).WithElement(name)
		}
	}
	return nil
}

// ZeroComponent builds the empty full component in the schema's shape.
func (s Schema) ZeroComponent(qualifier state.Qualifier) (*state.Component, error) {
	elems := make(map[string]elements.Full, len(s.Elements))
	for _, spec := range s.Elements {
		zero, err := elements.ZeroOf(spec.Kind)
		if err != nil {
			return nil, err
		}
		elems[spec.Name] = zero
	}
	return state.NewFull(state.Key{Type: s.Type, Qualifier: qualifier}, elems, nil), nil
}

// elementKinds resolves the kind (and map value kind, when determinable)
// of a named element in either component mode.
func elementKinds(c *state.Component, name string) (elements.Kind, elements.Kind, error) {
	switch c.Mode() {
	case state.ModeFull:
		element, _ := c.FullElement(name)
		valueKind := elements.KindInvalid
		if m, ok := element.(elements.Map); ok {
			valueKind = m.ValueKind()
		}
		return element.Kind(), valueKind, nil
	case state.ModeDiff:
		element, _ := c.DiffElement(name)
		return element.Kind(), elements.KindInvalid, nil
	default:
		return elements.KindInvalid, elements.KindInvalid,
			rsderr.New(rsderr.KindSchemaMismatch, "absent component has no elements").
				WithKey(c.Type(), c.Qualifier()).WithElement(name)
	}
}
