package state

import (
	"encoding/json"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// DocumentVersion is the current on-disk document version.
const DocumentVersion = "1"

// SystemMode is the document-level partial/full flag.
type SystemMode string

const (
	// SystemFull marks a document holding a full system.
	SystemFull SystemMode = "full"

	// SystemPartial marks a document holding a partial system.
	SystemPartial SystemMode = "partial"
)

// ModeOf derives the document mode of a system.
func ModeOf(s *System) SystemMode {
	if s.IsFull() {
		return SystemFull
	}
	return SystemPartial
}

type documentWire struct {
	Version    string          `json:"version"`
	Mode       SystemMode      `json:"mode"`
	Components []componentWire `json:"components"`
}

type componentWire struct {
	Type         string                     `json:"type"`
	Qualifier    []string                   `json:"qualifier"`
	Mode         string                     `json:"mode"`
	Dependencies []dependencyWire           `json:"dependencies"`
	Elements     map[string]json.RawMessage `json:"elements"`
}

type dependencyWire struct {
	Type      string   `json:"type"`
	Qualifier []string `json:"qualifier"`
}

// MarshalSystem serializes a system to its canonical document form:
// components sorted by key, set members and map keys sorted, two-space
// indentation. Output bytes are deterministic for any given system.
func MarshalSystem(s *System) ([]byte, error) {
	doc := documentWire{
		Version:    DocumentVersion,
		Mode:       ModeOf(s),
		Components: make([]componentWire, 0, s.Len()),
	}
	for _, component := range s.Components() {
		wire, err := marshalComponent(component)
		if err != nil {
			return nil, err
		}
		doc.Components = append(doc.Components, wire)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func marshalComponent(c *Component) (componentWire, error) {
	wire := componentWire{
		Type:         c.Type(),
		Qualifier:    emptySegments(c.Qualifier()),
		Mode:         string(c.Mode()),
		Dependencies: make([]dependencyWire, 0, len(c.Dependencies())),
		Elements:     make(map[string]json.RawMessage),
	}
	for _, dep := range c.Dependencies() {
		wire.Dependencies = append(wire.Dependencies, dependencyWire{
			Type:      dep.Type,
			Qualifier: emptySegments(dep.Qualifier),
		})
	}
	for _, name := range c.ElementNames() {
		var raw []byte
		var err error
		switch c.Mode() {
		case ModeFull:
			element, _ := c.FullElement(name)
			raw, err = elements.MarshalFull(element)
		case ModeDiff:
			element, _ := c.DiffElement(name)
			raw, err = elements.MarshalDiff(element)
		}
		if err != nil {
			return componentWire{}, err
		}
		wire.Elements[name] = raw
	}
	return wire, nil
}

// UnmarshalSystem parses a canonical document. Unknown versions, unknown
// modes, elements whose form disagrees with their component's mode, and
// a recorded document mode that disagrees with the derived one all fail
// with parse-error.
func UnmarshalSystem(data []byte) (*System, error) {
	var doc documentWire
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, rsderr.Wrap(rsderr.KindParse, "malformed state document", err)
	}
	if doc.Version != DocumentVersion {
		return nil, rsderr.Newf(rsderr.KindParse, "unsupported document version %q", doc.Version)
	}
	if doc.Mode != SystemFull && doc.Mode != SystemPartial {
		return nil, rsderr.Newf(rsderr.KindParse, "unknown system mode %q", doc.Mode)
	}
	system := NewSystem()
	for _, wire := range doc.Components {
		component, err := unmarshalComponent(wire)
		if err != nil {
			return nil, err
		}
		system.put(component)
	}
	if derived := ModeOf(system); derived != doc.Mode {
		return nil, rsderr.Newf(rsderr.KindParse,
			"document is marked %s but its components derive %s", doc.Mode, derived)
	}
	return system, nil
}

func unmarshalComponent(wire componentWire) (*Component, error) {
	mode, err := ParseMode(wire.Mode)
	if err != nil {
		return nil, err
	}
	key := Key{Type: wire.Type, Qualifier: Qualifier(wire.Qualifier)}
	if key.Type == "" {
		return nil, rsderr.New(rsderr.KindParse, "component has no provider type")
	}
	deps := make([]Key, 0, len(wire.Dependencies))
	for _, dep := range wire.Dependencies {
		deps = append(deps, Key{Type: dep.Type, Qualifier: Qualifier(dep.Qualifier)})
	}
	switch mode {
	case ModeAbsent:
		if len(wire.Elements) != 0 {
			return nil, rsderr.New(rsderr.KindParse, "absent component carries elements").
				WithKey(key.Type, key.Qualifier)
		}
		return NewAbsent(key, deps), nil
	case ModeFull:
		full := make(map[string]elements.Full, len(wire.Elements))
		for name, raw := range wire.Elements {
			element, err := elements.UnmarshalFull(raw)
			if err != nil {
				return nil, keyedParseError(err, key, name)
			}
			full[name] = element
		}
		return NewFull(key, full, deps), nil
	default:
		diff := make(map[string]elements.Diff, len(wire.Elements))
		for name, raw := range wire.Elements {
			element, err := elements.UnmarshalDiff(raw)
			if err != nil {
				return nil, keyedParseError(err, key, name)
			}
			diff[name] = element
		}
		return NewDiff(key, diff, deps), nil
	}
}

func keyedParseError(err error, key Key, element string) error {
	return annotate(err, key, element)
}

func emptySegments(q Qualifier) []string {
	if q == nil {
		return []string{}
	}
	return q
}
