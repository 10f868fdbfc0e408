package elements

import (
	"encoding/json"

	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// Wire kind tags for diff forms. Full forms use Kind.String() directly.
const (
	tagAtomDiff = "atom.diff"
	tagSetDiff  = "set.diff"
	tagMapDiff  = "map.diff"
	tagListDiff = "list.diff"
)

type atomWire struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type setWire struct {
	Kind   string   `json:"kind"`
	Values []string `json:"values"`
}

type mapWire struct {
	Kind    string                     `json:"kind"`
	Entries map[string]json.RawMessage `json:"entries"`
}

type listWire struct {
	Kind  string   `json:"kind"`
	Items []string `json:"items"`
}

type setDiffWire struct {
	Kind   string   `json:"kind"`
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type mapDiffWire struct {
	Kind   string                     `json:"kind"`
	Remove []string                   `json:"remove"`
	Set    map[string]json.RawMessage `json:"set"`
}

type lineOpWire struct {
	Op   string `json:"op"`
	Line string `json:"line"`
}

type hunkWire struct {
	Start int          `json:"start"`
	Ops   []lineOpWire `json:"ops"`
}

type listDiffWire struct {
	Kind    string     `json:"kind"`
	Context int        `json:"context"`
	Hunks   []hunkWire `json:"hunks"`
}

// MarshalFull serializes a full element to its kind-tagged wire form.
// Set members and map keys serialize sorted, so output bytes are
// deterministic for any given value.
func MarshalFull(e Full) ([]byte, error) {
	switch v := e.(type) {
	case Atom:
		return json.Marshal(atomWire{Kind: KindAtom.String(), Value: string(v)})
	case Set:
		return json.Marshal(setWire{Kind: KindSet.String(), Values: emptyNotNil(v.Items())})
	case Map:
		entries := make(map[string]json.RawMessage, v.Len())
		for _, key := range v.Keys() {
			value, _ := v.Get(key)
			raw, err := MarshalFull(value)
			if err != nil {
				return nil, err
			}
			entries[key] = raw
		}
		return json.Marshal(mapWire{Kind: KindMap.String(), Entries: entries})
	case List:
		return json.Marshal(listWire{Kind: KindList.String(), Items: emptyNotNil(v.Lines())})
	default:
		return nil, rsderr.Newf(rsderr.KindParse, "cannot serialize element kind %s", e.Kind())
	}
}

// MarshalDiff serializes a diff element to its kind-tagged wire form.
func MarshalDiff(d Diff) ([]byte, error) {
	switch v := d.(type) {
	case AtomDiff:
		return json.Marshal(atomWire{Kind: tagAtomDiff, Value: string(v)})
	case SetDiff:
		return json.Marshal(setDiffWire{Kind: tagSetDiff, Add: emptyNotNil(v.ToAdd()), Remove: emptyNotNil(v.ToRemove())})
	case MapDiff:
		set := make(map[string]json.RawMessage, len(v.set))
		for _, key := range v.SetKeys() {
			value, _ := v.SetValue(key)
			raw, err := MarshalFull(value)
			if err != nil {
				return nil, err
			}
			set[key] = raw
		}
		return json.Marshal(mapDiffWire{Kind: tagMapDiff, Remove: emptyNotNil(v.KeysToRemove()), Set: set})
	case ListDiff:
		hunks := make([]hunkWire, 0, len(v.Hunks))
		for _, hunk := range v.Hunks {
			ops := make([]lineOpWire, 0, len(hunk.Ops))
			for _, op := range hunk.Ops {
				ops = append(ops, lineOpWire{Op: string(op.Op), Line: op.Line})
			}
			hunks = append(hunks, hunkWire{Start: hunk.Start, Ops: ops})
		}
		return json.Marshal(listDiffWire{Kind: tagListDiff, Context: v.Context, Hunks: hunks})
	default:
		return nil, rsderr.Newf(rsderr.KindParse, "cannot serialize diff kind %s", d.Kind())
	}
}

type kindProbe struct {
	Kind string `json:"kind"`
}

// UnmarshalFull parses a kind-tagged full element. Unknown tags and
// malformed payloads fail with parse-error.
func UnmarshalFull(data []byte) (Full, error) {
	var probe kindProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, rsderr.Wrap(rsderr.KindParse, "malformed element", err)
	}
	switch probe.Kind {
	case KindAtom.String():
		var wire atomWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed atom", err)
		}
		return Atom(wire.Value), nil
	case KindSet.String():
		var wire setWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed set", err)
		}
		return NewSet(wire.Values...), nil
	case KindMap.String():
		var wire mapWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed map", err)
		}
		entries := make(map[string]Full, len(wire.Entries))
		for key, raw := range wire.Entries {
			value, err := UnmarshalFull(raw)
			if err != nil {
				return nil, err
			}
			entries[key] = value
		}
		m, err := NewMap(entries)
		if err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "mixed-kind map values", err)
		}
		return m, nil
	case KindList.String():
		var wire listWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed list", err)
		}
		return NewList(wire.Items...), nil
	default:
		return nil, rsderr.Newf(rsderr.KindParse, "unknown element kind tag %q", probe.Kind)
	}
}

// UnmarshalDiff parses a kind-tagged diff element.
func UnmarshalDiff(data []byte) (Diff, error) {
	var probe kindProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, rsderr.Wrap(rsderr.KindParse, "malformed diff element", err)
	}
	switch probe.Kind {
	case tagAtomDiff:
		var wire atomWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed atom diff", err)
		}
		return AtomDiff(wire.Value), nil
	case tagSetDiff:
		var wire setDiffWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed set diff", err)
		}
		return NewSetDiff(wire.Add, wire.Remove), nil
	case tagMapDiff:
		var wire mapDiffWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed map diff", err)
		}
		set := make(map[string]Full, len(wire.Set))
		for key, raw := range wire.Set {
			value, err := UnmarshalFull(raw)
			if err != nil {
				return nil, err
			}
			set[key] = value
		}
		d, err := NewMapDiff(wire.Remove, set)
		if err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "mixed-kind map diff values", err)
		}
		return d, nil
	case tagListDiff:
		var wire listDiffWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, rsderr.Wrap(rsderr.KindParse, "malformed list diff", err)
		}
		hunks := make([]Hunk, 0, len(wire.Hunks))
		for _, hw := range wire.Hunks {
			hunk := Hunk{Start: hw.Start}
			for _, ow := range hw.Ops {
				switch OpAction(ow.Op) {
				case OpEqual, OpDelete, OpInsert:
				default:
					return nil, rsderr.Newf(rsderr.KindParse, "unknown list-diff opcode %q", ow.Op)
				}
				hunk.Ops = append(hunk.Ops, LineOp{Op: OpAction(ow.Op), Line: ow.Line})
			}
			hunks = append(hunks, hunk)
		}
		return ListDiff{Context: wire.Context, Hunks: hunks}, nil
	default:
		return nil, rsderr.Newf(rsderr.KindParse, "unknown diff kind tag %q", probe.Kind)
	}
}

func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
