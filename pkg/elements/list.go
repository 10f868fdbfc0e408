package elements

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// DefaultContext is the number of context lines carried on each side of a
// list-diff hunk.
const DefaultContext = 3

// List is an ordered sequence of atoms.
type List struct {
	lines []string
}

// NewList builds a list from the given lines.
func NewList(lines ...string) List {
	copied := make([]string, len(lines))
	copy(copied, lines)
	return List{lines: copied}
}

// Kind returns KindList.
func (List) Kind() Kind { return KindList }

// Zero returns the empty list.
func (List) Zero() Full { return NewList() }

// Len returns the number of lines.
func (l List) Len() int { return len(l.lines) }

// Lines returns a copy of the lines in order.
func (l List) Lines() []string {
	copied := make([]string, len(l.lines))
	copy(copied, l.lines)
	return copied
}

// Diff computes an edit script from this list to other using difflib's
// grouped SequenceMatcher opcodes, carrying DefaultContext lines of
// context per hunk.
func (l List) Diff(other Full) (Diff, error) {
	o, ok := other.(List)
	if !ok {
		return nil, kindMismatch("diff", KindList, other.Kind())
	}
	return l.DiffContext(o, DefaultContext)
}

// DiffContext computes the edit script with an explicit context width.
func (l List) DiffContext(other List, context int) (ListDiff, error) {
	if context < 0 {
		context = DefaultContext
	}
	matcher := difflib.NewMatcher(l.lines, other.lines)
	var hunks []Hunk
	for _, group := range matcher.GetGroupedOpCodes(context) {
		if len(group) == 0 {
			continue
		}
		hunk := Hunk{Start: group[0].I1}
		for _, op := range group {
			switch op.Tag {
			case 'e':
				for _, line := range l.lines[op.I1:op.I2] {
					hunk.Ops = append(hunk.Ops, LineOp{Op: OpEqual, Line: line})
				}
			case 'd':
				for _, line := range l.lines[op.I1:op.I2] {
					hunk.Ops = append(hunk.Ops, LineOp{Op: OpDelete, Line: line})
				}
			case 'i':
				for _, line := range other.lines[op.J1:op.J2] {
					hunk.Ops = append(hunk.Ops, LineOp{Op: OpInsert, Line: line})
				}
			case 'r':
				for _, line := range l.lines[op.I1:op.I2] {
					hunk.Ops = append(hunk.Ops, LineOp{Op: OpDelete, Line: line})
				}
				for _, line := range other.lines[op.J1:op.J2] {
					hunk.Ops = append(hunk.Ops, LineOp{Op: OpInsert, Line: line})
				}
			}
		}
		hunks = append(hunks, hunk)
	}
	return ListDiff{Context: context, Hunks: hunks}, nil
}

// Apply replays the edit script against this list. Every context and
// deleted line is verified against the list; applying to a list other
// than the diff's base is best-effort, and any mismatch fails with
// list-drift.
func (l List) Apply(d Diff) (Full, error) {
	ld, ok := d.(ListDiff)
	if !ok {
		return nil, kindMismatch("apply", KindList, d.Kind())
	}
	src := l.lines
	out := make([]string, 0, len(src))
	cursor := 0
	for i, hunk := range ld.Hunks {
		if hunk.Start < cursor || hunk.Start > len(src) {
			return nil, rsderr.Newf(rsderr.KindListDrift,
				"hunk %d starts at line %d, beyond the target's %d lines", i, hunk.Start, len(src))
		}
		out = append(out, src[cursor:hunk.Start]...)
		cursor = hunk.Start
		for _, op := range hunk.Ops {
			switch op.Op {
			case OpEqual, OpDelete:
				if cursor >= len(src) {
					return nil, rsderr.Newf(rsderr.KindListDrift,
						"hunk %d expects %q at line %d, but the target ends there", i, op.Line, cursor)
				}
				if src[cursor] != op.Line {
					return nil, rsderr.Newf(rsderr.KindListDrift,
						"hunk %d expects %q at line %d, found %q", i, op.Line, cursor, src[cursor])
				}
				if op.Op == OpEqual {
					out = append(out, op.Line)
				}
				cursor++
			case OpInsert:
				out = append(out, op.Line)
			default:
				return nil, rsderr.Newf(rsderr.KindParse, "unknown list-diff opcode %q", op.Op)
			}
		}
	}
	out = append(out, src[cursor:]...)
	return List{lines: out}, nil
}

// Combine appends other's lines to this list's. List combine is not
// idempotent in general; callers avoid combining overlapping lists.
func (l List) Combine(other Full) (Full, error) {
	o, ok := other.(List)
	if !ok {
		return nil, kindMismatch("combine", KindList, other.Kind())
	}
	lines := make([]string, 0, len(l.lines)+len(o.lines))
	lines = append(lines, l.lines...)
	lines = append(lines, o.lines...)
	return List{lines: lines}, nil
}

// Equal reports whether other is a list with the same lines in the same
// order.
func (l List) Equal(other Full) bool {
	o, ok := other.(List)
	if !ok || len(o.lines) != len(l.lines) {
		return false
	}
	for i, line := range l.lines {
		if o.lines[i] != line {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (l List) Clone() Full { return NewList(l.lines...) }

func (l List) compare(other List) int {
	for i, line := range l.lines {
		if i >= len(other.lines) {
			return 1
		}
		if line != other.lines[i] {
			if line < other.lines[i] {
				return -1
			}
			return 1
		}
	}
	if len(l.lines) < len(other.lines) {
		return -1
	}
	return 0
}

// OpAction is a single list-diff operation code.
type OpAction string

const (
	// OpEqual is a context line: present in both sides, verified on apply.
	OpEqual OpAction = "="

	// OpDelete removes a line, verified on apply.
	OpDelete OpAction = "-"

	// OpInsert adds a line.
	OpInsert OpAction = "+"
)

// LineOp is one operation within a hunk.
type LineOp struct {
	// Op is the operation code.
	Op OpAction

	// Line is the text the operation carries or verifies.
	Line string
}

// Hunk is one contiguous edit, with enough surrounding context lines to
// locate it unambiguously in the diff's base list.
type Hunk struct {
	// Start is the index in the base list where the hunk begins.
	Start int

	// Ops are the hunk's operations in order.
	Ops []LineOp
}

// ListDiff is the diff form of a list: an edit script of context-carrying
// hunks.
type ListDiff struct {
	// Context is the context width the diff was produced with.
	Context int

	// Hunks are the edits in base-list order.
	Hunks []Hunk
}

// Kind returns KindList.
func (ListDiff) Kind() Kind { return KindList }

// Empty reports whether the diff changes nothing.
func (d ListDiff) Empty() bool { return len(d.Hunks) == 0 }

// Clone returns a deep copy.
func (d ListDiff) Clone() Diff {
	hunks := make([]Hunk, len(d.Hunks))
	for i, hunk := range d.Hunks {
		ops := make([]LineOp, len(hunk.Ops))
		copy(ops, hunk.Ops)
		hunks[i] = Hunk{Start: hunk.Start, Ops: ops}
	}
	return ListDiff{Context: d.Context, Hunks: hunks}
}
