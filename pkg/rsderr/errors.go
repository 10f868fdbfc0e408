// Package rsderr defines the closed error taxonomy used throughout the
// state algebra and the provider pipeline. Every failure surfaced by the
// core carries one of the kinds below, the offending component key when
// one is known, and a human-readable message.
package rsderr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for exit-code mapping and programmatic handling.
type Kind string

const (
	// KindParse indicates malformed serialized state or an unknown kind tag.
	KindParse Kind = "parse-error"

	// KindSchemaMismatch indicates a component's elements don't match its
	// provider's declared schema.
	KindSchemaMismatch Kind = "schema-mismatch"

	// KindKindMismatch indicates an element operation received operands of
	// different element kinds.
	KindKindMismatch Kind = "kind-mismatch"

	// KindComponentMismatch indicates diff/apply/combine across components
	// with differing (type, qualifier).
	KindComponentMismatch Kind = "component-mismatch"

	// KindMissingBase indicates an apply of a diff component to a host
	// lacking the corresponding full component.
	KindMissingBase Kind = "missing-base"

	// KindListDrift indicates a list-diff hunk could not locate its context
	// during apply.
	KindListDrift Kind = "list-drift"

	// KindUnknownProvider indicates a registry lookup failed.
	KindUnknownProvider Kind = "unknown-provider"

	// KindGatherFailed indicates a provider gather subprocess or logic failed.
	KindGatherFailed Kind = "gather-failed"

	// KindRenderFailed indicates a provider render subprocess or logic failed.
	KindRenderFailed Kind = "render-failed"

	// KindInvalidSystem indicates a dependency edge points to a component
	// not present in the system.
	KindInvalidSystem Kind = "invalid-system"
)

// Key identifies the state being operated on when an error occurred.
// Zero-valued fields are omitted from the rendered message.
type Key struct {
	// Type is the provider type of the offending component.
	Type string `json:"type,omitempty"`

	// Qualifier is the offending component's qualifier path.
	Qualifier []string `json:"qualifier,omitempty"`

	// Element is the named element within the component, if known.
	Element string `json:"element,omitempty"`
}

// String renders the key as type.seg/seg:element.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Type)
	if len(k.Qualifier) > 0 {
		sb.WriteString(".")
		sb.WriteString(strings.Join(k.Qualifier, "/"))
	}
	if k.Element != "" {
		sb.WriteString(":")
		sb.WriteString(k.Element)
	}
	return sb.String()
}

// IsZero reports whether no key context was recorded.
func (k Key) IsZero() bool {
	return k.Type == "" && len(k.Qualifier) == 0 && k.Element == ""
}

// Error is a classified error with component context.
type Error struct {
	// Kind is the taxonomy kind.
	Kind Kind `json:"kind"`

	// Key is the offending component key, if known.
	Key Key `json:"key,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface, separating kind, key, and message.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", e.Kind)
	if !e.Key.IsZero() {
		fmt.Fprintf(&sb, " %s", e.Key)
	}
	fmt.Fprintf(&sb, ": %s", e.Message)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %s", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error-chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two classified errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithKey attaches the component type and qualifier to the error.
func (e *Error) WithKey(componentType string, qualifier []string) *Error {
	e.Key.Type = componentType
	e.Key.Qualifier = qualifier
	return e
}

// WithElement attaches the element name to the error.
func (e *Error) WithElement(name string) *Error {
	e.Key.Element = name
	return e
}

// KindOf extracts the taxonomy kind of err, or "" if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// CLI exit codes per error class. Codes 64 and above are reserved.
const (
	ExitOK           = 0
	ExitParse        = 1
	ExitInvalidState = 2
	ExitProvider     = 3
	ExitApply        = 4
)

// ExitCode maps an error to the CLI exit code for its kind.
// Unclassified errors map to the parse/input class.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindParse, KindKindMismatch, KindComponentMismatch:
		return ExitParse
	case KindSchemaMismatch, KindInvalidSystem:
		return ExitInvalidState
	case KindUnknownProvider, KindGatherFailed, KindRenderFailed:
		return ExitProvider
	case KindMissingBase, KindListDrift:
		return ExitApply
	default:
		return ExitParse
	}
}
