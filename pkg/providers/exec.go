package providers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// ExecProvider adapts an external provider executable. The executable is
// invoked as `prog gather [QUALIFIER]`, writing a state document of full
// components to stdout, or as `prog render [QUALIFIER]`, reading a state
// document holding the component to render (plus the initial full
// component when available) on stdin and writing command lines to
// stdout. A nonzero exit surfaces as gather-failed or render-failed with
// the captured stderr.
type ExecProvider struct {
	id      string
	program string
	schema  Schema
}

// NewExecProvider wires an external executable as a provider. The schema
// may be zero when the provider ships no manifest.
func NewExecProvider(id, program string, schema Schema) *ExecProvider {
	return &ExecProvider{id: id, program: program, schema: schema}
}

// Type returns the provider id.
func (p *ExecProvider) Type() string { return p.id }

// Schema returns the manifest-declared schema.
func (p *ExecProvider) Schema() Schema { return p.schema }

// Gather invokes the executable's gather subcommand and parses the
// resulting state document.
func (p *ExecProvider) Gather(ctx context.Context, qualifier state.Qualifier) ([]*state.Component, error) {
	stdout, err := p.invoke(ctx, "gather", qualifier, nil)
	if err != nil {
		return nil, rsderr.Wrap(rsderr.KindGatherFailed, "external provider gather failed", err).
			WithKey(p.id, qualifier)
	}
	system, err := state.UnmarshalSystem(stdout)
	if err != nil {
		return nil, rsderr.Wrap(rsderr.KindGatherFailed, "external provider emitted a malformed state document", err).
			WithKey(p.id, qualifier)
	}
	var components []*state.Component
	for _, component := range system.Components() {
		if component.Mode() != state.ModeFull {
			return nil, rsderr.Newf(rsderr.KindGatherFailed,
				"external provider emitted a %s component from gather", component.Mode()).
				WithKey(p.id, qualifier)
		}
		if component.Type() != p.id {
			return nil, rsderr.Newf(rsderr.KindGatherFailed,
				"external provider emitted a component of type %q", component.Type()).
				WithKey(p.id, qualifier)
		}
		if err := p.schema.Validate(component); err != nil {
			return nil, err
		}
		components = append(components, component)
	}
	return components, nil
}

// Render invokes the executable's render subcommand with the component
// (and initial context, when present) on stdin and returns its output
// lines as the command stream.
func (p *ExecProvider) Render(ctx context.Context, component *state.Component, initial *state.Component) ([]string, error) {
	input := []*state.Component{component}
	if initial != nil {
		input = append(input, initial)
	}
	doc, err := state.MarshalSystem(state.NewSystem(input...))
	if err != nil {
		return nil, err
	}
	stdout, err := p.invoke(ctx, "render", component.Qualifier(), doc)
	if err != nil {
		return nil, rsderr.Wrap(rsderr.KindRenderFailed, "external provider render failed", err).
			WithKey(p.id, component.Qualifier())
	}
	var commands []string
	for _, line := range strings.Split(string(stdout), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		commands = append(commands, line)
	}
	return commands, nil
}

// invoke runs the provider executable with the given subcommand and
// optional stdin, capturing stdout and attaching stderr to errors.
func (p *ExecProvider) invoke(ctx context.Context, subcommand string, qualifier state.Qualifier, stdin []byte) ([]byte, error) {
	args := []string{subcommand}
	if len(qualifier) > 0 {
		args = append(args, qualifier.String())
	}
	cmd := exec.CommandContext(ctx, p.program, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s %s: %w", p.program, subcommand, err)
		}
		return nil, fmt.Errorf("%s %s: %w: %s", p.program, subcommand, err, msg)
	}
	return stdout.Bytes(), nil
}

type manifestElementWire struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	ValueKind string `yaml:"value_kind"`
}

type manifestWire struct {
	Type     string                `yaml:"type"`
	Elements []manifestElementWire `yaml:"elements"`
}

// LoadManifest parses an external provider's manifest.yaml into its
// element schema.
func LoadManifest(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("reading provider manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest bytes into a schema.
func ParseManifest(data []byte) (Schema, error) {
	var wire manifestWire
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return Schema{}, rsderr.Wrap(rsderr.KindParse, "malformed provider manifest", err)
	}
	if wire.Type == "" {
		return Schema{}, rsderr.New(rsderr.KindParse, "provider manifest declares no type")
	}
	schema := Schema{Type: wire.Type}
	for _, element := range wire.Elements {
		kind, err := elements.KindFromTag(element.Kind)
		if err != nil {
			return Schema{}, err
		}
		spec := ElementSpec{Name: element.Name, Kind: kind}
		if element.ValueKind != "" {
			valueKind, err := elements.KindFromTag(element.ValueKind)
			if err != nil {
				return Schema{}, err
			}
			spec.ValueKind = valueKind
		}
		schema.Elements = append(schema.Elements, spec)
	}
	return schema, nil
}
