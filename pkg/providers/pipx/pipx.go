// Package pipx implements the builtin provider for pipx-managed Python
// applications. Each installed application is one entry in a map of
// install specs.
package pipx

import (
	"context"
	"strings"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// Type is the provider id.
const Type = "packages.pipx"

// Provider gathers pipx state through the pipx CLI and renders component
// diffs back into pipx command lines.
type Provider struct {
	runner providers.CommandRunner
}

// New creates the provider with the given command runner.
func New(runner providers.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Type returns the provider id.
func (p *Provider) Type() string { return Type }

// Schema declares a single map element of install specs keyed by
// application name.
func (p *Provider) Schema() providers.Schema {
	return providers.Schema{
		Type: Type,
		Elements: []providers.ElementSpec{
			{Name: "applications", Kind: elements.KindMap, ValueKind: elements.KindMap},
		},
	}
}

// pipxList is the subset of `pipx list --json` the gatherer reads.
type pipxList struct {
	Venvs map[string]struct {
		Metadata struct {
			MainPackage struct {
				PackageOrURL        string   `json:"package_or_url"`
				PackageVersion      string   `json:"package_version"`
				PipArgs             []string `json:"pip_args"`
				Suffix              string   `json:"suffix"`
				IncludeDependencies bool     `json:"include_dependencies"`
			} `json:"main_package"`
			PythonVersion string `json:"python_version"`
		} `json:"metadata"`
	} `json:"venvs"`
}

// Gather reads the installed application inventory. Pipx has a single
// unqualified component, so the qualifier is ignored.
func (p *Provider) Gather(ctx context.Context, qualifier state.Qualifier) ([]*state.Component, error) {
	var list pipxList
	if err := providers.RunJSON(ctx, p.runner, []string{"pipx", "list", "--json"}, &list); err != nil {
		return nil, rsderr.Wrap(rsderr.KindGatherFailed, "listing pipx applications", err).WithKey(Type, nil)
	}

	applications := make(map[string]elements.Full, len(list.Venvs))
	for name, venv := range list.Venvs {
		main := venv.Metadata.MainPackage
		includeDeps := "no"
		if main.IncludeDependencies {
			includeDeps = "yes"
		}
		spec, err := elements.NewMap(map[string]elements.Full{
			"package_spec":   elements.Atom(main.PackageOrURL),
			"version":        elements.Atom(main.PackageVersion),
			"pip_args":       elements.Atom(strings.Join(main.PipArgs, " ")),
			"suffix":         elements.Atom(main.Suffix),
			"python_version": elements.Atom(venv.Metadata.PythonVersion),
			"include_deps":   elements.Atom(includeDeps),
		})
		if err != nil {
			return nil, err
		}
		applications[name] = spec
	}

	applicationsMap, err := elements.NewMap(applications)
	if err != nil {
		return nil, err
	}
	component := state.NewFull(state.Key{Type: Type}, map[string]elements.Full{
		"applications": applicationsMap,
	}, nil)
	return []*state.Component{component}, nil
}

// Render translates a component of a diff system into pipx commands:
// uninstalls first, then, in application-name order, an install for each
// application the initial state lacks or an upgrade for one it already
// has.
func (p *Provider) Render(ctx context.Context, component *state.Component, initial *state.Component) ([]string, error) {
	diff, err := providers.NormalizeForRender(component, initial, p.Schema())
	if err != nil {
		return nil, err
	}
	element, ok := diff.DiffElement("applications")
	if !ok {
		return nil, nil
	}
	applications, ok := element.(elements.MapDiff)
	if !ok {
		return nil, rsderr.New(rsderr.KindSchemaMismatch, "applications is not a map diff").
			WithKey(Type, component.Qualifier()).WithElement("applications")
	}

	var commands []string
	for _, name := range applications.KeysToRemove() {
		commands = append(commands, providers.ShellJoin([]string{"pipx", "uninstall", name}))
	}
	for _, name := range applications.SetKeys() {
		value, _ := applications.SetValue(name)
		spec, ok := value.(elements.Map)
		if !ok {
			return nil, rsderr.Newf(rsderr.KindSchemaMismatch, "install spec for %q is not a map", name).
				WithKey(Type, component.Qualifier()).WithElement("applications")
		}
		if initialHas(initial, name) {
			commands = append(commands, renderUpgrade(name, spec))
		} else {
			commands = append(commands, renderInstall(spec))
		}
	}
	return commands, nil
}

// initialHas reports whether the initial full component already holds an
// application under the given name.
func initialHas(initial *state.Component, name string) bool {
	if initial == nil || initial.Mode() != state.ModeFull {
		return false
	}
	element, ok := initial.FullElement("applications")
	if !ok {
		return false
	}
	applications, ok := element.(elements.Map)
	if !ok {
		return false
	}
	_, present := applications.Get(name)
	return present
}

func renderInstall(spec elements.Map) string {
	packageSpec := atomValue(spec, "package_spec")
	version := atomValue(spec, "version")
	if version != "" && !strings.Contains(packageSpec, "=") {
		packageSpec = packageSpec + "==" + version
	}
	argv := []string{"pipx", "install", packageSpec}
	options := map[string]string{
		"--pip-args": atomValue(spec, "pip_args"),
		"--suffix":   atomValue(spec, "suffix"),
		"--python":   atomValue(spec, "python_version"),
	}
	for _, flag := range []string{"--pip-args", "--python", "--suffix"} {
		if value := options[flag]; value != "" {
			argv = append(argv, flag, value)
		}
	}
	if atomValue(spec, "include_deps") == "yes" {
		argv = append(argv, "--include-deps")
	}
	return providers.ShellJoin(argv)
}

func renderUpgrade(name string, spec elements.Map) string {
	argv := []string{"pipx", "upgrade"}
	if version := atomValue(spec, "version"); version != "" {
		argv = append(argv, "--pip-args", name+"=="+version)
	}
	argv = append(argv, name)
	return providers.ShellJoin(argv)
}

func atomValue(m elements.Map, key string) string {
	value, ok := m.Get(key)
	if !ok {
		return ""
	}
	atom, ok := value.(elements.Atom)
	if !ok {
		return ""
	}
	return string(atom)
}
