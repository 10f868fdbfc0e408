// Package homebrew implements the builtin provider for the homebrew
// packaging system: taps, formulas, and casks, with per-package install
// options carried as map elements.
package homebrew

import (
	"context"
	"sort"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/providers"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// Type is the provider id.
const Type = "packages.homebrew"

// Provider gathers homebrew state through the brew CLI and renders
// component diffs back into brew command lines.
type Provider struct {
	runner providers.CommandRunner
}

// New creates the provider with the given command runner.
func New(runner providers.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Type returns the provider id.
func (p *Provider) Type() string { return Type }

// Schema declares the component shape: atom sets for taps and for
// plainly-installed formulas and casks, plus option maps for packages
// installed with flags.
func (p *Provider) Schema() providers.Schema {
	return providers.Schema{
		Type: Type,
		Elements: []providers.ElementSpec{
			{Name: "taps", Kind: elements.KindSet},
			{Name: "simple_formulas", Kind: elements.KindSet},
			{Name: "formulas", Kind: elements.KindMap, ValueKind: elements.KindMap},
			{Name: "simple_casks", Kind: elements.KindSet},
			{Name: "casks", Kind: elements.KindMap, ValueKind: elements.KindMap},
		},
	}
}

// brewInfo is the subset of `brew info --json=v2` the gatherer reads.
type brewInfo struct {
	Casks []struct {
		FullToken string `json:"full_token"`
	} `json:"casks"`
	Formulae []struct {
		FullName  string `json:"full_name"`
		Installed []struct {
			InstalledOnRequest bool `json:"installed_on_request"`
		} `json:"installed"`
	} `json:"formulae"`
}

// Gather reads the tap list and the installed formula/cask inventory.
// Homebrew has a single unqualified component, so the qualifier is
// ignored.
func (p *Provider) Gather(ctx context.Context, qualifier state.Qualifier) ([]*state.Component, error) {
	taps, err := providers.RunLines(ctx, p.runner, []string{"brew", "tap"})
	if err != nil {
		return nil, rsderr.Wrap(rsderr.KindGatherFailed, "listing taps", err).WithKey(Type, nil)
	}

	var info brewInfo
	if err := providers.RunJSON(ctx, p.runner, []string{"brew", "info", "--json=v2", "--installed"}, &info); err != nil {
		return nil, rsderr.Wrap(rsderr.KindGatherFailed, "listing installed packages", err).WithKey(Type, nil)
	}

	var formulas []string
	for _, formula := range info.Formulae {
		for _, install := range formula.Installed {
			if install.InstalledOnRequest {
				formulas = append(formulas, formula.FullName)
				break
			}
		}
	}
	var casks []string
	for _, cask := range info.Casks {
		casks = append(casks, cask.FullToken)
	}

	component := state.NewFull(state.Key{Type: Type}, map[string]elements.Full{
		"taps":            elements.NewSet(taps...),
		"simple_formulas": elements.NewSet(formulas...),
		"formulas":        emptyOptionsMap(),
		"simple_casks":    elements.NewSet(casks...),
		"casks":           emptyOptionsMap(),
	}, nil)
	return []*state.Component{component}, nil
}

// Render translates a component of a diff system into brew commands.
// Taps change first so package installs can resolve, then formulas,
// then casks; within each element additions precede removals.
func (p *Provider) Render(ctx context.Context, component *state.Component, initial *state.Component) ([]string, error) {
	diff, err := providers.NormalizeForRender(component, initial, p.Schema())
	if err != nil {
		return nil, err
	}

	var commands []string
	emit := func(command []string, params []string) {
		if len(params) == 0 {
			return
		}
		for _, argv := range providers.ChunkParams(command, params) {
			commands = append(commands, providers.ShellJoin(argv))
		}
	}

	if taps, ok := setDiff(diff, "taps"); ok {
		emit([]string{"brew", "tap"}, taps.ToAdd())
		emit([]string{"brew", "untap"}, reverseSorted(taps.ToRemove()))
	}
	if formulas, ok := mapDiff(diff, "formulas"); ok {
		commands = append(commands, renderOptionInstalls(formulas, "brew", "install")...)
		emit([]string{"brew", "uninstall"}, formulas.KeysToRemove())
	}
	if formulas, ok := setDiff(diff, "simple_formulas"); ok {
		emit([]string{"brew", "install"}, formulas.ToAdd())
		emit([]string{"brew", "uninstall"}, formulas.ToRemove())
	}
	if casks, ok := mapDiff(diff, "casks"); ok {
		commands = append(commands, renderOptionInstalls(casks, "brew", "install", "--cask")...)
		emit([]string{"brew", "uninstall", "--cask"}, casks.KeysToRemove())
	}
	if casks, ok := setDiff(diff, "simple_casks"); ok {
		emit([]string{"brew", "install", "--cask"}, casks.ToAdd())
		emit([]string{"brew", "uninstall", "--cask"}, casks.ToRemove())
	}
	return commands, nil
}

// renderOptionInstalls emits one install command per package whose
// options map is being set, with the options rendered as long flags.
func renderOptionInstalls(diff elements.MapDiff, command ...string) []string {
	var commands []string
	for _, name := range diff.SetKeys() {
		argv := append(append([]string{}, command...), name)
		value, _ := diff.SetValue(name)
		if options, ok := value.(elements.Map); ok {
			for _, option := range options.Keys() {
				optionValue, _ := options.Get(option)
				if atom, ok := optionValue.(elements.Atom); ok {
					argv = append(argv, "--"+option+"="+string(atom))
				}
			}
		}
		commands = append(commands, providers.ShellJoin(argv))
	}
	return commands
}

func setDiff(c *state.Component, name string) (elements.SetDiff, bool) {
	element, ok := c.DiffElement(name)
	if !ok {
		return elements.SetDiff{}, false
	}
	d, ok := element.(elements.SetDiff)
	return d, ok && !d.Empty()
}

func mapDiff(c *state.Component, name string) (elements.MapDiff, bool) {
	element, ok := c.DiffElement(name)
	if !ok {
		return elements.MapDiff{}, false
	}
	d, ok := element.(elements.MapDiff)
	return d, ok && !d.Empty()
}

func emptyOptionsMap() elements.Full {
	m, _ := elements.NewMap(nil)
	return m
}

func reverseSorted(items []string) []string {
	sort.Sort(sort.Reverse(sort.StringSlice(items)))
	return items
}
