package pipeline

import (
	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/state"
)

// package managers that are themselves installed through homebrew gain a
// dependency edge on the homebrew component when both are present.
var homebrewHosted = map[string]string{
	"packages.pipx": "pipx",
	"packages.asdf": "asdf",
}

// MarkAutoDependencies returns a copy of the system with dependency
// edges added for components whose owning tool is installed by another
// component in the same system.
func MarkAutoDependencies(s *state.System) *state.System {
	homebrewKey := state.Key{Type: "packages.homebrew"}
	homebrew, ok := s.Get(homebrewKey)
	if !ok || homebrew.Mode() != state.ModeFull {
		return s
	}

	var rebuilt []*state.Component
	changed := false
	for _, component := range s.Components() {
		formula, hosted := homebrewHosted[component.Type()]
		if hosted && len(component.Qualifier()) == 0 &&
			homebrewInstalls(homebrew, formula) && !dependsOn(component, homebrewKey) {
			component = component.WithDependencies(append(component.Dependencies(), homebrewKey))
			changed = true
		}
		rebuilt = append(rebuilt, component)
	}
	if !changed {
		return s
	}
	return state.NewSystem(rebuilt...)
}

// homebrewInstalls reports whether the homebrew component installs the
// named formula, plainly or with options.
func homebrewInstalls(homebrew *state.Component, formula string) bool {
	if element, ok := homebrew.FullElement("simple_formulas"); ok {
		if set, ok := element.(elements.Set); ok && set.Contains(formula) {
			return true
		}
	}
	if element, ok := homebrew.FullElement("formulas"); ok {
		if m, ok := element.(elements.Map); ok {
			if _, present := m.Get(formula); present {
				return true
			}
		}
	}
	return false
}

func dependsOn(component *state.Component, key state.Key) bool {
	for _, dep := range component.Dependencies() {
		if dep.Equal(key) {
			return true
		}
	}
	return false
}
