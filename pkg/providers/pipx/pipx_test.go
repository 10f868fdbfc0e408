package pipx

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

type fakeRunner struct {
	outputs map[string]string
}

func (f fakeRunner) Run(ctx context.Context, argv []string) (string, error) {
	key := strings.Join(argv, " ")
	out, ok := f.outputs[key]
	if !ok {
		return "", fmt.Errorf("unexpected command %q", key)
	}
	return out, nil
}

const pipxListJSON = `{
  "venvs": {
    "httpie": {
      "metadata": {
        "main_package": {
          "package_or_url": "httpie",
          "package_version": "3.2.2",
          "pip_args": [],
          "suffix": "",
          "include_dependencies": false
        },
        "python_version": "3.12.1"
      }
    }
  }
}`

func applicationsOf(t *testing.T, component *state.Component) elements.Map {
	t.Helper()
	element, ok := component.FullElement("applications")
	if !ok {
		t.Fatalf("component has no applications element")
	}
	return element.(elements.Map)
}

func TestGather(t *testing.T) {
	runner := fakeRunner{outputs: map[string]string{"pipx list --json": pipxListJSON}}
	components, err := New(runner).Gather(context.Background(), nil)
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(components) != 1 {
		t.Fatalf("expected one component, got %d", len(components))
	}
	applications := applicationsOf(t, components[0])
	spec, ok := applications.Get("httpie")
	if !ok {
		t.Fatalf("expected the httpie application")
	}
	version, _ := spec.(elements.Map).Get("version")
	if !version.Equal(elements.Atom("3.2.2")) {
		t.Errorf("unexpected version: %v", version)
	}
	if err := New(runner).Schema().Validate(components[0]); err != nil {
		t.Errorf("gathered component violates the schema: %v", err)
	}
}

func TestGatherSurfacesCommandFailure(t *testing.T) {
	_, err := New(fakeRunner{}).Gather(context.Background(), nil)
	if !rsderr.IsKind(err, rsderr.KindGatherFailed) {
		t.Errorf("expected gather-failed, got %v", err)
	}
}

func applicationSpec(t *testing.T, fields map[string]string) elements.Map {
	t.Helper()
	entries := make(map[string]elements.Full, len(fields))
	for key, value := range fields {
		entries[key] = elements.Atom(value)
	}
	spec, err := elements.NewMap(entries)
	if err != nil {
		t.Fatalf("NewMap failed: %v", err)
	}
	return spec
}

func componentWith(t *testing.T, applications map[string]elements.Full) *state.Component {
	t.Helper()
	m, err := elements.NewMap(applications)
	if err != nil {
		t.Fatalf("NewMap failed: %v", err)
	}
	return state.NewFull(state.Key{Type: Type}, map[string]elements.Full{"applications": m}, nil)
}

func TestRenderInstallAndUninstall(t *testing.T) {
	spec := applicationSpec(t, map[string]string{
		"package_spec":   "httpie",
		"version":        "3.2.2",
		"pip_args":       "",
		"suffix":         "",
		"python_version": "3.12.1",
		"include_deps":   "no",
	})
	host := componentWith(t, map[string]elements.Full{
		"old-tool": applicationSpec(t, map[string]string{
			"package_spec":   "old-tool",
			"version":        "1.0",
			"pip_args":       "",
			"suffix":         "",
			"python_version": "3.12.1",
			"include_deps":   "no",
		}),
	})
	role := componentWith(t, map[string]elements.Full{"httpie": spec})

	diff, err := host.DiffAgainst(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	commands, err := New(fakeRunner{}).Render(context.Background(), diff, host)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	expected := []string{
		"pipx uninstall old-tool",
		"pipx install httpie==3.2.2 --python 3.12.1",
	}
	if !reflect.DeepEqual(commands, expected) {
		t.Errorf("expected %v, got %v", expected, commands)
	}
}

func TestRenderUpgradeForExistingApplication(t *testing.T) {
	oldSpec := applicationSpec(t, map[string]string{
		"package_spec":   "httpie",
		"version":        "3.2.1",
		"pip_args":       "",
		"suffix":         "",
		"python_version": "3.12.1",
		"include_deps":   "no",
	})
	newSpec := applicationSpec(t, map[string]string{
		"package_spec":   "httpie",
		"version":        "3.2.2",
		"pip_args":       "",
		"suffix":         "",
		"python_version": "3.12.1",
		"include_deps":   "no",
	})
	host := componentWith(t, map[string]elements.Full{"httpie": oldSpec})
	role := componentWith(t, map[string]elements.Full{"httpie": newSpec})

	diff, err := host.DiffAgainst(role)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	commands, err := New(fakeRunner{}).Render(context.Background(), diff, host)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	expected := []string{"pipx upgrade --pip-args httpie==3.2.2 httpie"}
	if !reflect.DeepEqual(commands, expected) {
		t.Errorf("expected %v, got %v", expected, commands)
	}
}
