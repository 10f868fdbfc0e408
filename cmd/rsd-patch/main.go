// Command rsd-patch applies a serialized list diff to a file's lines and
// prints the result. Renderers emit rsd-patch invocations for file
// edits so the rendered command stream stays plain shell.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rsdeploy/rsd/pkg/elements"
	"github.com/rsdeploy/rsd/pkg/rsderr"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: rsd-patch TARGET LIST_DIFF")
		os.Exit(rsderr.ExitParse)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(rsderr.ExitCode(err))
	}
}

func run(path, rawDiff string) error {
	diff, err := elements.UnmarshalDiff([]byte(rawDiff))
	if err != nil {
		return err
	}
	listDiff, ok := diff.(elements.ListDiff)
	if !ok {
		return rsderr.Newf(rsderr.KindParse, "expected a list diff, got %s", diff.Kind())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	content := strings.TrimSuffix(string(data), "\n")
	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}

	applied, err := elements.NewList(lines...).Apply(listDiff)
	if err != nil {
		return err
	}
	result := applied.(elements.List)
	for _, line := range result.Lines() {
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
