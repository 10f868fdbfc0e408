package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxCommandParams bounds how many parameters a single rendered command
// line carries before it is split into chunks.
const MaxCommandParams = 1024

// CommandRunner executes host commands during gather. Implementations
// only read host state; render never runs anything.
type CommandRunner interface {
	// Run executes argv and returns its standard output.
	Run(ctx context.Context, argv []string) (string, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run executes argv, capturing stdout. Stderr is attached to the error
// on failure.
func (ExecRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}
	log.Debug().Strs("argv", argv).Msg("running gather command")
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// RunLines executes argv and returns its non-empty output lines.
func RunLines(ctx context.Context, runner CommandRunner, argv []string) ([]string, error) {
	out, err := runner.Run(ctx, argv)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// RunJSON executes argv and decodes its output into v.
func RunJSON(ctx context.Context, runner CommandRunner, argv []string, v any) error {
	out, err := runner.Run(ctx, argv)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		return fmt.Errorf("decoding %s output: %w", argv[0], err)
	}
	return nil
}

// ChunkParams splits params across copies of command so no rendered line
// exceeds MaxCommandParams arguments. With no params the bare command is
// returned once; with an empty command and params, nothing.
func ChunkParams(command []string, params []string) [][]string {
	if len(params) == 0 {
		if len(command) == 0 {
			return nil
		}
		return [][]string{command}
	}
	chunkSize := MaxCommandParams - len(command)
	if chunkSize < 1 {
		chunkSize = 1
	}
	var chunks [][]string
	for start := 0; start < len(params); start += chunkSize {
		end := start + chunkSize
		if end > len(params) {
			end = len(params)
		}
		argv := make([]string, 0, len(command)+end-start)
		argv = append(argv, command...)
		argv = append(argv, params[start:end]...)
		chunks = append(chunks, argv)
	}
	return chunks
}

// ShellJoin renders argv as a single shell command line, quoting each
// word that needs it.
func ShellJoin(argv []string) string {
	words := make([]string, len(argv))
	for i, word := range argv {
		words[i] = shellQuote(word)
	}
	return strings.Join(words, " ")
}

// shellQuote single-quotes a word unless it is safe bare.
func shellQuote(word string) string {
	if word == "" {
		return "''"
	}
	if !strings.ContainsAny(word, " \t\n\"'\\$&|;<>(){}[]*?~#!`") {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'"'"'`) + "'"
}
