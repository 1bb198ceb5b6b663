package wheelmatrix

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/magefile/mage/sh"
)

// Invocation describes one external process call.
type Invocation struct {
	Name string            // Executable name or path
	Args []string          // Arguments
	Dir  string            // Working directory, empty for the current one
	Env  map[string]string // Variables added to the parent environment for this call only
}

// CommandLine renders the invocation for logs and failure reports.
//
// Environment overlays are shown as a prefix:
//
//	CARGO_BUILD_TARGET=x86_64-pc-windows-msvc maturin build --release
func (inv Invocation) CommandLine() string {
	var parts []string

	keys := make([]string, 0, len(inv.Env))
	for key := range inv.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, inv.Env[key]))
	}

	parts = append(parts, quoteArg(inv.Name))
	for _, arg := range inv.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"") {
		return fmt.Sprintf("%q", arg)
	}
	return arg
}

// RunResult is the observable result of a finished process.
type RunResult struct {
	Output   []string // Combined stdout/stderr, one entry per line
	ExitCode int      // Exit status, -1 when the process could not be started
}

// Runner executes external processes.
//
// Run blocks until the process exits. A non-nil error means the process
// failed to start or exited non-zero; the RunResult is still returned with
// whatever output was captured.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*RunResult, error)
}

// ExecRunner runs invocations as child processes.
type ExecRunner struct{}

// Run starts the process and waits for it.
func (ExecRunner) Run(ctx context.Context, inv Invocation) (*RunResult, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir

	// Overlay the call specific variables on the parent environment
	cmd.Env = os.Environ()
	for key, value := range inv.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	output, err := cmd.CombinedOutput()
	result := &RunResult{Output: splitLines(string(output))}

	if err == nil {
		return result, nil
	}
	if !sh.CmdRan(err) {
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run %s: %w", inv.Name, err)
	}
	result.ExitCode = sh.ExitStatus(err)
	return result, fmt.Errorf("%s exited with status %d", inv.Name, result.ExitCode)
}

// splitLines splits process output into lines without a trailing empty one.
func splitLines(output string) []string {
	output = strings.TrimRight(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	if output == "" {
		return []string{}
	}
	return strings.Split(output, "\n")
}
