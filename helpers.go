package wheelmatrix

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoInterpreters is returned when no interpreter of the matrix could be
// resolved on the host, so there is nothing to build.
var ErrNoInterpreters = errors.New("no interpreters resolved on this host")

// ErrMissingOutput is returned by collection when an expected build output
// folder does not exist. It usually means a build step was skipped.
var ErrMissingOutput = errors.New("build output missing")

// MatchesExtension checks if a filename has any of the given extensions.
//
// Used by the collector to pick binaries out of a cargo profile folder and
// wheels out of the wheels folder.
//
// # Parameters
//
//   - filename: The file to check
//   - extensions: One or more extensions (with or without leading dot).
//     Empty extensions are ignored.
//
// # Returns
//
// Returns true if the filename ends with any of the extensions (case-insensitive).
//
// # Example
//
//	MatchesExtension("docr.DLL", ".dll", ".pyd") // true
//	MatchesExtension("docr.pyd", "pyd")          // true
//
// # Thread Safety
//
// This function is thread-safe and can be called concurrently.
func MatchesExtension(filename string, extensions ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// BuildError creates a standardized tool failure with output context.
//
// # Parameters
//
//   - tool: Name shown to the operator (maturin, cargo, upload)
//   - output: Combined output lines of the tool, may be nil
//   - err: The underlying error, may be nil
//
// # Returns
//
// An error whose message starts with "<tool> failed" and carries the
// trimmed output when there is any.
//
// # Example
//
// With error and output:
//
//	maturin failed: maturin exited with status 1
//
//	Output:
//	💥 maturin failed
//	  Caused by: Failed to find a python interpreter
//
// With error but no output:
//
//	maturin failed: maturin exited with status 1
func BuildError(tool string, output []string, err error) error {
	outputStr := strings.TrimSpace(strings.Join(output, "\n"))

	var prefix string
	if err != nil {
		prefix = fmt.Sprintf("%s failed: %v", tool, err)
	} else {
		prefix = fmt.Sprintf("%s failed", tool)
	}

	if outputStr != "" {
		return fmt.Errorf("%s\n\nOutput:\n%s", prefix, outputStr)
	}
	return errors.New(prefix)
}

// BuildFailures aggregates the failed jobs of a dispatch pass.
type BuildFailures struct {
	Failed []BuildOutcome
	Total  int
}

// Error lists every failing command line.
func (e *BuildFailures) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d wheel builds failed:", len(e.Failed), e.Total)
	for _, outcome := range e.Failed {
		fmt.Fprintf(&b, "\n  %s: %s", outcome.Job.Interpreter.ID, outcome.CommandLine)
	}
	return b.String()
}

// CommandLines returns the failing command lines in dispatch order.
func (e *BuildFailures) CommandLines() []string {
	lines := make([]string, 0, len(e.Failed))
	for _, outcome := range e.Failed {
		lines = append(lines, outcome.CommandLine)
	}
	return lines
}
