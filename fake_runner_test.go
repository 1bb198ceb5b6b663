package wheelmatrix

import (
	"context"
	"fmt"
	"strings"
)

// fakeRunner records invocations and answers them from a rule function.
type fakeRunner struct {
	calls  []Invocation
	handle func(inv Invocation) (*RunResult, error)
}

func (f *fakeRunner) Run(_ context.Context, inv Invocation) (*RunResult, error) {
	f.calls = append(f.calls, inv)
	if f.handle == nil {
		return &RunResult{Output: []string{}}, nil
	}
	return f.handle(inv)
}

// callsTo returns the recorded invocations of the named tool.
func (f *fakeRunner) callsTo(name string) []Invocation {
	var calls []Invocation
	for _, inv := range f.calls {
		if inv.Name == name {
			calls = append(calls, inv)
		}
	}
	return calls
}

func exitWith(code int, lines ...string) (*RunResult, error) {
	return &RunResult{Output: lines, ExitCode: code}, fmt.Errorf("exited with status %d", code)
}

// argAfter returns the argument following flag, or "".
func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// mapLocator resolves from a fixed table and counts lookups.
type mapLocator struct {
	paths   map[InterpreterID]string
	lookups map[InterpreterID]int
}

func newMapLocator(paths map[InterpreterID]string) *mapLocator {
	return &mapLocator{paths: paths, lookups: make(map[InterpreterID]int)}
}

func (m *mapLocator) Name() string { return "map" }

func (m *mapLocator) Resolve(_ context.Context, id InterpreterID) (string, bool) {
	m.lookups[id]++
	path, ok := m.paths[id]
	return path, ok
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
