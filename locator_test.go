package wheelmatrix

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeInterpreter(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create interpreter directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("stub"), 0o755); err != nil {
		t.Fatalf("failed to write interpreter: %v", err)
	}
}

func TestFixedPathLocator(t *testing.T) {
	root := t.TempDir()
	locator := &FixedPathLocator{
		Template: filepath.Join(root, "python{{major}}{{minor}}{{suffix}}", "python.exe"),
	}

	installed := filepath.Join(root, "python38-x64", "python.exe")
	writeInterpreter(t, installed)

	// A directory where the executable should be must not resolve
	if err := os.MkdirAll(filepath.Join(root, "python39", "python.exe"), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	testCases := []struct {
		id       InterpreterID
		wantPath string
		wantOK   bool
	}{
		{InterpreterID{Major: 3, Minor: 8, Arch: Arch64}, installed, true},
		{InterpreterID{Major: 3, Minor: 8, Arch: Arch32}, "", false},
		{InterpreterID{Major: 3, Minor: 9, Arch: Arch32}, "", false},
		{InterpreterID{Major: 3, Minor: 7, Arch: Arch64}, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.id.String(), func(t *testing.T) {
			path, ok := locator.Resolve(context.Background(), tc.id)
			if ok != tc.wantOK || path != tc.wantPath {
				t.Errorf("Resolve(%s) = (%q, %v), expected (%q, %v)", tc.id, path, ok, tc.wantPath, tc.wantOK)
			}
		})
	}
}

func TestFixedPathLocatorExpand(t *testing.T) {
	locator := &FixedPathLocator{Template: DefaultFixedPathTemplate}

	got32 := locator.Expand(InterpreterID{Major: 3, Minor: 7, Arch: Arch32})
	if got32 != `C:\python37\python.exe` {
		t.Errorf("unexpected 32-bit path: %s", got32)
	}

	got64 := locator.Expand(InterpreterID{Major: 3, Minor: 9, Arch: Arch64})
	if got64 != `C:\python39-x64\python.exe` {
		t.Errorf("unexpected 64-bit path: %s", got64)
	}
}

func TestLauncherLocator(t *testing.T) {
	root := t.TempDir()
	py38 := filepath.Join(root, "Python38", "python.exe")
	py39 := filepath.Join(root, "Python39", "python.exe")
	writeInterpreter(t, py38)
	writeInterpreter(t, py39)

	runner := &fakeRunner{handle: func(inv Invocation) (*RunResult, error) {
		switch inv.Args[0] {
		case "-3.8-64":
			return &RunResult{Output: []string{py38, ""}}, nil
		case "-3.9-64":
			return &RunResult{Output: []string{"warning: something", py39}}, nil
		case "-3.9-32":
			return &RunResult{Output: []string{"   "}}, nil
		case "-3.7-64":
			return &RunResult{Output: []string{py38, "DeprecationWarning: trailing noise"}}, nil
		case "-3.7-32":
			return &RunResult{Output: []string{filepath.Join(root, "Python37-32", "python.exe")}}, nil
		case "-3.10-64":
			return &RunResult{Output: []string{filepath.Join(root, "Python38")}}, nil
		default:
			return exitWith(103, "No suitable Python runtime found")
		}
	}}
	locator := &LauncherLocator{Launcher: "py", Runner: runner}

	testCases := []struct {
		name     string
		id       InterpreterID
		wantPath string
		wantOK   bool
	}{
		{"path", InterpreterID{Major: 3, Minor: 8, Arch: Arch64}, py38, true},
		{"warning before path", InterpreterID{Major: 3, Minor: 9, Arch: Arch64}, py39, true},
		{"blank output", InterpreterID{Major: 3, Minor: 9, Arch: Arch32}, "", false},
		{"launcher failure", InterpreterID{Major: 3, Minor: 8, Arch: Arch32}, "", false},
		{"warning after path", InterpreterID{Major: 3, Minor: 7, Arch: Arch64}, "", false},
		{"missing file", InterpreterID{Major: 3, Minor: 7, Arch: Arch32}, "", false},
		{"directory", InterpreterID{Major: 3, Minor: 10, Arch: Arch64}, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path, ok := locator.Resolve(context.Background(), tc.id)
			if ok != tc.wantOK || path != tc.wantPath {
				t.Errorf("Resolve(%s) = (%q, %v), expected (%q, %v)", tc.id, path, ok, tc.wantPath, tc.wantOK)
			}
		})
	}

	first := runner.calls[0]
	if first.Name != "py" || argAfter(first.Args, "-c") != "import sys; print(sys.executable)" {
		t.Errorf("unexpected launcher invocation: %s", first.CommandLine())
	}
}

func TestMemoLocatorResolvesOnce(t *testing.T) {
	hit := InterpreterID{Major: 3, Minor: 8, Arch: Arch64}
	miss := InterpreterID{Major: 3, Minor: 8, Arch: Arch32}
	inner := newMapLocator(map[InterpreterID]string{hit: "/py38"})
	memo := NewMemoLocator(inner)

	for i := 0; i < 3; i++ {
		if path, ok := memo.Resolve(context.Background(), hit); !ok || path != "/py38" {
			t.Fatalf("expected /py38, got (%q, %v)", path, ok)
		}
		if _, ok := memo.Resolve(context.Background(), miss); ok {
			t.Fatal("expected miss to stay unresolved")
		}
	}

	if inner.lookups[hit] != 1 || inner.lookups[miss] != 1 {
		t.Errorf("expected one lookup per identifier, got %v", inner.lookups)
	}
	if memo.Name() != "map" {
		t.Errorf("expected wrapped name, got %s", memo.Name())
	}
}

func TestLocatorFactorySelect(t *testing.T) {
	cfg := LocatorConfig{
		FixedPath: DefaultFixedPathTemplate,
		Launcher:  "wheelmatrix-test-launcher-that-does-not-exist",
	}
	factory := NewLocatorFactory(cfg, &fakeRunner{})

	testCases := []struct {
		strategy string
		want     string
	}{
		{StrategyFixedPath, StrategyFixedPath},
		{StrategyLauncher, StrategyLauncher},
		{StrategyAuto, StrategyFixedPath},
		{"", StrategyFixedPath},
	}

	for _, tc := range testCases {
		t.Run(tc.strategy, func(t *testing.T) {
			locator, err := factory.Select(tc.strategy)
			if err != nil {
				t.Fatalf("Select(%q) returned error: %v", tc.strategy, err)
			}
			if locator.Name() != tc.want {
				t.Errorf("Select(%q) = %s, expected %s", tc.strategy, locator.Name(), tc.want)
			}
			if _, ok := locator.(*MemoLocator); !ok {
				t.Errorf("expected selected locator to be memoized, got %T", locator)
			}
		})
	}

	if _, err := factory.Select("registry"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestResolveAllKeepsOrderAndSkipsMissing(t *testing.T) {
	ids := BuildMatrix(VersionRange{Major: 3, MinMinor: 8, MaxMinor: 9})
	locator := newMapLocator(map[InterpreterID]string{
		{Major: 3, Minor: 9, Arch: Arch64}: "/py39-64",
		{Major: 3, Minor: 8, Arch: Arch64}: "/py38-64",
	})

	resolved := ResolveAll(context.Background(), locator, ids, nil)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved interpreters, got %d", len(resolved))
	}
	if resolved[0].Path != "/py38-64" || resolved[1].Path != "/py39-64" {
		t.Errorf("resolved interpreters out of matrix order: %+v", resolved)
	}
}
