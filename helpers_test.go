package wheelmatrix

import (
	"errors"
	"strings"
	"testing"
)

func TestMatchesExtension(t *testing.T) {
	testCases := []struct {
		filename   string
		extensions []string
		expected   bool
	}{
		{"docrlib.dll", []string{".dll"}, true},
		{"DOCRLIB.DLL", []string{".dll"}, true},
		{"docrpy.pyd", []string{"pyd"}, true},
		{"docrpy-0.1.0-cp38-none-win32.whl", []string{".whl"}, true},
		{"docrlib.d", []string{".dll", ".pyd"}, false},
		{"libdocr.rlib", []string{".so", ".dylib"}, false},
		{"docr.exe", []string{""}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			if got := MatchesExtension(tc.filename, tc.extensions...); got != tc.expected {
				t.Errorf("MatchesExtension(%s, %v) = %v, expected %v", tc.filename, tc.extensions, got, tc.expected)
			}
		})
	}
}

func TestBuildError(t *testing.T) {
	err := BuildError("maturin", []string{"Compiling docrpy", "error: could not compile"}, errors.New("exit status 1"))
	msg := err.Error()
	for _, want := range []string{"maturin failed: exit status 1", "Output:", "could not compile"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}

	if got := BuildError("cargo", nil, errors.New("exit status 101")).Error(); got != "cargo failed: exit status 101" {
		t.Errorf("unexpected message without output: %q", got)
	}
	if got := BuildError("twine", []string{"", " "}, nil).Error(); got != "twine failed" {
		t.Errorf("unexpected message without error: %q", got)
	}
}

func TestBuildFailures(t *testing.T) {
	failures := &BuildFailures{
		Total: 3,
		Failed: []BuildOutcome{
			{Job: BuildJob{Interpreter: ResolvedInterpreter{ID: InterpreterID{Major: 3, Minor: 7, Arch: Arch32}}}, CommandLine: "maturin build -i py37"},
			{Job: BuildJob{Interpreter: ResolvedInterpreter{ID: InterpreterID{Major: 3, Minor: 9, Arch: Arch64}}}, CommandLine: "maturin build -i py39"},
		},
	}

	msg := failures.Error()
	if !strings.HasPrefix(msg, "2 of 3 wheel builds failed") {
		t.Errorf("unexpected summary: %q", msg)
	}
	if !strings.Contains(msg, "3.7-32: maturin build -i py37") || !strings.Contains(msg, "3.9-64: maturin build -i py39") {
		t.Errorf("expected every failing command in %q", msg)
	}
	if lines := failures.CommandLines(); len(lines) != 2 || lines[1] != "maturin build -i py39" {
		t.Errorf("unexpected command lines: %v", lines)
	}
}
