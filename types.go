package wheelmatrix

import (
	"fmt"
	"strings"
)

// Arch is the pointer width of an interpreter installation.
type Arch int

// Supported architectures.
const (
	Arch32 Arch = 32
	Arch64 Arch = 64
)

// Architectures returns every supported architecture in matrix order.
func Architectures() []Arch {
	return []Arch{Arch32, Arch64}
}

// Valid reports whether a is one of the supported architectures.
func (a Arch) Valid() bool {
	return a == Arch32 || a == Arch64
}

// String returns "32-bit" or "64-bit".
func (a Arch) String() string {
	return fmt.Sprintf("%d-bit", int(a))
}

// InterpreterID names one interpreter the project intends to support.
//
// Values are produced by BuildMatrix and never modified afterwards.
type InterpreterID struct {
	Major int
	Minor int
	Arch  Arch
}

// Version returns the dotted version, e.g. "3.8".
func (id InterpreterID) Version() string {
	return fmt.Sprintf("%d.%d", id.Major, id.Minor)
}

// String returns a log friendly form, e.g. "3.8-64".
func (id InterpreterID) String() string {
	return fmt.Sprintf("%d.%d-%d", id.Major, id.Minor, int(id.Arch))
}

// ResolvedInterpreter is an InterpreterID whose executable was found on the
// host.
type ResolvedInterpreter struct {
	ID   InterpreterID
	Path string
}

// BuildFlags are the caller supplied switches for a wheel build.
type BuildFlags struct {
	Release bool     // Build with optimizations (--release)
	Strip   bool     // Strip symbols from the binary (--strip)
	Extra   []string // Additional arguments passed through to the build tool
}

// Args renders the flags as build tool arguments.
func (f BuildFlags) Args() []string {
	var args []string
	if f.Release {
		args = append(args, "--release")
	}
	if f.Strip {
		args = append(args, "--strip")
	}
	return append(args, f.Extra...)
}

// BuildJob is one wheel build: an interpreter, the target it compiles for and
// the flags to use. A job is consumed by exactly one process invocation.
type BuildJob struct {
	Interpreter ResolvedInterpreter
	Target      CompilationTarget
	Flags       BuildFlags
}

// BuildOutcome records what happened to a BuildJob.
//
// Outcomes are returned in the same order as the resolved interpreters
// passed to the dispatcher, one per interpreter.
type BuildOutcome struct {
	Job         BuildJob
	Success     bool     // True if the build tool exited with status 0
	CommandLine string   // The command that was run, for operator reports
	Output      []string // Combined stdout/stderr lines of the build tool
	ExitCode    int      // Exit status of the build tool, -1 if it never ran
	Error       error    // Why the job failed, nil on success
	Wheels      []string // Wheels written by this job, absolute paths
}

// Stage is a step of the release pipeline.
type Stage int

// Pipeline stages in the order they are entered.
const (
	StageStart Stage = iota
	StageMatrixBuilt
	StageInterpretersResolved
	StageJobsDispatched
	StageArtifactsCollected
	StagePublished
	StageSkipped
	StageEnd
)

var stageNames = map[Stage]string{
	StageStart:                "Start",
	StageMatrixBuilt:          "MatrixBuilt",
	StageInterpretersResolved: "InterpretersResolved",
	StageJobsDispatched:       "JobsDispatched",
	StageArtifactsCollected:   "ArtifactsCollected",
	StagePublished:            "Published",
	StageSkipped:              "Skipped",
	StageEnd:                  "End",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// joinStages renders a stage path such as "Start -> MatrixBuilt".
func joinStages(stages []Stage) string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.String())
	}
	return strings.Join(names, " -> ")
}
