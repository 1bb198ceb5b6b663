package wheelmatrix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// NewBuildJob derives the compilation target of an interpreter and pairs it
// with the build flags.
func NewBuildJob(interpreter ResolvedInterpreter, flags BuildFlags) (BuildJob, error) {
	target, err := TargetFor(interpreter.ID.Arch)
	if err != nil {
		return BuildJob{}, err
	}
	return BuildJob{Interpreter: interpreter, Target: target, Flags: flags}, nil
}

// Invocation returns the maturin call for the job. It runs in projectDir
// with the target triple in its environment.
func (j BuildJob) Invocation(maturin, projectDir string) Invocation {
	args := []string{"build", "--interpreter", j.Interpreter.Path}
	args = append(args, j.Flags.Args()...)

	return Invocation{
		Name: maturin,
		Args: args,
		Dir:  projectDir,
		Env:  j.Target.Env(),
	}
}

// Dispatcher invokes the external build tools, one process at a time.
//
// Jobs run sequentially: maturin and cargo share the same target directory
// and build cache.
type Dispatcher struct {
	Config *Config
	Runner Runner
	Logger *slog.Logger
}

// BuildWheels builds one wheel per resolved interpreter.
//
// A failing job does not stop the remaining ones. The returned slice always
// has one outcome per interpreter, in input order. When at least one job
// failed the error is a *BuildFailures naming every failing command line.
//
// An empty interpreter list returns ErrNoInterpreters.
func (d *Dispatcher) BuildWheels(ctx context.Context, interpreters []ResolvedInterpreter, flags BuildFlags) ([]BuildOutcome, error) {
	if len(interpreters) == 0 {
		return nil, ErrNoInterpreters
	}

	logger := loggerOrDefault(d.Logger)
	outcomes := make([]BuildOutcome, 0, len(interpreters))
	failures := &BuildFailures{Total: len(interpreters)}

	for _, interpreter := range interpreters {
		outcome := d.buildWheel(ctx, interpreter, flags)
		outcomes = append(outcomes, outcome)

		attrs := []any{
			"interpreter", interpreter.ID.String(),
			"target", string(outcome.Job.Target),
		}
		if outcome.Success {
			logger.Info("Wheel built.", attrs...)
			continue
		}
		logger.Error("Wheel build failed.", append(attrs, "command", outcome.CommandLine, "error", outcome.Error)...)
		failures.Failed = append(failures.Failed, outcome)
	}

	if len(failures.Failed) > 0 {
		return outcomes, failures
	}
	return outcomes, nil
}

func (d *Dispatcher) buildWheel(ctx context.Context, interpreter ResolvedInterpreter, flags BuildFlags) BuildOutcome {
	job, err := NewBuildJob(interpreter, flags)
	if err != nil {
		return BuildOutcome{Job: job, ExitCode: -1, Error: err}
	}

	inv := job.Invocation(d.Config.Tools.Maturin, d.Config.ProjectPath())
	outcome := BuildOutcome{Job: job, CommandLine: inv.CommandLine()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		outcome.ExitCode = -1
		outcome.Error = ctxErr
		return outcome
	}

	loggerOrDefault(d.Logger).Debug("Running build tool.", "command", outcome.CommandLine, "dir", inv.Dir)

	before := snapshotWheels(d.Config.WheelsPath())

	result, err := d.Runner.Run(ctx, inv)
	if result != nil {
		outcome.Output = result.Output
		outcome.ExitCode = result.ExitCode
	}
	if err != nil {
		outcome.Error = BuildError("maturin", outcome.Output, err)
		return outcome
	}

	outcome.Success = true
	outcome.Wheels = reportedWheels(outcome.Output, inv.Dir)
	if len(outcome.Wheels) == 0 {
		outcome.Wheels = changedWheels(before, snapshotWheels(d.Config.WheelsPath()))
	}
	return outcome
}

// BuiltWheels returns the wheels written by the successful outcomes, in
// outcome order.
func BuiltWheels(outcomes []BuildOutcome) []string {
	var wheels []string
	for _, o := range outcomes {
		if o.Success {
			wheels = append(wheels, o.Wheels...)
		}
	}
	return wheels
}

// reportedWheels extracts the archives maturin announces as
//
//	Built wheel for CPython 3.8 to <path>
//
// Relative paths are taken relative to the directory maturin ran in.
func reportedWheels(output []string, dir string) []string {
	var wheels []string
	for _, line := range output {
		if !strings.Contains(line, "Built wheel") {
			continue
		}
		i := strings.LastIndex(line, " to ")
		if i < 0 {
			continue
		}
		path := strings.TrimSpace(line[i+len(" to "):])
		if !strings.HasSuffix(path, ".whl") {
			continue
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		wheels = append(wheels, filepath.Clean(path))
	}
	return wheels
}

type wheelStamp struct {
	size    int64
	modTime time.Time
}

// snapshotWheels records size and modification time of every wheel in dir.
// A missing dir is an empty snapshot.
func snapshotWheels(dir string) map[string]wheelStamp {
	snapshot := make(map[string]wheelStamp)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return snapshot
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !MatchesExtension(entry.Name(), ".whl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshot[filepath.Join(dir, entry.Name())] = wheelStamp{size: info.Size(), modTime: info.ModTime()}
	}
	return snapshot
}

// changedWheels returns the wheels that are new or rewritten in after.
func changedWheels(before, after map[string]wheelStamp) []string {
	var wheels []string
	for path, stamp := range after {
		if old, ok := before[path]; ok && old.size == stamp.size && old.modTime.Equal(stamp.modTime) {
			continue
		}
		wheels = append(wheels, path)
	}
	sort.Strings(wheels)
	return wheels
}

// BuildAll compiles the whole workspace without packaging:
//
//	cargo build [--release]
func (d *Dispatcher) BuildAll(ctx context.Context, release bool) error {
	args := []string{"build"}
	if release {
		args = append(args, "--release")
	}
	inv := Invocation{Name: d.Config.Tools.Cargo, Args: args, Dir: d.Config.WorkspaceDir}

	logger := loggerOrDefault(d.Logger)
	logger.Info("Compiling workspace.", "command", inv.CommandLine(), "release", release)

	result, err := d.Runner.Run(ctx, inv)
	if err != nil {
		var output []string
		if result != nil {
			output = result.Output
		}
		return fmt.Errorf("%s: %w", inv.CommandLine(), BuildError("cargo", output, err))
	}

	logger.Info("Workspace compiled.", "profile", profileName(release))
	return nil
}

func profileName(release bool) string {
	if release {
		return "release"
	}
	return "debug"
}
