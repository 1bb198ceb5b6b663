package wheelmatrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Options replaces the collaborators of a Pipeline. Zero values select the
// real implementations.
type Options struct {
	Runner    Runner                      // defaults to ExecRunner
	Locator   Locator                     // defaults to the configured strategy
	LookupEnv func(string) (string, bool) // defaults to os.LookupEnv
	Logger    *slog.Logger                // defaults to slog.Default()
}

// Pipeline wires the matrix builder, locator, dispatcher, collector and
// release gate for one run. Each exported method is one command of the
// command surface; Run chains them into a full release.
type Pipeline struct {
	RunID string

	config     *Config
	locator    Locator
	dispatcher *Dispatcher
	collector  *Collector
	gate       *ReleaseGate
	publisher  *Publisher
	logger     *slog.Logger
}

// NewPipeline builds a Pipeline for cfg. opts may be nil.
func NewPipeline(cfg *Config, opts *Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	runID := uuid.NewString()
	logger := loggerOrDefault(opts.Logger).With("run_id", runID)

	locator := opts.Locator
	if locator == nil {
		var err error
		locator, err = NewLocatorFactory(cfg.Locator, runner).Select(cfg.Locator.Strategy)
		if err != nil {
			return nil, err
		}
	}
	if _, ok := locator.(*MemoLocator); !ok {
		locator = NewMemoLocator(locator)
	}

	return &Pipeline{
		RunID:      runID,
		config:     cfg,
		locator:    locator,
		dispatcher: &Dispatcher{Config: cfg, Runner: runner, Logger: logger},
		collector:  &Collector{Config: cfg, Logger: logger},
		gate: &ReleaseGate{
			RefEnv: cfg.Release.RefEnv,
			Marker: cfg.Release.Marker,
			Lookup: opts.LookupEnv,
		},
		publisher: &Publisher{Uploader: cfg.Tools.Uploader, Runner: runner, Logger: logger},
		logger:    logger,
	}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() *Config {
	return p.config
}

// Locator returns the interpreter locator in use.
func (p *Pipeline) Locator() Locator {
	return p.locator
}

// Matrix returns every supported interpreter identifier.
func (p *Pipeline) Matrix() []InterpreterID {
	return BuildMatrix(p.config.Python)
}

// Resolve resolves the full matrix on this host.
func (p *Pipeline) Resolve(ctx context.Context) []ResolvedInterpreter {
	return ResolveAll(ctx, p.locator, p.Matrix(), p.logger)
}

// BuildWheels resolves the matrix and builds a wheel for every installed
// interpreter.
func (p *Pipeline) BuildWheels(ctx context.Context, flags BuildFlags) ([]BuildOutcome, error) {
	resolved := p.Resolve(ctx)
	if len(resolved) == 0 {
		p.logger.Error("No interpreter of the matrix is installed.", "strategy", p.locator.Name())
		return nil, ErrNoInterpreters
	}
	return p.dispatcher.BuildWheels(ctx, resolved, flags)
}

// BuildAll compiles the workspace without packaging.
func (p *Pipeline) BuildAll(ctx context.Context, release bool) error {
	return p.dispatcher.BuildAll(ctx, release)
}

// CopyArtifacts collects binaries and wheels into the distribution folder.
func (p *Pipeline) CopyArtifacts(ctx context.Context, release bool) (*Collection, error) {
	return p.collector.Collect(ctx, release)
}

// UploadWheels publishes the wheels when the release gate allows it.
// Outside a release it returns the decision and does nothing.
func (p *Pipeline) UploadWheels(ctx context.Context) (ReleaseDecision, []string, error) {
	decision := p.gate.Decide()
	if !decision.Release {
		p.logger.Info("Skipping upload.", "reason", decision.Reason())
		return decision, nil, nil
	}

	uploaded, err := p.publisher.Upload(ctx, p.config.WheelsPath())
	return decision, uploaded, err
}

// RunOptions controls a full release run.
type RunOptions struct {
	Compile bool     // run build-all first
	Debug   bool     // use the debug profile instead of release
	Strip   bool     // strip symbols from the wheels
	Extra   []string // extra build tool arguments
}

// Report is what a full run did, stage by stage.
type Report struct {
	RunID      string
	Stages     []Stage
	Matrix     []InterpreterID
	Resolved   []ResolvedInterpreter
	Outcomes   []BuildOutcome
	Collection *Collection
	Decision   ReleaseDecision
	Uploaded   []string
}

// Path renders the stages the run went through.
func (r *Report) Path() string {
	return joinStages(r.Stages)
}

func (r *Report) enter(s Stage, logger *slog.Logger) {
	r.Stages = append(r.Stages, s)
	logger.Debug("Pipeline stage entered.", "stage", s.String())
}

// Run executes the full pipeline:
//
//	Start -> MatrixBuilt -> InterpretersResolved -> JobsDispatched ->
//	ArtifactsCollected -> Published | Skipped -> End
//
// Build job failures do not stop collection, but they withhold publishing
// and are returned at End as *BuildFailures. Failures that leave nothing to
// continue with (no interpreters, missing outputs, upload errors) end the
// run early. Stages are never retried.
//
// Only the wheels written by this run's jobs are collected and uploaded;
// older archives in the wheels folder are left alone.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	report := &Report{RunID: p.RunID}
	report.enter(StageStart, p.logger)

	fail := func(err error) (*Report, error) {
		report.enter(StageEnd, p.logger)
		return report, err
	}

	release := !opts.Debug
	if opts.Compile {
		if err := p.BuildAll(ctx, release); err != nil {
			return fail(err)
		}
	}

	report.Matrix = p.Matrix()
	report.enter(StageMatrixBuilt, p.logger)

	report.Resolved = ResolveAll(ctx, p.locator, report.Matrix, p.logger)
	report.enter(StageInterpretersResolved, p.logger)
	if len(report.Resolved) == 0 {
		return fail(ErrNoInterpreters)
	}

	flags := BuildFlags{Release: release, Strip: opts.Strip, Extra: opts.Extra}
	outcomes, buildErr := p.dispatcher.BuildWheels(ctx, report.Resolved, flags)
	report.Outcomes = outcomes
	report.enter(StageJobsDispatched, p.logger)

	var failures *BuildFailures
	if buildErr != nil && !errors.As(buildErr, &failures) {
		return fail(buildErr)
	}

	built := BuiltWheels(outcomes)
	collection, err := p.collector.CollectBuilt(ctx, release, built)
	report.Collection = collection
	if err != nil {
		return fail(errors.Join(buildErr, err))
	}
	report.enter(StageArtifactsCollected, p.logger)

	report.Decision = p.gate.Decide()
	switch {
	case buildErr != nil:
		p.logger.Warn("Skipping upload.", "reason", fmt.Sprintf("%d wheel builds failed", len(failures.Failed)))
		report.enter(StageSkipped, p.logger)
	case !report.Decision.Release:
		p.logger.Info("Skipping upload.", "reason", report.Decision.Reason())
		report.enter(StageSkipped, p.logger)
	default:
		uploaded, err := p.publisher.UploadFiles(ctx, built)
		if err != nil {
			return fail(err)
		}
		report.Uploaded = uploaded
		report.enter(StagePublished, p.logger)
	}

	report.enter(StageEnd, p.logger)
	p.logger.Info("Pipeline finished.", "path", report.Path(), "failed", buildErr != nil)
	return report, buildErr
}
