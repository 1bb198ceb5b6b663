package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	wheelmatrix "github.com/contriboss/wheelmatrix-go"
)

// app holds what the persistent flags configure for every subcommand.
type app struct {
	outW io.Writer
	errW io.Writer

	configPath string
	workspace  string
	logLevel   string
	logFormat  string
	skipTools  bool

	logger   *slog.Logger
	pipeline *wheelmatrix.Pipeline
}

func newRootCmd(outW, errW io.Writer) *cobra.Command {
	a := &app{outW: outW, errW: errW}

	root := &cobra.Command{
		Use:           "wheelmatrix",
		Short:         "Build Python wheels of a Rust extension for every installed interpreter",
		Long:          "Build Python wheels of a Rust extension across interpreter versions and architectures, collect them into one folder and publish release builds.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", wheelmatrix.DefaultConfigFile, "Path to the configuration file")
	flags.StringVar(&a.workspace, "workspace", "", "Workspace root (overrides workspace_dir)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Logging level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log output format: text or json")
	flags.BoolVar(&a.skipTools, "skip-tool-check", false, "Do not check that external tools are on PATH")

	root.AddCommand(
		a.buildWheelsCmd(),
		a.buildAllCmd(),
		a.copyArtifactsCmd(),
		a.uploadWheelsCmd(),
		a.releaseCmd(),
		a.matrixCmd(),
	)
	return root
}

func (a *app) setup() error {
	a.logger = newLogger(a.logLevel, a.logFormat, a.errW)

	cfg, err := wheelmatrix.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.workspace != "" {
		cfg.WorkspaceDir = a.workspace
	}

	a.pipeline, err = wheelmatrix.NewPipeline(cfg, &wheelmatrix.Options{Logger: a.logger})
	return err
}

func (a *app) checkTools(command string) error {
	if a.skipTools {
		return nil
	}
	return wheelmatrix.CheckRequiredTools(wheelmatrix.RequiredTools(a.pipeline.Config(), command))
}

// fail prints the failing command lines of a build pass and converts the
// error to an exit code. Errors joined to the build failures are kept as the
// exit message.
func (a *app) fail(err error) error {
	var failures *wheelmatrix.BuildFailures
	if !errors.As(err, &failures) {
		return err
	}
	printFailures(a.outW, failures)
	return &ExitError{Code: 1, Message: otherErrors(err, failures)}
}

// otherErrors renders everything in err except failures.
func otherErrors(err error, failures *wheelmatrix.BuildFailures) string {
	if err == error(failures) {
		return ""
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err.Error()
	}

	var msgs []string
	for _, e := range joined.Unwrap() {
		var f *wheelmatrix.BuildFailures
		if e == nil || (errors.As(e, &f) && f == failures) {
			continue
		}
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

func (a *app) buildWheelsCmd() *cobra.Command {
	var release, strip bool

	cmd := &cobra.Command{
		Use:   wheelmatrix.CommandBuildWheels,
		Short: "Build one wheel per installed interpreter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkTools(wheelmatrix.CommandBuildWheels); err != nil {
				return err
			}

			outcomes, err := a.pipeline.BuildWheels(cmd.Context(), wheelmatrix.BuildFlags{Release: release, Strip: strip})
			if len(outcomes) > 0 {
				renderOutcomes(a.outW, outcomes)
			}
			return a.fail(err)
		},
	}
	cmd.Flags().BoolVar(&release, "release", false, "Build with optimizations")
	cmd.Flags().BoolVar(&strip, "strip", false, "Strip symbols from the wheels")
	return cmd
}

func (a *app) buildAllCmd() *cobra.Command {
	var release bool

	cmd := &cobra.Command{
		Use:   wheelmatrix.CommandBuildAll,
		Short: "Compile the workspace without packaging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkTools(wheelmatrix.CommandBuildAll); err != nil {
				return err
			}
			return a.pipeline.BuildAll(cmd.Context(), release)
		},
	}
	cmd.Flags().BoolVar(&release, "release", false, "Build with optimizations")
	return cmd
}

func (a *app) copyArtifactsCmd() *cobra.Command {
	var release bool

	cmd := &cobra.Command{
		Use:   wheelmatrix.CommandCopyArtifacts,
		Short: "Copy binaries and wheels into the distribution folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.pipeline.CopyArtifacts(cmd.Context(), release)
			if err != nil {
				return err
			}
			renderCollection(a.outW, collection)
			return nil
		},
	}
	cmd.Flags().BoolVar(&release, "release", false, "Collect the release profile instead of debug")
	return cmd
}

func (a *app) uploadWheelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   wheelmatrix.CommandUploadWheels,
		Short: "Upload the wheels when running for a release reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, uploaded, err := a.pipeline.UploadWheels(cmd.Context())
			if err != nil {
				return err
			}
			printDecision(a.outW, decision, uploaded)
			return nil
		},
	}
}

func (a *app) releaseCmd() *cobra.Command {
	var strip, debug bool

	cmd := &cobra.Command{
		Use:   wheelmatrix.CommandRelease,
		Short: "Run build-all, build-wheels, copy-artifacts and upload-wheels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkTools(wheelmatrix.CommandRelease); err != nil {
				return err
			}

			report, err := a.pipeline.Run(cmd.Context(), wheelmatrix.RunOptions{
				Compile: true,
				Debug:   debug,
				Strip:   strip,
			})
			if report != nil {
				renderReport(a.outW, report)
			}
			return a.fail(err)
		},
	}
	cmd.Flags().BoolVar(&strip, "strip", false, "Strip symbols from the wheels")
	cmd.Flags().BoolVar(&debug, "debug", false, "Use the debug profile")
	return cmd
}

func (a *app) matrixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Show the interpreter matrix and what resolves on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locator := a.pipeline.Locator()
			var rows []matrixRow
			for _, id := range a.pipeline.Matrix() {
				target, err := wheelmatrix.TargetFor(id.Arch)
				if err != nil {
					return err
				}
				path, ok := locator.Resolve(cmd.Context(), id)
				rows = append(rows, matrixRow{id: id, target: target, path: path, ok: ok})
			}
			renderMatrix(a.outW, locator.Name(), rows)
			return nil
		},
	}
}

type matrixRow struct {
	id     wheelmatrix.InterpreterID
	target wheelmatrix.CompilationTarget
	path   string
	ok     bool
}

func (r matrixRow) status() string {
	if r.ok {
		return r.path
	}
	return "not installed"
}
