package wheelmatrix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReleaseDecision is the result of the release gate for one run.
type ReleaseDecision struct {
	RefEnv  string // Variable that was inspected
	Ref     string // Its value, empty when unset
	Release bool   // True when Ref marks a release
}

// Reason explains the decision for the operator.
func (d ReleaseDecision) Reason() string {
	switch {
	case d.Release:
		return fmt.Sprintf("%s=%s is a release reference", d.RefEnv, d.Ref)
	case d.Ref == "":
		return fmt.Sprintf("%s is not set", d.RefEnv)
	default:
		return fmt.Sprintf("%s=%s is not a release reference", d.RefEnv, d.Ref)
	}
}

// ReleaseGate decides from the CI environment whether a run may publish.
//
// This is the only authorization check. Index credentials are read by the
// uploader from its own environment.
type ReleaseGate struct {
	RefEnv string
	Marker string
	Lookup func(string) (string, bool) // defaults to os.LookupEnv
}

// Decide reads the reference variable once. An empty marker never matches.
func (g *ReleaseGate) Decide() ReleaseDecision {
	lookup := g.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	ref, _ := lookup(g.RefEnv)
	ref = strings.TrimSpace(ref)

	return ReleaseDecision{
		RefEnv:  g.RefEnv,
		Ref:     ref,
		Release: ref != "" && g.Marker != "" && strings.HasPrefix(ref, g.Marker),
	}
}

// Publisher uploads wheels with the external uploader.
type Publisher struct {
	Uploader string
	Runner   Runner
	Logger   *slog.Logger
}

// Upload sends every wheel in wheelsDir to the index:
//
//	twine upload --skip-existing <wheels...>
//
// Wheels that already exist on the index are skipped by the uploader and are
// not an error. A folder without wheels is an error.
func (p *Publisher) Upload(ctx context.Context, wheelsDir string) ([]string, error) {
	wheels, err := filepath.Glob(filepath.Join(wheelsDir, "*.whl"))
	if err != nil {
		return nil, err
	}
	if len(wheels) == 0 {
		return nil, fmt.Errorf("%w: no wheels in %s", ErrMissingOutput, wheelsDir)
	}
	return p.UploadFiles(ctx, wheels)
}

// UploadFiles sends exactly the given wheels to the index. An empty list is
// an error.
func (p *Publisher) UploadFiles(ctx context.Context, wheels []string) ([]string, error) {
	if len(wheels) == 0 {
		return nil, fmt.Errorf("%w: no wheels to upload", ErrMissingOutput)
	}
	wheels = append([]string(nil), wheels...)
	sort.Strings(wheels)

	inv := Invocation{
		Name: p.Uploader,
		Args: append([]string{"upload", "--skip-existing"}, wheels...),
	}

	logger := loggerOrDefault(p.Logger)
	logger.Info("Uploading wheels.", "count", len(wheels), "command", inv.CommandLine())

	result, err := p.Runner.Run(ctx, inv)
	if err != nil {
		var output []string
		if result != nil {
			output = result.Output
		}
		return nil, BuildError("upload", output, err)
	}

	logger.Info("Wheels uploaded.", "count", len(wheels))
	return wheels, nil
}
