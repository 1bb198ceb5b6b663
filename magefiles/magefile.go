//go:build mage

// Mage targets mirroring the wheelmatrix command surface, for projects that
// drive their CI through mage instead of the binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/magefile/mage/mg"

	wheelmatrix "github.com/contriboss/wheelmatrix-go"
)

var Default = Matrix

func pipeline() (*wheelmatrix.Pipeline, error) {
	level := slog.LevelInfo
	if mg.Verbose() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := wheelmatrix.LoadConfig(os.Getenv("WHEELMATRIX_CONFIG"))
	if err != nil {
		return nil, err
	}
	return wheelmatrix.NewPipeline(cfg, &wheelmatrix.Options{Logger: logger})
}

func preflight(p *wheelmatrix.Pipeline, command string) error {
	return wheelmatrix.CheckRequiredTools(wheelmatrix.RequiredTools(p.Config(), command))
}

// Matrix prints every interpreter of the matrix and where it resolves.
func Matrix(ctx context.Context) error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	for _, id := range p.Matrix() {
		path, ok := p.Locator().Resolve(ctx, id)
		if !ok {
			path = "not installed"
		}
		fmt.Printf("%-8s %s\n", id, path)
	}
	return nil
}

// BuildWheels builds one wheel per installed interpreter.
func BuildWheels(ctx context.Context, release, strip bool) error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	if err := preflight(p, wheelmatrix.CommandBuildWheels); err != nil {
		return err
	}
	_, err = p.BuildWheels(ctx, wheelmatrix.BuildFlags{Release: release, Strip: strip})
	return exitOnFailures(err)
}

// BuildAll compiles the workspace.
func BuildAll(ctx context.Context, release bool) error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	if err := preflight(p, wheelmatrix.CommandBuildAll); err != nil {
		return err
	}
	return p.BuildAll(ctx, release)
}

// CopyArtifacts collects binaries and wheels into the distribution folder.
func CopyArtifacts(ctx context.Context, release bool) error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	collection, err := p.CopyArtifacts(ctx, release)
	if err != nil {
		return err
	}
	for _, name := range collection.Names() {
		fmt.Println(name)
	}
	return nil
}

// UploadWheels publishes the wheels on a release reference.
func UploadWheels(ctx context.Context) error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	decision, _, err := p.UploadWheels(ctx)
	if err != nil {
		return err
	}
	fmt.Println(decision.Reason())
	return nil
}

// Release compiles in release mode, builds stripped wheels, collects them
// and uploads on a release reference.
func Release(ctx context.Context) error {
	mg.CtxDeps(ctx, mg.F(BuildAll, true))
	mg.SerialCtxDeps(ctx, mg.F(BuildWheels, true, true), mg.F(CopyArtifacts, true))
	return UploadWheels(ctx)
}

func exitOnFailures(err error) error {
	var failures *wheelmatrix.BuildFailures
	if errors.As(err, &failures) {
		return mg.Fatal(1, failures.Error())
	}
	return err
}
