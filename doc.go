// Package wheelmatrix builds platform-specific Python wheels for a Rust
// native extension across a matrix of interpreter versions and CPU
// architectures.
//
// The package does not compile or package anything itself. It drives the
// external tools that do:
//   - cargo - compiles the workspace (build-all)
//   - maturin - builds one wheel per resolved interpreter (build-wheels)
//   - twine - uploads wheels to the package index (upload-wheels)
//
// # Pipeline
//
// A full release run is strictly linear and single pass:
//
//	Start
//	 └── MatrixBuilt            BuildMatrix(VersionRange)
//	      └── InterpretersResolved   ResolveAll(Locator, ids)
//	           └── JobsDispatched    Dispatcher.BuildWheels
//	                └── ArtifactsCollected   Collector.Collect
//	                     └── Published | Skipped   ReleaseGate + Publisher
//	                          └── End
//
// An identifier that cannot be resolved on the host is skipped, not failed.
// A failing build job never stops the remaining jobs; failures are returned
// together at the end as *BuildFailures.
//
// # Basic Usage
//
//	cfg, err := wheelmatrix.LoadConfig("wheelmatrix.yaml")
//	if err != nil {
//	    return err
//	}
//
//	p, err := wheelmatrix.NewPipeline(cfg, nil)
//	if err != nil {
//	    return err
//	}
//
//	report, err := p.Run(ctx, wheelmatrix.RunOptions{Strip: true})
//
// # Cross-architecture builds
//
// Each architecture maps to one fixed target triple. The triple is passed to
// maturin as CARGO_BUILD_TARGET in the environment of that single child
// process; the orchestrator's own environment is never modified.
package wheelmatrix
