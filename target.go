package wheelmatrix

import "fmt"

// CompilationTarget is the target triple the native code is compiled for.
type CompilationTarget string

// Target triples for the supported architectures.
const (
	Target32 CompilationTarget = "i686-pc-windows-msvc"
	Target64 CompilationTarget = "x86_64-pc-windows-msvc"
)

// targetEnvVar steers cargo (and maturin through it) to a target triple.
const targetEnvVar = "CARGO_BUILD_TARGET"

// TargetFor maps an architecture to its compilation target.
//
// The mapping is fixed: every valid Arch yields exactly one triple.
func TargetFor(arch Arch) (CompilationTarget, error) {
	switch arch {
	case Arch32:
		return Target32, nil
	case Arch64:
		return Target64, nil
	default:
		return "", fmt.Errorf("unknown architecture: %d", int(arch))
	}
}

// Env returns the environment overlay that selects this target for one
// build tool invocation.
func (t CompilationTarget) Env() map[string]string {
	return map[string]string{targetEnvVar: string(t)}
}
