package wheelmatrix

import (
	"fmt"
	"os/exec"
	"strings"
)

// Command names of the command surface.
const (
	CommandBuildWheels   = "build-wheels"
	CommandBuildAll      = "build-all"
	CommandCopyArtifacts = "copy-artifacts"
	CommandUploadWheels  = "upload-wheels"
	CommandRelease       = "release"
)

// ToolRequirement describes an external tool a command shells out to.
//
//	ToolRequirement{Name: "maturin", Purpose: "wheel builder"}
//	ToolRequirement{Name: "py", Optional: true, Purpose: "interpreter launcher"}
type ToolRequirement struct {
	// Name is the binary name or path (e.g., "cargo", "C:\tools\twine.exe").
	Name string

	// Alternatives can satisfy the requirement when Name is missing.
	Alternatives []string

	// Optional tools are reported but never fail the check.
	Optional bool

	// Purpose is shown in the error message.
	Purpose string
}

// RequiredTools lists the tools the given command invokes.
func RequiredTools(cfg *Config, command string) []ToolRequirement {
	cargo := ToolRequirement{Name: cfg.Tools.Cargo, Purpose: "Rust compiler driver"}
	maturin := ToolRequirement{Name: cfg.Tools.Maturin, Purpose: "wheel builder"}
	uploader := ToolRequirement{Name: cfg.Tools.Uploader, Purpose: "package uploader"}

	// maturin drives cargo itself, so both must be present for wheels
	wheels := []ToolRequirement{maturin, cargo}
	if cfg.Locator.Strategy == StrategyLauncher {
		wheels = append(wheels, ToolRequirement{Name: cfg.Locator.Launcher, Purpose: "interpreter launcher"})
	}

	switch command {
	case CommandBuildWheels:
		return wheels
	case CommandBuildAll:
		return []ToolRequirement{cargo}
	case CommandUploadWheels:
		return []ToolRequirement{uploader}
	case CommandRelease:
		return append(wheels, uploader)
	default:
		return nil
	}
}

// CheckToolAvailable reports whether tool can be found in PATH (or exists,
// when tool is a path).
//
// # Returns
//
// nil when the tool is found, otherwise an error of the form
// "<tool> not found in PATH".
func CheckToolAvailable(tool string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all non-optional requirements and returns a
// single error naming every missing tool.
//
// # Parameters
//
//   - requirements: Usually the result of RequiredTools for one command.
//     A requirement is met when its name or any alternative is found.
//
// # Returns
//
// Single missing tool:
//
//	maturin (wheel builder) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: maturin (wheel builder), twine (package uploader)
//
// # Thread Safety
//
// This function is thread-safe and can be called concurrently.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missing []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil
		for _, alt := range req.Alternatives {
			if found {
				break
			}
			found = CheckToolAvailable(alt) == nil
		}

		if found || req.Optional {
			continue
		}
		if req.Purpose != "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missing = append(missing, req.Name)
		}
	}

	switch len(missing) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s not found in PATH", missing[0])
	default:
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
}
