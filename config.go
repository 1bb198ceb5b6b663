package wheelmatrix

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no config
// path is given.
const DefaultConfigFile = "wheelmatrix.yaml"

// Config controls a wheelmatrix run.
//
// Paths:
//   - WorkspaceDir: root of the cargo workspace (cargo build runs here)
//   - ProjectDir: the extension crate, relative to WorkspaceDir (maturin runs here)
//   - TargetDir: cargo's output tree, relative to WorkspaceDir
//   - DistDir: flat collection folder, relative to WorkspaceDir
type Config struct {
	WorkspaceDir string `yaml:"workspace_dir"`
	ProjectDir   string `yaml:"project_dir"`
	TargetDir    string `yaml:"target_dir"`
	DistDir      string `yaml:"dist_dir"`

	Python  VersionRange  `yaml:"python"`
	Locator LocatorConfig `yaml:"locator"`
	Tools   ToolsConfig   `yaml:"tools"`
	Release ReleaseConfig `yaml:"release"`

	// BinaryExtensions selects which files of a profile folder are collected.
	BinaryExtensions []string `yaml:"binary_extensions"`
}

// LocatorConfig selects and parameterizes the interpreter discovery strategy.
type LocatorConfig struct {
	Strategy  string `yaml:"strategy"`   // auto, fixed-path or launcher
	FixedPath string `yaml:"fixed_path"` // template for the fixed-path strategy
	Launcher  string `yaml:"launcher"`   // launcher binary for the launcher strategy
}

// ToolsConfig names the external collaborators.
type ToolsConfig struct {
	Cargo    string `yaml:"cargo"`
	Maturin  string `yaml:"maturin"`
	Uploader string `yaml:"uploader"`
}

// ReleaseConfig configures the release gate.
type ReleaseConfig struct {
	RefEnv string `yaml:"ref_env"` // variable carrying the triggering reference
	Marker string `yaml:"marker"`  // prefix that marks a release reference
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		WorkspaceDir: ".",
		ProjectDir:   "docrpy",
		TargetDir:    "target",
		DistDir:      "dist",
		Python:       VersionRange{Major: 3, MinMinor: 7, MaxMinor: 9},
		Locator: LocatorConfig{
			Strategy:  StrategyAuto,
			FixedPath: DefaultFixedPathTemplate,
			Launcher:  "py",
		},
		Tools: ToolsConfig{
			Cargo:    "cargo",
			Maturin:  "maturin",
			Uploader: "twine",
		},
		Release: ReleaseConfig{
			RefEnv: "APPVEYOR_REPO_TAG_NAME",
			Marker: "release",
		},
		BinaryExtensions: []string{".dll", ".pyd", ".so", ".dylib", ".exe"},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path means
// DefaultConfigFile, which may be absent; any other path must exist. Tool paths are then overridden from CARGO, MATURIN and TWINE when
// those variables are set.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultConfigFile:
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("CARGO"); ok && v != "" {
		c.Tools.Cargo = v
	}
	if v, ok := lookup("MATURIN"); ok && v != "" {
		c.Tools.Maturin = v
	}
	if v, ok := lookup("TWINE"); ok && v != "" {
		c.Tools.Uploader = v
	}
}

// Validate checks the configuration for values that would make every
// command fail.
func (c *Config) Validate() error {
	if err := c.Python.Validate(); err != nil {
		return err
	}

	switch c.Locator.Strategy {
	case StrategyAuto, StrategyFixedPath, StrategyLauncher:
	default:
		return fmt.Errorf("unknown locator strategy: %s", c.Locator.Strategy)
	}
	if c.Locator.Strategy == StrategyFixedPath && c.Locator.FixedPath == "" {
		return errors.New("locator.fixed_path is required for the fixed-path strategy")
	}
	if c.Locator.Strategy == StrategyLauncher && c.Locator.Launcher == "" {
		return errors.New("locator.launcher is required for the launcher strategy")
	}

	required := map[string]string{
		"project_dir":     c.ProjectDir,
		"target_dir":      c.TargetDir,
		"dist_dir":        c.DistDir,
		"tools.cargo":     c.Tools.Cargo,
		"tools.maturin":   c.Tools.Maturin,
		"tools.uploader":  c.Tools.Uploader,
		"release.ref_env": c.Release.RefEnv,
		"release.marker":  c.Release.Marker,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkspaceDir, path)
}

// ProjectPath is the working directory for wheel builds.
func (c *Config) ProjectPath() string { return c.resolve(c.ProjectDir) }

// TargetPath is cargo's output tree.
func (c *Config) TargetPath() string { return c.resolve(c.TargetDir) }

// DistPath is the collection folder.
func (c *Config) DistPath() string { return c.resolve(c.DistDir) }

// WheelsPath is where maturin writes wheels.
func (c *Config) WheelsPath() string { return filepath.Join(c.TargetPath(), "wheels") }

// ProfilePath is the binary output folder of a cargo profile.
func (c *Config) ProfilePath(release bool) string {
	if release {
		return filepath.Join(c.TargetPath(), "release")
	}
	return filepath.Join(c.TargetPath(), "debug")
}
