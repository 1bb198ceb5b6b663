package wheelmatrix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/magefile/mage/sh"
)

// Artifact kinds.
const (
	KindBinary = "binary"
	KindWheel  = "wheel"
)

// CollectedFile is one file copied into the distribution folder.
type CollectedFile struct {
	Name   string
	Kind   string
	Source string
	Dest   string
	Size   int64
	SHA256 string
	Wheel  *WheelInfo // nil for binaries or wheels that could not be read
}

// Collection is the result of one collection pass.
type Collection struct {
	DistDir string
	Files   []CollectedFile
}

// Names returns the collected file names in collection order.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		names = append(names, f.Name)
	}
	return names
}

// Collector copies build outputs into one flat distribution folder.
//
// Collection is additive and idempotent: the folder is created when absent
// and files with the same name are overwritten.
type Collector struct {
	Config *Config
	Logger *slog.Logger
}

// Collect copies the binaries of the selected cargo profile and every wheel
// into the distribution folder.
//
// A missing profile or wheels folder is reported as ErrMissingOutput: it
// means the corresponding build step has not run.
func (c *Collector) Collect(ctx context.Context, release bool) (*Collection, error) {
	binaries, err := c.binaries(release)
	if err != nil {
		return nil, err
	}

	wheels, err := c.listOutputs(c.Config.WheelsPath(), func(name string) bool {
		return MatchesExtension(name, ".whl")
	})
	if err != nil {
		return nil, err
	}
	return c.collect(ctx, release, binaries, wheels)
}

// CollectBuilt copies the profile binaries and only the given wheels, the
// ones a build pass reported. Older wheels left in the wheels folder are
// not collected.
func (c *Collector) CollectBuilt(ctx context.Context, release bool, wheels []string) (*Collection, error) {
	binaries, err := c.binaries(release)
	if err != nil {
		return nil, err
	}

	for _, wheel := range wheels {
		if _, err := os.Stat(wheel); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMissingOutput, wheel, err)
		}
	}
	return c.collect(ctx, release, binaries, wheels)
}

func (c *Collector) binaries(release bool) ([]string, error) {
	return c.listOutputs(c.Config.ProfilePath(release), func(name string) bool {
		return MatchesExtension(name, c.Config.BinaryExtensions...)
	})
}

func (c *Collector) collect(ctx context.Context, release bool, binaries, wheels []string) (*Collection, error) {
	logger := loggerOrDefault(c.Logger)

	distDir := c.Config.DistPath()
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", distDir, err)
	}

	collection := &Collection{DistDir: distDir}

	for _, src := range binaries {
		file, err := c.copy(src, distDir, KindBinary)
		if err != nil {
			return collection, err
		}
		collection.Files = append(collection.Files, *file)
	}

	for _, src := range wheels {
		file, err := c.copy(src, distDir, KindWheel)
		if err != nil {
			return collection, err
		}

		info, err := InspectWheel(ctx, file.Dest)
		if err != nil {
			logger.Warn("Could not inspect wheel.", "wheel", file.Name, "error", err)
		} else {
			file.Wheel = info
		}
		collection.Files = append(collection.Files, *file)
	}

	logger.Info("Artifacts collected.",
		"dist", distDir,
		"profile", profileName(release),
		"binaries", len(binaries),
		"wheels", len(wheels))

	return collection, nil
}

// listOutputs returns the regular files of dir accepted by keep, sorted.
func (c *Collector) listOutputs(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrMissingOutput, dir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !keep(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (c *Collector) copy(src, distDir, kind string) (*CollectedFile, error) {
	name := filepath.Base(src)
	dest := filepath.Join(distDir, name)

	if err := sh.Copy(dest, src); err != nil {
		return nil, fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}

	digest, err := fileSHA256(dest)
	if err != nil {
		return nil, err
	}

	loggerOrDefault(c.Logger).Debug("Copied artifact.", "from", src, "to", dest)

	return &CollectedFile{
		Name:   name,
		Kind:   kind,
		Source: src,
		Dest:   dest,
		Size:   info.Size(),
		SHA256: digest,
	}, nil
}

// fileSHA256 returns the hex encoded SHA-256 digest of a file.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
