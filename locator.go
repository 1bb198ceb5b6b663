package wheelmatrix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Locator strategy names.
const (
	StrategyAuto      = "auto"
	StrategyFixedPath = "fixed-path"
	StrategyLauncher  = "launcher"
)

// DefaultFixedPathTemplate is the conventional install location of the
// python.org installers on CI images.
const DefaultFixedPathTemplate = `C:\python{{major}}{{minor}}{{suffix}}\python.exe`

// Locator finds the executable for an interpreter on the current host.
//
// An interpreter that is not installed is an expected outcome: Resolve
// returns ok=false and no error. Not every supported version needs to be
// present on every build host.
type Locator interface {
	// Name returns the strategy name used in logs and configuration.
	Name() string

	// Resolve returns the absolute executable path for id, or ok=false.
	Resolve(ctx context.Context, id InterpreterID) (path string, ok bool)
}

// FixedPathLocator resolves interpreters from a path template keyed by
// version and architecture.
//
// Supported placeholders:
//
//	{{major}}  - major version, e.g. 3
//	{{minor}}  - minor version, e.g. 8
//	{{suffix}} - "" for 32-bit, "-x64" for 64-bit
type FixedPathLocator struct {
	Template string
}

// Name returns "fixed-path".
func (l *FixedPathLocator) Name() string {
	return StrategyFixedPath
}

// Resolve expands the template and checks that the file exists.
func (l *FixedPathLocator) Resolve(_ context.Context, id InterpreterID) (string, bool) {
	path := l.Expand(id)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Expand renders the template for id.
func (l *FixedPathLocator) Expand(id InterpreterID) string {
	suffix := ""
	if id.Arch == Arch64 {
		suffix = "-x64"
	}
	return strings.NewReplacer(
		"{{major}}", strconv.Itoa(id.Major),
		"{{minor}}", strconv.Itoa(id.Minor),
		"{{suffix}}", suffix,
	).Replace(l.Template)
}

// LauncherLocator asks a version dispatching launcher (the Windows "py"
// launcher) for the interpreter matching an identifier:
//
//	py -3.8-64 -c "import sys; print(sys.executable)"
type LauncherLocator struct {
	Launcher string
	Runner   Runner
}

// Name returns "launcher".
func (l *LauncherLocator) Name() string {
	return StrategyLauncher
}

// Resolve runs the launcher and returns the path it prints.
//
// # Returns
//
// The last non-empty output line when it is an absolute path to an
// existing file. Anything else, including a failing launcher, is a miss.
//
// # Thread Safety
//
// Safe for concurrent use when the Runner is.
func (l *LauncherLocator) Resolve(ctx context.Context, id InterpreterID) (string, bool) {
	inv := Invocation{
		Name: l.Launcher,
		Args: []string{
			fmt.Sprintf("-%d.%d-%d", id.Major, id.Minor, int(id.Arch)),
			"-c", "import sys; print(sys.executable)",
		},
	}

	result, err := l.Runner.Run(ctx, inv)
	if err != nil || result == nil {
		return "", false
	}

	// The launcher may print warnings first; the path is the last line
	for i := len(result.Output) - 1; i >= 0; i-- {
		line := strings.TrimSpace(result.Output[i])
		if line == "" {
			continue
		}
		if !filepath.IsAbs(line) {
			return "", false
		}
		if info, err := os.Stat(line); err != nil || info.IsDir() {
			return "", false
		}
		return line, true
	}
	return "", false
}

// MemoLocator caches the answers of another Locator so every identifier is
// resolved at most once per run. Misses are cached too.
type MemoLocator struct {
	inner Locator

	mu    sync.Mutex
	cache map[InterpreterID]memoEntry
}

type memoEntry struct {
	path string
	ok   bool
}

// NewMemoLocator wraps inner.
func NewMemoLocator(inner Locator) *MemoLocator {
	return &MemoLocator{inner: inner, cache: make(map[InterpreterID]memoEntry)}
}

// Name returns the wrapped strategy name.
func (m *MemoLocator) Name() string {
	return m.inner.Name()
}

// Resolve returns the cached answer or asks the wrapped locator.
func (m *MemoLocator) Resolve(ctx context.Context, id InterpreterID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.cache[id]; ok {
		return entry.path, entry.ok
	}
	path, ok := m.inner.Resolve(ctx, id)
	m.cache[id] = memoEntry{path: path, ok: ok}
	return path, ok
}

// LocatorFactory holds the available strategies and picks one for the host.
//
//	factory := NewLocatorFactory(cfg.Locator, ExecRunner{})
//	locator, err := factory.Select("auto")
type LocatorFactory struct {
	locators []Locator
	launcher string
}

// NewLocatorFactory registers the fixed-path and launcher strategies.
func NewLocatorFactory(cfg LocatorConfig, runner Runner) *LocatorFactory {
	factory := &LocatorFactory{launcher: cfg.Launcher}
	factory.Register(&FixedPathLocator{Template: cfg.FixedPath})
	factory.Register(&LauncherLocator{Launcher: cfg.Launcher, Runner: runner})
	return factory
}

// Register adds a strategy. A later registration with the same name wins.
func (f *LocatorFactory) Register(locator Locator) {
	for i, existing := range f.locators {
		if existing.Name() == locator.Name() {
			f.locators[i] = locator
			return
		}
	}
	f.locators = append(f.locators, locator)
}

// Select returns the named strategy wrapped in a MemoLocator.
//
// "auto" picks the launcher when its binary is on PATH and falls back to
// the fixed-path convention otherwise.
func (f *LocatorFactory) Select(strategy string) (Locator, error) {
	if strategy == "" || strategy == StrategyAuto {
		strategy = StrategyFixedPath
		if f.launcher != "" && CheckToolAvailable(f.launcher) == nil {
			strategy = StrategyLauncher
		}
	}

	for _, locator := range f.locators {
		if locator.Name() == strategy {
			return NewMemoLocator(locator), nil
		}
	}
	return nil, fmt.Errorf("unknown locator strategy: %s", strategy)
}

// ResolveAll resolves every identifier in order and drops the ones that are
// not installed. The result is always a subset of ids, in the same order.
func ResolveAll(ctx context.Context, locator Locator, ids []InterpreterID, logger *slog.Logger) []ResolvedInterpreter {
	logger = loggerOrDefault(logger)

	var resolved []ResolvedInterpreter
	for _, id := range ids {
		path, ok := locator.Resolve(ctx, id)
		if !ok {
			logger.Debug("Interpreter not found, skipping.", "interpreter", id.String(), "strategy", locator.Name())
			continue
		}
		logger.Info("Interpreter resolved.", "interpreter", id.String(), "path", path)
		resolved = append(resolved, ResolvedInterpreter{ID: id, Path: path})
	}
	return resolved
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
