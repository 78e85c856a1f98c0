// Package tools resolves the external binaries the merge pipeline drives.
//
// A Locator turns a tool name such as "ffmpeg" into an executable path. The
// bundled locator prefers copies shipped next to the application (or in a
// configured directory) and the PATH locator falls back to the system.
package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when no locator can resolve a tool.
var ErrNotFound = errors.New("tool not found")

// Locator resolves a tool name to an executable path.
type Locator interface {
	Locate(name string) (string, error)
}

// LocatorFunc adapts a plain function to Locator.
type LocatorFunc func(name string) (string, error)

// Locate calls f(name).
func (f LocatorFunc) Locate(name string) (string, error) { return f(name) }

// PathLocator resolves tools through the PATH environment variable.
type PathLocator struct{}

// Locate looks name up on PATH.
func (PathLocator) Locate(name string) (string, error) {
	resolved, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q not on PATH", ErrNotFound, name)
	}
	return resolved, nil
}

// BundledLocator looks for tools shipped alongside the application: first in
// Dir when set, then next to the running executable.
type BundledLocator struct {
	Dir        string
	executable func() (string, error)
}

// NewBundledLocator creates a locator searching dir and the executable's directory.
func NewBundledLocator(dir string) *BundledLocator {
	return &BundledLocator{Dir: strings.TrimSpace(dir), executable: os.Executable}
}

// Locate returns the first executable candidate for name.
func (l *BundledLocator) Locate(name string) (string, error) {
	for _, dir := range l.searchDirs() {
		candidate := filepath.Join(dir, binaryName(name))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no bundled %q", ErrNotFound, name)
}

func (l *BundledLocator) searchDirs() []string {
	dirs := make([]string, 0, 2)
	if l.Dir != "" {
		dirs = append(dirs, l.Dir)
	}
	exe := l.executable
	if exe == nil {
		exe = os.Executable
	}
	if path, err := exe(); err == nil {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		dirs = append(dirs, filepath.Dir(path))
	}
	return dirs
}

// Chain tries each locator in order and returns the first hit.
type Chain []Locator

// Locate resolves name with the first locator that succeeds.
func (c Chain) Locate(name string) (string, error) {
	var errs []error
	for _, loc := range c {
		if loc == nil {
			continue
		}
		path, err := loc.Locate(name)
		if err == nil {
			return path, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return "", errors.Join(errs...)
}

// Override returns a locator that answers with explicit paths for the tools
// named in paths (empty values are skipped) and defers to next otherwise.
func Override(paths map[string]string, next Locator) Locator {
	return LocatorFunc(func(name string) (string, error) {
		if configured := strings.TrimSpace(paths[name]); configured != "" {
			if strings.ContainsRune(configured, filepath.Separator) {
				return configured, nil
			}
			return PathLocator{}.Locate(configured)
		}
		if next == nil {
			return "", fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return next.Locate(name)
	})
}

// Default returns the standard lookup: explicit overrides, then bundled
// binaries in bundledDir or next to the executable, then PATH.
func Default(overrides map[string]string, bundledDir string) Locator {
	return Override(overrides, Chain{NewBundledLocator(bundledDir), PathLocator{}})
}

func binaryName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
