// Package datadir locates the host application's data directory.
//
// The location is recorded in a one-line pointer file in the user's home
// directory. When the pointer is missing, a legacy location is adopted if it
// exists, otherwise the default location is used; either way the pointer is
// written so later lookups are a single file read.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Default locations relative to the user's home directory.
const (
	PointerFile   = ".lmstudio-home-pointer"
	LegacyDataDir = ".cache/lm-studio"
	DefaultDir    = ".lmstudio"
)

const pointerFileMode = 0o644

// Finder resolves the data directory once and serves the cached value
// afterwards. Failed lookups are not cached. It is safe for concurrent use.
type Finder struct {
	homeDir func() (string, error)
	static  bool

	mu  sync.Mutex
	dir string
}

// NewFinder returns a Finder rooted at the home directory reported by homeDir.
// A nil homeDir uses os.UserHomeDir.
func NewFinder(homeDir func() (string, error)) *Finder {
	if homeDir == nil {
		homeDir = os.UserHomeDir
	}
	return &Finder{homeDir: homeDir}
}

// Static returns a Finder that always reports dir without touching the
// filesystem.
func Static(dir string) *Finder {
	return &Finder{dir: dir, static: true}
}

// Dir returns the data directory, performing the lookup until one succeeds.
func (f *Finder) Dir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.static || f.dir != "" {
		return f.dir, nil
	}

	dir, err := f.lookup()
	if err != nil {
		return "", err
	}
	f.dir = dir
	return dir, nil
}

func (f *Finder) lookup() (string, error) {
	home, err := f.homeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	home, err = filepath.EvalSymlinks(home)
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	pointer := filepath.Join(home, PointerFile)

	// An unreadable pointer is treated like a missing one.
	if raw, err := os.ReadFile(pointer); err == nil {
		if dir := strings.TrimSpace(string(raw)); dir != "" {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(home, dir)
			}
			return dir, nil
		}
	}

	dir := filepath.Join(home, DefaultDir)
	if legacy := filepath.Join(home, LegacyDataDir); exists(legacy) {
		dir = legacy
	}

	// Best effort: a read-only home still gets an answer.
	_ = os.WriteFile(pointer, []byte(dir), pointerFileMode)

	return dir, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var defaultFinder = NewFinder(nil)

// Dir returns the data directory using the process-wide Finder. The first
// successful lookup is cached for the lifetime of the process.
func Dir() (string, error) {
	return defaultFinder.Dir()
}
