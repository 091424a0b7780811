package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/pyexec/internal/exec"
	"github.com/jmgilman/pyexec/internal/slogger"
)

// DefaultProbeTimeout bounds each `--version` probe of a system candidate.
const DefaultProbeTimeout = 2 * time.Second

const goosWindows = "windows"

// VenvPaths lists the virtual environment interpreters relative to the
// working directory, in order of precedence.
var VenvPaths = []string{
	filepath.Join(".venv", "Scripts", "python.exe"),
	filepath.Join(".venv", "bin", "python"),
}

// bundledDir is where the host application ships its interpreter, relative to
// its data directory.
var bundledDir = filepath.Join(".internal", "utils")

// Config configures a Locator.
type Config struct {
	// GOOS selects platform-specific candidates. Defaults to runtime.GOOS.
	GOOS string

	// SystemCandidates overrides the PATH commands to probe.
	SystemCandidates []string

	// ProbeTimeout bounds each system probe. Defaults to DefaultProbeTimeout.
	ProbeTimeout time.Duration
}

// Locator resolves the interpreter for a working directory.
type Locator struct {
	exec    exec.Executor
	dataDir func() (string, error)
	cfg     Config
}

// NewLocator creates a Locator. dataDir reports the host application data
// directory; a nil dataDir or one that fails skips the bundled stage.
func NewLocator(e exec.Executor, dataDir func() (string, error), cfg Config) *Locator {
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	return &Locator{exec: e, dataDir: dataDir, cfg: cfg}
}

// Candidates returns the ordered candidate list for workDir.
func (l *Locator) Candidates(ctx context.Context, workDir string) []Candidate {
	var out []Candidate

	for _, rel := range VenvPaths {
		out = append(out, Candidate{Stage: StageVenv, Path: filepath.Join(workDir, rel)})
	}

	if l.dataDir != nil {
		dir, err := l.dataDir()
		if err != nil {
			slogger.L(ctx).Debug("skipping bundled interpreter", "error", err)
		} else {
			out = append(out, Candidate{Stage: StageBundled, Path: filepath.Join(dir, bundledDir, l.bundledName())})
		}
	}

	for _, cmd := range l.systemCommands() {
		out = append(out, Candidate{Stage: StageSystem, Command: cmd})
	}

	return out
}

// Resolve returns the first qualifying candidate. Nothing is cached, so a
// virtual environment created after startup is picked up on the next call.
func (l *Locator) Resolve(ctx context.Context, workDir string) (*Resolved, error) {
	log := slogger.L(ctx)
	candidates := l.Candidates(ctx, workDir)

	var commands []Candidate
	for _, c := range candidates {
		if c.Path == "" {
			commands = append(commands, c)
			continue
		}
		if exists(c.Path) {
			log.Debug("resolved interpreter", "stage", c.Stage, "path", c.Path)
			return &Resolved{Path: c.Path, Stage: c.Stage}, nil
		}
	}

	if c, ok := l.probeAll(ctx, commands); ok {
		log.Debug("resolved interpreter", "stage", c.Stage, "command", c.Command)
		return &Resolved{Path: c.Command, Stage: c.Stage}, nil
	}

	return nil, &NotFoundError{Stages: []Stage{StageVenv, StageBundled, StageSystem}}
}

// probeAll probes every command concurrently and returns the first one, in
// list order, that passed.
func (l *Locator) probeAll(ctx context.Context, commands []Candidate) (Candidate, bool) {
	passed := make([]bool, len(commands))

	var g errgroup.Group
	for i, c := range commands {
		g.Go(func() error {
			passed[i] = l.probe(ctx, c.Command)
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range passed {
		if ok {
			return commands[i], true
		}
	}
	return Candidate{}, false
}

// probe reports whether command is on PATH and answers --version with exit 0.
func (l *Locator) probe(ctx context.Context, command string) bool {
	if _, err := l.exec.LookPath(command); err != nil {
		slogger.L(ctx).Debug("interpreter not on PATH", "command", command)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
	defer cancel()

	_, err := l.exec.Run(ctx, &exec.RunOptions{
		Name:   command,
		Args:   []string{"--version"},
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
	if err != nil {
		slogger.L(ctx).Debug("interpreter probe failed", "command", command, "error", err)
		return false
	}
	return true
}

// Version runs the interpreter with --version and parses the reported version.
func (l *Locator) Version(ctx context.Context, path string) (*version.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
	defer cancel()

	res, err := l.exec.Run(ctx, &exec.RunOptions{Name: path, Args: []string{"--version"}})
	if err != nil {
		return nil, fmt.Errorf("query interpreter version: %w", err)
	}

	// Python 2 reports its version on stderr.
	out := strings.TrimSpace(string(res.Stdout))
	if out == "" {
		out = strings.TrimSpace(string(res.Stderr))
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return nil, errors.New("query interpreter version: empty output")
	}

	v, err := version.NewVersion(fields[len(fields)-1])
	if err != nil {
		return nil, fmt.Errorf("parse interpreter version %q: %w", out, err)
	}
	return v, nil
}

func (l *Locator) bundledName() string {
	if l.cfg.GOOS == goosWindows {
		return "python.exe"
	}
	return "python3"
}

func (l *Locator) systemCommands() []string {
	if len(l.cfg.SystemCandidates) > 0 {
		return l.cfg.SystemCandidates
	}
	if l.cfg.GOOS == goosWindows {
		return []string{"python", "py"}
	}
	return []string{"python3", "python"}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
