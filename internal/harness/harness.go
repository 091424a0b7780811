// Package harness runs a resolved interpreter as a one-shot child process.
//
// Inline code is written to a transient script under the working directory,
// executed, and removed again on every path. Argument lists are passed to the
// interpreter directly. Output is captured in full and classified by exit
// code.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	pyexec "github.com/jmgilman/pyexec/internal/exec"
	"github.com/jmgilman/pyexec/internal/slogger"
)

// NoColorEnv is always part of the child environment so captured text is free
// of ANSI escapes.
const NoColorEnv = "NO_COLOR=true"

// Transient script naming.
const (
	ScriptPrefix    = "temp_script_"
	ScriptExtension = ".py"
)

const scriptFileMode = 0o600

// Sentinel errors for execution failures.
var (
	ErrNonZeroExit  = errors.New("process exited with non-zero status")
	ErrSpawn        = errors.New("process could not be started")
	ErrInvalidInput = errors.New("invalid execution request")
)

// Outcome classifies how an execution ended.
type Outcome string

// Execution outcomes.
const (
	OutcomeSuccess     Outcome = "success"
	OutcomeNonZeroExit Outcome = "non-zero-exit"
	OutcomeSpawnError  Outcome = "spawn-error"
)

// Payload is what the interpreter is asked to run: Code or Args.
type Payload interface {
	isPayload()
}

// Code is inline source written to a transient script.
type Code struct {
	Source string
}

// Args is an argument list passed to the interpreter as-is.
type Args []string

func (Code) isPayload() {}
func (Args) isPayload() {}

// Request describes one execution.
type Request struct {
	// WorkDir is an existing absolute directory. The child runs here and
	// transient scripts are created here.
	WorkDir string
	Payload Payload
	// Env is overlaid on the inherited environment (KEY=VALUE).
	Env []string
}

// Result is the captured outcome of an execution.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Outcome   Outcome
	Truncated bool
	Duration  time.Duration
}

// ExitError reports a child that ran but exited with a non-zero status.
// Stdout holds whatever was printed before the failure; it is not part of
// the message.
type ExitError struct {
	Code   int
	Stderr string
	Stdout string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d. Stderr: %s", e.Code, e.Stderr)
}

// Is lets errors.Is match ErrNonZeroExit.
func (e *ExitError) Is(target error) bool {
	return target == ErrNonZeroExit
}

// SpawnError reports an OS-level failure to start the child.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSpawn, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrSpawn.
func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawn
}

// Config configures a Harness.
type Config struct {
	// Env is overlaid on every child environment after NO_COLOR.
	Env []string

	// MaxOutputBytes caps each captured stream. Zero means unbounded.
	MaxOutputBytes int
}

// Harness runs interpreters through an Executor.
type Harness struct {
	exec pyexec.Executor
	cfg  Config
	now  func() time.Time
}

// New creates a Harness.
func New(e pyexec.Executor, cfg Config) *Harness {
	return &Harness{exec: e, cfg: cfg, now: time.Now}
}

// Run executes req with interpreter and waits for it to finish.
//
// On success the error is nil. A non-zero exit returns the captured Result
// together with an *ExitError; a failure to start returns a Result with
// OutcomeSpawnError and a *SpawnError.
func (h *Harness) Run(ctx context.Context, interpreter string, req Request) (*Result, error) {
	if err := validate(interpreter, req); err != nil {
		return nil, err
	}

	var args []string
	switch p := req.Payload.(type) {
	case Code:
		script, err := h.createScript(req.WorkDir, p.Source)
		if err != nil {
			return nil, err
		}
		defer script.release(ctx)
		args = []string{script.path}
	case Args:
		args = p
	}

	return h.spawn(ctx, interpreter, req, args)
}

func (h *Harness) spawn(ctx context.Context, interpreter string, req Request, args []string) (*Result, error) {
	log := slogger.L(ctx)

	env := make([]string, 0, 1+len(h.cfg.Env)+len(req.Env))
	env = append(env, NoColorEnv)
	env = append(env, h.cfg.Env...)
	env = append(env, req.Env...)

	start := h.now()
	res, err := h.exec.Run(ctx, &pyexec.RunOptions{
		Name:           interpreter,
		Args:           args,
		Dir:            req.WorkDir,
		Env:            env,
		MaxOutputBytes: h.cfg.MaxOutputBytes,
	})

	result := &Result{Duration: h.now().Sub(start)}
	if res != nil {
		result.Stdout = strings.TrimSpace(string(res.Stdout))
		result.Stderr = strings.TrimSpace(string(res.Stderr))
		result.ExitCode = res.ExitCode
		result.Truncated = res.Truncated
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err != nil && res != nil && res.Started:
		// The process ran to completion; only draining its output failed.
		log.Debug("process output incomplete", "interpreter", interpreter, "error", err)
	case err != nil:
		result.Outcome = OutcomeSpawnError
		result.ExitCode = -1
		log.Debug("process did not start", "interpreter", interpreter, "error", err)
		return result, &SpawnError{Err: err}
	}

	if result.ExitCode != 0 {
		result.Outcome = OutcomeNonZeroExit
		log.Debug("process failed", "interpreter", interpreter, "code", result.ExitCode)
		return result, &ExitError{Code: result.ExitCode, Stderr: result.Stderr, Stdout: result.Stdout}
	}

	result.Outcome = OutcomeSuccess
	log.Debug("process finished", "interpreter", interpreter, "duration", result.Duration)
	return result, nil
}

func validate(interpreter string, req Request) error {
	if interpreter == "" {
		return fmt.Errorf("%w: interpreter is required", ErrInvalidInput)
	}
	if req.Payload == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}
	if !filepath.IsAbs(req.WorkDir) {
		return fmt.Errorf("%w: working directory %q is not absolute", ErrInvalidInput, req.WorkDir)
	}
	info, err := os.Stat(req.WorkDir)
	if err != nil {
		return fmt.Errorf("%w: working directory: %w", ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: working directory %q is not a directory", ErrInvalidInput, req.WorkDir)
	}
	return nil
}

// transientScript is a script file owned by a single Run call.
type transientScript struct {
	path string
}

// createScript writes source to a new, exclusively created file in dir.
func (h *Harness) createScript(dir, source string) (*transientScript, error) {
	name := fmt.Sprintf("%s%d_%s%s", ScriptPrefix, h.now().UnixMilli(), uuid.NewString(), ScriptExtension)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, scriptFileMode)
	if err != nil {
		return nil, fmt.Errorf("create script: %w", err)
	}
	script := &transientScript{path: path}

	_, werr := f.WriteString(source)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		script.release(context.Background())
		return nil, fmt.Errorf("write script: %w", err)
	}
	return script, nil
}

// release removes the script. Failures are logged and never returned.
func (s *transientScript) release(ctx context.Context) {
	if err := os.Remove(s.path); err != nil {
		slogger.L(ctx).Debug("failed to remove transient script", "path", s.path, "error", err)
	}
}
