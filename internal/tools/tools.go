// Package tools implements the operations exposed to a host: running a code
// snippet and managing the interpreter's packages.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmgilman/pyexec/internal/harness"
	"github.com/jmgilman/pyexec/internal/interpreter"
	"github.com/jmgilman/pyexec/internal/metrics"
	"github.com/jmgilman/pyexec/internal/slogger"
)

// Tool names as exposed to hosts.
const (
	ToolExecuteCode    = "execute_code"
	ToolManagePackages = "manage_packages"
)

// outcomeValidation and outcomeNotFound extend harness outcomes for metrics.
const (
	outcomeValidation = "validation-error"
	outcomeNotFound   = "not-found"
	outcomeError      = "error"
)

// Runner executes a payload with a resolved interpreter.
type Runner interface {
	Run(ctx context.Context, interpreter string, req harness.Request) (*harness.Result, error)
}

// ExecuteCodeInput is the input of execute_code.
type ExecuteCodeInput struct {
	Code string `json:"code" jsonschema:"Python source to run. Print anything you want returned."`
}

// ExecuteCodeOutput is the output of execute_code.
type ExecuteCodeOutput struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// ManagePackagesInput is the input of manage_packages.
type ManagePackagesInput struct {
	Action  string `json:"action" jsonschema:"Action to perform: install, uninstall or list" validate:"required,oneof=install uninstall list"`
	Package string `json:"package,omitempty" jsonschema:"Package name or specifier, required for install and uninstall" validate:"required_unless=Action list"`
}

// ManagePackagesOutput is the output of manage_packages. For list, Result is
// a []Package when pip's output parses and the raw text otherwise.
type ManagePackagesOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

// PipError reports a pip run that exited with a non-zero status.
type PipError struct {
	Action string
	Exit   *harness.ExitError
}

func (e *PipError) Error() string {
	return fmt.Sprintf("pip %s failed with code %d. Stderr: %s", e.Action, e.Exit.Code, e.Exit.Stderr)
}

func (e *PipError) Unwrap() error {
	return e.Exit
}

// Toolbox wires interpreter resolution to the execution harness.
type Toolbox struct {
	resolver interpreter.Resolver
	runner   Runner
	metrics  *metrics.Metrics
}

// New creates a Toolbox. m may be nil.
func New(resolver interpreter.Resolver, runner Runner, m *metrics.Metrics) *Toolbox {
	return &Toolbox{resolver: resolver, runner: runner, metrics: m}
}

// ExecuteCode runs in.Code in workDir and returns its trimmed output. A
// non-zero exit is returned as a *harness.ExitError carrying code and stderr.
func (t *Toolbox) ExecuteCode(ctx context.Context, workDir string, in ExecuteCodeInput) (out *ExecuteCodeOutput, err error) {
	start := time.Now()
	defer func() { t.metrics.RecordToolCall(ToolExecuteCode, outcomeOf(err), time.Since(start)) }()

	interp, err := t.resolve(ctx, workDir)
	if err != nil {
		return nil, err
	}

	slogger.L(ctx).Info("executing code", "interpreter", interp.Path, "workdir", workDir)

	res, err := t.runner.Run(ctx, interp.Path, harness.Request{
		WorkDir: workDir,
		Payload: harness.Code{Source: in.Code},
	})
	if err != nil {
		return nil, err
	}

	return &ExecuteCodeOutput{Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

// ManagePackages runs pip for the requested action. Input is validated before
// an interpreter is resolved or anything is spawned.
func (t *Toolbox) ManagePackages(ctx context.Context, workDir string, in ManagePackagesInput) (out *ManagePackagesOutput, err error) {
	start := time.Now()
	defer func() { t.metrics.RecordToolCall(ToolManagePackages, outcomeOf(err), time.Since(start)) }()

	action, err := ParsePackageAction(in)
	if err != nil {
		return nil, err
	}

	return t.runPackageAction(ctx, workDir, action)
}

// runPackageAction runs an already validated action.
func (t *Toolbox) runPackageAction(ctx context.Context, workDir string, action PackageAction) (*ManagePackagesOutput, error) {
	interp, err := t.resolve(ctx, workDir)
	if err != nil {
		return nil, err
	}

	slogger.L(ctx).Info("running pip", "action", action.Name(), "interpreter", interp.Path)

	res, err := t.runner.Run(ctx, interp.Path, harness.Request{
		WorkDir: workDir,
		Payload: harness.Args(action.pipArgs()),
	})
	if err != nil {
		var exitErr *harness.ExitError
		if errors.As(err, &exitErr) {
			return nil, &PipError{Action: action.Name(), Exit: exitErr}
		}
		return nil, fmt.Errorf("pip %s: %w", action.Name(), err)
	}

	out := &ManagePackagesOutput{
		Success: true,
		Message: fmt.Sprintf("pip %s completed", action.Name()),
		Result:  res.Stdout,
	}
	if _, ok := action.(List); ok {
		if pkgs, err := parsePackageList(res.Stdout); err == nil {
			out.Result = pkgs
		} else {
			slogger.L(ctx).Debug("pip list output is not JSON", "error", err)
		}
	}
	return out, nil
}

func (t *Toolbox) resolve(ctx context.Context, workDir string) (*interpreter.Resolved, error) {
	interp, err := t.resolver.Resolve(ctx, workDir)
	if err != nil {
		t.metrics.RecordResolution(outcomeNotFound)
		return nil, err
	}
	t.metrics.RecordResolution(string(interp.Stage))
	return interp, nil
}

func parsePackageList(stdout string) ([]Package, error) {
	pkgs := []Package{}
	if err := json.Unmarshal([]byte(stdout), &pkgs); err != nil {
		return nil, err
	}
	if pkgs == nil {
		pkgs = []Package{}
	}
	return pkgs, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return string(harness.OutcomeSuccess)
	case errors.Is(err, ErrValidation):
		return outcomeValidation
	case errors.Is(err, interpreter.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, harness.ErrNonZeroExit):
		return string(harness.OutcomeNonZeroExit)
	case errors.Is(err, harness.ErrSpawn):
		return string(harness.OutcomeSpawnError)
	default:
		return outcomeError
	}
}
