// Package interpreter locates the Python interpreter used to run snippets.
//
// Resolution walks a fixed precedence list: a project-local virtual
// environment, then an interpreter bundled in the host application's data
// directory, then well-known commands on the system PATH. The first candidate
// that qualifies wins.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stage identifies which part of the precedence list produced a candidate.
type Stage string

// Resolution stages in precedence order.
const (
	StageVenv    Stage = "venv"
	StageBundled Stage = "bundled"
	StageSystem  Stage = "system"
)

// stageLabels are the human-readable names used in NotFoundError.
var stageLabels = map[Stage]string{
	StageVenv:    "project .venv",
	StageBundled: "bundled host interpreter",
	StageSystem:  "system PATH",
}

// Candidate is one place to look for an interpreter. Exactly one of Path or
// Command is set: paths are checked for existence, commands are probed.
type Candidate struct {
	Stage   Stage
	Path    string
	Command string
}

// Target returns the path or command the candidate refers to.
func (c Candidate) Target() string {
	if c.Path != "" {
		return c.Path
	}
	return c.Command
}

// Resolved is the interpreter chosen by a Locator.
type Resolved struct {
	// Path is an absolute path or a bare command name.
	Path  string
	Stage Stage
}

// Resolver resolves the interpreter to use for a working directory.
type Resolver interface {
	Resolve(ctx context.Context, workDir string) (*Resolved, error)
}

// ErrNotFound indicates that no candidate produced a usable interpreter.
var ErrNotFound = errors.New("no Python interpreter found")

// NotFoundError reports the stages that were checked without success.
type NotFoundError struct {
	Stages []Stage
}

func (e *NotFoundError) Error() string {
	labels := make([]string, 0, len(e.Stages))
	for _, s := range e.Stages {
		labels = append(labels, stageLabels[s])
	}
	return fmt.Sprintf("%s: checked %s", ErrNotFound, strings.Join(labels, ", "))
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
