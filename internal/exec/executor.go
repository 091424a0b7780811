package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// waitDelay bounds how long Run keeps draining output after the process has
// exited or been killed, e.g. when a grandchild still holds the pipes open.
const waitDelay = 5 * time.Second

type executor struct{}

// New returns a new Executor that uses os/exec.
func New() Executor {
	return &executor{}
}

func (e *executor) Run(ctx context.Context, opts *RunOptions) (*Result, error) {
	// G204: This is intentional - we're an executor that runs user-specified commands.
	// The caller is responsible for validating the command and arguments.
	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...) //nolint:gosec // Intentional subprocess execution
	cmd.WaitDelay = waitDelay

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	stdoutBuf := &captureBuffer{limit: opts.MaxOutputBytes}
	stderrBuf := &captureBuffer{limit: opts.MaxOutputBytes}

	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else {
		cmd.Stdout = stdoutBuf
	}

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = stderrBuf
	}

	err := cmd.Run()

	// ProcessState is nil when the process never started.
	result := &Result{ExitCode: -1}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.Started = true
	}
	if opts.Stdout == nil {
		result.Stdout = stdoutBuf.Bytes()
		result.Truncated = stdoutBuf.truncated
	}
	if opts.Stderr == nil {
		result.Stderr = stderrBuf.Bytes()
		result.Truncated = result.Truncated || stderrBuf.truncated
	}

	return result, err
}

func (e *executor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// captureBuffer accumulates output up to limit bytes and silently drops the
// rest so the child never blocks on a full pipe. A zero limit is unbounded.
type captureBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	if c.limit <= 0 {
		return c.buf.Write(p)
	}

	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *captureBuffer) Bytes() []byte {
	return c.buf.Bytes()
}
