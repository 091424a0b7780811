package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
}

func TestExecutor_Run(t *testing.T) {
	e := New()

	t.Run("captures stdout", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "echo",
			Args: []string{"hello"},
		})

		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(result.Stdout))
		assert.Empty(t, result.Stderr)
		assert.Equal(t, 0, result.ExitCode)
		assert.True(t, result.Started)
	})

	t.Run("captures stderr", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "sh",
			Args: []string{"-c", "echo error >&2"},
		})

		require.NoError(t, err)
		assert.Empty(t, result.Stdout)
		assert.Equal(t, "error\n", string(result.Stderr))
		assert.Equal(t, 0, result.ExitCode)
	})

	t.Run("captures exit code on failure", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "sh",
			Args: []string{"-c", "exit 42"},
		})

		require.Error(t, err)
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 42, result.ExitCode)
	})

	t.Run("streams to provided stdout writer", func(t *testing.T) {
		var buf bytes.Buffer
		result, err := e.Run(context.Background(), &RunOptions{
			Name:   "echo",
			Args:   []string{"streamed"},
			Stdout: &buf,
		})

		require.NoError(t, err)
		assert.Nil(t, result.Stdout, "Stdout should be nil when streaming")
		assert.Equal(t, "streamed\n", buf.String())
	})

	t.Run("streams to provided stderr writer", func(t *testing.T) {
		var buf bytes.Buffer
		result, err := e.Run(context.Background(), &RunOptions{
			Name:   "sh",
			Args:   []string{"-c", "echo error >&2"},
			Stderr: &buf,
		})

		require.NoError(t, err)
		assert.Nil(t, result.Stderr, "Stderr should be nil when streaming")
		assert.Equal(t, "error\n", buf.String())
	})

	t.Run("respects working directory", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "pwd",
			Dir:  "/tmp",
		})

		require.NoError(t, err)
		// On macOS, /tmp is a symlink to /private/tmp
		assert.Contains(t, string(result.Stdout), "/tmp",
			"expected output to contain /tmp, got: %s", string(result.Stdout))
	})

	t.Run("passes environment variables", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "sh",
			Args: []string{"-c", "echo $TEST_VAR"},
			Env:  []string{"TEST_VAR=hello_env"},
		})

		require.NoError(t, err)
		assert.Equal(t, "hello_env\n", string(result.Stdout))
	})

	t.Run("reads from stdin", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name:  "cat",
			Stdin: strings.NewReader("input data"),
		})

		require.NoError(t, err)
		assert.Equal(t, "input data", string(result.Stdout))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := e.Run(ctx, &RunOptions{
			Name: "sleep",
			Args: []string{"10"},
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "signal: killed"),
			"expected context deadline or killed signal, got: %v", err)
	})

	t.Run("returns error for nonexistent command", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "nonexistent_command_12345",
		})

		require.Error(t, err)
		var exitErr *exec.ExitError
		assert.False(t, errors.As(err, &exitErr), "spawn failure must not look like an exit")
		assert.Equal(t, -1, result.ExitCode)
		assert.False(t, result.Started)
	})

	t.Run("reports a started process when output outlives it", func(t *testing.T) {
		if testing.Short() {
			t.Skip("waits for the output drain deadline")
		}

		result, err := e.Run(context.Background(), &RunOptions{
			Name: "sh",
			Args: []string{"-c", "sleep 8 & echo hi"},
		})

		require.ErrorIs(t, err, exec.ErrWaitDelay)
		assert.True(t, result.Started)
		assert.Equal(t, 0, result.ExitCode)
		assert.Equal(t, "hi\n", string(result.Stdout))
	})

	t.Run("keeps partial output on failure", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "sh",
			Args: []string{"-c", "echo before; echo oops >&2; exit 3"},
		})

		require.Error(t, err)
		assert.Equal(t, 3, result.ExitCode)
		assert.Equal(t, "before\n", string(result.Stdout))
		assert.Equal(t, "oops\n", string(result.Stderr))
	})

	t.Run("caps captured output", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name:           "sh",
			Args:           []string{"-c", "printf 0123456789"},
			MaxOutputBytes: 4,
		})

		require.NoError(t, err)
		assert.Equal(t, "0123", string(result.Stdout))
		assert.True(t, result.Truncated)
	})

	t.Run("does not cap when limit is zero", func(t *testing.T) {
		result, err := e.Run(context.Background(), &RunOptions{
			Name: "sh",
			Args: []string{"-c", "printf 0123456789"},
		})

		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(result.Stdout))
		assert.False(t, result.Truncated)
	})
}

func TestCaptureBuffer(t *testing.T) {
	t.Run("drains writes past the limit", func(t *testing.T) {
		buf := &captureBuffer{limit: 3}

		n, err := buf.Write([]byte("ab"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = buf.Write([]byte("cdef"))
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		n, err = buf.Write([]byte("gh"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		assert.Equal(t, "abc", string(buf.Bytes()))
		assert.True(t, buf.truncated)
	})

	t.Run("exact fit is not truncated", func(t *testing.T) {
		buf := &captureBuffer{limit: 3}
		_, err := buf.Write([]byte("abc"))
		require.NoError(t, err)
		assert.False(t, buf.truncated)
	})
}

func TestExecutor_LookPath(t *testing.T) {
	e := New()

	t.Run("finds existing command", func(t *testing.T) {
		path, err := e.LookPath("echo")

		require.NoError(t, err)
		assert.NotEmpty(t, path)
		assert.True(t, strings.HasSuffix(path, "echo") || strings.Contains(path, "echo"),
			"expected path to contain echo, got: %s", path)
	})

	t.Run("returns error for nonexistent command", func(t *testing.T) {
		_, err := e.LookPath("nonexistent_command_12345")

		require.Error(t, err)
		var execErr *exec.Error
		assert.ErrorAs(t, err, &execErr)
	})
}
