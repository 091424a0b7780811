package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmgilman/pyexec/internal/harness"
	"github.com/jmgilman/pyexec/internal/tools"
)

var runCmd = &cobra.Command{
	Use:   "run [code]",
	Short: "Run a Python snippet",
	Long: `Run a Python snippet with the resolved interpreter.

The snippet is taken from the argument, from --file, or from stdin when stdin
is not a terminal. It runs in the working directory, and its stdout and stderr
are printed once it finishes. pyexec exits with the snippet's exit code.`,
	Example: `  # Inline snippet
  pyexec run 'print(1 + 1)'

  # From a file
  pyexec run -f analysis.py

  # From stdin, in another directory
  echo 'import sys; print(sys.prefix)' | pyexec run -C ./project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRunCmd,
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	code, err := readCode(cmd, args)
	if err != nil {
		return err
	}

	dir, err := workDir(cmd)
	if err != nil {
		return err
	}

	d, err := requireDeps(cmd.Context())
	if err != nil {
		return err
	}

	out, err := d.toolbox.ExecuteCode(cmd.Context(), dir, tools.ExecuteCodeInput{Code: code})
	if err != nil {
		var exitErr *harness.ExitError
		if errors.As(err, &exitErr) {
			printOutput(cmd, exitErr.Stdout, exitErr.Stderr)
		}
		return err
	}

	printOutput(cmd, out.Stdout, out.Stderr)
	return nil
}

// readCode picks the snippet source: argument, then --file, then piped stdin.
func readCode(cmd *cobra.Command, args []string) (string, error) {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return "", fmt.Errorf("get file flag: %w", err)
	}

	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("provide code as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read code file: %w", err)
		}
		return string(data), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no code given: pass it as an argument, with --file, or on stdin")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("file", "f", "", "read code from file")
}
