package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func requireDeps(ctx context.Context) (*deps, error) {
	d := depsFromContext(ctx)
	if d == nil {
		return nil, errors.New("execution stack not initialized")
	}
	return d, nil
}

// workDir returns the absolute working directory selected by -C, or the
// current directory.
func workDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("workdir")
	if err != nil {
		return "", fmt.Errorf("get workdir flag: %w", err)
	}

	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return abs, nil
}

// printOutput writes captured child output to the command's streams.
func printOutput(cmd *cobra.Command, stdout, stderr string) {
	if stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), stdout)
	}
	if stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), stderr)
	}
}
