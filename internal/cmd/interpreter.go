package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmgilman/pyexec/internal/interpreter"
	"github.com/jmgilman/pyexec/internal/slogger"
)

var interpreterCmd = &cobra.Command{
	Use:   "interpreter",
	Short: "Show the interpreter that would run code",
	Long: `Resolve the interpreter for the working directory and print its path, the
stage it was found in, and its version.

Resolution order:

  1. The project virtual environment (.venv/Scripts/python.exe, then
     .venv/bin/python)
  2. The interpreter bundled with the host application
  3. The first of python3 and python on PATH that answers --version

Use --candidates to list every candidate in order instead.`,
	Example: `  pyexec interpreter
  pyexec interpreter -C ./project --candidates`,
	Args: cobra.NoArgs,
	RunE: runInterpreterCmd,
}

func runInterpreterCmd(cmd *cobra.Command, args []string) error {
	candidates, err := cmd.Flags().GetBool("candidates")
	if err != nil {
		return fmt.Errorf("get candidates flag: %w", err)
	}

	dir, err := workDir(cmd)
	if err != nil {
		return err
	}

	d, err := requireDeps(cmd.Context())
	if err != nil {
		return err
	}

	if candidates {
		return printCandidates(cmd, d.locator.Candidates(cmd.Context(), dir))
	}

	resolved, err := d.locator.Resolve(cmd.Context(), dir)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "path:\t%s\n", resolved.Path)
	fmt.Fprintf(w, "stage:\t%s\n", resolved.Stage)

	v, err := d.locator.Version(cmd.Context(), resolved.Path)
	if err != nil {
		slogger.L(cmd.Context()).Warn("could not determine interpreter version", "error", err)
		fmt.Fprintf(w, "version:\tunknown\n")
	} else {
		fmt.Fprintf(w, "version:\t%s\n", v.String())
	}

	return w.Flush()
}

func printCandidates(cmd *cobra.Command, candidates []interpreter.Candidate) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tCANDIDATE\tPRESENT")
	for _, c := range candidates {
		present := "probe"
		if c.Path != "" {
			present = "no"
			if _, err := os.Stat(c.Path); err == nil {
				present = "yes"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Stage, c.Target(), present)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(interpreterCmd)

	interpreterCmd.Flags().Bool("candidates", false, "list all candidates in resolution order")
}
