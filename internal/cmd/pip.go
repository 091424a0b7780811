package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/pyexec/internal/harness"
	"github.com/jmgilman/pyexec/internal/tools"
)

// Output formats for pip list.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var pipCmd = &cobra.Command{
	Use:   "pip",
	Short: "Manage packages of the resolved interpreter",
	Long: `Install, uninstall, or list packages with pip, run as a module of the
interpreter that would execute code in the working directory. When the project
has a .venv, packages go there.`,
	Example: `  pyexec pip install requests
  pyexec pip uninstall requests
  pyexec pip list -o json`,
}

var pipInstallCmd = &cobra.Command{
	Use:   "install <package>",
	Short: "Install a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipAction(cmd, tools.ManagePackagesInput{Action: tools.ActionInstall, Package: args[0]})
	},
}

var pipUninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Uninstall a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipAction(cmd, tools.ManagePackagesInput{Action: tools.ActionUninstall, Package: args[0]})
	},
}

var pipListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Args:  cobra.NoArgs,
	RunE:  runPipListCmd,
}

func runPipAction(cmd *cobra.Command, in tools.ManagePackagesInput) error {
	out, err := managePackages(cmd, in)
	if err != nil {
		return err
	}

	if text, ok := out.Result.(string); ok && text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), out.Message)
	return nil
}

func runPipListCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("get output flag: %w", err)
	}
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q: use %s, %s or %s", format, formatTable, formatJSON, formatYAML)
	}

	out, err := managePackages(cmd, tools.ManagePackagesInput{Action: tools.ActionList})
	if err != nil {
		return err
	}

	pkgs, ok := out.Result.([]tools.Package)
	if !ok {
		// pip did not return JSON; show what it printed.
		fmt.Fprintln(cmd.OutOrStdout(), out.Result)
		return nil
	}

	w := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pkgs)
	case formatYAML:
		data, err := yaml.Marshal(pkgs)
		if err != nil {
			return fmt.Errorf("marshal packages: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tVERSION")
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Version)
	}
	return tw.Flush()
}

func managePackages(cmd *cobra.Command, in tools.ManagePackagesInput) (*tools.ManagePackagesOutput, error) {
	dir, err := workDir(cmd)
	if err != nil {
		return nil, err
	}

	d, err := requireDeps(cmd.Context())
	if err != nil {
		return nil, err
	}

	out, err := d.toolbox.ManagePackages(cmd.Context(), dir, in)
	if err != nil {
		var exitErr *harness.ExitError
		if errors.As(err, &exitErr) {
			printOutput(cmd, exitErr.Stdout, exitErr.Stderr)
		}
		return nil, err
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(pipCmd)
	pipCmd.AddCommand(pipInstallCmd, pipUninstallCmd, pipListCmd)

	pipListCmd.Flags().StringP("output", "o", formatTable, "output format: table, json or yaml")
}
