package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/pyexec/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit, and build date of pyexec.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "pyexec %s\n", version.Version)
		fmt.Fprintf(w, "  commit: %s\n", version.Commit)
		fmt.Fprintf(w, "  built:  %s\n", version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
