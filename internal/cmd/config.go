package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/pyexec/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View and modify configuration",
	Long: `View and modify pyexec configuration.

With no arguments, displays all configuration.
With one argument, displays the value for the specified key.
With two arguments, sets the value for the specified key.

Entries of the child environment overlay are addressed as
execution.env.<NAME>.`,
	Example: `  # Show all config
  pyexec config

  # Show value for a specific key
  pyexec config interpreter.probe_timeout

  # Set a value
  pyexec config interpreter.cache_ttl 30s
  pyexec config execution.env.PYTHONUNBUFFERED 1

  # Open config file in editor
  pyexec config --edit`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := requireLoader(cmd)
		if err != nil {
			return err
		}

		editFlag, _ := cmd.Flags().GetBool("edit")
		if editFlag {
			return runEdit(loader)
		}

		w := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			return runShowAll(w, loader)
		case 1:
			return runShowKey(w, loader, args[0])
		case 2:
			return runSetKey(w, loader, args[0], args[1])
		}

		return nil
	},
}

// requireLoader returns the loader from context, creating one if startup
// could not.
func requireLoader(cmd *cobra.Command) (*config.Loader, error) {
	if loader := LoaderFromContext(cmd.Context()); loader != nil {
		return loader, nil
	}
	loader, err := config.NewLoader()
	if err != nil {
		return nil, fmt.Errorf("init config loader: %w", err)
	}
	return loader, nil
}

func runEdit(loader *config.Loader) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return config.ErrNoEditor
	}

	// Ensure config exists (Load creates it if missing)
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	editorCmd := exec.Command(editor, loader.Path()) //nolint:gosec // editor comes from the user's environment
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	return editorCmd.Run()
}

func runShowAll(w io.Writer, loader *config.Loader) error {
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	_, err = w.Write(out)
	return err
}

func runShowKey(w io.Writer, loader *config.Loader, key string) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}

	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	value, err := loader.Get(key)
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case nil:
		fmt.Fprintln(w, "")
	case string:
		fmt.Fprintln(w, v)
	case map[string]any, []any, []string:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		fmt.Fprintln(w, value)
	}

	return nil
}

func runSetKey(w io.Writer, loader *config.Loader, key, value string) error {
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := loader.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("edit", false, "open config file in $EDITOR")
}
