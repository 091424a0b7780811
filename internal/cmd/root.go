// Package cmd implements the pyexec CLI commands using Cobra.
// It provides commands for running Python snippets, managing packages of the
// resolved interpreter, and serving both as MCP tools over stdio.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmgilman/pyexec/internal/config"
	"github.com/jmgilman/pyexec/internal/datadir"
	pyexec "github.com/jmgilman/pyexec/internal/exec"
	"github.com/jmgilman/pyexec/internal/harness"
	"github.com/jmgilman/pyexec/internal/interpreter"
	"github.com/jmgilman/pyexec/internal/metrics"
	"github.com/jmgilman/pyexec/internal/slogger"
	"github.com/jmgilman/pyexec/internal/tools"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader is used by the config command.
var configLoader *config.Loader

var rootCmd = &cobra.Command{
	Use:   "pyexec",
	Short: "Run Python snippets with the project's interpreter",
	Long: `pyexec runs Python code snippets and pip commands with the interpreter a
project would use: its .venv first, then the interpreter bundled with the host
application, then python on PATH.

Snippets are written to a transient script in the working directory, executed
there, and removed afterwards. The same operations are available to LLM hosts
as MCP tools through "pyexec serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			return fmt.Errorf("get verbose flag: %w", err)
		}

		logger := slogger.New(slogger.Config{
			Verbosity:  verbosity,
			Output:     cmd.ErrOrStderr(),
			Timestamps: cmd.Name() == "serve",
		})

		deps := newDeps(effectiveConfig())

		// Store dependencies in context for subcommands
		ctx := cmd.Context()
		ctx = slogger.WithLogger(ctx, logger)
		ctx = WithConfig(ctx, appConfig)
		ctx = WithLoader(ctx, configLoader)
		ctx = WithDeps(ctx, deps)
		cmd.SetContext(ctx)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringP("workdir", "C", "", "working directory for execution (default: current directory)")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config validation failed: %v\n", err)
	}

	appConfig = cfg
	configLoader = loader
}

// effectiveConfig returns the loaded configuration, or built-in defaults when
// loading failed.
func effectiveConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	return &config.Config{
		Execution:   config.ExecutionConfig{Env: map[string]string{"no_color": "true"}},
		Interpreter: config.InterpreterConfig{ProbeTimeout: interpreter.DefaultProbeTimeout},
	}
}

// deps bundles the long-lived components shared by subcommands.
type deps struct {
	locator  *interpreter.Locator
	resolver interpreter.Resolver
	harness  *harness.Harness
	metrics  *metrics.Metrics
	toolbox  *tools.Toolbox
}

// newDeps wires the execution stack from configuration.
func newDeps(cfg *config.Config) *deps {
	executor := pyexec.New()

	dataDir := datadir.Dir
	if cfg.Host.DataDir != "" {
		dataDir = datadir.Static(cfg.Host.DataDir).Dir
	}

	locator := interpreter.NewLocator(executor, dataDir, interpreter.Config{
		SystemCandidates: cfg.Interpreter.SystemCandidates,
		ProbeTimeout:     cfg.Interpreter.ProbeTimeout,
	})
	resolver := interpreter.NewCachingResolver(locator, cfg.Interpreter.CacheTTL)

	h := harness.New(executor, harness.Config{
		Env:            cfg.EnvList(),
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	})

	m := metrics.New()

	return &deps{
		locator:  locator,
		resolver: resolver,
		harness:  h,
		metrics:  m,
		toolbox:  tools.New(resolver, h, m),
	}
}
