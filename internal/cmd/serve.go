package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jmgilman/pyexec/internal/server"
	"github.com/jmgilman/pyexec/internal/slogger"
)

const (
	metricsPath            = "/metrics"
	metricsShutdownTimeout = 5 * time.Second
	metricsHeaderTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tools over MCP on stdio",
	Long: `Serve execute_code and manage_packages as Model Context Protocol tools over
stdin and stdout. Tools run in the working directory the server was started
in. Logs go to stderr.

With --metrics-addr (or server.metrics_addr), Prometheus metrics are served on
http://<addr>/metrics while the session lasts.`,
	Example: `  # Typical MCP host configuration entry
  pyexec serve -C /path/to/project

  # Expose metrics
  pyexec serve --metrics-addr 127.0.0.1:9464`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	dir, err := workDir(cmd)
	if err != nil {
		return err
	}

	d, err := requireDeps(cmd.Context())
	if err != nil {
		return err
	}

	addr, err := metricsAddr(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slogger.L(ctx)

	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen for metrics: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle(metricsPath, d.metrics.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: metricsHeaderTimeout}

		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("serving metrics", "addr", ln.Addr().String(), "path", metricsPath)
	}

	log.Info("serving tools on stdio", "workdir", dir)

	if err := server.New(d.toolbox, dir).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// metricsAddr returns the flag value, falling back to configuration.
func metricsAddr(cmd *cobra.Command) (string, error) {
	addr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return "", fmt.Errorf("get metrics-addr flag: %w", err)
	}
	if addr == "" {
		if cfg := ConfigFromContext(cmd.Context()); cfg != nil {
			addr = cfg.Server.MetricsAddr
		}
	}
	return addr, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
}
